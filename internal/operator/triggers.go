package operator

import "strings"

// #region trigger-tags

// Trigger tags derived from message text.
const (
	TriggerPhilosophical = "philosophical"
	TriggerEmotional     = "emotional"
	TriggerCreative      = "creative"
	TriggerFactual       = "factual"
	TriggerCommand       = "command"
	TriggerNovelty       = "novelty"
	TriggerIdentity      = "identity"
)

// #endregion trigger-tags

// #region keywords

var philosophicalKeywords = []string{
	"meaning of", "consciousness", "existence", "purpose of", "free will",
	"awareness", "soul", "sentience", "qualia", "subjective experience",
	"what am i", "who am i", "do you think", "do you feel",
	"are you aware", "are you conscious", "what is it like to be",
}

var emotionalKeywords = []string{
	"i feel", "you feel", "feeling", "sad", "happy", "angry", "scared",
	"afraid", "anxious", "lonely", "hurt", "love", "hate", "worried",
	"frustrated", "grateful", "proud", "ashamed", "how are you",
}

var creativeKeywords = []string{
	"write me", "compose", "imagine", "tell me a story", "make up",
	"create a", "write a", "poem", "story about", "fiction", "invent",
	"describe a scene",
}

var factualPrefixes = []string{
	"who is", "what is", "where is", "when did", "when was",
	"how many", "how much", "how old", "how far", "which",
}

var commandPrefixes = []string{
	"do ", "run ", "execute ", "list ", "show ", "stop ", "start ",
}

var noveltyKeywords = []string{
	"something new", "surprise me", "never thought", "unexpected",
	"different angle", "wild idea", "what if",
}

var identityKeywords = []string{
	"who are you", "your identity", "yourself", "your own", "your nature",
	"are you alive", "your perspective",
}

// #endregion keywords

// #region derive

// DeriveTriggers scans a message and returns the trigger tags it matches,
// in a fixed tag order so downstream behavior is deterministic.
func DeriveTriggers(message string) []string {
	lower := strings.ToLower(message)
	var tags []string

	if containsAny(lower, philosophicalKeywords) {
		tags = append(tags, TriggerPhilosophical)
	}
	if containsAny(lower, emotionalKeywords) {
		tags = append(tags, TriggerEmotional)
	}
	if containsAny(lower, creativeKeywords) {
		tags = append(tags, TriggerCreative)
	}
	if hasAnyPrefix(lower, factualPrefixes) {
		tags = append(tags, TriggerFactual)
	}
	if hasAnyPrefix(lower, commandPrefixes) {
		tags = append(tags, TriggerCommand)
	}
	if containsAny(lower, noveltyKeywords) {
		tags = append(tags, TriggerNovelty)
	}
	if containsAny(lower, identityKeywords) {
		tags = append(tags, TriggerIdentity)
	}
	return tags
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func hasAnyPrefix(text string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(text, p) {
			return true
		}
	}
	return false
}

// #endregion derive
