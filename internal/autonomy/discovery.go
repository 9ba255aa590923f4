package autonomy

import "strings"

// #region discovery-extraction

// discoveryPrefixes mark lines the turn loop records as discoveries.
var discoveryPrefixes = []string{"discovery:", "finding:", "insight:"}

// extractDiscoveries scans a model response for explicitly marked findings.
func extractDiscoveries(response string) []string {
	var out []string
	for _, line := range strings.Split(response, "\n") {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		for _, prefix := range discoveryPrefixes {
			if strings.HasPrefix(lower, prefix) {
				content := strings.TrimSpace(trimmed[len(prefix):])
				if content != "" {
					out = append(out, content)
				}
				break
			}
		}
	}
	return out
}

// #endregion discovery-extraction

// #region topic-screen

// forbiddenTopic returns the first forbidden topic found in text, or "".
// Matching is case-insensitive substring; topics are operator-supplied
// phrases, not patterns.
func forbiddenTopic(text string, topics []string) string {
	if len(topics) == 0 {
		return ""
	}
	lower := strings.ToLower(text)
	for _, topic := range topics {
		if topic == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(topic)) {
			return topic
		}
	}
	return ""
}

// naturalCompletion reports whether the response declares the goal resolved.
func naturalCompletion(response string) bool {
	return strings.Contains(strings.ToUpper(response), "SESSION COMPLETE")
}

// #endregion topic-screen
