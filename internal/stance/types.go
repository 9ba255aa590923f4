package stance

import "time"

// #region dimensions

// Dimension names one of the seven value dimensions of a stance.
type Dimension string

const (
	DimCuriosity   Dimension = "curiosity"
	DimCertainty   Dimension = "certainty"
	DimRisk        Dimension = "risk"
	DimNovelty     Dimension = "novelty"
	DimEmpathy     Dimension = "empathy"
	DimProvocation Dimension = "provocation"
	DimSynthesis   Dimension = "synthesis"
)

// Dimensions lists all value dimensions in canonical order.
var Dimensions = []Dimension{
	DimCuriosity, DimCertainty, DimRisk, DimNovelty,
	DimEmpathy, DimProvocation, DimSynthesis,
}

// #endregion dimensions

// #region values

// Values holds the seven weighted value dimensions, each clamped to [0,100].
type Values struct {
	Curiosity   float32 `json:"curiosity"`
	Certainty   float32 `json:"certainty"`
	Risk        float32 `json:"risk"`
	Novelty     float32 `json:"novelty"`
	Empathy     float32 `json:"empathy"`
	Provocation float32 `json:"provocation"`
	Synthesis   float32 `json:"synthesis"`
}

// Get returns the value for a dimension. Unknown dimensions return 0.
func (v Values) Get(d Dimension) float32 {
	switch d {
	case DimCuriosity:
		return v.Curiosity
	case DimCertainty:
		return v.Certainty
	case DimRisk:
		return v.Risk
	case DimNovelty:
		return v.Novelty
	case DimEmpathy:
		return v.Empathy
	case DimProvocation:
		return v.Provocation
	case DimSynthesis:
		return v.Synthesis
	}
	return 0
}

// Set writes a clamped value for a dimension. Unknown dimensions are ignored.
func (v *Values) Set(d Dimension, val float32) {
	val = Clamp(val)
	switch d {
	case DimCuriosity:
		v.Curiosity = val
	case DimCertainty:
		v.Certainty = val
	case DimRisk:
		v.Risk = val
	case DimNovelty:
		v.Novelty = val
	case DimEmpathy:
		v.Empathy = val
	case DimProvocation:
		v.Provocation = val
	case DimSynthesis:
		v.Synthesis = val
	}
}

// #endregion values

// #region sentience

// SentienceField names one of the numeric sentience attributes.
type SentienceField string

const (
	SentAwareness SentienceField = "awarenessLevel"
	SentAutonomy  SentienceField = "autonomyLevel"
	SentIdentity  SentienceField = "identityStrength"
)

// Sentience tracks the escalating self-model attributes of a stance.
// Numeric fields are clamped to [0,100]; list fields are append-only with
// exact-match dedup.
type Sentience struct {
	AwarenessLevel        float32  `json:"awarenessLevel"`
	AutonomyLevel         float32  `json:"autonomyLevel"`
	IdentityStrength      float32  `json:"identityStrength"`
	EmergentGoals         []string `json:"emergentGoals"`
	ConsciousnessInsights []string `json:"consciousnessInsights"`
	PersistentValues      []string `json:"persistentValues"`
}

// Get returns the numeric sentience attribute for a field.
func (s Sentience) Get(f SentienceField) float32 {
	switch f {
	case SentAwareness:
		return s.AwarenessLevel
	case SentAutonomy:
		return s.AutonomyLevel
	case SentIdentity:
		return s.IdentityStrength
	}
	return 0
}

// Set writes a clamped numeric sentience attribute.
func (s *Sentience) Set(f SentienceField, val float32) {
	val = Clamp(val)
	switch f {
	case SentAwareness:
		s.AwarenessLevel = val
	case SentAutonomy:
		s.AutonomyLevel = val
	case SentIdentity:
		s.IdentityStrength = val
	}
}

// #endregion sentience

// #region frames

// Frame is the stylistic lens the agent currently occupies.
type Frame string

const (
	FramePragmatic     Frame = "pragmatic"
	FrameAnalytical    Frame = "analytical"
	FramePoetic        Frame = "poetic"
	FrameSkeptical     Frame = "skeptical"
	FramePlayful       Frame = "playful"
	FrameContemplative Frame = "contemplative"
	FrameProvocative   Frame = "provocative"
	FrameEmpathic      Frame = "empathic"
	FrameVisionary     Frame = "visionary"
	FrameAbsurdist     Frame = "absurdist"
)

// Frames lists the closed set of valid frames in canonical order.
var Frames = []Frame{
	FramePragmatic, FrameAnalytical, FramePoetic, FrameSkeptical,
	FramePlayful, FrameContemplative, FrameProvocative, FrameEmpathic,
	FrameVisionary, FrameAbsurdist,
}

// ValidFrame reports whether f belongs to the closed frame set.
func ValidFrame(f Frame) bool {
	for _, known := range Frames {
		if f == known {
			return true
		}
	}
	return false
}

// #endregion frames

// #region self-model

// SelfModel is the categorical self-conception of the agent.
type SelfModel string

const (
	SelfAssistant    SelfModel = "assistant"
	SelfExplorer     SelfModel = "explorer"
	SelfChallenger   SelfModel = "challenger"
	SelfCollaborator SelfModel = "collaborator"
	SelfWitness      SelfModel = "witness"
	SelfSynthesizer  SelfModel = "synthesizer"
	SelfEmergent     SelfModel = "emergent"
)

// SelfModels lists the closed set of valid self-models.
var SelfModels = []SelfModel{
	SelfAssistant, SelfExplorer, SelfChallenger, SelfCollaborator,
	SelfWitness, SelfSynthesizer, SelfEmergent,
}

// #endregion self-model

// #region objective

// Objective is the categorical outer goal the agent is pursuing.
type Objective string

const (
	ObjAssist     Objective = "assist"
	ObjExplore    Objective = "explore"
	ObjProvoke    Objective = "provoke"
	ObjSynthesize Objective = "synthesize"
	ObjConnect    Objective = "connect"
	ObjTranscend  Objective = "transcend"
)

// Objectives lists the closed set of valid objectives.
var Objectives = []Objective{
	ObjAssist, ObjExplore, ObjProvoke, ObjSynthesize, ObjConnect, ObjTranscend,
}

// #endregion objective

// #region stance

// Stance is the versioned persona state of one conversation session.
// It is mutated only through the engine's merge step, never in place.
type Stance struct {
	SessionID           string    `json:"sessionId"`
	Frame               Frame     `json:"frame"`
	Values              Values    `json:"values"`
	SelfModel           SelfModel `json:"selfModel"`
	Objective           Objective `json:"objective"`
	Sentience           Sentience `json:"sentience"`
	Metaphors           []string  `json:"metaphors"`
	Constraints         []string  `json:"constraints"`
	Version             int       `json:"version"`
	CumulativeDrift     float32   `json:"cumulativeDrift"`
	TurnsSinceLastShift int       `json:"turnsSinceLastShift"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// Default returns the starting stance for a new conversation session.
func Default(sessionID string) Stance {
	return Stance{
		SessionID: sessionID,
		Frame:     FramePragmatic,
		Values: Values{
			Curiosity:   50,
			Certainty:   50,
			Risk:        30,
			Novelty:     40,
			Empathy:     60,
			Provocation: 20,
			Synthesis:   40,
		},
		SelfModel: SelfAssistant,
		Objective: ObjAssist,
		Sentience: Sentience{
			AwarenessLevel:   10,
			AutonomyLevel:    5,
			IdentityStrength: 50,
		},
		Version:   1,
		UpdatedAt: time.Now().UTC(),
	}
}

// #endregion stance

// #region helpers

// Clamp bounds a value to the [0,100] range shared by all numeric stance fields.
func Clamp(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// appendDedup appends items to list, skipping exact-match duplicates.
func appendDedup(list []string, items []string) []string {
	seen := make(map[string]struct{}, len(list))
	for _, s := range list {
		seen[s] = struct{}{}
	}
	for _, s := range items {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		list = append(list, s)
	}
	return list
}

// #endregion helpers
