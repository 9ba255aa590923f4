// Package operator defines the stance transformation operators and the
// registry that resolves them by name. Every operator consumes a stance plus
// a turn context and produces a sparse delta; it never mutates the stance.
package operator

import (
	"math/rand"

	"github.com/danielpatrickdp/stance-controller/internal/config"
	"github.com/danielpatrickdp/stance-controller/internal/stance"
)

// #region turn

// Turn is one prior exchange in the conversation history.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// #endregion turn

// #region context

// Context carries per-turn inputs into an operator's Apply call.
// Rand is the injected randomness source for probabilistic operators;
// passing a seeded source makes their behavior reproducible.
type Context struct {
	Message  string
	Triggers []string
	History  []Turn
	Config   config.ModeConfig
	Rand     *rand.Rand
}

// HasTrigger reports whether tag is among the derived trigger tags.
func (c Context) HasTrigger(tag string) bool {
	for _, t := range c.Triggers {
		if t == tag {
			return true
		}
	}
	return false
}

// roll returns a uniform float32 in [0,1). A nil Rand always rolls 1.0,
// which disables every probabilistic branch; callers that want randomness
// must inject a source.
func (c Context) roll() float32 {
	if c.Rand == nil {
		return 1.0
	}
	return c.Rand.Float32()
}

// pick returns a pseudo-random index below n, or 0 without a source.
func (c Context) pick(n int) int {
	if n <= 1 || c.Rand == nil {
		return 0
	}
	return c.Rand.Intn(n)
}

// #endregion context

// #region operator-interface

// Operator is a named, stateless stance transformation unit.
// Apply is pure with respect to the stance; any randomness comes from the
// context's injected source. PromptInjection is deterministic and non-empty
// so logs and tests can describe the operator independent of Apply's rolls.
type Operator interface {
	Name() string
	Apply(s stance.Stance, ctx Context) stance.Delta
	PromptInjection(s stance.Stance, ctx Context) string
}

// #endregion operator-interface
