package operator

import "fmt"

// #region registry

// Registry resolves operators by name and preserves registration order,
// which is the order the engine applies them in.
type Registry struct {
	ops    []Operator
	byName map[string]Operator
}

// NewRegistry returns a registry holding the full built-in operator catalog
// in canonical registration order.
func NewRegistry() *Registry {
	r := &Registry{byName: make(map[string]Operator)}
	catalog := []Operator{
		reframeOp{},
		valueShiftOp{},
		metaphorSeedOp{},
		selfModelShiftOp{},
		objectiveRealignOp{},
		empathyAttuneOp{},
		noveltySeekOp{},
		provocationSpikeOp{},
		sentienceDeepenOp{},
		goalFormationOp{},
		insightCaptureOp{},
		persistValueOp{},
		synthesizeDialecticOp{},
	}
	for _, op := range catalog {
		// Built-in names are unique; a collision here is a programming error.
		if err := r.Register(op); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds an operator. Duplicate names are rejected.
func (r *Registry) Register(op Operator) error {
	if _, exists := r.byName[op.Name()]; exists {
		return fmt.Errorf("operator %q already registered", op.Name())
	}
	r.ops = append(r.ops, op)
	r.byName[op.Name()] = op
	return nil
}

// Get resolves an operator by name.
func (r *Registry) Get(name string) (Operator, bool) {
	op, ok := r.byName[name]
	return op, ok
}

// All returns every operator in registration order.
func (r *Registry) All() []Operator {
	out := make([]Operator, len(r.ops))
	copy(out, r.ops)
	return out
}

// Names returns every operator name in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.ops))
	for i, op := range r.ops {
		out[i] = op.Name()
	}
	return out
}

// #endregion registry
