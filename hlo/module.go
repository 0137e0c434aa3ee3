package hlo

import (
	"github.com/pkg/errors"
)

// Module is a collection of computations, one of which is the entry point.
type Module struct {
	name         string
	computations []*Computation
	entry        *Computation
}

// NewModule creates an empty module.
func NewModule(name string) *Module {
	return &Module{name: name}
}

// Name of the module.
func (m *Module) Name() string { return m.name }

// NewComputation creates an empty computation and appends it to the module.
// The first computation added becomes the entry computation until
// SetEntryComputation says otherwise.
func (m *Module) NewComputation(name string) *Computation {
	c := &Computation{name: name, module: m}
	m.computations = append(m.computations, c)
	if m.entry == nil {
		m.entry = c
	}
	return c
}

// Computations returns the module's computations in creation order.
func (m *Module) Computations() []*Computation { return m.computations }

// EntryComputation returns the module's entry point, nil for an empty module.
func (m *Module) EntryComputation() *Computation { return m.entry }

// SetEntryComputation designates the module's entry point. The computation
// must belong to this module.
func (m *Module) SetEntryComputation(c *Computation) error {
	if c == nil || c.module != m {
		return errors.Errorf("SetEntryComputation: computation does not belong to module %q", m.name)
	}
	m.entry = c
	return nil
}

// String implements fmt.Stringer, returning the module name.
func (m *Module) String() string { return m.name }
