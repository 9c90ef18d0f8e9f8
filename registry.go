package gonleis

import (
	"fmt"
	"math"
	"slices"
	"sync"
)

// ImpedanceFunc evaluates an element for parameters p at frequencies f (Hz).
type ImpedanceFunc func(p, f []float64) ([]complex128, error)

// Element describes one circuit element.
type Element struct {
	Name      string
	NumParams int
	Units     []string
	Func      ImpedanceFunc
}

// Registry maps element names to their definitions. It is safe for
// concurrent use.
type Registry struct {
	mu       sync.RWMutex
	elements map[string]Element
}

// reservedNames are the composition operators of the circuit language.
var reservedNames = []string{"s", "p", "d"}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{elements: make(map[string]Element)}
}

// NewStandardRegistry returns a registry holding the built-in linear,
// nonlinear and transmission-line elements.
func NewStandardRegistry() *Registry {
	r := NewRegistry()
	for _, e := range linearElements() {
		r.mustRegister(e)
	}
	for _, e := range nonlinearElements() {
		r.mustRegister(e)
	}
	for _, e := range transmissionLineElements() {
		r.mustRegister(e)
	}
	return r
}

func (r *Registry) mustRegister(e Element) {
	if err := r.Register(e.Name, e.NumParams, e.Units, e.Func, false); err != nil {
		panic(err)
	}
}

// Register adds an element. Names of composition operators are rejected
// with ErrReservedName; an existing name is rejected with ErrElementExists
// unless overwrite is set.
func (r *Registry) Register(name string, numParams int, units []string, fn ImpedanceFunc, overwrite bool) error {
	if slices.Contains(reservedNames, name) {
		return fmt.Errorf("%w: %q is a composition operator", ErrReservedName, name)
	}
	if !validElementName(name) {
		return fmt.Errorf("%w: element name %q must consist of letters", ErrSyntax, name)
	}
	if numParams < 1 || len(units) != numParams {
		return fmt.Errorf("%w: %s declares %d parameters and %d units", ErrArity, name, numParams, len(units))
	}
	if fn == nil {
		return fmt.Errorf("element %s: nil impedance function", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.elements[name]; ok && !overwrite {
		return fmt.Errorf("%w: %s", ErrElementExists, name)
	}
	r.elements[name] = Element{
		Name:      name,
		NumParams: numParams,
		Units:     slices.Clone(units),
		Func:      fn,
	}
	return nil
}

// Lookup returns the element registered under name.
func (r *Registry) Lookup(name string) (Element, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.elements[name]
	return e, ok
}

// Names returns the registered element names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.elements))
	for name := range r.elements {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Eval type-checks p and f against the element and evaluates it.
func (r *Registry) Eval(name string, p, f []float64) ([]complex128, error) {
	e, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownElement, name)
	}
	return e.Eval(p, f)
}

// Eval type-checks p and f and evaluates the element.
func (e Element) Eval(p, f []float64) ([]complex128, error) {
	if err := typeCheck(e.Name, e.NumParams, p, f); err != nil {
		return nil, err
	}
	return e.Func(p, f)
}

func typeCheck(name string, numParams int, p, f []float64) error {
	if len(p) != numParams {
		return fmt.Errorf("%w: in %s, input list must be length %d, got %d", ErrArity, name, numParams, len(p))
	}
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: in %s, value %v in %v is not a finite number", ErrInvalidValue, name, v, p)
		}
	}
	for _, v := range f {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: in %s, frequency %v is not a finite number", ErrInvalidValue, name, v)
		}
	}
	return nil
}

func validElementName(name string) bool {
	if name == "" {
		return false
	}
	for _, c := range name {
		if !isLetter(c) {
			return false
		}
	}
	return true
}

func isLetter(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
