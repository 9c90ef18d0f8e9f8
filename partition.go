package gonleis

import (
	"fmt"
	"strings"
)

// slot is one parameter position of an element occurrence in a merged
// circuit, with the names it carries in the linear and nonlinear circuits.
type slot struct {
	element       string
	index         int
	linearName    string
	nonlinearName string
	toLinear      bool
	toNonlinear   bool
	unit          string
	nonlinearOnly bool
}

// slots walks the element occurrences of a merged circuit. A nonlinear twin
// (a registry name ending in "n" whose un-suffixed name is registered) shares
// its first k parameters with the linear twin, where k is the linear twin's
// arity; the remaining parameters belong to the nonlinear circuit only.
// Elements without a twin feed the linear circuit only.
func slots(reg *Registry, merged *Circuit) []slot {
	var out []slot
	for _, call := range merged.calls {
		raw, index := splitName(call.name)
		kNL := call.elem.NumParams
		kL := kNL
		linearName := call.name
		if strings.HasSuffix(raw, "n") {
			if twin, ok := reg.Lookup(strings.TrimSuffix(raw, "n")); ok {
				kL = twin.NumParams
				linearName = twin.Name + index
			}
		}
		for j := 0; j < kNL; j++ {
			s := slot{
				element:       raw,
				index:         j,
				nonlinearName: qualifiedName(call.name, j, kNL),
				toLinear:      j < kL,
				toNonlinear:   kNL > kL,
				unit:          call.elem.Units[j],
				nonlinearOnly: j >= kL,
			}
			if s.toLinear {
				s.linearName = qualifiedName(linearName, j, kL)
			}
			out = append(out, s)
		}
	}
	return out
}

// split drops the sides of s fixed by the constants maps. The slot takes a
// value from the combined vector if either side survives.
func (s slot) split(c1, c2 Constants) (linear, nonlinear bool) {
	if s.toLinear {
		_, fixed := c1[s.linearName]
		linear = !fixed
	}
	if s.toNonlinear {
		_, fixed := c2[s.nonlinearName]
		nonlinear = !fixed
	}
	return linear, nonlinear
}

// IndividualParameters splits the combined parameter vector of the merged
// circuit into the vectors of the linear and the nonlinear circuit.
func IndividualParameters(reg *Registry, merged string, params []float64, c1, c2 Constants) ([]float64, []float64, error) {
	m, err := Parse(reg, merged)
	if err != nil {
		return nil, nil, err
	}
	return partition(reg, m, params, c1, c2)
}

func partition(reg *Registry, merged *Circuit, params []float64, c1, c2 Constants) ([]float64, []float64, error) {
	var p1, p2 []float64
	index := 0
	for _, s := range slots(reg, merged) {
		linear, nonlinear := s.split(c1, c2)
		if !linear && !nonlinear {
			continue
		}
		if index >= len(params) {
			return nil, nil, fmt.Errorf("%w: merged circuit %s needs more than %d parameters", ErrParameterCount, merged, len(params))
		}
		if linear {
			p1 = append(p1, params[index])
		}
		if nonlinear {
			p2 = append(p2, params[index])
		}
		index++
	}
	if index != len(params) {
		return nil, nil, fmt.Errorf("%w: merged circuit %s takes %d parameters, got %d", ErrParameterCount, merged, index, len(params))
	}
	return p1, p2, nil
}

// SimulCircuit couples a linear circuit, its nonlinear counterpart and the
// merged circuit that names every fitted parameter once.
type SimulCircuit struct {
	reg        *Registry
	Linear     *Circuit
	Nonlinear  *Circuit
	Merged     *Circuit
	Constants1 Constants
	Constants2 Constants
}

// NewSimulCircuit parses the three circuit descriptions.
func NewSimulCircuit(reg *Registry, linear, nonlinear, merged string, c1, c2 Constants) (*SimulCircuit, error) {
	s := &SimulCircuit{reg: reg, Constants1: c1, Constants2: c2}
	var err error
	if s.Linear, err = Parse(reg, linear); err != nil {
		return nil, fmt.Errorf("linear circuit: %w", err)
	}
	if s.Nonlinear, err = Parse(reg, nonlinear); err != nil {
		return nil, fmt.Errorf("nonlinear circuit: %w", err)
	}
	if s.Merged, err = Parse(reg, merged); err != nil {
		return nil, fmt.Errorf("merged circuit: %w", err)
	}
	return s, nil
}

// Split is IndividualParameters on the parsed merged circuit.
func (s *SimulCircuit) Split(params []float64) ([]float64, []float64, error) {
	return partition(s.reg, s.Merged, params, s.Constants1, s.Constants2)
}

// NumParams returns the length of the combined parameter vector.
func (s *SimulCircuit) NumParams() int {
	return len(s.ParameterNames())
}

// ParameterNames returns the merged-circuit name of every entry of the
// combined parameter vector.
func (s *SimulCircuit) ParameterNames() []string {
	var names []string
	for _, sl := range slots(s.reg, s.Merged) {
		if linear, nonlinear := sl.split(s.Constants1, s.Constants2); linear || nonlinear {
			names = append(names, sl.nonlinearName)
		}
	}
	return names
}

// WrappedImpedance evaluates the linear circuit at f1 and the nonlinear
// circuit at f2 for one combined parameter vector.
func (s *SimulCircuit) WrappedImpedance(f1, f2, params []float64) ([]complex128, []complex128, error) {
	p1, p2, err := s.Split(params)
	if err != nil {
		return nil, nil, err
	}
	x1, err := s.Linear.Impedance(f1, p1, s.Constants1)
	if err != nil {
		return nil, nil, fmt.Errorf("linear circuit: %w", err)
	}
	x2, err := s.Nonlinear.Impedance(f2, p2, s.Constants2)
	if err != nil {
		return nil, nil, fmt.Errorf("nonlinear circuit: %w", err)
	}
	return x1, x2, nil
}
