package gonleis

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type mode int

const (
	SERIES mode = iota
	PARALLEL
	DIFFERENCE
)

// Constants holds parameter values fixed during a fit, keyed by qualified
// name: "R0" for single-parameter elements, "TDS0_1" for the second
// parameter of TDS0.
type Constants map[string]float64

// qualifiedName names parameter j of the element occurrence name.
func qualifiedName(name string, j, numParams int) string {
	if numParams == 1 {
		return name
	}
	return name + "_" + strconv.Itoa(j)
}

// splitName separates an element occurrence like "TDSn1" into its
// registry name and index.
func splitName(name string) (string, string) {
	i := strings.IndexFunc(name, unicode.IsDigit)
	if i < 0 {
		return name, ""
	}
	return name[:i], name[i:]
}

type evalState struct {
	f         []float64
	params    []float64
	constants Constants
	next      int
}

type node interface {
	eval(st *evalState) ([]complex128, error)
	write(sb *strings.Builder)
}

type elementCall struct {
	name string
	elem Element
}

func (e *elementCall) eval(st *evalState) ([]complex128, error) {
	p := make([]float64, e.elem.NumParams)
	for j := range p {
		key := qualifiedName(e.name, j, e.elem.NumParams)
		if v, ok := st.constants[key]; ok {
			p[j] = v
			continue
		}
		if st.next >= len(st.params) {
			return nil, fmt.Errorf("%w: no value left for %s (%d given)", ErrParameterCount, key, len(st.params))
		}
		p[j] = st.params[st.next]
		st.next++
	}
	z, err := e.elem.Eval(p, st.f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.name, err)
	}
	return z, nil
}

func (e *elementCall) write(sb *strings.Builder) {
	sb.WriteString(e.name)
}

type composite struct {
	mode  mode
	parts []node
}

func (c *composite) eval(st *evalState) ([]complex128, error) {
	values := make([][]complex128, len(c.parts))
	for i, part := range c.parts {
		z, err := part.eval(st)
		if err != nil {
			return nil, err
		}
		values[i] = z
	}

	out := make([]complex128, len(st.f))
	switch c.mode {
	case SERIES:
		for _, z := range values {
			for k := range out {
				out[k] += z[k]
			}
		}
	case PARALLEL:
		for k := range out {
			out[k] = parallel(values, k)
		}
	case DIFFERENCE:
		first, last := values[0], values[len(values)-1]
		for k := range out {
			out[k] = first[k] - last[k]
		}
	}
	return out, nil
}

// parallel combines branch impedances at frequency index k. A branch with
// zero impedance shorts the combination.
func parallel(values [][]complex128, k int) complex128 {
	var y complex128
	for _, z := range values {
		if z[k] == 0 {
			return 0
		}
		y += 1 / z[k]
	}
	return 1 / y
}

func (c *composite) write(sb *strings.Builder) {
	if c.mode == SERIES {
		for i, part := range c.parts {
			if i > 0 {
				sb.WriteByte('-')
			}
			part.write(sb)
		}
		return
	}
	if c.mode == PARALLEL {
		sb.WriteString("p(")
	} else {
		sb.WriteString("d(")
	}
	for i, part := range c.parts {
		if i > 0 {
			sb.WriteByte(',')
		}
		part.write(sb)
	}
	sb.WriteByte(')')
}

// Circuit is a parsed circuit description.
type Circuit struct {
	root  node
	calls []*elementCall
}

// group is an open p(...) or d(...) while parsing; the outermost group
// is the whole circuit in SERIES mode.
type group struct {
	mode     mode
	branches []node
	current  []node
}

func (g *group) closeBranch() {
	g.branches = append(g.branches, seriesOf(g.current))
	g.current = nil
}

func seriesOf(parts []node) node {
	if len(parts) == 1 {
		return parts[0]
	}
	return &composite{mode: SERIES, parts: parts}
}

// Parse parses a circuit description against the elements of reg.
// Whitespace is ignored.
func Parse(reg *Registry, s string) (*Circuit, error) {
	code := strings.Join(strings.Fields(s), "")
	if code == "" {
		return nil, fmt.Errorf("%w: empty circuit", ErrSyntax)
	}

	var (
		stack      = []*group{{mode: SERIES}}
		calls      []*elementCall
		expectTerm = true
	)
	syntaxErr := func(pos int, msg string) error {
		return fmt.Errorf("%w: %s at offset %d in %q", ErrSyntax, msg, pos, code)
	}

	for i := 0; i < len(code); {
		char := code[i]
		top := stack[len(stack)-1]
		switch {
		case char == '-':
			if expectTerm {
				return nil, syntaxErr(i, "unexpected '-'")
			}
			expectTerm = true
			i++
		case char == ',':
			if expectTerm || top.mode == SERIES {
				return nil, syntaxErr(i, "unexpected ','")
			}
			top.closeBranch()
			expectTerm = true
			i++
		case char == ')':
			if expectTerm || top.mode == SERIES {
				return nil, syntaxErr(i, "unexpected ')'")
			}
			top.closeBranch()
			if len(top.branches) < 2 {
				return nil, syntaxErr(i, "group needs at least two branches")
			}
			stack = stack[:len(stack)-1]
			parent := stack[len(stack)-1]
			parent.current = append(parent.current, &composite{mode: top.mode, parts: top.branches})
			expectTerm = false
			i++
		case isLetter(rune(char)):
			if !expectTerm {
				return nil, syntaxErr(i, "missing operator before element")
			}
			start := i
			for i < len(code) && isLetter(rune(code[i])) {
				i++
			}
			letters := code[start:i]
			if (letters == "p" || letters == "d") && i < len(code) && code[i] == '(' {
				m := PARALLEL
				if letters == "d" {
					m = DIFFERENCE
				}
				stack = append(stack, &group{mode: m})
				i++
				continue
			}
			for i < len(code) && code[i] >= '0' && code[i] <= '9' {
				i++
			}
			elem, ok := reg.Lookup(letters)
			if !ok {
				return nil, fmt.Errorf("%w: %s in %q", ErrUnknownElement, code[start:i], code)
			}
			call := &elementCall{name: code[start:i], elem: elem}
			calls = append(calls, call)
			top.current = append(top.current, call)
			expectTerm = false
		default:
			return nil, syntaxErr(i, fmt.Sprintf("unexpected %q", char))
		}
	}
	if len(stack) != 1 {
		return nil, syntaxErr(len(code), "unclosed '('")
	}
	if expectTerm {
		return nil, syntaxErr(len(code), "circuit ends with an operator")
	}

	return &Circuit{root: seriesOf(stack[0].current), calls: calls}, nil
}

// String returns the canonical form of the circuit.
func (c *Circuit) String() string {
	var sb strings.Builder
	c.root.write(&sb)
	return sb.String()
}

// Elements lists the element occurrences in textual order.
func (c *Circuit) Elements() []string {
	names := make([]string, len(c.calls))
	for i, call := range c.calls {
		names[i] = call.name
	}
	return names
}

// ParameterNames lists the qualified names of the parameters Impedance
// consumes, skipping those held in constants.
func (c *Circuit) ParameterNames(constants Constants) []string {
	var names []string
	for _, call := range c.calls {
		for j := 0; j < call.elem.NumParams; j++ {
			key := qualifiedName(call.name, j, call.elem.NumParams)
			if _, ok := constants[key]; !ok {
				names = append(names, key)
			}
		}
	}
	return names
}

// Impedance evaluates the circuit at frequencies f. Parameters are consumed
// in textual order, skipping those found in constants; params must be used
// up exactly.
func (c *Circuit) Impedance(f, params []float64, constants Constants) ([]complex128, error) {
	st := &evalState{f: f, params: params, constants: constants}
	z, err := c.root.eval(st)
	if err != nil {
		return nil, err
	}
	if st.next != len(params) {
		return nil, fmt.Errorf("%w: circuit %s used %d of %d parameters", ErrParameterCount, c, st.next, len(params))
	}
	return z, nil
}
