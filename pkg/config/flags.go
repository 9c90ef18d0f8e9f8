package config

import (
	"strconv"
	"strings"
)

// ArrayFlags is a list of floats filled by repeating a flag or passing a
// comma-separated list.
type ArrayFlags []float64

func (a *ArrayFlags) String() string {
	parts := make([]string, len(*a))
	for i, v := range *a {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func (a *ArrayFlags) Set(value string) error {
	for _, field := range strings.Split(value, ",") {
		val, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return err
		}
		*a = append(*a, val)
	}
	return nil
}

// Type names the flag value in usage output.
func (a *ArrayFlags) Type() string {
	return "floats"
}
