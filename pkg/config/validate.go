package config

import "github.com/kacperjurak/gonleis"

// Validate checks the settings a fit run needs.
func (c *Config) Validate() error {
	if c.Circuit1 == "" || c.Circuit2 == "" || c.Merged == "" {
		return ErrNoCircuit
	}
	if len(c.InitialGuess) == 0 {
		return ErrNoInitialGuess
	}
	if _, err := gonleis.ParseFitMode(c.Mode); err != nil {
		return ErrInvalidMode
	}
	if !(c.Cost > 0 && c.Cost < 1) {
		return ErrInvalidCost
	}
	if c.Starts < 1 {
		return ErrInvalidStarts
	}
	if c.Workers < 1 {
		return ErrInvalidWorkers
	}
	if c.Spread < 0 || c.Spread >= 1 {
		return ErrInvalidSpread
	}
	if len(c.Lower) != 0 || len(c.Upper) != 0 {
		if len(c.Lower) != len(c.InitialGuess) || len(c.Upper) != len(c.InitialGuess) {
			return ErrBoundsLength
		}
	}
	return nil
}
