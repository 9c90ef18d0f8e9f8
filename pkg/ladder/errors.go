package ladder

import "errors"

// ErrSingular is returned when a per-frequency linear system cannot be solved,
// for example when the unit impedance and the pore resistance are both zero.
var ErrSingular = errors.New("ladder: singular linear system")
