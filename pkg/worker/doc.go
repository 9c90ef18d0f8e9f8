// Package worker runs the starts of a multi-start fit on a bounded pool of
// goroutines.
package worker
