// Package processing reads measurement files and runs multi-start fits of
// them through the worker pool.
package processing
