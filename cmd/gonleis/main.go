// Package main provides the entry point for the gonleis CLI.
//
// gonleis fits linear EIS and second-harmonic NLEIS spectra of porous
// electrodes simultaneously with shared physical parameters.
//
// Usage:
//
//	gonleis fit data.txt --circuit1 TDS0 --circuit2 TDSn0 --merged TDSn0 --guess ...
//	gonleis simulate --circuit1 ... --params ... > data.txt
//	gonleis elements
//
// See --help for all available options.
package main

// main is the entry point for gonleis.
func main() {
	Execute()
}
