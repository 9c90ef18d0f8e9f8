// Package config holds the settings of a fit run and loads them from YAML
// files found on the command line, in the working directory or in the XDG
// config directory.
package config
