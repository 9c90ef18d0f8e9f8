package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for gonleis.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gonleis",
		Short: "Simultaneous EIS and 2nd-NLEIS fitting for porous electrodes",
		Long: `gonleis fits a linear impedance spectrum and its second-harmonic
nonlinear counterpart at once, sharing the physical parameters of both
equivalent circuits.

Circuits use the series/parallel grammar of element names with a numeric
suffix, e.g. R0-p(C1,R1) or TDSn0.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "Only log errors")

	cmd.AddCommand(NewFitCmd())
	cmd.AddCommand(NewSimulateCmd())
	cmd.AddCommand(NewElementsCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getBoolFlag retrieves a persistent flag from the command or its parent.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// setupLogger creates a text logger on stderr. verbose wins over quiet.
func setupLogger(verbose, quiet bool) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case verbose:
		level = slog.LevelDebug
	case quiet:
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	handler := slog.NewTextHandler(os.Stderr, opts)
	return slog.New(handler)
}
