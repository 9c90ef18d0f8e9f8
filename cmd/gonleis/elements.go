package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kacperjurak/gonleis"
)

// NewElementsCmd creates the elements command.
func NewElementsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "elements",
		Short: "List the circuit elements and their parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg := gonleis.NewStandardRegistry()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tPARAMS\tUNITS")
			for _, name := range reg.Names() {
				e, _ := reg.Lookup(name)
				fmt.Fprintf(tw, "%s\t%d\t%s\n", e.Name, e.NumParams, strings.Join(e.Units, ", "))
			}
			return tw.Flush()
		},
	}
}
