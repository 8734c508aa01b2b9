package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jhump/autoreg/catalog"
)

func newKindsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List the annotation kinds",
		Long:  "List every annotation kind autoreg recognizes, what it applies to, and what it does",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat := catalog.Default()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KIND\tCLASS\tAPPLIES TO\tDESCRIPTION")
			for _, k := range cat.Kinds() {
				e, _ := cat.Lookup(k)
				class := "terminal"
				if !e.IsTerminal() {
					class = "shorthand"
				}
				fmt.Fprintf(tw, "%v\t%s\t%v\t%s\n", k, class, e.Shapes, e.Doc)
			}
			return tw.Flush()
		},
	}
}
