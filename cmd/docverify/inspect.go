package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cgast/docverify/pkg/format"
	"github.com/cgast/docverify/pkg/report"
	"github.com/cgast/docverify/pkg/store"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var (
		formats []string
		all     bool
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "inspect <document>",
		Short: "Report which structural features a document carries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fts, err := ctx.formatTypes(formats)
			if err != nil {
				return err
			}
			if all {
				fts = format.Known()
			}
			return ctx.withStore(func(*store.BoltStore) error {
				cp, err := ctx.engine.CreateCheckpoint(args[0], "inspect", fts...)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), cp)
				}
				fmt.Fprintln(cmd.OutOrStdout(), report.Checkpoint(cp, true))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&formats, "format", "f", nil, "Format types to inspect (default from config)")
	cmd.Flags().BoolVar(&all, "all", false, "Inspect every known format type")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the format states as JSON")
	return cmd
}
