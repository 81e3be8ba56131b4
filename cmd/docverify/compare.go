package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cgast/docverify/pkg/report"
	"github.com/cgast/docverify/pkg/store"
	"github.com/cgast/docverify/pkg/verify"
)

func newCompareCommand(ctx *commandContext) *cobra.Command {
	var (
		formats []string
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "compare <before> <after>",
		Short: "Verify that features of <before> survived into <after>",
		Long: "Compare inspects both documents and applies the preservation rules to each\n" +
			"format type. The command exits with status 2 when any check fails.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fts, err := ctx.formatTypes(formats)
			if err != nil {
				return err
			}
			return ctx.withStore(func(*store.BoltStore) error {
				results := ctx.engine.VerifyMultiple(args[0], args[1], fts)
				sum := verify.Aggregate(results)
				if asJSON {
					if err := writeJSON(cmd.OutOrStdout(), sum); err != nil {
						return err
					}
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), report.Verification(results))
				}
				return ctx.finish(cmd, "", sum, asJSON)
			})
		},
	}

	cmd.Flags().StringSliceVarP(&formats, "format", "f", nil, "Format types to verify (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the summary as JSON")
	return cmd
}
