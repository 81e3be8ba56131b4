package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/cgast/docverify/pkg/report"
	"github.com/cgast/docverify/pkg/store"
	"github.com/cgast/docverify/pkg/verify"
)

func newCheckpointCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Record and verify per-stage checkpoints of a pipeline run",
		Long: "A run file holds the ordered checkpoints of one document's trip through a\n" +
			"pipeline. Add a checkpoint after each stage, then verify the run to find the\n" +
			"stage where a feature was lost.",
	}
	cmd.AddCommand(newCheckpointAddCommand(ctx))
	cmd.AddCommand(newCheckpointVerifyCommand(ctx))
	cmd.AddCommand(newCheckpointShowCommand(ctx))
	return cmd
}

func newCheckpointAddCommand(ctx *commandContext) *cobra.Command {
	var formats []string

	cmd := &cobra.Command{
		Use:   "add <run-file> <name> <document>",
		Short: "Inspect a document and record it as the named checkpoint",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			runFile, name, doc := args[0], args[1], args[2]
			fts, err := ctx.formatTypes(formats)
			if err != nil {
				return err
			}
			return ctx.withStore(func(s *store.BoltStore) error {
				m, err := loadOrCreateRun(ctx, runFile)
				if err != nil {
					return err
				}
				cp, err := m.AddCheckpoint(doc, name, fts...)
				if err != nil {
					return err
				}
				if err := m.Save(runFile); err != nil {
					return err
				}
				if s != nil {
					if err := s.SaveRun(m.Snapshot()); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "checkpoint '%s' recorded in run %s (%d of %d)\n",
					cp.Name, m.RunID(), slices.Index(m.Order(), name)+1, m.Len())
				fmt.Fprintln(cmd.OutOrStdout(), report.Checkpoint(cp, true))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&formats, "format", "f", nil, "Format types to capture (default from config)")
	return cmd
}

func newCheckpointVerifyCommand(ctx *commandContext) *cobra.Command {
	var (
		from, to string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "verify <run-file>",
		Short: "Verify every adjacent pair of checkpoints, or one chosen pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (from == "") != (to == "") {
				return fmt.Errorf("--from and --to must be given together")
			}
			return ctx.withStore(func(s *store.BoltStore) error {
				m, err := verify.LoadManager(ctx.engine, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()

				if from != "" {
					results, err := m.VerifyBetween(from, to)
					if err != nil {
						return err
					}
					sum := verify.Aggregate(results)
					if asJSON {
						if err := writeJSON(out, sum); err != nil {
							return err
						}
					} else {
						before, _ := m.Checkpoint(from)
						after, _ := m.Checkpoint(to)
						fmt.Fprintln(out, report.CheckpointComparison(before, after, results))
					}
					return ctx.finish(cmd, m.RunID(), sum, asJSON)
				}

				res, err := m.VerifyAll()
				if err != nil {
					return err
				}
				if s != nil {
					if err := s.SaveRun(m.Snapshot()); err != nil {
						return err
					}
					if err := s.SaveResults(m.RunID(), res); err != nil {
						return err
					}
				}
				if asJSON {
					if err := writeJSON(out, res); err != nil {
						return err
					}
				} else {
					fmt.Fprintln(out, report.Pipeline(res))
				}
				return ctx.finish(cmd, m.RunID(), verify.AggregatePipeline(res), asJSON)
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Baseline checkpoint")
	cmd.Flags().StringVar(&to, "to", "", "Checkpoint whose document is re-inspected")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	return cmd
}

func newCheckpointShowCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <run-file> [name]",
		Short: "Print the checkpoints recorded in a run",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := verify.LoadManager(ctx.engine, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(args) == 2 {
				cp, err := m.Checkpoint(args[1])
				if err != nil {
					return err
				}
				fmt.Fprintln(out, report.Checkpoint(cp, true))
				return nil
			}
			fmt.Fprintf(out, "run %s: %d checkpoint(s)\n", m.RunID(), m.Len())
			for _, cp := range m.Checkpoints() {
				fmt.Fprintln(out, report.Checkpoint(cp, false))
			}
			return nil
		},
	}
	return cmd
}

func loadOrCreateRun(ctx *commandContext, path string) (*verify.Manager, error) {
	m, err := verify.LoadManager(ctx.engine, path)
	if err == nil {
		return m, nil
	}
	if _, statErr := os.Stat(path); errors.Is(statErr, fs.ErrNotExist) {
		return verify.NewManager(ctx.engine), nil
	}
	return nil, err
}
