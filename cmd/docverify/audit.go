package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/cgast/docverify/pkg/report"
	"github.com/cgast/docverify/pkg/store"
	"github.com/cgast/docverify/pkg/verify"
)

var errStoreDisabled = errors.New("audit store disabled (store.path is empty)")

func newAuditCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Browse stored checkpoint runs and their events",
	}
	cmd.AddCommand(newAuditListCommand(ctx))
	cmd.AddCommand(newAuditShowCommand(ctx))
	cmd.AddCommand(newAuditEventsCommand(ctx))
	return cmd
}

func newAuditListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored runs, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(s *store.BoltStore) error {
				if s == nil {
					return errStoreDisabled
				}
				runs, err := s.ListRuns()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), runs)
				}
				tw := table.NewWriter()
				tw.SetStyle(table.StyleRounded)
				tw.AppendHeader(table.Row{"Run", "Saved", "Checkpoints", "Verified"})
				for _, r := range runs {
					tw.AppendRow(table.Row{r.RunID, r.SavedAt.Format(time.RFC3339), strings.Join(r.Checkpoints, " → "), yesNo(r.HasResults)})
				}
				fmt.Fprintln(cmd.OutOrStdout(), tw.Render())
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print runs as JSON")
	return cmd
}

func newAuditShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print a stored run and its last verification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(s *store.BoltStore) error {
				if s == nil {
					return errStoreDisabled
				}
				snap, err := s.LoadRun(args[0])
				if err != nil {
					return err
				}
				m, err := verify.RestoreManager(ctx.engine, snap)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, cp := range m.Checkpoints() {
					fmt.Fprintln(out, report.Checkpoint(cp, true))
				}
				res, err := s.LoadResults(args[0])
				if errors.Is(err, store.ErrRunNotFound) {
					fmt.Fprintln(out, "run has not been verified")
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(out, report.Pipeline(res))
				return nil
			})
		},
	}
}

func newAuditEventsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "events [run-id]",
		Short: "Print recorded events, optionally for one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run := ""
			if len(args) == 1 {
				run = args[0]
			}
			return ctx.withStore(func(s *store.BoltStore) error {
				if s == nil {
					return errStoreDisabled
				}
				evs, err := s.Events(run)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), evs)
				}
				for _, e := range evs {
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %-32s %s\n", e.Timestamp.UTC().Format(time.RFC3339), e.Type, e.Run)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print events as JSON")
	return cmd
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
