package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cgast/docverify/internal/config"
)

func newInitCommand(ctx *commandContext) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write default config.yaml and platforms.yaml into the config directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			written, err := config.Scaffold(ctx.configDir, force)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(written) == 0 {
				fmt.Fprintf(out, "%s already initialized (use --force to overwrite)\n", ctx.configDir)
				return nil
			}
			for _, path := range written {
				fmt.Fprintf(out, "Created %s\n", path)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")
	return cmd
}
