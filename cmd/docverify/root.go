package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "docverify",
		Short:         "Verify that document metadata survives processing",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.init(cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&ctx.configDir, "config-dir", defaultConfigDir(), "Directory holding config.yaml and platforms.yaml")
	flags.StringVar(&ctx.logLevel, "log-level", "", "Override the configured log level")
	flags.StringVar(&ctx.logFormat, "log-format", "", "Override the configured log format (text, json)")
	flags.BoolVar(&ctx.noAlerts, "no-alerts", false, "Do not send catastrophic-loss alerts")

	rootCmd.AddCommand(newInitCommand(ctx))
	rootCmd.AddCommand(newInspectCommand(ctx))
	rootCmd.AddCommand(newCompareCommand(ctx))
	rootCmd.AddCommand(newCheckpointCommand(ctx))
	rootCmd.AddCommand(newAuditCommand(ctx))

	return rootCmd
}
