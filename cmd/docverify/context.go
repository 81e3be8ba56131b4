package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cgast/docverify/internal/config"
	"github.com/cgast/docverify/internal/logging"
	"github.com/cgast/docverify/internal/sandbox"
	"github.com/cgast/docverify/pkg/alert"
	"github.com/cgast/docverify/pkg/docx"
	"github.com/cgast/docverify/pkg/events"
	"github.com/cgast/docverify/pkg/format"
	"github.com/cgast/docverify/pkg/report"
	"github.com/cgast/docverify/pkg/store"
	"github.com/cgast/docverify/pkg/verify"
)

// errVerificationFailed marks a run whose results failed. The report has
// already been printed, so main exits without printing it again.
var errVerificationFailed = errors.New("verification failed")

type commandContext struct {
	configDir string
	logLevel  string
	logFormat string
	noAlerts  bool

	cfg        config.Config
	platforms  config.PlatformConfig
	logger     *slog.Logger
	bus        *events.MemoryBus
	engine     *verify.Engine
	dispatcher *alert.Dispatcher
	started    time.Time
}

func defaultConfigDir() string {
	if dir := strings.TrimSpace(os.Getenv("DOCVERIFY_CONFIG_DIR")); dir != "" {
		return dir
	}
	return config.Dir
}

func (c *commandContext) init(stderr io.Writer) error {
	c.started = time.Now()

	cfg, err := config.LoadConfig(filepath.Join(c.configDir, "config.yaml"))
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	if c.logFormat != "" {
		cfg.LogFormat = c.logFormat
	}
	c.cfg = cfg

	c.platforms, err = config.LoadPlatformConfig(filepath.Join(c.configDir, "platforms.yaml"))
	if err != nil {
		return err
	}

	c.logger, err = logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: stderr})
	if err != nil {
		return err
	}

	guard, err := sandbox.New(cfg.Sandbox)
	if err != nil {
		return err
	}

	c.bus = events.NewMemoryBus(0)
	c.engine = verify.NewEngine(
		docx.NewRegistry(format.WithGuard(guard)),
		verify.WithPartialLossPolicy(cfg.PartialLossPolicy()),
		verify.WithLogger(c.logger),
		verify.WithEventBus(c.bus),
	)

	opts := []alert.Option{
		alert.WithLogger(c.logger),
		alert.WithEventBus(c.bus),
		alert.WithSink(alert.LogSink{Logger: c.logger}),
	}
	if gh := c.platforms.GitHub; gh.Enabled() {
		sink, err := alert.NewIssueSink(gh.Token, gh.Repo, alert.WithLabels(gh.Labels...))
		if err != nil {
			return fmt.Errorf("github alerts: %w", err)
		}
		opts = append(opts, alert.WithSink(sink))
	}
	c.dispatcher = alert.NewDispatcher(opts...)
	return nil
}

// withStore runs fn against the audit store and then records this
// invocation's events in it, whether or not fn failed. With the store
// disabled fn receives nil.
func (c *commandContext) withStore(fn func(*store.BoltStore) error) error {
	if c.cfg.Store.Path == "" {
		return fn(nil)
	}
	if err := os.MkdirAll(filepath.Dir(c.cfg.Store.Path), 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	s, err := store.Open(c.cfg.Store.Path)
	if err != nil {
		return err
	}
	defer s.Close()

	runErr := fn(s)
	for _, e := range c.bus.History(c.started) {
		if _, err := s.AppendEvent(e); err != nil {
			return errors.Join(runErr, fmt.Errorf("record event: %w", err))
		}
	}
	return runErr
}

func (c *commandContext) formatTypes(names []string) ([]format.FormatType, error) {
	if len(names) == 0 {
		return c.cfg.FormatTypes()
	}
	return format.ParseFormatTypes(names)
}

// finish prints alerts for catastrophic results unless the output is JSON,
// dispatches them and turns a failed summary into errVerificationFailed.
func (c *commandContext) finish(cmd *cobra.Command, run string, sum verify.Summary, asJSON bool) error {
	if !asJSON {
		out := cmd.OutOrStdout()
		for _, r := range sum.Catastrophic() {
			fmt.Fprintln(out)
			fmt.Fprintln(out, report.CatastrophicAlert(r))
		}
	}
	if !c.noAlerts {
		if _, err := c.dispatcher.Notify(cmd.Context(), run, sum.Results); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			c.logger.Warn("alert delivery incomplete", "error", err)
		}
	}
	if !sum.OK() {
		return errVerificationFailed
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
