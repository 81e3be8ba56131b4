// Package config loads docverify settings from .docverify/config.yaml and
// alert credentials from .docverify/platforms.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cgast/docverify/internal/sandbox"
	"github.com/cgast/docverify/pkg/format"
	"github.com/cgast/docverify/pkg/verify"
)

// Dir is the per-project configuration directory.
const Dir = ".docverify"

// Config represents the runtime configuration from .docverify/config.yaml.
type Config struct {
	LogLevel  string         `yaml:"log_level"`
	LogFormat string         `yaml:"log_format"` // "text", "json", or "" to pick by terminal
	Verify    VerifyConfig   `yaml:"verify"`
	Sandbox   sandbox.Config `yaml:"sandbox"`
	Store     StoreConfig    `yaml:"store"`
}

// VerifyConfig defines verification defaults.
type VerifyConfig struct {
	FormatTypes []string          `yaml:"format_types"`
	PartialLoss PartialLossConfig `yaml:"partial_loss"`
}

// PartialLossConfig mirrors verify.PartialLossPolicy.
type PartialLossConfig struct {
	Fail      bool    `yaml:"fail"`
	Tolerance float64 `yaml:"tolerance"` // percent
}

// StoreConfig locates the audit database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// PlatformConfig represents alert credentials from .docverify/platforms.yaml.
type PlatformConfig struct {
	GitHub GitHubConfig `yaml:"github"`
}

// GitHubConfig holds settings for opening alert issues.
type GitHubConfig struct {
	Token  string   `yaml:"token"`
	Repo   string   `yaml:"repo"` // owner/name
	Labels []string `yaml:"labels"`
}

// Enabled reports whether alert issues can be opened.
func (g GitHubConfig) Enabled() bool {
	return g.Token != "" && g.Repo != ""
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Verify: VerifyConfig{
			FormatTypes: []string{string(format.TrackChanges), string(format.Comments)},
		},
		Sandbox: sandbox.Config{
			MaxFileSize: "100MB",
		},
		Store: StoreConfig{
			Path: filepath.Join(Dir, "audit.db"),
		},
	}
}

// FormatTypes resolves the configured format type names.
func (c Config) FormatTypes() ([]format.FormatType, error) {
	if len(c.Verify.FormatTypes) == 0 {
		return append([]format.FormatType(nil), format.DefaultTypes...), nil
	}
	return format.ParseFormatTypes(c.Verify.FormatTypes)
}

// PartialLossPolicy converts the partial-loss settings.
func (c Config) PartialLossPolicy() verify.PartialLossPolicy {
	return verify.PartialLossPolicy{
		Fail:      c.Verify.PartialLoss.Fail,
		Tolerance: c.Verify.PartialLoss.Tolerance,
	}
}

// Validate checks values yaml cannot check on its own.
func (c Config) Validate() error {
	if _, err := c.FormatTypes(); err != nil {
		return fmt.Errorf("verify.format_types: %w", err)
	}
	if t := c.Verify.PartialLoss.Tolerance; t < 0 || t > 100 {
		return fmt.Errorf("verify.partial_loss.tolerance: %v is outside 0-100", t)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log_format: unknown format %q", c.LogFormat)
	}
	return nil
}

// LoadConfig reads and parses a runtime config YAML file.
// Returns default config if the file doesn't exist.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal([]byte(interpolateEnvVars(string(data))), &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadPlatformConfig reads and parses a platform credentials YAML file.
// Performs environment variable interpolation on string values.
func LoadPlatformConfig(path string) (PlatformConfig, error) {
	var cfg PlatformConfig

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read platform config %s: %w", path, err)
	}

	if err := yaml.Unmarshal([]byte(interpolateEnvVars(string(data))), &cfg); err != nil {
		return cfg, fmt.Errorf("parse platform config %s: %w", path, err)
	}
	return cfg, nil
}

// envVarPattern matches ${VAR_NAME} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// interpolateEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func interpolateEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimPrefix(strings.TrimSuffix(match, "}"), "${")
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match // Leave unresolved if not set.
	})
}

const platformsTemplate = `# Catastrophic-loss alerts are opened as issues when token and repo are set.
github:
  token: "${GITHUB_TOKEN}"
  repo: ""
  labels:
    - format-loss
`

// Scaffold writes a default config.yaml and a platforms.yaml template into
// dir. Existing files are left alone unless force is set. It returns the
// paths written.
func Scaffold(dir string, force bool) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}
	cfgData, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("marshal default config: %w", err)
	}

	files := []struct {
		name string
		data []byte
		perm os.FileMode
	}{
		{"config.yaml", cfgData, 0o644},
		{"platforms.yaml", []byte(platformsTemplate), 0o600},
	}
	var written []string
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if _, err := os.Stat(path); err == nil && !force {
			continue
		}
		if err := os.WriteFile(path, f.data, f.perm); err != nil {
			return written, fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}
