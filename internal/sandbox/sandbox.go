// Package sandbox restricts which documents the inspectors may open. It
// implements format.Guard and is consulted before any package is read.
package sandbox

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrDenied is wrapped by every rejection.
var ErrDenied = errors.New("sandbox: denied")

// DefaultExtensions are the package extensions accepted when none are
// configured.
var DefaultExtensions = []string{".docx", ".docm", ".dotx", ".dotm"}

// Config holds the sandbox configuration.
type Config struct {
	AllowedPaths []string `yaml:"allowed_paths"`
	DeniedPaths  []string `yaml:"denied_paths"`
	MaxFileSize  string   `yaml:"max_file_size"` // e.g. "10MB", "1GB", "500KB"
	Extensions   []string `yaml:"extensions"`
}

// Sandbox vets document paths and sizes. Symlinks are resolved before the
// allow and deny lists are consulted.
type Sandbox struct {
	allowedPaths []string
	deniedPaths  []string
	extensions   map[string]bool
	maxFileSize  int64 // bytes, 0 means unlimited
}

// New creates a Sandbox from cfg. Configured paths are made absolute.
func New(cfg Config) (*Sandbox, error) {
	s := &Sandbox{extensions: make(map[string]bool)}

	for _, p := range cfg.AllowedPaths {
		abs, err := resolve(p)
		if err != nil {
			return nil, fmt.Errorf("sandbox: resolve allowed path %q: %w", p, err)
		}
		s.allowedPaths = append(s.allowedPaths, abs)
	}
	for _, p := range cfg.DeniedPaths {
		abs, err := resolve(p)
		if err != nil {
			return nil, fmt.Errorf("sandbox: resolve denied path %q: %w", p, err)
		}
		s.deniedPaths = append(s.deniedPaths, abs)
	}

	exts := cfg.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		s.extensions[e] = true
	}

	if cfg.MaxFileSize != "" {
		size, err := parseFileSize(cfg.MaxFileSize)
		if err != nil {
			return nil, fmt.Errorf("sandbox: parse max_file_size %q: %w", cfg.MaxFileSize, err)
		}
		s.maxFileSize = size
	}

	return s, nil
}

// CheckPath returns nil when the document at path may be opened.
func (s *Sandbox) CheckPath(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if !s.extensions[ext] {
		return fmt.Errorf("%w: %q is not a word-processing package (extension %q)", ErrDenied, path, ext)
	}

	abs, err := resolve(path)
	if err != nil {
		return fmt.Errorf("sandbox: resolve path %q: %w", path, err)
	}

	// Deny takes precedence.
	for _, denied := range s.deniedPaths {
		if within(abs, denied) {
			return fmt.Errorf("%w: %q is under denied path %q", ErrDenied, abs, denied)
		}
	}

	if len(s.allowedPaths) == 0 {
		return nil
	}
	for _, allowed := range s.allowedPaths {
		if within(abs, allowed) {
			return nil
		}
	}
	return fmt.Errorf("%w: %q is not under any allowed path %v", ErrDenied, abs, s.allowedPaths)
}

// CheckFileSize returns nil when size is within the configured limit.
func (s *Sandbox) CheckFileSize(size int64) error {
	if s.maxFileSize <= 0 {
		return nil
	}
	if size > s.maxFileSize {
		return fmt.Errorf("%w: file size %d bytes exceeds maximum %d bytes (%s)",
			ErrDenied, size, s.maxFileSize, formatFileSize(s.maxFileSize))
	}
	return nil
}

// MaxFileSize returns the configured limit in bytes, 0 when unlimited.
func (s *Sandbox) MaxFileSize() int64 {
	return s.maxFileSize
}

// resolve makes path absolute and follows symlinks. For a path that does
// not exist yet the parent directory is resolved instead.
func resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real, nil
	}
	if dir, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		return filepath.Join(dir, filepath.Base(abs)), nil
	}
	return abs, nil
}

func within(path, dir string) bool {
	return path == dir || strings.HasPrefix(path, dir+string(filepath.Separator))
}

// parseFileSize parses a human-readable file size string into bytes.
// Supported suffixes: B, KB, MB, GB, TB (case-insensitive).
func parseFileSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))

	suffixes := []struct {
		suffix     string
		multiplier int64
	}{
		{"TB", 1 << 40},
		{"GB", 1 << 30},
		{"MB", 1 << 20},
		{"KB", 1 << 10},
		{"B", 1},
	}
	for _, sf := range suffixes {
		if strings.HasSuffix(s, sf.suffix) {
			numStr := strings.TrimSpace(strings.TrimSuffix(s, sf.suffix))
			n, err := strconv.ParseFloat(numStr, 64)
			if err != nil || n < 0 {
				return 0, fmt.Errorf("invalid number %q", numStr)
			}
			return int64(n * float64(sf.multiplier)), nil
		}
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid file size %q", s)
	}
	return n, nil
}

func formatFileSize(bytes int64) string {
	switch {
	case bytes >= 1<<40:
		return fmt.Sprintf("%.1fTB", float64(bytes)/(1<<40))
	case bytes >= 1<<30:
		return fmt.Sprintf("%.1fGB", float64(bytes)/(1<<30))
	case bytes >= 1<<20:
		return fmt.Sprintf("%.1fMB", float64(bytes)/(1<<20))
	case bytes >= 1<<10:
		return fmt.Sprintf("%.1fKB", float64(bytes)/(1<<10))
	default:
		return fmt.Sprintf("%dB", bytes)
	}
}
