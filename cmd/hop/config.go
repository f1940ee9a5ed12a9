package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mgomes/hopscript/hop"
	"github.com/xyproto/env/v2"
	"gopkg.in/yaml.v3"
)

const settingsFileName = "hop.yaml"

// settings is the CLI view of hop.Config: hop.yaml first, then the
// environment, then command-line flags.
type settings struct {
	Trace           bool     `yaml:"trace"`
	StepQuota       int      `yaml:"step_quota"`
	MaxCallDepth    int      `yaml:"max_call_depth"`
	MaxIncludeDepth int      `yaml:"max_include_depth"`
	IncludePaths    []string `yaml:"include_paths"`
}

// loadSettings reads hop.yaml from dir when present and applies environment
// overrides. Relative include paths in the file resolve against dir.
func loadSettings(dir string) (settings, error) {
	s, err := readSettingsFile(filepath.Join(dir, settingsFileName))
	if err != nil {
		return settings{}, err
	}
	for i, p := range s.IncludePaths {
		if !filepath.IsAbs(p) {
			s.IncludePaths[i] = filepath.Join(dir, p)
		}
	}
	s.applyEnv()
	return s, nil
}

func readSettingsFile(path string) (settings, error) {
	var s settings
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("settings: open %s: %w", path, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return settings{}, fmt.Errorf("settings: parse %s: %w", path, err)
	}
	if s.StepQuota < 0 || s.MaxCallDepth < 0 || s.MaxIncludeDepth < 0 {
		return settings{}, fmt.Errorf("settings: %s: limits must not be negative", path)
	}
	return s, nil
}

func (s *settings) applyEnv() {
	// env caches os.Environ on first use
	env.Load()
	if env.Has("HOP_TRACE") {
		s.Trace = env.Bool("HOP_TRACE")
	}
	s.StepQuota = env.Int("HOP_STEP_QUOTA", s.StepQuota)
	s.MaxCallDepth = env.Int("HOP_MAX_CALL_DEPTH", s.MaxCallDepth)
	if extra := env.Str("HOP_INCLUDE_PATH"); extra != "" {
		s.IncludePaths = append(s.IncludePaths, filepath.SplitList(extra)...)
	}
}

// engineConfig builds the engine configuration. Trace output goes to
// logOut; a nil logOut disables tracing.
func (s settings) engineConfig(logOut io.Writer) (hop.Config, error) {
	includeDirs, err := computeIncludePaths(s.IncludePaths)
	if err != nil {
		return hop.Config{}, err
	}
	cfg := hop.Config{
		StepQuota:       s.StepQuota,
		MaxCallDepth:    s.MaxCallDepth,
		MaxIncludeDepth: s.MaxIncludeDepth,
		IncludePaths:    includeDirs,
	}
	if s.Trace && logOut != nil {
		cfg.Logger = slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return cfg, nil
}

func computeIncludePaths(paths []string) ([]string, error) {
	seen := make(map[string]struct{})
	var dirs []string
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve include path %q: %w", p, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("access include path %q: %w", abs, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("include path %q is not a directory", abs)
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		dirs = append(dirs, abs)
	}
	return dirs, nil
}
