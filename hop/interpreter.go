package hop

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Config controls execution bounds and host wiring for an Engine.
type Config struct {
	// Stdout receives everything print writes. Defaults to os.Stdout.
	Stdout io.Writer
	// Logger receives debug traces of label calls and include merges.
	// Defaults to a logger that discards everything.
	Logger *slog.Logger
	// StepQuota bounds the number of tokens one context may execute.
	// Zero means unlimited.
	StepQuota int
	// MaxCallDepth bounds the label call-frame stack.
	MaxCallDepth int
	// MaxIncludeDepth bounds nested include chains.
	MaxIncludeDepth int
	// IncludePaths are searched, in order, when an included file is not
	// found next to the including file.
	IncludePaths []string
}

const (
	defaultMaxCallDepth    = 4096
	defaultMaxIncludeDepth = 64
	entryLabel             = "main"
)

// Engine holds configuration and the default native registry. It is
// read-only after construction, so one Engine may create contexts from
// several goroutines.
type Engine struct {
	config  Config
	natives *Registry
}

// NewEngine constructs an Engine with defaults filled in and the builtins
// registered.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.StepQuota < 0 {
		cfg.StepQuota = 0
	}
	if cfg.MaxCallDepth <= 0 {
		cfg.MaxCallDepth = defaultMaxCallDepth
	}
	if cfg.MaxIncludeDepth <= 0 {
		cfg.MaxIncludeDepth = defaultMaxIncludeDepth
	}
	if err := validateIncludePaths(cfg.IncludePaths); err != nil {
		return nil, err
	}
	cfg.IncludePaths = append([]string(nil), cfg.IncludePaths...)

	engine := &Engine{config: cfg, natives: NewRegistry()}
	registerBuiltins(engine.natives)
	return engine, nil
}

// MustNewEngine constructs an Engine or panics if the config is invalid.
func MustNewEngine(cfg Config) *Engine {
	engine, err := NewEngine(cfg)
	if err != nil {
		panic(err)
	}
	return engine
}

func validateIncludePaths(paths []string) error {
	for _, path := range paths {
		if strings.TrimSpace(path) == "" {
			return fmt.Errorf("hop: include path cannot be empty")
		}
		stat, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("hop: invalid include path %q: %w", path, err)
		}
		if !stat.IsDir() {
			return fmt.Errorf("hop: include path %q is not a directory", path)
		}
	}
	return nil
}

// RegisterNative adds a native to the engine's default registry. Contexts
// created afterwards see it.
func (e *Engine) RegisterNative(name string, fn NativeFunc) {
	e.natives.Register(name, fn)
}

// Natives returns the names of the registered natives.
func (e *Engine) Natives() []string {
	return e.natives.Names()
}

// NewContext returns an empty context, as used by the REPL. name labels
// diagnostics; included files resolve against the working directory.
func (e *Engine) NewContext(name string) *Context {
	dir, err := os.Getwd()
	if err != nil {
		dir = "."
	}
	return newContext(e, name, dir)
}

// LoadSource lexes source into a fresh context without running it.
func (e *Engine) LoadSource(source, name string) (*Context, error) {
	tokens, err := Lex(source, name)
	if err != nil {
		return nil, err
	}
	c := e.NewContext(name)
	c.appendSegment(tokens, name, source, c.dir)
	return c, nil
}

// LoadFile reads and lexes the file at path into a fresh context without
// running it.
func (e *Engine) LoadFile(path string) (*Context, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	source := string(data)
	name := filepath.Base(abs)
	tokens, err := Lex(source, name)
	if err != nil {
		return nil, err
	}
	c := newContext(e, name, filepath.Dir(abs))
	c.includeChain = []string{abs}
	c.appendSegment(tokens, name, source, c.dir)
	return c, nil
}

// RunFile loads the file at path and runs it from its main label.
func (e *Engine) RunFile(ctx context.Context, path string) error {
	c, err := e.LoadFile(path)
	if err != nil {
		return err
	}
	return c.runEntry(ctx)
}

// RunSource lexes source and runs it from its main label.
func (e *Engine) RunSource(ctx context.Context, source, name string) error {
	c, err := e.LoadSource(source, name)
	if err != nil {
		return err
	}
	return c.runEntry(ctx)
}

func (c *Context) runEntry(ctx context.Context) error {
	if len(c.tokens) == 0 {
		return nil
	}
	if err := c.JumpToLabel(entryLabel); err != nil {
		return err
	}
	return c.Run(ctx)
}

// ConfigSummary provides a human-readable description of the limits.
func (e *Engine) ConfigSummary() string {
	quota := "unlimited"
	if e.config.StepQuota > 0 {
		quota = fmt.Sprintf("%d", e.config.StepQuota)
	}
	return fmt.Sprintf("steps=%s call_depth=%d include_depth=%d include_paths=%d",
		quota, e.config.MaxCallDepth, e.config.MaxIncludeDepth, len(e.config.IncludePaths))
}
