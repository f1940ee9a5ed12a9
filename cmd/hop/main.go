package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/mgomes/hopscript/hop"
)

const version = "0.1.0"

func main() {
	err := runCLI(os.Args)
	if code, ok := hop.IsExit(err); ok {
		os.Exit(code)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, formatError(err))
		os.Exit(1)
	}
}

func runCLI(args []string) error {
	if len(args) < 2 {
		return replCommand(nil)
	}
	switch args[1] {
	case "run":
		return runCommand(args[2:])
	case "repl":
		return replCommand(args[2:])
	case "analyze":
		return analyzeCommand(args[2:])
	case "-d", "--debug":
		return runCommand(append([]string{"-debug"}, args[2:]...))
	case "help", "-h", "--help":
		printUsage()
		return nil
	case "version", "-v", "--version":
		fmt.Printf("hop %s\n", version)
		return nil
	default:
		if strings.HasPrefix(args[1], "-") {
			return usageError()
		}
		return runCommand(args[1:])
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	debug := fs.Bool("debug", false, "dump the token sequence instead of running")
	trace := fs.Bool("trace", false, "log label calls and includes to stderr")
	stepQuota := fs.Int("step-quota", 0, "abort after this many executed tokens")
	var includePaths pathList
	fs.Var(&includePaths, "include-path", "add an include search directory (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	remaining := fs.Args()
	if len(remaining) == 0 {
		return errors.New("hop run: script path required")
	}
	absScriptPath, err := filepath.Abs(remaining[0])
	if err != nil {
		return fmt.Errorf("resolve script path: %w", err)
	}

	conf, err := loadSettings(filepath.Dir(absScriptPath))
	if err != nil {
		return err
	}
	conf.IncludePaths = append(conf.IncludePaths, includePaths...)
	if *trace {
		conf.Trace = true
	}
	if *stepQuota > 0 {
		conf.StepQuota = *stepQuota
	}

	if *debug {
		input, err := os.ReadFile(absScriptPath)
		if err != nil {
			return fmt.Errorf("read script: %w", err)
		}
		tokens, err := hop.Lex(string(input), filepath.Base(absScriptPath))
		if err != nil {
			return err
		}
		return hop.DumpTokens(os.Stdout, tokens)
	}

	cfg, err := conf.engineConfig(os.Stderr)
	if err != nil {
		return err
	}
	engine, err := hop.NewEngine(cfg)
	if err != nil {
		return err
	}
	if cfg.Logger != nil {
		cfg.Logger.Debug("engine ready", "limits", engine.ConfigSummary())
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return engine.RunFile(ctx, absScriptPath)
}

// formatError renders every diagnostic in err, with code frames and call
// chains for runtime errors.
func formatError(err error) string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		parts := make([]string, 0, len(joined.Unwrap()))
		for _, e := range joined.Unwrap() {
			parts = append(parts, formatError(e))
		}
		return strings.Join(parts, "\n")
	}
	var runtimeErr *hop.RuntimeError
	if errors.As(err, &runtimeErr) {
		return runtimeErr.Detail()
	}
	return err.Error()
}

func usageError() error {
	printUsage()
	return errors.New("invalid command")
}

func printUsage() {
	prog := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, "Usage: %s [run] [flags] <script>\n", prog)
	fmt.Fprintf(os.Stderr, "       %s -d <script>\n", prog)
	fmt.Fprintf(os.Stderr, "       %s analyze <script>\n", prog)
	fmt.Fprintf(os.Stderr, "       %s repl [-plain]\n", prog)
	fmt.Fprintln(os.Stderr, "Flags:")
	fmt.Fprintln(os.Stderr, "  -debug")
	fmt.Fprintln(os.Stderr, "    dump the token sequence instead of running")
	fmt.Fprintln(os.Stderr, "  -trace")
	fmt.Fprintln(os.Stderr, "    log label calls and includes to stderr")
	fmt.Fprintln(os.Stderr, "  -step-quota n")
	fmt.Fprintln(os.Stderr, "    abort after n executed tokens")
	fmt.Fprintln(os.Stderr, "  -include-path <dir>")
	fmt.Fprintln(os.Stderr, "    add a directory to include search paths (repeatable)")
	fmt.Fprintln(os.Stderr, "Settings are also read from hop.yaml next to the script and from")
	fmt.Fprintln(os.Stderr, "HOP_TRACE, HOP_STEP_QUOTA, HOP_MAX_CALL_DEPTH and HOP_INCLUDE_PATH.")
}

type flagErrorSink struct{}

func (flagErrorSink) Write(p []byte) (int, error) {
	return len(p), nil
}

type pathList []string

func (l *pathList) String() string {
	return strings.Join(*l, string(os.PathListSeparator))
}

func (l *pathList) Set(value string) error {
	*l = append(*l, value)
	return nil
}
