package main

import (
	"bytes"
	"context"
	"slices"
	"strings"

	"github.com/mgomes/hopscript/hop"
)

const replName = "REPL"

// replSession is one persistent REPL context. print output is captured so
// each front end can show it next to the evaluated line.
type replSession struct {
	engine *hop.Engine
	ctx    *hop.Context
	out    *bytes.Buffer
}

func newREPLSession(cfg hop.Config) (*replSession, error) {
	out := new(bytes.Buffer)
	cfg.Stdout = out
	engine, err := hop.NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	return &replSession{engine: engine, ctx: engine.NewContext(replName), out: out}, nil
}

// evalResult is what one REPL line produced. When exited is set the line
// called exit and err carries the code.
type evalResult struct {
	output string
	err    error
	exited bool
}

func (s *replSession) eval(input string) evalResult {
	s.out.Reset()
	val, ok, err := s.ctx.Eval(context.Background(), input)
	printed := s.out.String()
	if _, isExit := hop.IsExit(err); isExit {
		return evalResult{output: printed, err: err, exited: true}
	}
	if err != nil {
		return evalResult{output: joinOutput(printed, formatError(err)), err: err}
	}
	if ok {
		return evalResult{output: joinOutput(printed, val.Inspect())}
	}
	return evalResult{output: printed}
}

func joinOutput(printed, tail string) string {
	if printed == "" {
		return tail
	}
	return strings.TrimRight(printed, "\n") + "\n" + tail
}

func (s *replSession) reset() {
	s.out.Reset()
	s.ctx = s.engine.NewContext(replName)
}

func (s *replSession) variables() []hop.Variable {
	return s.ctx.Scope().Variables()
}

// completions returns the natives, keywords, type names and variables that
// start with prefix, sorted and without duplicates.
func (s *replSession) completions(prefix string) []string {
	var candidates []string
	candidates = append(candidates, s.ctx.Natives().Names()...)
	candidates = append(candidates, hop.Keywords()...)
	candidates = append(candidates, hop.TypeNames()...)
	for _, v := range s.variables() {
		candidates = append(candidates, v.Name)
	}

	var matches []string
	for _, c := range candidates {
		if strings.HasPrefix(c, prefix) {
			matches = append(matches, c)
		}
	}
	slices.Sort(matches)
	return slices.Compact(matches)
}

const (
	cmdHelp  = ":help"
	cmdVars  = ":vars"
	cmdClear = ":clear"
	cmdReset = ":reset"
	cmdQuit  = ":quit"

	resetMessage = "Context reset"
)

// replCommands lists the : commands and their short aliases in the order
// help shows them.
var replCommands = []struct {
	name, alias, desc string
}{
	{cmdHelp, ":h", "show commands"},
	{cmdVars, ":v", "show variables"},
	{cmdClear, ":c", "clear the screen"},
	{cmdReset, ":r", "start a fresh context"},
	{cmdQuit, ":q", "leave the REPL"},
}

// lookupCommand resolves the first word of a : line. Unknown words are
// returned as is with ok false.
func lookupCommand(line string) (name string, ok bool) {
	word := strings.Fields(line)[0]
	for _, c := range replCommands {
		if word == c.name || word == c.alias {
			return c.name, true
		}
	}
	return word, false
}
