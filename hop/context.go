package hop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
)

// Context is one running instance of the engine: the token sequence, the
// variable scope, the native registry, the instruction pointer and the
// three auxiliary stacks. A Context is not safe for concurrent use.
type Context struct {
	engine *Engine
	name   string
	dir    string

	tokens        []Token
	segments      []segment
	segmentStarts map[int]struct{}
	labels        map[string]int

	scope   Scope
	natives *Registry

	ip      int
	args    []Value
	frames  []callFrame
	results []Value

	// set while a native runs
	callTok     Token
	callArgBase int

	includeChain []string
	runCtx       context.Context
	steps        int

	stdout io.Writer
	logger *slog.Logger
}

// segment is one independently lexed run of tokens: the main file, a merged
// include, or a REPL line.
type segment struct {
	start  int
	name   string
	source string
	dir    string
}

type callFrame struct {
	label      string
	callPos    Position
	returnIP   int
	argBase    int
	resultBase int
	assign     *pendingAssign
}

// pendingAssign is an assignment waiting for its initializer call to
// produce a value.
type pendingAssign struct {
	name    string
	kind    ValueKind
	declare bool
	pos     Position
}

func newContext(e *Engine, name, dir string) *Context {
	return &Context{
		engine:        e,
		name:          name,
		dir:           dir,
		segmentStarts: make(map[int]struct{}),
		labels:        make(map[string]int),
		scope:         NewScope(),
		natives:       e.natives.Clone(),
		stdout:        e.config.Stdout,
		logger:        e.config.Logger,
	}
}

func (c *Context) appendSegment(tokens []Token, name, source, dir string) int {
	start := len(c.tokens)
	if len(tokens) == 0 {
		return start
	}
	c.tokens = append(c.tokens, tokens...)
	c.segments = append(c.segments, segment{start: start, name: name, source: source, dir: dir})
	if start > 0 {
		c.segmentStarts[start] = struct{}{}
	}
	for i, tok := range tokens {
		if tok.Type != TokenLabel {
			continue
		}
		if _, exists := c.labels[tok.Literal]; exists {
			continue
		}
		c.labels[tok.Literal] = start + i
	}
	return start
}

func (c *Context) segmentAt(ip int) segment {
	idx := sort.Search(len(c.segments), func(i int) bool {
		return c.segments[i].start > ip
	})
	if idx == 0 {
		return segment{name: c.name, dir: c.dir}
	}
	return c.segments[idx-1]
}

func (c *Context) segmentEnd(idx int) int {
	if idx+1 < len(c.segments) {
		return c.segments[idx+1].start
	}
	return len(c.tokens)
}

func (c *Context) isSegmentStart(ip int) bool {
	_, ok := c.segmentStarts[ip]
	return ok
}

// Name returns the display name used in diagnostics.
func (c *Context) Name() string { return c.name }

// Dir returns the directory includes resolve against for top-level code.
func (c *Context) Dir() string { return c.dir }

// IP returns the current instruction pointer.
func (c *Context) IP() int { return c.ip }

// Tokens returns the token sequence, merged segments included.
func (c *Context) Tokens() []Token { return c.tokens }

// Scope returns the variable table.
func (c *Context) Scope() Scope { return c.scope }

// Natives returns the context's native registry.
func (c *Context) Natives() *Registry { return c.natives }

// Stdout returns the writer print targets.
func (c *Context) Stdout() io.Writer { return c.stdout }

// Logger returns the debug logger.
func (c *Context) Logger() *slog.Logger { return c.logger }

// RegisterNative binds a native in this context only.
func (c *Context) RegisterNative(name string, fn NativeFunc) {
	c.natives.Register(name, fn)
}

// VariableExists reports whether a variable named name is bound.
func (c *Context) VariableExists(name string) bool {
	return c.scope.Exists(name)
}

// Variable returns the variable bound to name.
func (c *Context) Variable(name string) (Variable, bool) {
	return c.scope.Lookup(name)
}

// LabelExists reports whether a label named name is known.
func (c *Context) LabelExists(name string) bool {
	_, ok := c.labels[name]
	return ok
}

// Label returns the token position of the label named name.
func (c *Context) Label(name string) (int, bool) {
	pos, ok := c.labels[name]
	return pos, ok
}

// JumpToLabel moves the instruction pointer to the named label.
func (c *Context) JumpToLabel(name string) error {
	pos, ok := c.labels[name]
	if !ok {
		return &RuntimeError{Kind: ErrUndefinedReference, Message: fmt.Sprintf("couldn't jump to label %s", name), File: c.name}
	}
	c.ip = pos
	return nil
}

// CallDepth returns the number of active label call frames.
func (c *Context) CallDepth() int { return len(c.frames) }

// Args returns the arguments of the native call in progress, in source
// order.
func (c *Context) Args() []Value {
	if c.callArgBase >= len(c.args) {
		return nil
	}
	return c.args[c.callArgBase:]
}

// ArgCount returns the number of arguments left for the native call in
// progress.
func (c *Context) ArgCount() int {
	if c.callArgBase >= len(c.args) {
		return 0
	}
	return len(c.args) - c.callArgBase
}

// PopArg pops the last remaining argument of the native call in progress.
func (c *Context) PopArg(fn string) (Value, error) {
	if c.ArgCount() == 0 {
		return Value{}, c.Errorf(ErrArity, "%s: not enough arguments", fn)
	}
	v := c.args[len(c.args)-1]
	c.args = c.args[:len(c.args)-1]
	return v, nil
}

// PopArgOf pops an argument and checks its kind against the allowed kinds.
func (c *Context) PopArgOf(fn string, kinds ...ValueKind) (Value, error) {
	v, err := c.PopArg(fn)
	if err != nil {
		return v, err
	}
	for _, k := range kinds {
		if v.Kind() == k {
			return v, nil
		}
	}
	return v, c.Errorf(ErrTypeMismatch, "%s: unexpected argument of type %s", fn, v.Kind())
}

// popPassed pops the top of the whole pass stack, reaching below the
// current call's own arguments.
func (c *Context) popPassed(fn string) (Value, error) {
	if len(c.args) == 0 {
		return Value{}, c.Errorf(ErrArity, "%s: nothing was passed", fn)
	}
	v := c.args[len(c.args)-1]
	c.args = c.args[:len(c.args)-1]
	return v, nil
}

// PushResult hands a value to the next consuming construct.
func (c *Context) PushResult(v Value) {
	c.results = append(c.results, v)
}

// PopResult takes the most recently produced value.
func (c *Context) PopResult(fn string) (Value, error) {
	if len(c.results) == 0 {
		return Value{}, c.Errorf(ErrArity, "%s: no value was produced", fn)
	}
	v := c.results[len(c.results)-1]
	c.results = c.results[:len(c.results)-1]
	return v, nil
}

// Results returns the pending produced values, oldest first.
func (c *Context) Results() []Value { return c.results }

// Jump moves the instruction pointer to a label address.
func (c *Context) Jump(target uint64) error {
	if target >= uint64(len(c.tokens)) {
		return c.Errorf(ErrRange, "jump target %d outside the program", target)
	}
	c.ip = int(target)
	return nil
}

// Errorf builds a positioned error at the call in progress.
func (c *Context) Errorf(kind error, format string, args ...any) error {
	return c.errorAt(c.callTok.Pos, kind, format, args...)
}

func (c *Context) errorAt(pos Position, kind error, format string, args ...any) error {
	seg := c.segmentAt(c.ip)
	frames := make([]StackFrame, 0, len(c.frames))
	for i := len(c.frames) - 1; i >= 0; i-- {
		f := c.frames[i]
		frames = append(frames, StackFrame{Label: f.label, Pos: f.callPos})
	}
	return &RuntimeError{
		Kind:      kind,
		Message:   fmt.Sprintf(format, args...),
		File:      seg.name,
		Pos:       pos,
		CodeFrame: formatCodeFrame(seg.source, pos),
		Frames:    frames,
	}
}

var errorKinds = []error{
	ErrLex,
	ErrUndefinedReference,
	ErrTypeMismatch,
	ErrArity,
	ErrRedeclaration,
	ErrUninitializedDeclaration,
	ErrUnexpectedToken,
	ErrRange,
	ErrCallStack,
	ErrInclude,
	ErrStepQuota,
}

// wrapError positions a plain error returned by the scope or a native. An
// error carrying none of the known kinds becomes its own kind. Runtime
// errors, exits and cancellations pass through untouched.
func (c *Context) wrapError(err error, pos Position) error {
	if err == nil {
		return nil
	}
	var runtimeErr *RuntimeError
	var exitErr *ExitError
	if errors.As(err, &runtimeErr) || errors.As(err, &exitErr) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	kind := err
	for _, k := range errorKinds {
		if errors.Is(err, k) {
			kind = k
			break
		}
	}
	return c.errorAt(pos, kind, "%s", err.Error())
}
