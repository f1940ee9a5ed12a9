package hop

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Error kinds. A *RuntimeError unwraps to exactly one of these, so callers
// can test the category with errors.Is.
var (
	ErrLex                      = errors.New("lex error")
	ErrUndefinedReference       = errors.New("undefined reference")
	ErrTypeMismatch             = errors.New("type mismatch")
	ErrArity                    = errors.New("missing argument")
	ErrRedeclaration            = errors.New("redeclaration")
	ErrUninitializedDeclaration = errors.New("uninitialised declaration")
	ErrUnexpectedToken          = errors.New("unexpected token")
	ErrRange                    = errors.New("value out of range")
	ErrCallStack                = errors.New("call stack error")
	ErrInclude                  = errors.New("include failed")
	ErrStepQuota                = errors.New("step quota exceeded")
)

const (
	runtimeErrorFrameHead = 8
	runtimeErrorFrameTail = 8
)

// StackFrame names a label procedure active when an error was raised and the
// position it was called from.
type StackFrame struct {
	Label string
	Pos   Position
}

// RuntimeError is a fatal diagnostic raised while lexing or running a
// program.
type RuntimeError struct {
	Kind      error
	Message   string
	File      string
	Pos       Position
	CodeFrame string
	Frames    []StackFrame
}

func (re *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString("[ERROR] ")
	b.WriteString(re.Message)
	if re.File != "" || re.Pos.Line > 0 {
		fmt.Fprintf(&b, " at %s:%d:%d", re.File, re.Pos.Line, re.Pos.Column)
	}
	return b.String()
}

// Unwrap exposes the error kind.
func (re *RuntimeError) Unwrap() error {
	return re.Kind
}

// Detail renders the diagnostic line followed by the code frame and the
// label call chain.
func (re *RuntimeError) Detail() string {
	var b strings.Builder
	b.WriteString(re.Error())
	if re.CodeFrame != "" {
		b.WriteString("\n")
		b.WriteString(re.CodeFrame)
	}
	renderFrame := func(frame StackFrame) {
		if frame.Pos.Line > 0 {
			fmt.Fprintf(&b, "\n  at %s (%d:%d)", frame.Label, frame.Pos.Line, frame.Pos.Column)
		} else {
			fmt.Fprintf(&b, "\n  at %s", frame.Label)
		}
	}

	if len(re.Frames) <= runtimeErrorFrameHead+runtimeErrorFrameTail {
		for _, frame := range re.Frames {
			renderFrame(frame)
		}
		return b.String()
	}

	for _, frame := range re.Frames[:runtimeErrorFrameHead] {
		renderFrame(frame)
	}
	omitted := len(re.Frames) - (runtimeErrorFrameHead + runtimeErrorFrameTail)
	fmt.Fprintf(&b, "\n  ... %d frames omitted ...", omitted)
	for _, frame := range re.Frames[len(re.Frames)-runtimeErrorFrameTail:] {
		renderFrame(frame)
	}
	return b.String()
}

// ExitError is returned by Run when the program calls exit. It is not a
// failure when Code is zero.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// formatCodeFrame quotes the source line holding pos with a caret under the
// column. Tabs before the caret are copied so it lines up in a terminal.
func formatCodeFrame(source string, pos Position) string {
	text, ok := sourceLine(source, pos.Line)
	if !ok {
		return ""
	}
	runes := []rune(text)
	col := min(max(pos.Column, 1), len(runes)+1)

	var pad strings.Builder
	for _, r := range runes[:col-1] {
		if r == '\t' {
			pad.WriteRune('\t')
		} else {
			pad.WriteByte(' ')
		}
	}

	num := strconv.Itoa(pos.Line)
	var b strings.Builder
	fmt.Fprintf(&b, "  --> line %d, column %d\n", pos.Line, col)
	fmt.Fprintf(&b, " %s | %s\n", num, text)
	fmt.Fprintf(&b, " %s | %s^", strings.Repeat(" ", len(num)), pad.String())
	return b.String()
}

// sourceLine returns line n (1-based) of source without its line ending.
func sourceLine(source string, n int) (string, bool) {
	if source == "" || n <= 0 {
		return "", false
	}
	rest := source
	for ; n > 1; n-- {
		var found bool
		_, rest, found = strings.Cut(rest, "\n")
		if !found {
			return "", false
		}
	}
	line, _, _ := strings.Cut(rest, "\n")
	return strings.TrimSuffix(line, "\r"), true
}
