package hop

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func runProgram(t *testing.T, cfg Config, source string) (*Context, string, error) {
	t.Helper()
	var out bytes.Buffer
	cfg.Stdout = &out
	engine := MustNewEngine(cfg)
	c, err := engine.LoadSource(source, "test.hop")
	if err != nil {
		t.Fatalf("lex failed: %v", err)
	}
	err = c.runEntry(context.Background())
	return c, out.String(), err
}

func mustRun(t *testing.T, source string) (*Context, string) {
	t.Helper()
	c, out, err := runProgram(t, Config{}, source)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	return c, out
}

func expectKind(t *testing.T, err error, kind error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v, got nil", kind)
	}
	if !errors.Is(err, kind) {
		t.Fatalf("expected %v, got %v", kind, err)
	}
}

func TestLetDeclaresTypedVariables(t *testing.T) {
	tests := []struct {
		source string
		want   Value
	}{
		{"let integer v = 42", NewInteger(42)},
		{"let integer v = -7", NewInteger(-7)},
		{"let float v = 1.5", NewFloat(1.5)},
		{"let bool v = true", NewBool(true)},
		{`let string v = "hi there"`, NewString("hi there")},
		{"let word v = 18446744073709551615", NewWord(18446744073709551615)},
	}
	for _, tc := range tests {
		c, _ := mustRun(t, "@main\n"+tc.source)
		v, ok := c.Variable("v")
		if !ok {
			t.Fatalf("%s: expected v to exist", tc.source)
		}
		if v.Type != tc.want.Kind() || !v.Value.Equal(tc.want) {
			t.Fatalf("%s: expected %s %s, got %s %s", tc.source, tc.want.Kind(), tc.want, v.Type, v.Value)
		}
	}
}

func TestDeclarationErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		kind   error
	}{
		{"redeclaration", "let integer x = 1\nlet string x = \"a\"", ErrRedeclaration},
		{"uninitialised", "let integer x", ErrUninitializedDeclaration},
		{"literal mismatch", `let integer x = "a"`, ErrTypeMismatch},
		{"float into integer", "let integer x = 1.5", ErrTypeMismatch},
		{"variable mismatch", "let integer x = 1\nlet float y = x", ErrTypeMismatch},
		{"assignment mismatch", "let integer x = 1\nx = 2.5", ErrTypeMismatch},
		{"unknown type", "let number x = 1", ErrTypeMismatch},
		{"assign undefined", "let integer x = 1\ny = x", ErrUndefinedReference},
		{"integer out of range", "let integer x = 2147483648", ErrRange},
		{"negative word", "let word w = -1", ErrRange},
		{"undefined initializer", "let integer x = nope", ErrUndefinedReference},
		{"trailing tokens", "let integer x = 1 2", ErrUnexpectedToken},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := runProgram(t, Config{}, "@main\n"+tc.source)
			expectKind(t, err, tc.kind)
		})
	}
}

func TestAssignmentFromVariableAndCall(t *testing.T) {
	c, _ := mustRun(t, `@main
let integer a = 2
let integer b = a
b = add b 3
a = b`)
	a, _ := c.Variable("a")
	if a.Value.Integer() != 5 {
		t.Fatalf("expected a = 5, got %s", a.Value)
	}
}

func TestIntegerAdditionWraps(t *testing.T) {
	c, _ := mustRun(t, "@main\nlet integer x = add 2147483647 1")
	x, _ := c.Variable("x")
	if x.Value.Integer() != -2147483648 {
		t.Fatalf("expected wrap to -2147483648, got %d", x.Value.Integer())
	}
}

func TestDelRemovesVariable(t *testing.T) {
	c, _ := mustRun(t, "@main\nlet integer x = 1\ndel x\nlet string x = \"again\"")
	x, ok := c.Variable("x")
	if !ok || x.Type != KindString {
		t.Fatalf("expected x redeclared as string, got %#v", x)
	}

	_, _, err := runProgram(t, Config{}, "@main\ndel x")
	expectKind(t, err, ErrUndefinedReference)
}

func TestCountdownLoop(t *testing.T) {
	source := `@main
let integer x = 0
let integer n = 5
@loop
x = add x 1
n = sub n 1
is_equal n 0
goto_if done
goto loop
@done
print x "\n"
exit`
	c, out, err := runProgram(t, Config{}, source)
	code, ok := IsExit(err)
	if !ok || code != 0 {
		t.Fatalf("expected clean exit, got %v", err)
	}
	if out != "5\n" {
		t.Fatalf("expected output 5, got %q", out)
	}
	n, _ := c.Variable("n")
	if n.Value.Integer() != 0 {
		t.Fatalf("expected n = 0, got %s", n.Value)
	}
}

func TestGotoIfIntegerCondition(t *testing.T) {
	source := `@main
add 0 1
goto_if skip
print "not skipped"
@skip
sub 1 1
goto_if never
print "done"
@never`
	_, out := mustRun(t, source)
	if out != "done" {
		t.Fatalf("expected done, got %q", out)
	}
}

func TestGotoIfErrors(t *testing.T) {
	_, _, err := runProgram(t, Config{}, "@main\ngoto_if main")
	expectKind(t, err, ErrArity)

	_, _, err = runProgram(t, Config{}, "@main\nadd 1.5 1.5\ngoto_if main")
	expectKind(t, err, ErrTypeMismatch)

	_, _, err = runProgram(t, Config{}, "@main\nis_equal 1 1\ngoto_if 3")
	expectKind(t, err, ErrTypeMismatch)
}

func TestLabelCallReturnsValue(t *testing.T) {
	source := `@double
let integer n = unpass
n = mul n 2
return n
@main
let integer r = double 21
print r`
	c, out := mustRun(t, source)
	if out != "42" {
		t.Fatalf("expected 42, got %q", out)
	}
	if c.CallDepth() != 0 {
		t.Fatalf("expected empty call stack, got depth %d", c.CallDepth())
	}
}

func TestUnpassDeliversArgumentsLastFirst(t *testing.T) {
	source := `@pair
b = unpass
a = unpass
print a " " b
return
@main
let integer a = 0
let integer b = 0
pair 1 2
print "|"
pair 3 4
exit`
	_, out, err := runProgram(t, Config{}, source)
	if _, ok := IsExit(err); !ok {
		t.Fatalf("expected exit, got %v", err)
	}
	if out != "1 2|3 4" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestNestedLabelCalls(t *testing.T) {
	source := `@inc
v = unpass
v = add v 1
return v
@twice
w = unpass
w = inc w
w = inc w
return w
@main
let integer v = 0
let integer w = 0
let integer r = twice 40
print r`
	_, out := mustRun(t, source)
	if out != "42" {
		t.Fatalf("expected 42, got %q", out)
	}
}

func TestLabelCallArityMismatch(t *testing.T) {
	source := `@nothing
return
@main
let integer r = nothing`
	_, _, err := runProgram(t, Config{}, source)
	expectKind(t, err, ErrArity)
}

func TestWordVariableHoldsLabelAddress(t *testing.T) {
	source := `@main
let word target = finish
goto target
print "skipped"
@finish
print "finished"`
	c, out := mustRun(t, source)
	if out != "finished" {
		t.Fatalf("expected finished, got %q", out)
	}
	target, _ := c.Variable("target")
	pos, _ := c.Label("finish")
	if target.Value.Word() != uint64(pos) {
		t.Fatalf("expected word %d, got %d", pos, target.Value.Word())
	}
}

func TestNativeShadowsLabel(t *testing.T) {
	source := `@add
print "label ran"
return
@main
let integer r = add 1 2
print r`
	_, out := mustRun(t, source)
	if out != "3" {
		t.Fatalf("expected native add to win, got %q", out)
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		kind   error
	}{
		{"undefined function", "@main\nnope 1", ErrUndefinedReference},
		{"undefined argument", "@main\nprint missing", ErrUndefinedReference},
		{"return without call", "@main\nreturn", ErrCallStack},
		{"missing argument", "@main\nadd 1", ErrArity},
		{"mixed operands", "@main\nadd 1 1.5", ErrTypeMismatch},
		{"unpass with nothing passed", "@main\nlet integer x = unpass", ErrArity},
		{"unexpected token", "@main\nlet integer x = 1\nx = = 2", ErrUnexpectedToken},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := runProgram(t, Config{}, tc.source)
			expectKind(t, err, tc.kind)
		})
	}
}

func TestMissingMainLabel(t *testing.T) {
	_, _, err := runProgram(t, Config{}, "print 1")
	expectKind(t, err, ErrUndefinedReference)
	if !strings.Contains(err.Error(), "main") {
		t.Fatalf("expected main in error, got %v", err)
	}
}

func TestRuntimeErrorFormat(t *testing.T) {
	_, _, err := runProgram(t, Config{}, "@main\n  nope 1")
	var re *RuntimeError
	if !errors.As(err, &re) {
		t.Fatalf("expected RuntimeError, got %T", err)
	}
	want := "[ERROR] referenced undefined function nope at test.hop:2:3"
	if re.Error() != want {
		t.Fatalf("expected %q, got %q", want, re.Error())
	}
	detail := re.Detail()
	if !strings.Contains(detail, "  nope 1") || !strings.Contains(detail, "^") {
		t.Fatalf("expected code frame in detail, got %q", detail)
	}
}

func TestRuntimeErrorIncludesCallFrames(t *testing.T) {
	source := `@inner
nope
@outer
inner
return
@main
outer`
	_, _, err := runProgram(t, Config{}, source)
	var re *RuntimeError
	if !errors.As(err, &re) {
		t.Fatalf("expected RuntimeError, got %v", err)
	}
	if len(re.Frames) != 2 || re.Frames[0].Label != "inner" || re.Frames[1].Label != "outer" {
		t.Fatalf("unexpected frames %#v", re.Frames)
	}
	if !strings.Contains(re.Detail(), "at outer (7:1)") {
		t.Fatalf("expected outer frame in detail, got %q", re.Detail())
	}
}

func TestCallDepthLimit(t *testing.T) {
	source := `@rec
rec
@main
rec`
	_, _, err := runProgram(t, Config{MaxCallDepth: 10}, source)
	expectKind(t, err, ErrCallStack)
}

func TestStepQuota(t *testing.T) {
	_, _, err := runProgram(t, Config{StepQuota: 100}, "@main\n@loop\ngoto loop")
	expectKind(t, err, ErrStepQuota)
}

func TestRunHonoursCancellation(t *testing.T) {
	engine := MustNewEngine(Config{})
	c, err := engine.LoadSource("@main\n@loop\ngoto loop", "test.hop")
	if err != nil {
		t.Fatalf("lex failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.JumpToLabel("main"); err != nil {
		t.Fatalf("jump failed: %v", err)
	}
	if err := c.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestEmptyProgramIsNoop(t *testing.T) {
	_, out := mustRun(t, "// nothing here\n")
	if out != "" {
		t.Fatalf("expected no output, got %q", out)
	}
}

func TestEvalKeepsStateAcrossLines(t *testing.T) {
	var out bytes.Buffer
	engine := MustNewEngine(Config{Stdout: &out})
	c := engine.NewContext("REPL")
	ctx := context.Background()

	if _, ok, err := c.Eval(ctx, "let integer x = 2"); err != nil || ok {
		t.Fatalf("expected no value and no error, got %v %v", ok, err)
	}
	val, ok, err := c.Eval(ctx, "add x 3")
	if err != nil {
		t.Fatalf("eval failed: %v", err)
	}
	if !ok || val.Integer() != 5 {
		t.Fatalf("expected 5, got %v (%v)", val, ok)
	}
	if _, _, err := c.Eval(ctx, "nope"); !errors.Is(err, ErrUndefinedReference) {
		t.Fatalf("expected ErrUndefinedReference, got %v", err)
	}
	if _, _, err := c.Eval(ctx, `print "x is " x`); err != nil {
		t.Fatalf("eval after error failed: %v", err)
	}
	if out.String() != "x is 2" {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestEvalLabelDefinedOnEarlierLine(t *testing.T) {
	engine := MustNewEngine(Config{Stdout: &bytes.Buffer{}})
	c := engine.NewContext("REPL")
	ctx := context.Background()
	if _, _, err := c.Eval(ctx, "exit\n@sq\nlet integer q = unpass\nq = mul q q\nreturn q"); err == nil {
		t.Fatalf("expected the definition line to exit")
	}
	val, ok, err := c.Eval(ctx, "sq 9")
	if err != nil || !ok {
		t.Fatalf("eval failed: %v", err)
	}
	if val.Integer() != 81 {
		t.Fatalf("expected 81, got %s", val)
	}
}

func TestCustomNative(t *testing.T) {
	var out bytes.Buffer
	engine := MustNewEngine(Config{Stdout: &out})
	engine.RegisterNative("shout", func(c *Context) error {
		arg, err := c.PopArgOf("shout", KindString)
		if err != nil {
			return err
		}
		c.PushResult(NewString(strings.ToUpper(arg.Str())))
		return nil
	})
	if err := engine.RunSource(context.Background(), "@main\nlet string s = shout \"hey\"\nprint s", "test.hop"); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if out.String() != "HEY" {
		t.Fatalf("expected HEY, got %q", out.String())
	}
}

func TestConfigSummaryDefaults(t *testing.T) {
	engine := MustNewEngine(Config{StepQuota: 10})
	want := "steps=10 call_depth=4096 include_depth=64 include_paths=0"
	if got := engine.ConfigSummary(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
