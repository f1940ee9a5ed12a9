package hop

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const tripleLib = `let integer y = 7
goto lib_end
@triple
let integer n = unpass
n = mul n 3
let integer tripled = n
del n
return tripled
@lib_end
`

func writeScript(t *testing.T, dir, name, source string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		t.Fatalf("write %s failed: %v", name, err)
	}
	return path
}

func runFile(t *testing.T, cfg Config, path string) (*Context, string, error) {
	t.Helper()
	var out bytes.Buffer
	cfg.Stdout = &out
	engine := MustNewEngine(cfg)
	c, err := engine.LoadFile(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	err = c.runEntry(context.Background())
	return c, out.String(), err
}

func TestIncludeMergesVariablesAndLabels(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "lib.hop", tripleLib)
	main := writeScript(t, dir, "main.hop", `@main
include "lib.hop"
print y " "
let integer t = triple 5
print t`)

	c, out, err := runFile(t, Config{}, main)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if out != "7 15" {
		t.Fatalf("unexpected output %q", out)
	}
	if !c.VariableExists("y") {
		t.Fatalf("expected y to be merged")
	}
	if !c.LabelExists("triple") {
		t.Fatalf("expected triple label to be merged")
	}
}

func TestMainSegmentDoesNotFallIntoInclude(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "lib.hop", tripleLib)
	main := writeScript(t, dir, "main.hop", `@main
include "lib.hop"
print "done"`)

	_, out, err := runFile(t, Config{}, main)
	if err != nil {
		t.Fatalf("expected run to stop at the end of main.hop, got %v", err)
	}
	if out != "done" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestIncludeReplacesExistingVariable(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "lib.hop", tripleLib)
	main := writeScript(t, dir, "main.hop", `@main
let string y = "mine"
include "lib.hop"`)

	c, _, err := runFile(t, Config{}, main)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	y, _ := c.Variable("y")
	if y.Type != KindInteger || y.Value.Integer() != 7 {
		t.Fatalf("expected included y to win, got %#v", y)
	}
}

func TestIncludeResolvesRelativeToIncludingFile(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "sub/sibling.hop", `let string from = "sibling"`)
	writeScript(t, dir, "sub/inner.hop", `include "sibling.hop"`)
	main := writeScript(t, dir, "main.hop", `@main
include "sub/inner.hop"
print from`)

	_, out, err := runFile(t, Config{}, main)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if out != "sibling" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestIncludeSearchesIncludePaths(t *testing.T) {
	libDir := t.TempDir()
	writeScript(t, libDir, "lib.hop", tripleLib)
	dir := t.TempDir()
	main := writeScript(t, dir, "main.hop", `@main
include "lib.hop"
print y`)

	_, out, err := runFile(t, Config{IncludePaths: []string{libDir}}, main)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if out != "7" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestIncludeErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		dir := t.TempDir()
		main := writeScript(t, dir, "main.hop", "@main\ninclude \"nope.hop\"")
		_, _, err := runFile(t, Config{}, main)
		expectKind(t, err, ErrInclude)
	})

	t.Run("cycle", func(t *testing.T) {
		dir := t.TempDir()
		writeScript(t, dir, "a.hop", `include "b.hop"`)
		writeScript(t, dir, "b.hop", `include "a.hop"`)
		main := writeScript(t, dir, "main.hop", "@main\ninclude \"a.hop\"")
		_, _, err := runFile(t, Config{}, main)
		expectKind(t, err, ErrInclude)
		if !strings.Contains(err.Error(), "a.hop -> b.hop -> a.hop") {
			t.Fatalf("expected cycle path in error, got %v", err)
		}
	})

	t.Run("self include", func(t *testing.T) {
		dir := t.TempDir()
		main := writeScript(t, dir, "main.hop", "@main\ninclude \"main.hop\"")
		_, _, err := runFile(t, Config{}, main)
		expectKind(t, err, ErrInclude)
	})

	t.Run("lex error in included file", func(t *testing.T) {
		dir := t.TempDir()
		writeScript(t, dir, "bad.hop", "let integer x= 1")
		main := writeScript(t, dir, "main.hop", "@main\ninclude \"bad.hop\"")
		_, _, err := runFile(t, Config{}, main)
		expectKind(t, err, ErrLex)
		if !strings.Contains(err.Error(), "bad.hop") {
			t.Fatalf("expected included file name in error, got %v", err)
		}
	})

	t.Run("runtime error in included file", func(t *testing.T) {
		dir := t.TempDir()
		writeScript(t, dir, "bad.hop", "nope")
		main := writeScript(t, dir, "main.hop", "@main\ninclude \"bad.hop\"")
		_, _, err := runFile(t, Config{}, main)
		expectKind(t, err, ErrUndefinedReference)
		if !strings.Contains(err.Error(), "bad.hop:1:1") {
			t.Fatalf("expected included file position in error, got %v", err)
		}
	})

	t.Run("non-string argument", func(t *testing.T) {
		dir := t.TempDir()
		main := writeScript(t, dir, "main.hop", "@main\ninclude 1")
		_, _, err := runFile(t, Config{}, main)
		expectKind(t, err, ErrTypeMismatch)
	})
}

func TestIncludeDepthLimit(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "a.hop", `include "b.hop"`)
	writeScript(t, dir, "b.hop", `include "c.hop"`)
	writeScript(t, dir, "c.hop", `let integer deep = 1`)
	main := writeScript(t, dir, "main.hop", "@main\ninclude \"a.hop\"")

	_, _, err := runFile(t, Config{MaxIncludeDepth: 2}, main)
	expectKind(t, err, ErrInclude)

	c, _, err := runFile(t, Config{}, main)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !c.VariableExists("deep") {
		t.Fatalf("expected nested include to merge deep")
	}
}

func TestNewEngineRejectsBadIncludePath(t *testing.T) {
	if _, err := NewEngine(Config{IncludePaths: []string{filepath.Join(t.TempDir(), "missing")}}); err == nil {
		t.Fatalf("expected invalid include path error")
	}
	if _, err := NewEngine(Config{IncludePaths: []string{" "}}); err == nil {
		t.Fatalf("expected empty include path error")
	}
}
