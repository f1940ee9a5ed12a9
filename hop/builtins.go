package hop

import (
	"io"
	"strings"
)

func registerBuiltins(r *Registry) {
	r.Register("print", builtinPrint)
	r.Register("return", builtinReturn)
	r.Register("exit", builtinExit)
	r.Register("goto", builtinGoto)
	r.Register("goto_if", builtinGotoIf)
	r.Register("unpass", builtinUnpass)
	r.Register("sleep", builtinSleep)
	r.Register("add", arithmetic("add", addValues))
	r.Register("sub", arithmetic("sub", subValues))
	r.Register("mul", arithmetic("mul", mulValues))
	r.Register("div", arithmetic("div", divValues))
	r.Register("mod", arithmetic("mod", modValues))
	r.Register("is_equal", builtinIsEqual)
	r.Register("get_char", builtinGetChar)
	r.Register("char_to_ascii", builtinCharToASCII)
	r.Register("str_resize", builtinStrResize)
	r.Register("include", builtinInclude)
}

func builtinPrint(c *Context) error {
	var b strings.Builder
	for _, arg := range c.Args() {
		b.WriteString(arg.String())
	}
	_, err := io.WriteString(c.Stdout(), b.String())
	return err
}

func builtinReturn(c *Context) error {
	if c.ArgCount() == 0 {
		return c.returnFromLabel(Value{}, false)
	}
	val, err := c.PopArg("return")
	if err != nil {
		return err
	}
	return c.returnFromLabel(val, true)
}

func builtinExit(c *Context) error {
	if c.ArgCount() == 0 {
		return &ExitError{Code: 0}
	}
	code, err := c.PopArg("exit")
	if err != nil {
		return err
	}
	if code.Kind() != KindInteger {
		return c.Errorf(ErrTypeMismatch, "can't use %s as exit code", code.Kind())
	}
	return &ExitError{Code: int(code.Integer())}
}

func builtinGoto(c *Context) error {
	target, err := c.PopArgOf("goto", KindWord)
	if err != nil {
		return err
	}
	return c.Jump(target.Word())
}

// builtinGotoIf jumps only when the most recently produced value is true.
func builtinGotoIf(c *Context) error {
	target, err := c.PopArgOf("goto_if", KindWord)
	if err != nil {
		return err
	}
	cond, err := c.PopResult("goto_if")
	if err != nil {
		return err
	}
	truth, ok := cond.Truthy()
	if !ok {
		return c.Errorf(ErrTypeMismatch, "goto_if: condition must be bool or integer, got %s", cond.Kind())
	}
	if !truth {
		return nil
	}
	return c.Jump(target.Word())
}

// builtinUnpass moves the last passed argument to the result stack. Label
// procedures use it to receive their arguments, last first.
func builtinUnpass(c *Context) error {
	v, err := c.popPassed("unpass")
	if err != nil {
		return err
	}
	c.PushResult(v)
	return nil
}

func builtinIsEqual(c *Context) error {
	right, err := c.PopArg("is_equal")
	if err != nil {
		return err
	}
	left, err := c.PopArg("is_equal")
	if err != nil {
		return err
	}
	if left.Kind() != right.Kind() {
		return c.Errorf(ErrTypeMismatch, "is_equal: cannot compare %s with %s", left.Kind(), right.Kind())
	}
	switch left.Kind() {
	case KindInteger, KindWord, KindFloat, KindString:
		c.PushResult(NewBool(left.Equal(right)))
		return nil
	default:
		return c.Errorf(ErrTypeMismatch, "is_equal: unsupported type %s", left.Kind())
	}
}

func popIndex(c *Context, fn string) (int64, error) {
	v, err := c.PopArgOf(fn, KindInteger, KindWord)
	if err != nil {
		return 0, err
	}
	if v.Kind() == KindWord {
		if v.Word() > uint64(1<<62) {
			return 0, c.Errorf(ErrRange, "%s: index %d out of range", fn, v.Word())
		}
		return int64(v.Word()), nil
	}
	return int64(v.Integer()), nil
}

func builtinGetChar(c *Context) error {
	idx, err := popIndex(c, "get_char")
	if err != nil {
		return err
	}
	str, err := c.PopArgOf("get_char", KindString)
	if err != nil {
		return err
	}
	s := str.Str()
	if idx < 0 || idx >= int64(len(s)) {
		return c.Errorf(ErrRange, "get_char: index %d out of range for string of length %d", idx, len(s))
	}
	c.PushResult(NewString(s[idx : idx+1]))
	return nil
}

func builtinCharToASCII(c *Context) error {
	str, err := c.PopArgOf("char_to_ascii", KindString)
	if err != nil {
		return err
	}
	s := str.Str()
	if s == "" {
		return c.Errorf(ErrRange, "char_to_ascii: empty string")
	}
	c.PushResult(NewInteger(int32(s[0])))
	return nil
}

// builtinStrResize truncates or NUL-pads a string to the given length.
func builtinStrResize(c *Context) error {
	n, err := popIndex(c, "str_resize")
	if err != nil {
		return err
	}
	str, err := c.PopArgOf("str_resize", KindString)
	if err != nil {
		return err
	}
	if n < 0 {
		return c.Errorf(ErrRange, "str_resize: negative length %d", n)
	}
	s := str.Str()
	if n <= int64(len(s)) {
		c.PushResult(NewString(s[:n]))
		return nil
	}
	c.PushResult(NewString(s + strings.Repeat("\x00", int(n)-len(s))))
	return nil
}
