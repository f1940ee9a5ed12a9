package hop

import (
	"context"
	"errors"
	"strconv"
)

// Run interprets tokens from the current instruction pointer until the
// sequence is exhausted, execution walks off the end of its segment, the
// program exits, or an error occurs. exit surfaces as *ExitError.
func (c *Context) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	prev := c.runCtx
	c.runCtx = ctx
	defer func() { c.runCtx = prev }()

	for c.ip < len(c.tokens) {
		if err := c.step(ctx); err != nil {
			return err
		}
		tok := c.tokens[c.ip]
		var err error
		switch tok.Type {
		case TokenLabel, TokenEnd:
		case TokenCall:
			err = c.execCall(tok)
		case TokenKeyword:
			err = c.execKeyword(tok)
		case TokenIdent:
			err = c.execAssign(tok)
		default:
			err = c.errorAt(tok.Pos, ErrUnexpectedToken, "unexpected token %s", tok.Type)
		}
		if err != nil {
			return err
		}
		c.ip++
		if c.isSegmentStart(c.ip) {
			return nil
		}
	}
	return nil
}

// Eval lexes source as a new segment and runs it. It returns the most
// recently produced value, if any remains, consuming it.
func (c *Context) Eval(ctx context.Context, source string) (Value, bool, error) {
	tokens, err := Lex(source, c.name)
	if err != nil {
		return Value{}, false, err
	}
	if len(tokens) == 0 {
		return Value{}, false, nil
	}
	// a failed earlier line may have left frames pointing into it
	c.frames = c.frames[:0]
	c.args = c.args[:0]
	c.ip = c.appendSegment(tokens, c.name, source, c.dir)
	if err := c.Run(ctx); err != nil {
		return Value{}, false, err
	}
	if len(c.results) == 0 {
		return Value{}, false, nil
	}
	v := c.results[len(c.results)-1]
	c.results = c.results[:len(c.results)-1]
	return v, true, nil
}

func (c *Context) step(ctx context.Context) error {
	c.steps++
	quota := c.engine.config.StepQuota
	if quota > 0 && c.steps > quota {
		return c.errorAt(c.tokens[c.ip].Pos, ErrStepQuota, "step quota exceeded (%d)", quota)
	}
	if c.steps&63 == 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	return nil
}

// next advances to the following token of the current statement. At the end
// of the statement it returns the End token (or a zero token at the end of
// the segment) without advancing.
func (c *Context) next() (Token, bool) {
	n := c.ip + 1
	if n >= len(c.tokens) || c.isSegmentStart(n) {
		return Token{Type: TokenEnd, Pos: c.tokens[c.ip].Pos}, false
	}
	tok := c.tokens[n]
	if tok.Type == TokenEnd {
		return tok, false
	}
	c.ip = n
	return tok, true
}

func (c *Context) expectEnd() error {
	if tok, more := c.next(); more {
		return c.errorAt(tok.Pos, ErrUnexpectedToken, "unexpected token %s", tok.Type)
	}
	return nil
}

func (c *Context) atStatementEnd() bool {
	n := c.ip + 1
	return n >= len(c.tokens) || c.isSegmentStart(n) || c.tokens[n].Type == TokenEnd
}

func (c *Context) execCall(callee Token) error {
	argBase := len(c.args)
	if err := c.collectArgs(); err != nil {
		return err
	}
	return c.invoke(callee, argBase, nil)
}

// collectArgs resolves every remaining token of the statement onto the pass
// stack, in source order.
func (c *Context) collectArgs() error {
	for {
		tok, more := c.next()
		if !more {
			return nil
		}
		val, err := c.resolveArg(tok)
		if err != nil {
			return err
		}
		c.args = append(c.args, val)
	}
}

func (c *Context) resolveArg(tok Token) (Value, error) {
	switch tok.Type {
	case TokenString:
		return NewString(tok.Literal), nil
	case TokenInteger:
		return c.parseInteger(tok)
	case TokenFloat:
		return c.parseFloat(tok)
	case TokenBool:
		return NewBool(tok.Literal == "true"), nil
	case TokenIdent:
		if v, ok := c.scope.Lookup(tok.Literal); ok {
			return v.Value, nil
		}
		if pos, ok := c.labels[tok.Literal]; ok {
			return NewWord(uint64(pos)), nil
		}
		return Value{}, c.errorAt(tok.Pos, ErrUndefinedReference, "referenced undefined variable/label %s", tok.Literal)
	default:
		return Value{}, c.errorAt(tok.Pos, ErrUnexpectedToken, "unexpected token %s in argument list", tok.Type)
	}
}

func (c *Context) parseInteger(tok Token) (Value, error) {
	n, err := strconv.ParseInt(tok.Literal, 10, 32)
	if err != nil {
		return Value{}, c.errorAt(tok.Pos, ErrRange, "integer literal %s out of range", tok.Literal)
	}
	return NewInteger(int32(n)), nil
}

func (c *Context) parseWord(tok Token) (Value, error) {
	n, err := strconv.ParseUint(tok.Literal, 10, 64)
	if err != nil {
		return Value{}, c.errorAt(tok.Pos, ErrRange, "word literal %s out of range", tok.Literal)
	}
	return NewWord(n), nil
}

func (c *Context) parseFloat(tok Token) (Value, error) {
	f, err := strconv.ParseFloat(tok.Literal, 64)
	if err != nil {
		return Value{}, c.errorAt(tok.Pos, ErrRange, "float literal %s out of range", tok.Literal)
	}
	return NewFloat(f), nil
}

// invoke dispatches a call whose arguments sit on the pass stack above
// argBase. Natives win over labels of the same name. When assign is set the
// produced value completes that assignment.
func (c *Context) invoke(callee Token, argBase int, assign *pendingAssign) error {
	if fn, ok := c.natives.Lookup(callee.Literal); ok {
		resultBase := len(c.results)
		prevTok, prevBase := c.callTok, c.callArgBase
		c.callTok, c.callArgBase = callee, argBase
		err := fn(c)
		c.callTok, c.callArgBase = prevTok, prevBase
		if len(c.args) > argBase {
			c.args = c.args[:argBase]
		}
		if err != nil {
			return c.wrapError(err, callee.Pos)
		}
		if assign != nil {
			return c.completeAssign(assign, resultBase, callee.Literal)
		}
		return nil
	}
	if pos, ok := c.labels[callee.Literal]; ok {
		return c.enterLabel(callee, pos, argBase, assign)
	}
	return c.errorAt(callee.Pos, ErrUndefinedReference, "referenced undefined function %s", callee.Literal)
}

func (c *Context) enterLabel(callee Token, target, argBase int, assign *pendingAssign) error {
	if len(c.frames) >= c.engine.config.MaxCallDepth {
		return c.errorAt(callee.Pos, ErrCallStack, "call depth exceeded (limit %d)", c.engine.config.MaxCallDepth)
	}
	c.frames = append(c.frames, callFrame{
		label:      callee.Literal,
		callPos:    callee.Pos,
		returnIP:   c.ip,
		argBase:    argBase,
		resultBase: len(c.results),
		assign:     assign,
	})
	c.logger.Debug("label call", "label", callee.Literal, "from", c.ip, "to", target, "depth", len(c.frames))
	c.ip = target
	return nil
}

// returnFromLabel pops the innermost call frame and resumes the caller.
func (c *Context) returnFromLabel(val Value, hasValue bool) error {
	if len(c.frames) == 0 {
		return c.Errorf(ErrCallStack, "return: nowhere to return to")
	}
	f := c.frames[len(c.frames)-1]
	c.frames = c.frames[:len(c.frames)-1]
	c.ip = f.returnIP
	if len(c.args) > f.argBase {
		c.args = c.args[:f.argBase]
	}
	if hasValue {
		c.results = append(c.results, val)
	}
	c.logger.Debug("label return", "label", f.label, "to", f.returnIP, "depth", len(c.frames))
	if f.assign != nil {
		return c.completeAssign(f.assign, f.resultBase, f.label)
	}
	return nil
}

func (c *Context) completeAssign(a *pendingAssign, resultBase int, callee string) error {
	produced := len(c.results) - resultBase
	if produced != 1 {
		if produced < 0 {
			produced = 0
		}
		return c.errorAt(a.pos, ErrArity, "%s produced %d values, expected exactly one for %s", callee, produced, a.name)
	}
	val := c.results[len(c.results)-1]
	c.results = c.results[:len(c.results)-1]
	if val.Kind() != a.kind {
		return c.errorAt(a.pos, ErrTypeMismatch, "%s returned %s but %s is %s", callee, val.Kind(), a.name, a.kind)
	}
	return c.store(a, val)
}

func (c *Context) store(a *pendingAssign, val Value) error {
	var err error
	if a.declare {
		err = c.scope.Declare(Variable{Name: a.name, Type: a.kind, Value: val})
	} else {
		err = c.scope.Assign(a.name, val)
	}
	return c.wrapError(err, a.pos)
}

func (c *Context) execKeyword(tok Token) error {
	switch tok.Literal {
	case keywordLet:
		return c.execLet(tok)
	case keywordDel:
		return c.execDel(tok)
	default:
		return c.errorAt(tok.Pos, ErrUnexpectedToken, "unknown keyword %s", tok.Literal)
	}
}

func (c *Context) execLet(letTok Token) error {
	typeTok, more := c.next()
	if !more || typeTok.Type != TokenTypeName {
		return c.errorAt(typeTok.Pos, ErrUnexpectedToken, "let: expected a type")
	}
	kind := ParseKind(typeTok.Literal)
	if kind == KindErr {
		return c.errorAt(typeTok.Pos, ErrTypeMismatch, "unknown type %s", typeTok.Literal)
	}
	nameTok, more := c.next()
	if !more || nameTok.Type != TokenIdent {
		return c.errorAt(nameTok.Pos, ErrUnexpectedToken, "let: expected a variable name, got %s", nameTok.Type)
	}
	if c.scope.Exists(nameTok.Literal) {
		return c.errorAt(nameTok.Pos, ErrRedeclaration, "trying to declare variable that already exists: %s", nameTok.Literal)
	}
	eq, more := c.next()
	if !more || eq.Type != TokenEquals {
		return c.errorAt(eq.Pos, ErrUninitializedDeclaration, "uninitialised variables are not allowed: %s", nameTok.Literal)
	}
	return c.execInitializer(&pendingAssign{name: nameTok.Literal, kind: kind, declare: true, pos: nameTok.Pos})
}

func (c *Context) execDel(delTok Token) error {
	nameTok, more := c.next()
	// the word after a keyword lexes as a type name
	if !more || (nameTok.Type != TokenTypeName && nameTok.Type != TokenIdent) {
		return c.errorAt(nameTok.Pos, ErrUnexpectedToken, "del: expected a variable name")
	}
	if err := c.scope.Delete(nameTok.Literal); err != nil {
		return c.wrapError(err, nameTok.Pos)
	}
	return c.expectEnd()
}

func (c *Context) execAssign(nameTok Token) error {
	v, ok := c.scope.Lookup(nameTok.Literal)
	if !ok {
		return c.errorAt(nameTok.Pos, ErrUndefinedReference, "tried to access undefined variable %s", nameTok.Literal)
	}
	eq, more := c.next()
	if !more || eq.Type != TokenEquals {
		return c.errorAt(eq.Pos, ErrUnexpectedToken, "unexpected token %s after %s", eq.Type, nameTok.Literal)
	}
	return c.execInitializer(&pendingAssign{name: v.Name, kind: v.Type, pos: nameTok.Pos})
}

// execInitializer resolves the token after = and stores it, or starts the
// call whose produced value completes the assignment.
func (c *Context) execInitializer(a *pendingAssign) error {
	tok, more := c.next()
	if !more {
		if a.declare {
			return c.errorAt(tok.Pos, ErrUninitializedDeclaration, "uninitialised variables are not allowed: %s", a.name)
		}
		return c.errorAt(tok.Pos, ErrUnexpectedToken, "expected a value after = for %s", a.name)
	}

	switch tok.Type {
	case TokenString, TokenInteger, TokenFloat, TokenBool:
		val, err := c.literalFor(tok, a)
		if err != nil {
			return err
		}
		if err := c.expectEnd(); err != nil {
			return err
		}
		return c.store(a, val)
	case TokenIdent:
		if src, ok := c.scope.Lookup(tok.Literal); ok {
			if src.Type != a.kind {
				return c.errorAt(tok.Pos, ErrTypeMismatch, "rvalue %s (%s) doesn't match type of lvalue %s (%s)", src.Name, src.Type, a.name, a.kind)
			}
			if err := c.expectEnd(); err != nil {
				return err
			}
			return c.store(a, src.Value)
		}
		_, isNative := c.natives.Lookup(tok.Literal)
		if pos, isLabel := c.labels[tok.Literal]; isLabel && !isNative && a.kind == KindWord && c.atStatementEnd() {
			return c.store(a, NewWord(uint64(pos)))
		}
		if !isNative && !c.LabelExists(tok.Literal) {
			return c.errorAt(tok.Pos, ErrUndefinedReference, "referenced undefined variable/label %s", tok.Literal)
		}
		argBase := len(c.args)
		if err := c.collectArgs(); err != nil {
			return err
		}
		return c.invoke(tok, argBase, a)
	default:
		return c.errorAt(tok.Pos, ErrUnexpectedToken, "unexpected token %s after =", tok.Type)
	}
}

func (c *Context) literalFor(tok Token, a *pendingAssign) (Value, error) {
	mismatch := func() (Value, error) {
		return Value{}, c.errorAt(tok.Pos, ErrTypeMismatch, "%s literal doesn't match type of lvalue %s (%s)", tok.Type, a.name, a.kind)
	}
	switch tok.Type {
	case TokenString:
		if a.kind != KindString {
			return mismatch()
		}
		return NewString(tok.Literal), nil
	case TokenInteger:
		switch a.kind {
		case KindInteger:
			return c.parseInteger(tok)
		case KindWord:
			return c.parseWord(tok)
		default:
			return mismatch()
		}
	case TokenFloat:
		if a.kind != KindFloat {
			return mismatch()
		}
		return c.parseFloat(tok)
	case TokenBool:
		if a.kind != KindBool {
			return mismatch()
		}
		return NewBool(tok.Literal == "true"), nil
	default:
		return mismatch()
	}
}

// IsExit reports whether err is a clean exit request and returns its code.
func IsExit(err error) (int, bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, true
	}
	return 0, false
}
