package hop

import (
	"errors"
	"strings"
	"unicode/utf8"
)

type lexer struct {
	input string
	name  string

	offset int
	width  int
	eof    bool

	line   int
	column int

	ch rune

	word    strings.Builder
	wordPos Position

	tokens []Token
	errs   []error
}

// Lex converts source text into a token sequence. name is used in
// diagnostics only. Any lexical error aborts the whole lex: no tokens are
// returned and the error wraps ErrLex.
func Lex(source, name string) ([]Token, error) {
	l := newLexer(source, name)
	l.run()
	if len(l.errs) > 0 {
		return nil, errors.Join(l.errs...)
	}
	return l.tokens, nil
}

func newLexer(input, name string) *lexer {
	l := &lexer{input: input, name: name, line: 1, column: 0}
	l.readRune()
	return l
}

func (l *lexer) readRune() {
	if l.offset >= len(l.input) {
		l.width = 0
		l.ch = 0
		l.eof = true
		return
	}

	if l.ch == '\n' {
		l.line++
		l.column = 0
	}

	r, w := utf8.DecodeRuneInString(l.input[l.offset:])
	l.width = w
	l.offset += w
	l.column++
	l.ch = r
}

func (l *lexer) peekRune() rune {
	if l.offset >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.offset:])
	return r
}

func (l *lexer) pos() Position {
	return Position{Line: l.line, Column: l.column}
}

func (l *lexer) run() {
	if l.ch == '#' {
		l.skipLine()
	}

	for !l.eof {
		switch l.ch {
		case '\n':
			l.flush()
			l.endStatement()
		case ' ', '\t', '\r':
			l.flush()
		case '"':
			l.readString()
		case '/':
			switch l.peekRune() {
			case '/':
				l.flush()
				l.skipLine()
				continue
			case '*':
				l.flush()
				l.skipBlockComment()
			default:
				l.appendWord()
			}
		case '=':
			l.assign()
		default:
			l.appendWord()
		}
		l.readRune()
	}

	l.flush()
	l.endStatement()
}

// skipLine advances to the next newline without consuming it so the newline
// still terminates the statement.
func (l *lexer) skipLine() {
	for !l.eof && l.ch != '\n' {
		l.readRune()
	}
}

func (l *lexer) skipBlockComment() {
	start := l.pos()
	l.readRune() // '*'
	for {
		l.readRune()
		if l.eof {
			l.errorAt(start, "unterminated block comment")
			return
		}
		if l.ch == '*' && l.peekRune() == '/' {
			l.readRune()
			return
		}
	}
}

// readString copies a quoted section, quotes and escapes included, into the
// pending word. Escapes are resolved when the word is classified.
func (l *lexer) readString() {
	start := l.pos()
	l.appendWord()
	for {
		l.readRune()
		if l.eof {
			l.errorAt(start, "unterminated string literal")
			l.word.Reset()
			return
		}
		l.word.WriteString(l.current())
		switch l.ch {
		case '"':
			return
		case '\\':
			l.readRune()
			if l.eof {
				l.errorAt(start, "unterminated string literal")
				l.word.Reset()
				return
			}
			l.word.WriteString(l.current())
		}
	}
}

func (l *lexer) appendWord() {
	if l.word.Len() == 0 {
		l.wordPos = l.pos()
	}
	l.word.WriteString(l.current())
}

// current returns the source bytes of the rune under the cursor. Invalid
// UTF-8 is kept byte for byte instead of becoming U+FFFD.
func (l *lexer) current() string {
	return l.input[l.offset-l.width : l.offset]
}

func (l *lexer) assign() {
	if l.word.Len() > 0 {
		l.errorAt(l.pos(), "no space before = token")
		return
	}
	if l.atStatementStart() {
		l.errorAt(l.pos(), "nothing to assign to")
		return
	}
	last := &l.tokens[len(l.tokens)-1]
	if last.Type == TokenCall {
		last.Type = TokenIdent
	}
	l.emit(TokenEquals, "", l.pos())
}

func (l *lexer) atStatementStart() bool {
	return len(l.tokens) == 0 || l.tokens[len(l.tokens)-1].Type == TokenEnd
}

func (l *lexer) endStatement() {
	if len(l.tokens) == 0 || l.tokens[len(l.tokens)-1].Type == TokenEnd {
		return
	}
	l.emit(TokenEnd, "", l.pos())
}

func (l *lexer) emit(typ TokenType, literal string, pos Position) {
	l.tokens = append(l.tokens, Token{Type: typ, Literal: literal, Pos: pos})
}

func (l *lexer) flush() {
	if l.word.Len() == 0 {
		return
	}
	text := l.word.String()
	pos := l.wordPos
	l.word.Reset()

	if l.atStatementStart() {
		switch {
		case strings.HasPrefix(text, "@"):
			l.emit(TokenLabel, text[1:], pos)
			l.emit(TokenEnd, "", pos)
		case isKeyword(text):
			l.emit(TokenKeyword, text, pos)
		default:
			l.emit(TokenCall, text, pos)
		}
		return
	}

	prev := l.tokens[len(l.tokens)-1]
	if prev.Type == TokenKeyword || (prev.Type != TokenString && prev.Literal == keywordLet) {
		l.emit(TokenTypeName, text, pos)
		return
	}

	switch {
	case isIntegerLiteral(text):
		l.emit(TokenInteger, text, pos)
	case isFloatLiteral(text):
		l.emit(TokenFloat, text, pos)
	case isBoolLiteral(text):
		l.emit(TokenBool, text, pos)
	case isQuoted(text):
		l.emit(TokenString, unescapeString(text[1:len(text)-1]), pos)
	default:
		l.emit(TokenIdent, text, pos)
	}
}

func (l *lexer) errorAt(pos Position, msg string) {
	l.errs = append(l.errs, &RuntimeError{
		Kind:      ErrLex,
		Message:   msg,
		File:      l.name,
		Pos:       pos,
		CodeFrame: formatCodeFrame(l.input, pos),
	})
}

func isIntegerLiteral(s string) bool {
	if s == "" || s == "-" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= '0' && c <= '9' {
			continue
		}
		if i == 0 && c == '-' {
			continue
		}
		return false
	}
	return true
}

func isFloatLiteral(s string) bool {
	if s == "" || s == "-" || strings.HasSuffix(s, ".") {
		return false
	}
	if strings.Count(s, "-") > 1 || strings.Count(s, ".") > 1 {
		return false
	}
	digits := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			digits++
		case c == '.':
		case c == '-' && i == 0:
		default:
			return false
		}
	}
	return digits > 0
}

func isBoolLiteral(s string) bool {
	return s == "true" || s == "false"
}

func isQuoted(s string) bool {
	return len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"'
}

func unescapeString(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			b.WriteByte(s[i])
			continue
		}
		i++
		if i >= len(s) {
			break
		}
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 'e':
			b.WriteByte('\x1b')
		case 't':
			b.WriteByte('\t')
		}
	}
	return b.String()
}
