package hop

// TokenType identifies the lexical category of a token.
type TokenType string

const (
	TokenLabel    TokenType = "label"
	TokenCall     TokenType = "functionCall"
	TokenString   TokenType = "string"
	TokenInteger  TokenType = "integer"
	TokenFloat    TokenType = "float"
	TokenIdent    TokenType = "identifier"
	TokenBool     TokenType = "bool"
	TokenKeyword  TokenType = "keyword"
	TokenTypeName TokenType = "type"
	TokenEquals   TokenType = "equals"
	TokenEnd      TokenType = "end"
)

const (
	keywordLet = "let"
	keywordDel = "del"
)

var keywords = map[string]struct{}{
	keywordLet: {},
	keywordDel: {},
}

// Token is one lexical unit of a hop program. Tokens are immutable once
// produced by Lex.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
}

// Position identifies a 1-based line and column in a source file.
type Position struct {
	Line   int
	Column int
}

func isKeyword(word string) bool {
	_, ok := keywords[word]
	return ok
}

// Keywords returns the reserved statement keywords.
func Keywords() []string {
	return []string{keywordLet, keywordDel}
}
