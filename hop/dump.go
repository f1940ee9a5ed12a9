package hop

import (
	"fmt"
	"io"
)

// DumpTokens writes one line per token as
// "<index>: <type>, <literal> (<line>:<column>)".
func DumpTokens(w io.Writer, tokens []Token) error {
	for i, tok := range tokens {
		if _, err := fmt.Fprintf(w, "%d: %s, %s (%d:%d)\n", i, tok.Type, tok.Literal, tok.Pos.Line, tok.Pos.Column); err != nil {
			return err
		}
	}
	return nil
}
