package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/mgomes/hopscript/hop"
)

const topLevel = "top level"

type lintWarning struct {
	Label   string
	Pos     hop.Position
	Message string
}

func analyzeCommand(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	if err := fs.Parse(args); err != nil {
		return err
	}

	remaining := fs.Args()
	if len(remaining) == 0 {
		return errors.New("hop analyze: script path required")
	}

	scriptPath, err := filepath.Abs(remaining[0])
	if err != nil {
		return fmt.Errorf("resolve script path: %w", err)
	}
	input, err := os.ReadFile(scriptPath)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}

	tokens, err := hop.Lex(string(input), filepath.Base(scriptPath))
	if err != nil {
		return err
	}
	engine := hop.MustNewEngine(hop.Config{})

	warnings := analyzeTokens(tokens, engine.Natives())
	if len(warnings) == 0 {
		fmt.Println("No issues found")
		return nil
	}

	for _, warning := range warnings {
		fmt.Printf("%s:%d:%d: %s (%s)\n", scriptPath, warning.Pos.Line, warning.Pos.Column, warning.Message, warning.Label)
	}

	return fmt.Errorf("analysis found %d issue(s)", len(warnings))
}

// analyzeTokens reports likely mistakes visible without running the
// program. Calls and jumps are only checked when the file includes nothing,
// since an include can bring in labels and natives.
func analyzeTokens(tokens []hop.Token, natives []string) []lintWarning {
	warnings := make([]lintWarning, 0)
	statements := splitStatements(tokens)
	if len(statements) == 0 {
		return warnings
	}

	known := make(map[string]struct{}, len(natives))
	for _, name := range natives {
		known[name] = struct{}{}
	}
	labels := make(map[string]hop.Position)
	variables := make(map[string]struct{})
	hasInclude := false

	current := topLevel
	for _, stmt := range statements {
		head := stmt[0]
		switch {
		case head.Type == hop.TokenLabel:
			if first, ok := labels[head.Literal]; ok {
				warnings = append(warnings, lintWarning{
					Label:   current,
					Pos:     head.Pos,
					Message: fmt.Sprintf("duplicate label %s, calls resolve to %d:%d", head.Literal, first.Line, first.Column),
				})
			} else {
				labels[head.Literal] = head.Pos
			}
			current = head.Literal
		case head.Type == hop.TokenKeyword && head.Literal == "let" && len(stmt) > 2:
			variables[stmt[2].Literal] = struct{}{}
		case head.Type == hop.TokenCall && head.Literal == "include":
			hasInclude = true
		}
	}

	if _, ok := labels["main"]; !ok {
		warnings = append(warnings, lintWarning{
			Label:   topLevel,
			Pos:     statements[0][0].Pos,
			Message: "missing @main entry label",
		})
	}

	current = topLevel
	terminated := false
	for _, stmt := range statements {
		head := stmt[0]
		if head.Type == hop.TokenLabel {
			current = head.Literal
			terminated = false
			continue
		}
		if terminated {
			warnings = append(warnings, lintWarning{Label: current, Pos: head.Pos, Message: "unreachable statement"})
			continue
		}
		if head.Type != hop.TokenCall {
			continue
		}

		_, isNative := known[head.Literal]
		_, isLabel := labels[head.Literal]
		if !isNative && !isLabel && !hasInclude {
			warnings = append(warnings, lintWarning{
				Label:   current,
				Pos:     head.Pos,
				Message: fmt.Sprintf("call to undefined function %s", head.Literal),
			})
		}

		switch head.Literal {
		case "goto", "goto_if":
			if len(stmt) == 2 && stmt[1].Type == hop.TokenIdent && !hasInclude {
				target := stmt[1].Literal
				_, isLabel := labels[target]
				_, isVar := variables[target]
				if !isLabel && !isVar {
					warnings = append(warnings, lintWarning{
						Label:   current,
						Pos:     stmt[1].Pos,
						Message: fmt.Sprintf("jump to unknown label %s", target),
					})
				}
			}
		}
		switch head.Literal {
		case "goto", "exit", "return":
			terminated = true
		}
	}

	sort.SliceStable(warnings, func(i, j int) bool {
		if warnings[i].Pos.Line != warnings[j].Pos.Line {
			return warnings[i].Pos.Line < warnings[j].Pos.Line
		}
		return warnings[i].Pos.Column < warnings[j].Pos.Column
	})

	return warnings
}

func splitStatements(tokens []hop.Token) [][]hop.Token {
	var statements [][]hop.Token
	start := 0
	for i, tok := range tokens {
		if tok.Type != hop.TokenEnd {
			continue
		}
		if i > start {
			statements = append(statements, tokens[start:i])
		}
		start = i + 1
	}
	if start < len(tokens) {
		statements = append(statements, tokens[start:])
	}
	return statements
}
