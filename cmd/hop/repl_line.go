package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
)

const (
	historyFile = ".hop_history"
	promptMain  = "hop> "
)

// runLineREPL is the plain line editor front end, used when stdin is not a
// terminal or -plain is given.
func runLineREPL(session *replSession) error {
	histPath, err := historyPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "history disabled: %v\n", err)
	}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(func(line string) []string {
		idx := strings.LastIndexAny(line, " \t")
		head, word := line[:idx+1], line[idx+1:]
		if word == "" {
			return nil
		}
		matches := session.completions(word)
		for i, m := range matches {
			matches[i] = head + m
		}
		return matches
	})

	if histPath != "" {
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			if f, err := os.Create(histPath); err == nil {
				_, _ = ln.WriteHistory(f)
				_ = f.Close()
			}
		}()
	}

	for {
		line, err := ln.Prompt(promptMain)
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if errors.Is(err, io.EOF) {
			fmt.Println()
			return nil
		}
		if err != nil {
			return err
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		ln.AppendHistory(input)

		if strings.HasPrefix(input, ":") {
			if done := handleLineCommand(session, os.Stdout, input); done {
				return nil
			}
			continue
		}

		res := session.eval(input)
		if res.output != "" {
			fmt.Println(strings.TrimRight(res.output, "\n"))
		}
		if res.exited {
			return res.err
		}
	}
}

// handleLineCommand runs a : command and reports whether the REPL should
// stop.
func handleLineCommand(session *replSession, w io.Writer, input string) bool {
	name, ok := lookupCommand(input)
	if !ok {
		fmt.Fprintf(w, "Unknown command: %s\n", name)
		return false
	}
	switch name {
	case cmdQuit:
		return true
	case cmdReset:
		session.reset()
		fmt.Fprintln(w, resetMessage)
	case cmdClear:
		fmt.Fprint(w, "\x1b[H\x1b[2J")
	case cmdVars:
		vars := session.variables()
		if len(vars) == 0 {
			fmt.Fprintln(w, "No variables defined")
		}
		for _, v := range vars {
			fmt.Fprintf(w, "%s %s = %s\n", v.Type, v.Name, v.Value.Inspect())
		}
	case cmdHelp:
		for _, c := range replCommands {
			fmt.Fprintf(w, "%-7s %-3s %s\n", c.name, c.alias, c.desc)
		}
	}
	return false
}

// historyPath returns the history file in the user's home directory, or an
// empty path when the home directory is unknown.
func historyPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, historyFile), nil
}
