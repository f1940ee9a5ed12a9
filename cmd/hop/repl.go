package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/mgomes/hopscript/hop"
)

var (
	blue  = lipgloss.Color("#3B82F6")
	green = lipgloss.Color("#10B981")
	red   = lipgloss.Color("#EF4444")
	grey  = lipgloss.Color("#6B7280")
	amber = lipgloss.Color("#F59E0B")

	promptStyle = lipgloss.NewStyle().Foreground(blue).Bold(true)
	valueStyle  = lipgloss.NewStyle().Foreground(green)
	errorStyle  = lipgloss.NewStyle().Foreground(red)
	dimStyle    = lipgloss.NewStyle().Foreground(grey)
	keyStyle    = lipgloss.NewStyle().Foreground(amber)
	panelStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(blue).
			Padding(0, 1)
)

// transcriptLine is one submitted line and what it produced.
type transcriptLine struct {
	input  string
	output string
	isErr  bool
}

type replKeys struct {
	submit   key.Binding
	complete key.Binding
	prev     key.Binding
	next     key.Binding
	help     key.Binding
	vars     key.Binding
	clear    key.Binding
	quit     key.Binding
}

func newREPLKeys() replKeys {
	bind := func(help, desc string, keys ...string) key.Binding {
		return key.NewBinding(key.WithKeys(keys...), key.WithHelp(help, desc))
	}
	return replKeys{
		submit:   bind("enter", "run line", "enter"),
		complete: bind("tab", "complete", "tab"),
		prev:     bind("↑", "older line", "up"),
		next:     bind("↓", "newer line", "down"),
		help:     bind("ctrl+k", "help", "ctrl+k"),
		vars:     bind("ctrl+v", "vars", "ctrl+v"),
		clear:    bind("ctrl+l", "clear", "ctrl+l"),
		quit:     bind("ctrl+c", "quit", "ctrl+c", "ctrl+d"),
	}
}

// footer renders the toggles shown under the prompt.
func (k replKeys) footer() string {
	parts := make([]string, 0, 4)
	for _, b := range []key.Binding{k.help, k.vars, k.clear, k.quit} {
		h := b.Help()
		parts = append(parts, keyStyle.Render(h.Key)+dimStyle.Render(" "+h.Desc))
	}
	return strings.Join(parts, "  ")
}

type replModel struct {
	prompt     textinput.Model
	keys       replKeys
	session    *replSession
	transcript []transcriptLine
	recall     []string
	recallIdx  int
	width      int
	height     int
	ready      bool
	showHelp   bool
	showVars   bool
	quitting   bool
	exitErr    error
}

func newREPLModel(session *replSession) replModel {
	ti := textinput.New()
	ti.Placeholder = "type a statement..."
	ti.Prompt = promptMain
	ti.PromptStyle = promptStyle
	ti.CharLimit = 500
	ti.Width = 60
	ti.Focus()

	return replModel{
		prompt:    ti,
		keys:      newREPLKeys(),
		session:   session,
		recallIdx: -1,
	}
}

func (m replModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m replModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.prompt.Width = msg.Width - 10
		m.ready = true
		return m, nil
	case tea.KeyMsg:
		if next, cmd, handled := m.handleKey(msg); handled {
			return next, cmd
		}
	}

	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

// handleKey reports false for keys that belong to the text input.
func (m replModel) handleKey(msg tea.KeyMsg) (replModel, tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.quit):
		m.quitting = true
		return m, tea.Quit, true
	case key.Matches(msg, m.keys.submit):
		cmd := m.submit()
		return m, cmd, true
	case key.Matches(msg, m.keys.clear):
		m.transcript = nil
	case key.Matches(msg, m.keys.vars):
		m.showVars = !m.showVars
	case key.Matches(msg, m.keys.help):
		m.showHelp = !m.showHelp
	case key.Matches(msg, m.keys.prev):
		m.recallStep(-1)
	case key.Matches(msg, m.keys.next):
		m.recallStep(1)
	case key.Matches(msg, m.keys.complete):
		m.complete()
	default:
		return m, nil, false
	}
	return m, nil, true
}

func (m *replModel) submit() tea.Cmd {
	line := strings.TrimSpace(m.prompt.Value())
	if line == "" {
		return nil
	}
	m.prompt.SetValue("")
	m.recallIdx = -1

	if strings.HasPrefix(line, ":") {
		return m.command(line)
	}

	m.recall = append(m.recall, line)
	res := m.session.eval(line)
	if res.exited {
		m.exitErr = res.err
		m.quitting = true
		return tea.Quit
	}
	m.record(line, res.output, res.err != nil)
	return nil
}

func (m *replModel) command(line string) tea.Cmd {
	name, ok := lookupCommand(line)
	if !ok {
		m.record(line, "Unknown command: "+name, true)
		return nil
	}
	switch name {
	case cmdQuit:
		m.quitting = true
		return tea.Quit
	case cmdHelp:
		m.showHelp = !m.showHelp
	case cmdVars:
		m.showVars = !m.showVars
	case cmdClear:
		m.transcript = nil
	case cmdReset:
		m.session.reset()
		m.record(line, resetMessage, false)
	}
	return nil
}

func (m *replModel) record(input, output string, isErr bool) {
	m.transcript = append(m.transcript, transcriptLine{input: input, output: output, isErr: isErr})
}

// recallStep walks the submitted lines. Stepping past the newest one
// leaves an empty prompt.
func (m *replModel) recallStep(delta int) {
	if len(m.recall) == 0 || (m.recallIdx == -1 && delta > 0) {
		return
	}
	idx := m.recallIdx + delta
	if m.recallIdx == -1 {
		idx = len(m.recall) - 1
	}
	switch {
	case idx < 0:
		idx = 0
	case idx >= len(m.recall):
		m.recallIdx = -1
		m.prompt.SetValue("")
		return
	}
	m.recallIdx = idx
	m.prompt.SetValue(m.recall[idx])
	m.prompt.CursorEnd()
}

// complete finishes the last word of the prompt when exactly one candidate
// matches and lists the candidates otherwise.
func (m *replModel) complete() {
	value := m.prompt.Value()
	words := strings.Fields(value)
	if len(words) == 0 || strings.HasSuffix(value, " ") {
		return
	}
	last := words[len(words)-1]

	switch matches := m.session.completions(last); len(matches) {
	case 0:
	case 1:
		m.prompt.SetValue(strings.TrimSuffix(value, last) + matches[0])
		m.prompt.CursorEnd()
	default:
		m.record("", "Completions: "+strings.Join(matches, ", "), false)
	}
}

func (m replModel) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.quitting {
		return dimStyle.Render("Goodbye!\n")
	}

	var b strings.Builder
	b.WriteString(promptStyle.Padding(0, 1).Render("hop REPL") + " " + dimStyle.Render("v"+version) + "\n")
	b.WriteString(dimStyle.Render(strings.Repeat("─", min(m.width-2, 60))) + "\n\n")

	vars := m.session.variables()
	rows := m.height - 8
	if m.showHelp {
		rows -= len(replCommands) + 6
	}
	if m.showVars {
		rows -= len(vars) + 3
	}
	shown := m.transcript
	if rows < 0 {
		rows = 0
	}
	if len(shown) > rows {
		shown = shown[len(shown)-rows:]
	}
	for _, line := range shown {
		if line.input != "" {
			b.WriteString(dimStyle.Render(promptMain) + line.input + "\n")
		}
		if line.output == "" {
			continue
		}
		style := valueStyle
		if line.isErr {
			style = errorStyle
		}
		for _, out := range strings.Split(line.output, "\n") {
			b.WriteString("  " + style.Render(out) + "\n")
		}
	}
	b.WriteString("\n")

	if m.showVars {
		b.WriteString(renderVarsPanel(vars) + "\n")
	}
	if m.showHelp {
		b.WriteString(m.renderHelpPanel() + "\n")
	}

	b.WriteString(m.prompt.View() + "\n\n")
	b.WriteString(m.keys.footer())
	return b.String()
}

// renderVarsPanel lists variables in declaration order with the type and
// name columns aligned.
func renderVarsPanel(vars []hop.Variable) string {
	if len(vars) == 0 {
		return panelStyle.Render(dimStyle.Render("No variables defined"))
	}
	typeWidth, nameWidth := 0, 0
	for _, v := range vars {
		typeWidth = max(typeWidth, len(v.Type.String()))
		nameWidth = max(nameWidth, len(v.Name))
	}

	lines := []string{promptStyle.Render("Variables")}
	for _, v := range vars {
		lines = append(lines, fmt.Sprintf("%s %s = %s",
			dimStyle.Render(fmt.Sprintf("%-*s", typeWidth, v.Type)),
			keyStyle.Render(fmt.Sprintf("%-*s", nameWidth, v.Name)),
			v.Value.Inspect()))
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func (m replModel) renderHelpPanel() string {
	lines := []string{promptStyle.Render("Help")}
	for _, b := range []key.Binding{m.keys.prev, m.keys.complete, m.keys.submit} {
		h := b.Help()
		lines = append(lines, keyStyle.Render(fmt.Sprintf("%-8s", h.Key))+" "+dimStyle.Render(h.Desc))
	}
	for _, c := range replCommands {
		lines = append(lines, keyStyle.Render(fmt.Sprintf("%-8s", c.name))+" "+dimStyle.Render(c.desc))
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func replCommand(args []string) error {
	fs := flag.NewFlagSet("repl", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	plain := fs.Bool("plain", false, "use the line-mode REPL")
	var includePaths pathList
	fs.Var(&includePaths, "include-path", "add an include search directory (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	conf, err := loadSettings(cwd)
	if err != nil {
		return err
	}
	conf.IncludePaths = append(conf.IncludePaths, includePaths...)

	lineMode := *plain || !stdinIsTerminal()
	// trace output would tear the alternate screen
	var logOut io.Writer
	if lineMode {
		logOut = os.Stderr
	}
	cfg, err := conf.engineConfig(logOut)
	if err != nil {
		return err
	}
	session, err := newREPLSession(cfg)
	if err != nil {
		return err
	}
	if lineMode {
		return runLineREPL(session)
	}
	return runREPL(session)
}

func stdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func runREPL(session *replSession) error {
	final, err := tea.NewProgram(newREPLModel(session), tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}
	if rm, ok := final.(replModel); ok {
		return rm.exitErr
	}
	return nil
}
