package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/plbridge/host"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateSelectFunc modelState = iota
	stateInputArgs
	stateShowResult
)

type shellModel struct {
	ctx      context.Context
	s        *session
	err      error
	procs    []*host.ProcInfo
	loaded   bool
	result   []string
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
}

type loadedMsg struct {
	err   error
	procs []*host.ProcInfo
}

type callResultMsg struct {
	err    error
	result []string
}

func newShellModel(ctx context.Context, s *session) *shellModel {
	return &shellModel{ctx: ctx, s: s, state: stateSelectFunc}
}

func (m *shellModel) Init() tea.Cmd {
	return m.loadProcs
}

func (m *shellModel) loadProcs() tea.Msg {
	procs, err := m.s.catalog.Procs(m.ctx)
	return loadedMsg{err: err, procs: procs}
}

func (m *shellModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			if m.state != stateInputArgs {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
				return m, nil
			}

		case "down", "j":
			if m.state == stateSelectFunc && m.selected < len(m.procs)-1 {
				m.selected++
				return m, nil
			}

		case "enter":
			switch m.state {
			case stateSelectFunc:
				if len(m.procs) == 0 {
					return m, nil
				}
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callFunction
				}
				m.state = stateInputArgs
				return m, nil

			case stateInputArgs:
				return m, m.callFunction

			case stateShowResult:
				m.reset()
				return m, nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
				return m, nil
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectFunc
				m.inputs = nil
			case stateShowResult:
				m.reset()
			}
			return m, nil
		}

	case loadedMsg:
		m.loaded = true
		m.err = msg.err
		m.procs = msg.procs

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *shellModel) reset() {
	m.state = stateSelectFunc
	m.result = nil
	m.err = nil
	m.inputs = nil
}

func (m *shellModel) prepareInputs() {
	p := m.procs[m.selected]
	m.inputs = make([]textinput.Model, len(p.ArgTypes))
	for i, typ := range p.ArgTypes {
		ti := textinput.New()
		ti.Placeholder = typeName(m.s.codec, typ)
		ti.Prompt = fmt.Sprintf("$%d: ", i+1)
		if i < len(p.ArgNames) && p.ArgNames[i] != "" {
			ti.Prompt = p.ArgNames[i] + ": "
		}
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *shellModel) callFunction() tea.Msg {
	p := m.procs[m.selected]
	texts := make([]string, len(m.inputs))
	for i, input := range m.inputs {
		texts[i] = input.Value()
	}
	out, err := m.s.call(m.ctx, fmt.Sprint(uint32(p.Oid)), texts)
	if err != nil {
		state, msg := m.s.rt.Describe(err)
		return callResultMsg{err: fmt.Errorf("%s: %s", state, msg)}
	}
	return callResultMsg{result: out}
}

func (m *shellModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if !m.loaded {
		return "Loading catalog..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("plbridge"))
	b.WriteString(" ")
	b.WriteString(m.s.cfg.Catalog.Driver)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectFunc:
		if len(m.procs) == 0 {
			b.WriteString("No functions defined.\n\n")
			b.WriteString(helpStyle.Render("q quit"))
			break
		}
		b.WriteString("Select a function to call:\n\n")
		for i, p := range m.procs {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + signature(m.s.codec, p)))
			} else {
				b.WriteString("  " + m.formatProc(p))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • q quit"))

	case stateInputArgs:
		p := m.procs[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(p.Name)))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(typeName(m.s.codec, p.ArgTypes[i])))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back • " + nullLiteral + " for null"))

	case stateShowResult:
		p := m.procs[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(p.Name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(strings.Join(m.result, "\n")))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func (m *shellModel) formatProc(p *host.ProcInfo) string {
	args := make([]string, len(p.ArgTypes))
	for i, t := range p.ArgTypes {
		args[i] = typeStyle.Render(typeName(m.s.codec, t))
	}
	return funcStyle.Render(p.Name) + "(" + strings.Join(args, ", ") + ") -> " +
		typeStyle.Render(typeName(m.s.codec, p.ReturnType))
}

func runShell(ctx context.Context, s *session) error {
	p := tea.NewProgram(newShellModel(ctx, s), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
