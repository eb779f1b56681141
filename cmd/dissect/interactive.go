package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type modelState int

const (
	stateInput modelState = iota
	stateShowResult
)

type interactiveModel struct {
	err    error
	app    *app
	result string
	input  textinput.Model
	count  int
	state  modelState
}

func newInteractiveModel(a *app) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "00 11 22 33 44 55 66 77 88 99 aa bb 08 00 45 ..."
	ti.Prompt = "packet: "
	ti.Width = 72
	ti.CharLimit = 0
	ti.Focus()
	return &interactiveModel{app: a, input: ti, state: stateInput}
}

type dissectedMsg struct {
	err    error
	result string
}

func (m *interactiveModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "esc":
			if m.state == stateInput {
				return m, tea.Quit
			}
			m.reset()
			return m, nil

		case "enter":
			switch m.state {
			case stateInput:
				return m, m.dissect(m.input.Value(), m.count)
			case stateShowResult:
				m.reset()
				return m, nil
			}
		}

	case dissectedMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
		if msg.err == nil {
			m.count++
		}
		return m, nil
	}

	if m.state == stateInput {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *interactiveModel) reset() {
	m.state = stateInput
	m.result = ""
	m.err = nil
	m.input.SetValue("")
	m.input.Focus()
}

func (m *interactiveModel) dissect(text string, index int) tea.Cmd {
	return func() tea.Msg {
		data, err := parseHex(text)
		if err != nil {
			return dissectedMsg{err: err}
		}
		f, err := m.app.engine.Dissect(context.Background(), index, m.app.link, data)
		if err != nil {
			return dissectedMsg{err: err}
		}
		return dissectedMsg{result: renderFrame(m.app.tokens, f)}
	}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Packet Dissector"))
	b.WriteString(" ")
	b.WriteString(helpStyle.Render(m.app.tokens.String(m.app.link)))
	b.WriteString("\n\n")

	switch m.state {
	case stateInput:
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter dissect • esc quit"))

	case stateShowResult:
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(m.result)
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter next packet • esc back • ctrl+c quit"))
	}

	return b.String()
}

func runInteractive(a *app) error {
	p := tea.NewProgram(newInteractiveModel(a), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
