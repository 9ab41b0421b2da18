package visual

import (
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

//nolint:ireturn // Bubble Tea requires returning the tea.Model interface
func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.prog.Width = msg.Width - 4
		if m.prog.Width > 80 {
			m.prog.Width = 80
		}

		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			m.cancel()

			return m, tea.Quit
		}

		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)

		return m, cmd

	case progress.FrameMsg:
		newModel, cmd := m.prog.Update(msg)
		if p, ok := newModel.(progress.Model); ok {
			m.prog = p
		}

		return m, cmd

	case stageMsg:
		m.stage = msg.stage
		m.label = msg.label

		return m, tea.Batch(m.prog.SetPercent(msg.stage.fraction()), waitForUpdate(m.updates))

	case resultMsg:
		m.stage = stageDone
		m.label = "done"
		m.result = msg.result
		m.cycle = msg.cycle
		m.findings = msg.findings
		m.tbl = resultTable(msg.result)
		m.hasTable = true

		return m, tea.Batch(m.prog.SetPercent(1), waitForUpdate(m.updates))

	case errMsg:
		m.stage = stageError
		m.err = msg.err

		return m, nil

	default:
		return m, nil
	}
}
