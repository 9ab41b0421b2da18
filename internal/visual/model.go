// ABOUTME: Bubble Tea model for the read-only progress/result view
// ABOUTME: Channel-fed progress state for the generate pipeline's stages, read-only (no editing affordances)

// Package visual renders a live progress view over the generate pipeline
// (load, solve, assemble, verify) and a final table with one row per
// solved block. It never mutates the config or the cycle it shows.
package visual

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"chancycle/internal/model"
)

type stage int

const (
	stageLoading stage = iota
	stageSolving
	stageAssembling
	stageVerifying
	stageDone
	stageError
)

var stageOrder = []stage{stageLoading, stageSolving, stageAssembling, stageVerifying, stageDone}

func (s stage) fraction() float64 {
	for i, st := range stageOrder {
		if st == s {
			return float64(i) / float64(len(stageOrder)-1)
		}
	}

	return 0
}

type stageMsg struct {
	stage stage
	label string
}

type resultMsg struct {
	result   model.SolveResult
	cycle    model.Cycle
	findings []model.Finding
}

type errMsg struct{ err error }

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("120"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type appModel struct {
	cancel  context.CancelFunc
	updates chan tea.Msg

	spin spinner.Model
	prog progress.Model
	tbl  table.Model

	stage    stage
	label    string
	result   model.SolveResult
	cycle    model.Cycle
	findings []model.Finding
	err      error

	hasTable bool
	quitting bool
}

func newModel(cancel context.CancelFunc, updates chan tea.Msg) appModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))

	p := progress.New(progress.WithDefaultGradient())

	return appModel{
		cancel:  cancel,
		updates: updates,
		spin:    s,
		prog:    p,
		stage:   stageLoading,
		label:   "loading config",
	}
}

func waitForUpdate(updates <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-updates
		if !ok {
			return nil
		}

		return msg
	}
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, waitForUpdate(m.updates))
}

func resultTable(result model.SolveResult) table.Model {
	cols := []table.Column{
		{Title: "#", Width: 4},
		{Title: "items", Width: 6},
		{Title: "base", Width: 6},
		{Title: "repeats", Width: 8},
		{Title: "duration (s)", Width: 13},
		{Title: "waste (s)", Width: 10},
	}

	rows := make([]table.Row, 0, len(result.Blocks))

	for i, b := range result.Blocks {
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%d", len(b.Items)),
			fmt.Sprintf("%d", b.BaseItemsCount),
			fmt.Sprintf("%d", b.RepeatItemsCount),
			fmt.Sprintf("%d", b.ContentDurationS),
			fmt.Sprintf("%d", b.WasteS),
		})
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithFocused(false),
		table.WithHeight(min(len(rows)+1, 15)),
	)

	return t
}
