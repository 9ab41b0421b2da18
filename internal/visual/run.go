package visual

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"chancycle/internal/assemble"
	"chancycle/internal/bumpers"
	"chancycle/internal/config"
	"chancycle/internal/model"
	"chancycle/internal/solver"
	"chancycle/internal/verify"
)

// Run loads the config at path and drives the generate pipeline behind a
// live progress view. It blocks until the program exits.
func Run(ctx context.Context, path string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates := make(chan tea.Msg, 8)

	go runPipeline(ctx, path, updates)

	m := newModel(cancel, updates)

	if _, err := tea.NewProgram(m).Run(); err != nil {
		return fmt.Errorf("visual runner: %w", err)
	}

	return nil
}

func runPipeline(ctx context.Context, path string, updates chan<- tea.Msg) {
	send := func(s stage, label string) {
		select {
		case updates <- stageMsg{stage: s, label: label}:
		case <-ctx.Done():
		}
	}

	send(stageLoading, "loading config")

	cfg, err := config.Load(path)
	if err != nil {
		updates <- errMsg{err: err}
		return
	}

	send(stageSolving, "solving (phase 1: minimize blocks, phase 2: optimize)")

	result, err := solver.Solve(ctx, cfg)
	if err != nil {
		updates <- errMsg{err: err}
		return
	}

	send(stageAssembling, "assembling cycle")

	selector, err := bumpers.NewSelector(cfg.Bumpers, cfg.Solver.Seed)
	if err != nil {
		updates <- errMsg{err: &model.ConfigError{Reason: err.Error()}}
		return
	}

	cycle := assemble.Cycle(result, selector)

	send(stageVerifying, "verifying")

	findings := verify.Run(cfg, cycle.Entries)

	updates <- resultMsg{result: result, cycle: cycle, findings: findings}
}
