// ABOUTME: Independent re-validation of an assembled cycle against its config
// ABOUTME: Never reads solver internals; reasons only from the config and the flat entry list

// Package verify implements the ground-truth invariant checks (C7): the
// nine independent checks run concurrently on a worker pool, each writing
// into its own result slot, and results are assembled back in a fixed
// order for a deterministic report regardless of completion order.
package verify

import (
	"fmt"

	"chancycle/internal/model"
	"chancycle/internal/wpool"
)

type checkFunc func(cfg model.ChannelConfig, entries []model.PlaylistEntry) []model.Finding

var checks = []checkFunc{
	checkSchema,
	checkBumperPathUniqueness,
	checkLeadingBreak,
	checkRunStructure,
	checkKnownPaths,
	checkRepeatPolicy,
	checkExhaustBeforeRepeat,
	checkBlockDurations,
	checkSequentialOrdering,
}

// Run executes every check concurrently and returns their findings in a
// fixed, check-index order.
func Run(cfg model.ChannelConfig, entries []model.PlaylistEntry) []model.Finding {
	results := make([][]model.Finding, len(checks))

	pool := wpool.New(len(checks))

	for i, check := range checks {
		i, check := i, check

		pool.Submit(func() {
			results[i] = check(cfg, entries)
		})
	}

	pool.Wait()
	pool.Close()

	var findings []model.Finding
	for _, r := range results {
		findings = append(findings, r...)
	}

	return findings
}

// HasErrors reports whether findings contains any ERROR-level entry.
func HasErrors(findings []model.Finding) bool {
	for _, f := range findings {
		if f.Level == model.LevelError {
			return true
		}
	}

	return false
}

func bumperPathSet(cfg model.ChannelConfig) map[string]bool {
	set := make(map[string]bool)

	for _, pool := range cfg.Bumpers.Pools {
		for _, it := range pool.Items {
			set[it.Path] = true
		}
	}

	return set
}

func contentByPath(cfg model.ChannelConfig) map[string]model.Item {
	m := make(map[string]model.Item, len(cfg.Items))
	for _, it := range cfg.Items {
		m[it.Path] = it
	}

	return m
}

func durationByPath(cfg model.ChannelConfig) map[string]int {
	m := make(map[string]int)

	for _, it := range cfg.Items {
		m[it.Path] = it.DurationS
	}

	for _, pool := range cfg.Bumpers.Pools {
		for _, it := range pool.Items {
			m[it.Path] = it.DurationS
		}
	}

	return m
}

func errf(format string, args ...any) model.Finding {
	return model.Finding{Level: model.LevelError, Message: fmt.Sprintf(format, args...)}
}

func warnf(format string, args ...any) model.Finding {
	return model.Finding{Level: model.LevelWarn, Message: fmt.Sprintf(format, args...)}
}
