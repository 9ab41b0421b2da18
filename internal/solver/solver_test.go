package solver

import (
	"context"
	"strings"
	"testing"

	"chancycle/internal/model"
)

func basePool(name string) model.PoolConfig {
	return model.PoolConfig{
		Name:                    name,
		DefaultType:             model.MediaOtherVideo,
		DominantBlockThresholdS: 1 << 30,
		DominantBlockPenaltyS:   0,
	}
}

func baseSolver(blockS int) model.SolverConfig {
	return model.SolverConfig{
		BlockS:                blockS,
		LongformConsumesBlock: true,
		TimeLimitSec:          5,
		Seed:                  1,
	}
}

// E1: two non-repeatable 10-minute items should pack into a single block.
func TestSolveTrivialSingleBlock(t *testing.T) {
	cfg := model.ChannelConfig{
		Solver: baseSolver(30 * 60),
		Pools:  map[string]model.PoolConfig{"p": basePool("p")},
		Items: []model.Item{
			{Path: "a.mp4", DurationS: 10 * 60, Pool: "p", MediaType: model.MediaOtherVideo},
			{Path: "b.mp4", DurationS: 10 * 60, Pool: "p", MediaType: model.MediaOtherVideo},
		},
	}

	result, err := Solve(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	if len(result.Blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(result.Blocks))
	}

	if len(result.Blocks[0].Items) != 2 {
		t.Fatalf("expected 2 items in the block, got %d", len(result.Blocks[0].Items))
	}
}

// E2: adding a long-form item forces a second, solo block.
func TestSolveLongFormSolo(t *testing.T) {
	cfg := model.ChannelConfig{
		Solver: baseSolver(30 * 60),
		Pools:  map[string]model.PoolConfig{"p": basePool("p")},
		Items: []model.Item{
			{Path: "a.mp4", DurationS: 10 * 60, Pool: "p", MediaType: model.MediaOtherVideo},
			{Path: "b.mp4", DurationS: 10 * 60, Pool: "p", MediaType: model.MediaOtherVideo},
			{Path: "c.mp4", DurationS: 45 * 60, Pool: "p", MediaType: model.MediaOtherVideo},
		},
	}

	result, err := Solve(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	if len(result.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(result.Blocks))
	}

	longBlocks := 0

	for _, b := range result.Blocks {
		if b.IsLong {
			longBlocks++

			if len(b.Items) != 1 {
				t.Fatalf("long block must be solo, got %d items", len(b.Items))
			}
		}
	}

	if longBlocks != 1 {
		t.Fatalf("expected exactly 1 long block, got %d", longBlocks)
	}
}

// E5: a sequential pool's episodes must land in nondecreasing block order.
func TestSolveSequentialOrdering(t *testing.T) {
	ep := func(season, episode int) *model.EpisodeID {
		return &model.EpisodeID{Season: season, Episode: episode}
	}

	pool := basePool("tv")
	pool.Sequential = true

	cfg := model.ChannelConfig{
		Solver: baseSolver(30 * 60),
		Pools:  map[string]model.PoolConfig{"tv": pool},
		Items: []model.Item{
			{Path: "s01e03.mp4", DurationS: 22 * 60, Pool: "tv", Episode: ep(1, 3)},
			{Path: "s01e01.mp4", DurationS: 22 * 60, Pool: "tv", Episode: ep(1, 1)},
			{Path: "s01e02.mp4", DurationS: 22 * 60, Pool: "tv", Episode: ep(1, 2)},
		},
	}

	result, err := Solve(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	if len(result.Blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(result.Blocks))
	}

	wantOrder := []string{"s01e01.mp4", "s01e02.mp4", "s01e03.mp4"}

	for i, b := range result.Blocks {
		if len(b.Items) != 1 || b.Items[0].Path != wantOrder[i] {
			t.Fatalf("block %d: expected solely %s, got %v", i, wantOrder[i], b.Items)
		}
	}
}

// E3: a repeatable item that doesn't fit twice in one block must not repeat.
func TestSolveRepeatFillerDoesNotFitNoRepeat(t *testing.T) {
	cfg := model.ChannelConfig{
		Solver: baseSolver(30 * 60),
		Pools:  map[string]model.PoolConfig{"p": basePool("p")},
		Items: []model.Item{
			{Path: "a.mp4", DurationS: 20 * 60, Pool: "p", Repeatable: true, RepeatCostS: 0, MaxExtraUses: 1},
		},
	}

	result, err := Solve(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	if len(result.Blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(result.Blocks))
	}

	if len(result.Blocks[0].Items) != 1 {
		t.Fatalf("expected a to appear once (two copies don't fit in 30min), got %d items", len(result.Blocks[0].Items))
	}

	if result.RepeatsUsed != 0 {
		t.Fatalf("expected 0 repeats used, got %d", result.RepeatsUsed)
	}

	if result.TotalWasteS != 10*60 {
		t.Fatalf("expected 10min waste, got %ds", result.TotalWasteS)
	}
}

// E4: the same repeatable item, given enough room, should repeat as filler.
func TestSolveRepeatFillerUsedWhenItFits(t *testing.T) {
	cfg := model.ChannelConfig{
		Solver: baseSolver(45 * 60),
		Pools:  map[string]model.PoolConfig{"p": basePool("p")},
		Items: []model.Item{
			{Path: "a.mp4", DurationS: 20 * 60, Pool: "p", Repeatable: true, RepeatCostS: 0, MaxExtraUses: 1},
		},
	}

	result, err := Solve(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	if len(result.Blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(result.Blocks))
	}

	if len(result.Blocks[0].Items) != 2 {
		t.Fatalf("expected a to repeat once (2 copies fit in 45min), got %d items", len(result.Blocks[0].Items))
	}

	for _, it := range result.Blocks[0].Items {
		if it.Path != "a.mp4" {
			t.Fatalf("expected both items to be a.mp4, got %q", it.Path)
		}
	}

	if result.RepeatsUsed != 1 {
		t.Fatalf("expected 1 repeat used, got %d", result.RepeatsUsed)
	}

	if result.TotalWasteS != 5*60 {
		t.Fatalf("expected 5min waste, got %ds", result.TotalWasteS)
	}
}

// E6 (cross-seed half): given a config whose optimum is symmetric across
// several equally-good block partitions, different seeds must be able to
// land on different partitions (their tie-break draws differ). Checked
// across several seeds rather than just one pair, since any single pair
// could coincidentally agree.
func TestSolveDifferentSeedsCanDiverge(t *testing.T) {
	base := model.ChannelConfig{
		Solver: baseSolver(20 * 60),
		Pools:  map[string]model.PoolConfig{"p": basePool("p")},
		Items: []model.Item{
			{Path: "a.mp4", DurationS: 10 * 60, Pool: "p"},
			{Path: "b.mp4", DurationS: 10 * 60, Pool: "p"},
			{Path: "c.mp4", DurationS: 10 * 60, Pool: "p"},
			{Path: "d.mp4", DurationS: 10 * 60, Pool: "p"},
		},
	}

	signatures := make(map[string]bool)

	for seed := uint32(1); seed <= 8; seed++ {
		cfg := base
		cfg.Solver.Seed = seed

		result, err := Solve(context.Background(), cfg)
		if err != nil {
			t.Fatalf("Solve(seed=%d): %v", seed, err)
		}

		signatures[blockSignature(result)] = true
	}

	if len(signatures) < 2 {
		t.Fatalf("expected at least 2 distinct block partitions across 8 seeds, got %d: %v", len(signatures), signatures)
	}
}

func blockSignature(result model.SolveResult) string {
	var sig strings.Builder

	for _, b := range result.Blocks {
		paths := make([]string, 0, len(b.Items))
		for _, it := range b.Items {
			paths = append(paths, it.Path)
		}

		sig.WriteString(strings.Join(paths, ","))
		sig.WriteString("|")
	}

	return sig.String()
}

// I1: block-count minimality on a case with a known hand-proved lower bound.
func TestSolveBlockCountMinimal(t *testing.T) {
	cfg := model.ChannelConfig{
		Solver: baseSolver(30 * 60),
		Pools:  map[string]model.PoolConfig{"p": basePool("p")},
		Items: []model.Item{
			{Path: "a.mp4", DurationS: 15 * 60, Pool: "p"},
			{Path: "b.mp4", DurationS: 15 * 60, Pool: "p"},
			{Path: "c.mp4", DurationS: 15 * 60, Pool: "p"},
			{Path: "d.mp4", DurationS: 15 * 60, Pool: "p"},
		},
	}

	result, err := Solve(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	// 4 * 15min = 60min of content at 30min capacity per block: 2 is a
	// hand-provable lower bound, and also achievable.
	if len(result.Blocks) != 2 {
		t.Fatalf("expected minimal block count 2, got %d", len(result.Blocks))
	}
}

// I2: capacity never exceeds block_s + allow_short_overflow_s.
func TestSolveRespectsCapacity(t *testing.T) {
	cfg := model.ChannelConfig{
		Solver: baseSolver(20 * 60),
		Pools:  map[string]model.PoolConfig{"p": basePool("p")},
		Items: []model.Item{
			{Path: "a.mp4", DurationS: 12 * 60, Pool: "p"},
			{Path: "b.mp4", DurationS: 11 * 60, Pool: "p"},
			{Path: "c.mp4", DurationS: 9 * 60, Pool: "p"},
			{Path: "d.mp4", DurationS: 7 * 60, Pool: "p"},
		},
	}

	result, err := Solve(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	ceiling := cfg.Solver.Ceiling()

	for bi, b := range result.Blocks {
		if b.IsLong {
			continue
		}

		if b.ContentDurationS > ceiling {
			t.Fatalf("block %d exceeds ceiling: %d > %d", bi, b.ContentDurationS, ceiling)
		}
	}
}

// I9: identical config + identical seed must produce an identical result.
func TestSolveDeterministic(t *testing.T) {
	cfg := model.ChannelConfig{
		Solver: baseSolver(30 * 60),
		Pools:  map[string]model.PoolConfig{"p": basePool("p")},
		Items: []model.Item{
			{Path: "a.mp4", DurationS: 12 * 60, Pool: "p", Repeatable: true, RepeatCostS: 5, MaxExtraUses: 2},
			{Path: "b.mp4", DurationS: 11 * 60, Pool: "p"},
			{Path: "c.mp4", DurationS: 9 * 60, Pool: "p"},
			{Path: "d.mp4", DurationS: 7 * 60, Pool: "p"},
			{Path: "e.mp4", DurationS: 6 * 60, Pool: "p"},
		},
	}

	r1, err := Solve(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	r2, err := Solve(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	if len(r1.Blocks) != len(r2.Blocks) {
		t.Fatalf("block count diverged: %d vs %d", len(r1.Blocks), len(r2.Blocks))
	}

	for i := range r1.Blocks {
		if len(r1.Blocks[i].Items) != len(r2.Blocks[i].Items) {
			t.Fatalf("block %d item count diverged", i)
		}

		for j := range r1.Blocks[i].Items {
			if r1.Blocks[i].Items[j].Path != r2.Blocks[i].Items[j].Path {
				t.Fatalf("block %d item %d diverged: %s vs %s", i, j, r1.Blocks[i].Items[j].Path, r2.Blocks[i].Items[j].Path)
			}
		}
	}
}

func TestSolveNoContentError(t *testing.T) {
	cfg := model.ChannelConfig{
		Solver: baseSolver(30 * 60),
		Pools:  map[string]model.PoolConfig{},
	}

	_, err := Solve(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected NoContentError, got nil")
	}

	if _, ok := err.(*model.NoContentError); !ok {
		t.Fatalf("expected *model.NoContentError, got %T", err)
	}
}
