package assemble

import (
	"testing"

	"chancycle/internal/bumpers"
	"chancycle/internal/model"
)

func newFixtureSelector(t *testing.T) *bumpers.Selector {
	t.Helper()

	cfg := model.BumpersConfig{
		SlotsPerBreak:  1,
		MixingStrategy: model.MixRoundRobin,
		Pools: []model.BumperPoolConfig{
			{
				Name:   "ads",
				Weight: 1,
				Items: []model.BumperItem{
					{Path: "i1.mp4", DurationS: 10, MediaType: model.MediaOtherVideo},
					{Path: "i2.mp4", DurationS: 10, MediaType: model.MediaOtherVideo},
				},
			},
		},
	}

	sel, err := bumpers.NewSelector(cfg, 1)
	if err != nil {
		t.Fatalf("NewSelector: %v", err)
	}

	return sel
}

// E1: one block [A,B], one bumper slot -> cycle = [bumper, A, B], 3 entries.
func TestCycleTrivial(t *testing.T) {
	result := model.SolveResult{
		Blocks: []model.Block{
			{
				Items: []model.Item{
					{Path: "a.mp4", MediaType: model.MediaOtherVideo},
					{Path: "b.mp4", MediaType: model.MediaOtherVideo},
				},
			},
		},
	}

	cycle := Cycle(result, newFixtureSelector(t))

	if len(cycle.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(cycle.Entries))
	}

	if cycle.Entries[1].Path != "a.mp4" || cycle.Entries[2].Path != "b.mp4" {
		t.Fatalf("unexpected content order: %+v", cycle.Entries)
	}
}

func TestCycleOmitsTrailingBreak(t *testing.T) {
	result := model.SolveResult{
		Blocks: []model.Block{
			{Items: []model.Item{{Path: "a.mp4"}}},
			{Items: []model.Item{{Path: "b.mp4"}}},
		},
	}

	cycle := Cycle(result, newFixtureSelector(t))

	// 2 blocks * (1 bumper + 1 item) = 4 entries; no break after the last block.
	if len(cycle.Entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(cycle.Entries))
	}

	last := cycle.Entries[len(cycle.Entries)-1]
	if last.Path != "b.mp4" {
		t.Fatalf("expected the cycle to end on content, got %s", last.Path)
	}
}

func TestCycleIncludeInGuideFirstOccurrenceOnly(t *testing.T) {
	result := model.SolveResult{
		Blocks: []model.Block{
			{Items: []model.Item{{Path: "a.mp4"}}},
			{Items: []model.Item{{Path: "a.mp4"}}},
		},
	}

	cycle := Cycle(result, newFixtureSelector(t))

	seenContentA := 0

	for _, e := range cycle.Entries {
		if e.Path != "a.mp4" {
			continue
		}

		seenContentA++

		if seenContentA == 1 && !e.IncludeInGuide {
			t.Fatal("expected the first occurrence of a.mp4 to be included in the guide")
		}

		if seenContentA == 2 && e.IncludeInGuide {
			t.Fatal("expected the second occurrence of a.mp4 to be excluded from the guide")
		}
	}

	if seenContentA != 2 {
		t.Fatalf("expected a.mp4 to appear twice, got %d", seenContentA)
	}
}
