// ABOUTME: Public entry point for the two-phase block scheduler (C4)
// ABOUTME: Solve(ctx, cfg) runs phase 1 (minimal block count) then phase 2 (quality optimization)

// Package solver implements the block scheduler: it packs content items
// into the fewest possible blocks, then optimizes waste, repeat cost, and
// pool diversity under that fixed block count. No external constraint
// solver is available in this stack, so both phases are native
// branch-and-bound / simulated-annealing searches; see SPEC_FULL.md for
// why that substitution preserves the same determinism contract.
package solver

import (
	"context"
	"sort"

	"chancycle/internal/model"
)

// Solve runs the full two-phase schedule for cfg. The returned
// SolveResult's Blocks are ordered by ascending block index, and within a
// non-long block by base items (ascending short-index) then repeats
// (ascending short-index).
func Solve(ctx context.Context, cfg model.ChannelConfig) (model.SolveResult, error) {
	prob := buildProblem(cfg)

	if prob.ubTotal == 0 {
		return model.SolveResult{}, &model.NoContentError{}
	}

	minBlocks, blockOfShort, blockOfLong, err := solvePhase1(ctx, prob, cfg.Solver.TimeLimitSec)
	if err != nil {
		return model.SolveResult{}, err
	}

	return solvePhase2(ctx, prob, minBlocks, blockOfShort, blockOfLong, cfg.Solver.Seed, cfg.Solver.TimeLimitSec)
}

// extractResult turns a phase-2 restart's winning state into the public
// SolveResult shape, ordering each block's items long-item-first, then
// base items, then repeats.
func extractResult(prob *problem, b int, blockOfLong []int, best phase2Result) model.SolveResult {
	longInBlock := make([]int, b)
	for i := range longInBlock {
		longInBlock[i] = -1
	}

	for l, blk := range blockOfLong {
		longInBlock[blk] = l
	}

	baseByBlock := make([][]int, b)
	repeatByBlock := make([][]int, b)

	for i, blk := range best.blockOfShort {
		baseByBlock[blk] = append(baseByBlock[blk], i)
	}

	for i := range best.repeatAt {
		for blk, on := range best.repeatAt[i] {
			if on {
				repeatByBlock[blk] = append(repeatByBlock[blk], i)
			}
		}
	}

	for blk := range baseByBlock {
		sort.Ints(baseByBlock[blk])
		sort.Ints(repeatByBlock[blk])
	}

	blocks := make([]model.Block, 0, b)
	totalWaste := 0
	repeatsUsed := 0

	for blk := 0; blk < b; blk++ {
		var items []model.Item

		isLong := longInBlock[blk] >= 0
		if isLong {
			items = append(items, prob.longIt[longInBlock[blk]])
		}

		baseCount := len(baseByBlock[blk])
		for _, i := range baseByBlock[blk] {
			items = append(items, prob.shortIt[i])
		}

		repeatCount := len(repeatByBlock[blk])
		for _, i := range repeatByBlock[blk] {
			items = append(items, prob.shortIt[i])
		}

		if isLong {
			baseCount++
		}

		var contentDuration, waste int

		if isLong {
			contentDuration = prob.longIt[longInBlock[blk]].DurationS
		} else {
			for _, it := range items {
				contentDuration += it.DurationS
			}

			waste = prob.ceiling - contentDuration
			totalWaste += waste
		}

		repeatsUsed += repeatCount

		blocks = append(blocks, model.Block{
			Items:            items,
			IsLong:           isLong,
			BaseItemsCount:   baseCount,
			RepeatItemsCount: repeatCount,
			ContentDurationS: contentDuration,
			WasteS:           waste,
		})
	}

	return model.SolveResult{
		TargetBlockS: prob.cfg.Solver.BlockS,
		Blocks:       blocks,
		RepeatsUsed:  repeatsUsed,
		TotalWasteS:  totalWaste,
		Seed:         prob.cfg.Solver.Seed,
	}
}
