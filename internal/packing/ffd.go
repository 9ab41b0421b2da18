// ABOUTME: First-Fit Decreasing bin packer used to bound the block scheduler's search space
// ABOUTME: Correctness-critical only insofar as it supplies a safe upper bound; tighter UB = fewer variables

// Package packing provides a greedy First-Fit Decreasing bin packer.
package packing

import "sort"

// Sizeable is anything the packer can measure by an integer size.
type Sizeable interface {
	Size() int
}

// Bin is a packed bin: the indices (into the input slice) it holds, and
// remaining capacity.
type Bin struct {
	Indices   []int
	Remaining int
}

// FirstFitDecreasing packs items (referenced by index into the caller's
// slice) into bins of the given capacity, largest first, and returns the
// bins; their count is an upper bound on the minimal number of bins.
func FirstFitDecreasing[T Sizeable](items []T, capacity int) []Bin {
	order := make([]int, len(items))
	for i := range order {
		order[i] = i
	}

	sort.SliceStable(order, func(a, b int) bool {
		return items[order[a]].Size() > items[order[b]].Size()
	})

	var bins []Bin

	for _, i := range order {
		d := items[i].Size()

		placed := false

		for b := range bins {
			if bins[b].Remaining >= d {
				bins[b].Indices = append(bins[b].Indices, i)
				bins[b].Remaining -= d
				placed = true

				break
			}
		}

		if !placed {
			bins = append(bins, Bin{
				Indices:   []int{i},
				Remaining: capacity - d,
			})
		}
	}

	return bins
}
