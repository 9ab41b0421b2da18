// ABOUTME: Phase 1 — find the minimal block count via iterative deepening + backtracking search
// ABOUTME: Stands in for the CP-SAT minimize(sum y[b]) model; see SPEC_FULL.md's CP engine substitution

package solver

import (
	"context"
	"time"

	"chancycle/internal/model"
)

// nodeCheckInterval bounds how often the backtracking search polls the
// phase deadline, trading a little overshoot for not paying a channel
// receive on every node.
const nodeCheckInterval = 4096

type phase1Search struct {
	prob *problem
	b    int

	blockOfShort   []int
	blockOfLong    []int
	blockHasLong   []bool
	blockShortUsed []int

	order []ref
	nodes int
	ctx   context.Context
}

func newPhase1Search(ctx context.Context, prob *problem, b int) *phase1Search {
	return &phase1Search{
		prob:           prob,
		b:              b,
		blockOfShort:   fillInt(len(prob.shortIt), -1),
		blockOfLong:    fillInt(len(prob.longIt), -1),
		blockHasLong:   make([]bool, b),
		blockShortUsed: make([]int, b),
		order:          prob.order(),
		ctx:            ctx,
	}
}

func fillInt(n, v int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = v
	}

	return out
}

func (s *phase1Search) run() bool {
	return s.assign(0)
}

func (s *phase1Search) blockOf(r ref) int {
	if r.kind == kindShort {
		return s.blockOfShort[r.idx]
	}

	return s.blockOfLong[r.idx]
}

func (s *phase1Search) lowerBound(r ref) int {
	var pred ref

	if r.kind == kindShort {
		pred = s.prob.predShort[r.idx]
	} else {
		pred = s.prob.predLong[r.idx]
	}

	if !pred.valid() {
		return 0
	}

	return s.blockOf(pred)
}

func (s *phase1Search) deadlineExceeded() bool {
	s.nodes++
	if s.nodes%nodeCheckInterval != 0 {
		return false
	}

	select {
	case <-s.ctx.Done():
		return true
	default:
		return false
	}
}

func (s *phase1Search) assign(pos int) bool {
	if pos == len(s.order) {
		return true
	}

	if s.deadlineExceeded() {
		return false
	}

	r := s.order[pos]
	lb := s.lowerBound(r)

	if r.kind == kindLong {
		return s.assignLong(pos, r.idx, lb)
	}

	return s.assignShort(pos, r.idx, lb)
}

func (s *phase1Search) assignLong(pos, idx, lb int) bool {
	for b := lb; b < s.b; b++ {
		if s.blockHasLong[b] || s.blockShortUsed[b] > 0 {
			continue
		}

		s.blockHasLong[b] = true
		s.blockOfLong[idx] = b

		if s.assign(pos + 1) {
			return true
		}

		s.blockHasLong[b] = false
		s.blockOfLong[idx] = -1
	}

	return false
}

func (s *phase1Search) assignShort(pos, idx, lb int) bool {
	dur := s.prob.shortIt[idx].DurationS

	for b := lb; b < s.b; b++ {
		if s.blockHasLong[b] {
			continue
		}

		if s.blockShortUsed[b]+dur > s.prob.ceiling {
			continue
		}

		s.blockShortUsed[b] += dur
		s.blockOfShort[idx] = b

		if s.assign(pos + 1) {
			return true
		}

		s.blockShortUsed[b] -= dur
		s.blockOfShort[idx] = -1
	}

	return false
}

// solvePhase1 finds the smallest feasible block count in
// [lowerBoundBlocks, ubTotal], returning the base assignment that proves
// it for use as phase 2's warm start.
func solvePhase1(ctx context.Context, prob *problem, timeLimitSec int) (int, []int, []int, error) {
	phaseCtx, cancel := context.WithTimeout(ctx, time.Duration(timeLimitSec)*time.Second)
	defer cancel()

	for b := prob.lowerBoundBlocks(); b <= prob.ubTotal; b++ {
		search := newPhase1Search(phaseCtx, prob, b)
		if search.run() {
			return b, search.blockOfShort, search.blockOfLong, nil
		}

		if phaseCtx.Err() != nil {
			return 0, nil, nil, &model.InfeasibleError{Phase: model.PhaseMinimize}
		}
	}

	return 0, nil, nil, &model.InfeasibleError{Phase: model.PhaseMinimize}
}
