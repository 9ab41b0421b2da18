// ABOUTME: Phase 2 — deterministic simulated annealing over waste/repeat/diversity/tie-break
// ABOUTME: Runs N = runtime.NumCPU() seeded restarts on the worker pool, lowest-objective restart wins

package solver

import (
	"context"
	"math"
	"math/rand/v2"
	"runtime"
	"time"

	"chancycle/internal/model"
	"chancycle/internal/rng"
	"chancycle/internal/wpool"
)

// phase2Result is one restart's final, feasible state plus its objective.
type phase2Result struct {
	restartIdx   int
	objective    int
	blockOfShort []int
	repeatAt     [][]bool
}

// phase2Search holds one restart's mutable search state. blockOfLong is a
// per-restart copy that the search never changes; the tie-break matrix is
// shared, read-only, across restarts.
type phase2Search struct {
	prob *problem
	b    int

	blockOfLong  []int
	blockHasLong []bool

	blockOfShort   []int
	repeatAt       [][]bool
	blockShortUsed []int

	tieBreak [][]int
	rnd      *rand.Rand
}

func newPhase2Search(prob *problem, b int, blockOfShort, blockOfLong []int, tieBreak [][]int, seed uint64) *phase2Search {
	s := &phase2Search{
		prob:           prob,
		b:              b,
		blockOfLong:    append([]int(nil), blockOfLong...),
		blockHasLong:   make([]bool, b),
		blockOfShort:   append([]int(nil), blockOfShort...),
		blockShortUsed: make([]int, b),
		tieBreak:       tieBreak,
		rnd:            rng.New(seed),
	}

	s.repeatAt = make([][]bool, len(prob.shortIt))
	for i := range s.repeatAt {
		s.repeatAt[i] = make([]bool, b)
	}

	for _, blk := range s.blockOfLong {
		s.blockHasLong[blk] = true
	}

	for i, blk := range s.blockOfShort {
		s.blockShortUsed[blk] += prob.shortIt[i].DurationS
	}

	return s
}

func (s *phase2Search) domain(i int) (lo, hi int) {
	lo, hi = 0, s.b-1

	if pred := s.prob.predShort[i]; pred.valid() {
		lo = s.blockOfRef(pred)
	}

	if succ := s.prob.succShort[i]; succ.valid() {
		hi = s.blockOfRef(succ)
	}

	return lo, hi
}

func (s *phase2Search) blockOfRef(r ref) int {
	if r.kind == kindShort {
		return s.blockOfShort[r.idx]
	}

	return s.blockOfLong[r.idx]
}

func (s *phase2Search) repeatCount(i int) int {
	n := 0

	for _, on := range s.repeatAt[i] {
		if on {
			n++
		}
	}

	return n
}

func (s *phase2Search) moveBase(i, newBlock int) {
	old := s.blockOfShort[i]
	dur := s.prob.shortIt[i].DurationS
	s.blockShortUsed[old] -= dur
	s.blockShortUsed[newBlock] += dur
	s.blockOfShort[i] = newBlock
}

func (s *phase2Search) toggleRepeat(i, b int) {
	dur := s.prob.shortIt[i].DurationS
	if s.repeatAt[i][b] {
		s.repeatAt[i][b] = false
		s.blockShortUsed[b] -= dur
	} else {
		s.repeatAt[i][b] = true
		s.blockShortUsed[b] += dur
	}
}

// step attempts one random move, applying it only if it keeps capacity
// feasible, and returns whether the state changed (the caller evaluates
// the objective delta and reverts on rejection).
func (s *phase2Search) step() (revert func(), changed bool) {
	numShort := len(s.prob.shortIt)
	if numShort == 0 {
		return nil, false
	}

	if s.rnd.Float64() < 0.25 {
		i, j := s.rnd.IntN(numShort), s.rnd.IntN(numShort)
		bi, bj := s.blockOfShort[i], s.blockOfShort[j]
		di, dj := s.prob.shortIt[i].DurationS, s.prob.shortIt[j].DurationS
		if bi == bj || s.prob.predShort[i].valid() || s.prob.succShort[i].valid() ||
			s.prob.predShort[j].valid() || s.prob.succShort[j].valid() ||
			s.blockShortUsed[bi]-di+dj > s.prob.ceiling || s.blockShortUsed[bj]-dj+di > s.prob.ceiling {
			return nil, false
		}

		s.moveBase(i, bj)
		s.moveBase(j, bi)

		return func() { s.moveBase(j, bj); s.moveBase(i, bi) }, true
	}

	if s.rnd.Float64() < 0.6 {
		i := s.rnd.IntN(numShort)

		lo, hi := s.domain(i)
		if hi <= lo {
			return nil, false
		}

		old := s.blockOfShort[i]

		candidates := make([]int, 0, hi-lo)
		for b := lo; b <= hi; b++ {
			if b == old || s.blockHasLong[b] {
				continue
			}

			if s.blockShortUsed[b]+s.prob.shortIt[i].DurationS > s.prob.ceiling {
				continue
			}

			candidates = append(candidates, b)
		}

		if len(candidates) == 0 {
			return nil, false
		}

		newBlock := candidates[s.rnd.IntN(len(candidates))]
		s.moveBase(i, newBlock)

		return func() { s.moveBase(i, old) }, true
	}

	return s.stepRepeat()
}

func (s *phase2Search) stepRepeat() (revert func(), changed bool) {
	eligible := make([]int, 0)

	for i, it := range s.prob.shortIt {
		if it.Repeatable && it.MaxExtraUses > 0 {
			eligible = append(eligible, i)
		}
	}

	if len(eligible) == 0 {
		return nil, false
	}

	i := eligible[s.rnd.IntN(len(eligible))]
	it := s.prob.shortIt[i]

	if s.rnd.Float64() < 0.5 && s.repeatCount(i) < it.MaxExtraUses {
		candidates := make([]int, 0, s.b)

		for b := 0; b < s.b; b++ {
			if s.blockHasLong[b] || s.repeatAt[i][b] {
				continue
			}

			if s.blockShortUsed[b]+it.DurationS > s.prob.ceiling {
				continue
			}

			candidates = append(candidates, b)
		}

		if len(candidates) == 0 {
			return nil, false
		}

		b := candidates[s.rnd.IntN(len(candidates))]
		s.toggleRepeat(i, b)

		return func() { s.toggleRepeat(i, b) }, true
	}

	on := make([]int, 0)

	for b := 0; b < s.b; b++ {
		if s.repeatAt[i][b] {
			on = append(on, b)
		}
	}

	if len(on) == 0 {
		return nil, false
	}

	b := on[s.rnd.IntN(len(on))]
	s.toggleRepeat(i, b)

	return func() { s.toggleRepeat(i, b) }, true
}

func (s *phase2Search) dominant() [][]bool {
	numPools := len(s.prob.poolNames)
	out := make([][]bool, s.b)

	poolTime := make([][]int, s.b)
	for b := range poolTime {
		poolTime[b] = make([]int, numPools)
	}

	for i, blk := range s.blockOfShort {
		poolTime[blk][s.prob.shortPoolIdx[i]] += s.prob.shortIt[i].DurationS
	}

	for i := range s.repeatAt {
		for b, on := range s.repeatAt[i] {
			if on {
				poolTime[b][s.prob.shortPoolIdx[i]] += s.prob.shortIt[i].DurationS
			}
		}
	}

	for l, blk := range s.blockOfLong {
		poolTime[blk][s.prob.longPoolIdx[l]] += s.prob.longIt[l].DurationS
	}

	for b := 0; b < s.b; b++ {
		out[b] = make([]bool, numPools)
		for p := 0; p < numPools; p++ {
			out[b][p] = poolTime[b][p] >= s.prob.poolThreshold[p]
		}
	}

	return out
}

func (s *phase2Search) objective() int {
	total := 0

	for b := 0; b < s.b; b++ {
		if !s.blockHasLong[b] {
			total += s.prob.ceiling - s.blockShortUsed[b]
		}
	}

	for i, it := range s.prob.shortIt {
		if it.Repeatable && it.RepeatCostS > 0 {
			total += it.RepeatCostS * s.repeatCount(i)
		}
	}

	dominant := s.dominant()

	for b := 0; b < s.b-1; b++ {
		for p, pen := range s.prob.poolPenalty {
			if pen <= 0 {
				continue
			}

			if dominant[b][p] && dominant[b+1][p] {
				total += pen
			}
		}
	}

	for i, blk := range s.blockOfShort {
		total += s.tieBreak[i][blk]
	}

	return total
}

func (s *phase2Search) anneal(ctx context.Context, iterations int) int {
	cur := s.objective()
	if iterations <= 0 {
		return cur
	}

	t0 := math.Max(1, float64(s.prob.ceiling)/4)

	for iter := 0; iter < iterations; iter++ {
		if iter%2048 == 0 {
			select {
			case <-ctx.Done():
				return cur
			default:
			}
		}

		revert, changed := s.step()
		if !changed {
			continue
		}

		next := s.objective()
		delta := next - cur

		temp := t0 * math.Pow(0.001/t0, float64(iter)/float64(iterations))

		if delta <= 0 || s.rnd.Float64() < math.Exp(-float64(delta)/temp) {
			cur = next
		} else {
			revert()
		}
	}

	return cur
}

func (s *phase2Search) result(idx, objective int) phase2Result {
	repeats := make([][]bool, len(s.repeatAt))
	for i := range s.repeatAt {
		repeats[i] = append([]bool(nil), s.repeatAt[i]...)
	}

	return phase2Result{
		restartIdx:   idx,
		objective:    objective,
		blockOfShort: append([]int(nil), s.blockOfShort...),
		repeatAt:     repeats,
	}
}

// buildTieBreak draws the phase-2 tie-break matrix once, from a PRNG
// seeded purely with solver.seed — stable across restarts per spec.
func buildTieBreak(prob *problem, b int, seed uint32) [][]int {
	r := rng.New(uint64(seed))

	out := make([][]int, len(prob.shortIt))
	for i := range out {
		out[i] = make([]int, b)
		for j := range out[i] {
			out[i][j] = r.IntN(4)
		}
	}

	return out
}

func iterationBudget(numShort, b int) int {
	n := 200 * (numShort + b)
	if n < 2000 {
		n = 2000
	}

	return n
}

// solvePhase2 runs N = runtime.NumCPU() deterministic restarts on the
// worker pool and returns the lowest-objective one, ties broken by the
// lowest restart index.
func solvePhase2(ctx context.Context, prob *problem, b int, blockOfShort, blockOfLong []int, seed uint32, timeLimitSec int) (model.SolveResult, error) {
	phaseCtx, cancel := context.WithTimeout(ctx, time.Duration(timeLimitSec)*time.Second)
	defer cancel()

	tieBreak := buildTieBreak(prob, b, seed)
	iterations := iterationBudget(len(prob.shortIt), b)

	n := runtime.NumCPU()
	if n < 1 {
		n = 1
	}

	results := make([]phase2Result, n)

	pool := wpool.New(n)
	for idx := 0; idx < n; idx++ {
		idx := idx

		pool.Submit(func() {
			search := newPhase2Search(prob, b, blockOfShort, blockOfLong, tieBreak, rng.RestartSeed(seed, idx))
			obj := search.anneal(phaseCtx, iterations)
			results[idx] = search.result(idx, obj)
		})
	}

	pool.Wait()
	pool.Close()

	best := results[0]
	for _, r := range results[1:] {
		if r.objective < best.objective || (r.objective == best.objective && r.restartIdx < best.restartIdx) {
			best = r
		}
	}

	return extractResult(prob, b, blockOfLong, best), nil
}
