// ABOUTME: Shared, read-mostly view of a ChannelConfig used by both scheduler phases
// ABOUTME: Builds the long/short partition, pool metadata, and sequential precedence chains once

package solver

import (
	"sort"

	"chancycle/internal/model"
	"chancycle/internal/packing"
)

type itemKind int

const (
	kindShort itemKind = iota
	kindLong
)

// ref points at either a short or a long item by index into the
// corresponding problem slice.
type ref struct {
	kind itemKind
	idx  int
}

var noRef = ref{kind: kindShort, idx: -1}

func (r ref) valid() bool { return r.idx >= 0 }

// sizedShort adapts a model.Item for internal/packing's generic FFD.
type sizedShort struct{ model.Item }

func (s sizedShort) Size() int { return s.DurationS }

// problem is the partitioned, precomputed view of a ChannelConfig that
// both scheduler phases read from. Nothing here is mutated after build.
type problem struct {
	cfg     model.ChannelConfig
	ceiling int
	shortIt []model.Item
	longIt  []model.Item
	ubShort int
	ubTotal int

	// predecessor/successor in the same sequential pool's (season,
	// episode, path)-sorted chain, keyed by item index within its kind.
	predShort []ref
	succShort []ref
	predLong  []ref
	succLong  []ref

	poolNames     []string
	poolThreshold []int
	poolPenalty   []int
	shortPoolIdx  []int
	longPoolIdx   []int
}

func buildProblem(cfg model.ChannelConfig) *problem {
	ceiling := cfg.Solver.Ceiling()

	p := &problem{cfg: cfg, ceiling: ceiling}

	for _, it := range cfg.Items {
		if cfg.Solver.LongformConsumesBlock && it.DurationS >= cfg.Solver.BlockS {
			p.longIt = append(p.longIt, it)
		} else {
			p.shortIt = append(p.shortIt, it)
		}
	}

	sized := make([]sizedShort, len(p.shortIt))
	for i, it := range p.shortIt {
		sized[i] = sizedShort{it}
	}

	p.ubShort = len(packing.FirstFitDecreasing(sized, ceiling))
	p.ubTotal = len(p.longIt) + p.ubShort

	p.predShort = fillRef(len(p.shortIt))
	p.succShort = fillRef(len(p.shortIt))
	p.predLong = fillRef(len(p.longIt))
	p.succLong = fillRef(len(p.longIt))

	p.poolNames = make([]string, 0, len(cfg.Pools))
	for name := range cfg.Pools {
		p.poolNames = append(p.poolNames, name)
	}

	sort.Strings(p.poolNames)

	p.poolThreshold = make([]int, len(p.poolNames))
	p.poolPenalty = make([]int, len(p.poolNames))

	poolIndex := make(map[string]int, len(p.poolNames))
	for i, name := range p.poolNames {
		poolIndex[name] = i
		p.poolThreshold[i] = cfg.Pools[name].DominantBlockThresholdS
		p.poolPenalty[i] = cfg.Pools[name].DominantBlockPenaltyS
	}

	shortIdxByPath := make(map[string]int, len(p.shortIt))
	for i, it := range p.shortIt {
		shortIdxByPath[it.Path] = i
	}

	longIdxByPath := make(map[string]int, len(p.longIt))
	for l, it := range p.longIt {
		longIdxByPath[it.Path] = l
	}

	p.shortPoolIdx = make([]int, len(p.shortIt))
	for i, it := range p.shortIt {
		p.shortPoolIdx[i] = poolIndex[it.Pool]
	}

	p.longPoolIdx = make([]int, len(p.longIt))
	for l, it := range p.longIt {
		p.longPoolIdx[l] = poolIndex[it.Pool]
	}

	refOf := func(path string) ref {
		if i, ok := shortIdxByPath[path]; ok {
			return ref{kind: kindShort, idx: i}
		}
		if l, ok := longIdxByPath[path]; ok {
			return ref{kind: kindLong, idx: l}
		}
		return noRef
	}

	setPred := func(r, predecessor ref) {
		if r.kind == kindShort {
			p.predShort[r.idx] = predecessor
		} else {
			p.predLong[r.idx] = predecessor
		}
	}

	setSucc := func(r, successor ref) {
		if r.kind == kindShort {
			p.succShort[r.idx] = successor
		} else {
			p.succLong[r.idx] = successor
		}
	}

	for _, poolName := range p.poolNames {
		pc := cfg.Pools[poolName]
		if !pc.Sequential {
			continue
		}

		var eps []model.Item

		for _, it := range cfg.Items {
			if it.Pool == poolName {
				eps = append(eps, it)
			}
		}

		sort.SliceStable(eps, func(a, b int) bool {
			ea, eb := episodeOf(eps[a]), episodeOf(eps[b])
			if ea.Season != eb.Season {
				return ea.Season < eb.Season
			}

			if ea.Episode != eb.Episode {
				return ea.Episode < eb.Episode
			}

			return eps[a].Path < eps[b].Path
		})

		for i := 0; i+1 < len(eps); i++ {
			a, b := refOf(eps[i].Path), refOf(eps[i+1].Path)
			if !a.valid() || !b.valid() {
				continue
			}

			setSucc(a, b)
			setPred(b, a)
		}
	}

	return p
}

func episodeOf(it model.Item) model.EpisodeID {
	if it.Episode == nil {
		return model.EpisodeID{}
	}

	return *it.Episode
}

func fillRef(n int) []ref {
	out := make([]ref, n)
	for i := range out {
		out[i] = noRef
	}

	return out
}

// lowerBoundBlocks is a cheap admissible lower bound for the minimal
// block count, ignoring sequential ordering (which can only increase the
// true minimum, never decrease it).
func (p *problem) lowerBoundBlocks() int {
	sum := 0
	for _, it := range p.shortIt {
		sum += it.DurationS
	}

	lb := len(p.longIt)
	if sum > 0 {
		lb += (sum + p.ceiling - 1) / p.ceiling
	}

	if lb < 1 && p.ubTotal > 0 {
		lb = 1
	}

	return lb
}

// order is the DFS variable ordering: items of each sequential pool
// appear in their (season, episode, path) order, other items in their
// original config order. This lets the search use a live, already-
// assigned predecessor as a sound per-variable lower bound.
func (p *problem) order() []ref {
	placed := make(map[string]bool, len(p.cfg.Items))

	out := make([]ref, 0, len(p.shortIt)+len(p.longIt))

	shortIdxByPath := make(map[string]int, len(p.shortIt))
	for i, it := range p.shortIt {
		shortIdxByPath[it.Path] = i
	}

	longIdxByPath := make(map[string]int, len(p.longIt))
	for l, it := range p.longIt {
		longIdxByPath[it.Path] = l
	}

	appendRef := func(path string) {
		if placed[path] {
			return
		}

		placed[path] = true

		if i, ok := shortIdxByPath[path]; ok {
			out = append(out, ref{kind: kindShort, idx: i})
			return
		}

		if l, ok := longIdxByPath[path]; ok {
			out = append(out, ref{kind: kindLong, idx: l})
		}
	}

	for _, poolName := range p.poolNames {
		if !p.cfg.Pools[poolName].Sequential {
			continue
		}

		var eps []model.Item

		for _, it := range p.cfg.Items {
			if it.Pool == poolName {
				eps = append(eps, it)
			}
		}

		sort.SliceStable(eps, func(a, b int) bool {
			ea, eb := episodeOf(eps[a]), episodeOf(eps[b])
			if ea.Season != eb.Season {
				return ea.Season < eb.Season
			}

			if ea.Episode != eb.Episode {
				return ea.Episode < eb.Episode
			}

			return eps[a].Path < eps[b].Path
		})

		for _, it := range eps {
			appendRef(it.Path)
		}
	}

	for _, it := range p.cfg.Items {
		appendRef(it.Path)
	}

	return out
}
