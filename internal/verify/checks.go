package verify

import (
	"sort"

	"chancycle/internal/model"
	"chancycle/internal/seqid"
)

func isBumper(path string, bumperSet map[string]bool) bool {
	return bumperSet[path]
}

// checkSchema: non-empty, and at least one full break plus content.
func checkSchema(cfg model.ChannelConfig, entries []model.PlaylistEntry) []model.Finding {
	if len(entries) == 0 {
		return []model.Finding{errf("playlist is empty")}
	}

	slots := cfg.Bumpers.SlotsPerBreak
	if len(entries) < slots+1 {
		return []model.Finding{errf("playlist is too short to contain even one full break of %d bumper(s) plus content", slots)}
	}

	return nil
}

// checkBumperPathUniqueness: no path shared across bumper pools.
func checkBumperPathUniqueness(cfg model.ChannelConfig, _ []model.PlaylistEntry) []model.Finding {
	seen := make(map[string]bool)

	for _, pool := range cfg.Bumpers.Pools {
		for _, it := range pool.Items {
			if seen[it.Path] {
				return []model.Finding{errf("config bumpers contain duplicate path across pools: %s", it.Path)}
			}

			seen[it.Path] = true
		}
	}

	return nil
}

// checkLeadingBreak: the first slots_per_break entries are bumpers.
func checkLeadingBreak(cfg model.ChannelConfig, entries []model.PlaylistEntry) []model.Finding {
	slots := cfg.Bumpers.SlotsPerBreak
	if len(entries) < slots {
		return nil
	}

	bumperSet := bumperPathSet(cfg)

	for i := 0; i < slots; i++ {
		if !isBumper(entries[i].Path, bumperSet) {
			return []model.Finding{errf("playlist does not start with %d bumper(s); item %d is not a bumper: %s", slots, i, entries[i].Path)}
		}
	}

	return nil
}

type run struct {
	isBumper bool
	start    int
	length   int
}

func decomposeRuns(entries []model.PlaylistEntry, bumperSet map[string]bool) []run {
	if len(entries) == 0 {
		return nil
	}

	var runs []run

	curIsBumper := isBumper(entries[0].Path, bumperSet)
	curStart := 0
	curLen := 0

	for idx, e := range entries {
		b := isBumper(e.Path, bumperSet)
		if b == curIsBumper {
			curLen++
			continue
		}

		runs = append(runs, run{isBumper: curIsBumper, start: curStart, length: curLen})
		curIsBumper = b
		curStart = idx
		curLen = 1
	}

	runs = append(runs, run{isBumper: curIsBumper, start: curStart, length: curLen})

	return runs
}

// checkRunStructure: bumper/content alternation, exact break length, no
// empty content run, starts on bumpers, ends on content.
func checkRunStructure(cfg model.ChannelConfig, entries []model.PlaylistEntry) []model.Finding {
	bumperSet := bumperPathSet(cfg)
	runs := decomposeRuns(entries, bumperSet)

	if len(runs) == 0 {
		return nil
	}

	var findings []model.Finding

	if !runs[0].isBumper {
		findings = append(findings, errf("playlist does not start with bumpers"))
	}

	if runs[len(runs)-1].isBumper {
		findings = append(findings, errf("playlist ends with bumpers; the wrap seam would double the bumper run"))
	}

	slots := cfg.Bumpers.SlotsPerBreak
	for _, r := range runs {
		if r.isBumper && r.length != slots {
			findings = append(findings, errf("bumper run length must be exactly %d; found length %d starting at index %d", slots, r.length, r.start))
			break
		}

		if !r.isBumper && r.length <= 0 {
			findings = append(findings, errf("empty content run at index %d", r.start))
			break
		}
	}

	return findings
}

// checkKnownPaths: every non-bumper path belongs to the content catalog.
func checkKnownPaths(cfg model.ChannelConfig, entries []model.PlaylistEntry) []model.Finding {
	bumperSet := bumperPathSet(cfg)
	content := contentByPath(cfg)

	for idx, e := range entries {
		if bumperSet[e.Path] {
			continue
		}

		if _, ok := content[e.Path]; !ok {
			return []model.Finding{errf("playlist entry %d references an unknown path: %s", idx, e.Path)}
		}
	}

	return nil
}

// checkRepeatPolicy: every base item appears, non-repeatables exactly
// once, repeatables at most 1+max_extra_uses times.
func checkRepeatPolicy(cfg model.ChannelConfig, entries []model.PlaylistEntry) []model.Finding {
	bumperSet := bumperPathSet(cfg)
	content := contentByPath(cfg)

	counts := make(map[string]int)

	for _, e := range entries {
		if bumperSet[e.Path] {
			continue
		}

		counts[e.Path]++
	}

	var findings []model.Finding

	paths := make([]string, 0, len(content))
	for p := range content {
		paths = append(paths, p)
	}

	sort.Strings(paths)

	for _, p := range paths {
		it := content[p]
		c := counts[p]

		if c == 0 {
			findings = append(findings, errf("missing base content item (should appear at least once): %s", p))
			continue
		}

		if !it.Repeatable && c != 1 {
			findings = append(findings, errf("non-repeatable item appears %d times (must be exactly 1): %s", c, p))
			continue
		}

		if it.Repeatable && c > 1+it.MaxExtraUses {
			findings = append(findings, errf("repeatable item exceeds max_extra_uses; appears %d times, limit is %d: %s", c, 1+it.MaxExtraUses, p))
		}
	}

	return findings
}

// checkExhaustBeforeRepeat: within each bumper pool of size M>1, no path
// repeats within a window of M occurrences of that pool.
func checkExhaustBeforeRepeat(cfg model.ChannelConfig, entries []model.PlaylistEntry) []model.Finding {
	var findings []model.Finding

	for _, pool := range cfg.Bumpers.Pools {
		poolSet := make(map[string]bool, len(pool.Items))
		for _, it := range pool.Items {
			poolSet[it.Path] = true
		}

		if len(poolSet) <= 1 {
			continue
		}

		lastSeen := make(map[string]int)
		seenCount := 0

		for _, e := range entries {
			if !poolSet[e.Path] {
				continue
			}

			if last, ok := lastSeen[e.Path]; ok {
				gap := seenCount - last
				if gap < len(poolSet) {
					findings = append(findings, errf("bumper repeats before exhaustion in pool %q: %s repeated after %d use(s), need >= %d", pool.Name, e.Path, gap, len(poolSet)))
					break
				}
			}

			lastSeen[e.Path] = seenCount
			seenCount++
		}
	}

	return findings
}

// checkBlockDurations: each content block obeys the ceiling, except a
// solo long-form block, which may exceed it.
func checkBlockDurations(cfg model.ChannelConfig, entries []model.PlaylistEntry) []model.Finding {
	bumperSet := bumperPathSet(cfg)
	durations := durationByPath(cfg)
	capS := cfg.Solver.BlockS
	ceiling := cfg.Solver.Ceiling()

	runs := decomposeRuns(entries, bumperSet)

	var blocks [][]string

	for _, r := range runs {
		if r.isBumper {
			continue
		}

		block := make([]string, 0, r.length)
		for i := r.start; i < r.start+r.length; i++ {
			block = append(block, entries[i].Path)
		}

		blocks = append(blocks, block)
	}

	if len(blocks) == 0 {
		return []model.Finding{errf("no content blocks found")}
	}

	var findings []model.Finding

	for bi, block := range blocks {
		if len(block) == 0 {
			findings = append(findings, errf("empty content block at block index %d", bi))
			continue
		}

		if cfg.Solver.LongformConsumesBlock {
			var longPaths []string

			for _, p := range block {
				if durations[p] >= capS {
					longPaths = append(longPaths, p)
				}
			}

			if len(longPaths) > 0 {
				if len(block) != 1 {
					findings = append(findings, errf("block %d contains long-form content alongside other items: %v", bi, longPaths))
				}

				continue
			}
		}

		total := 0
		for _, p := range block {
			total += durations[p]
		}

		if total > ceiling {
			findings = append(findings, errf("block %d exceeds target capacity: %ds > %ds", bi, total, ceiling))
		}
	}

	return findings
}

// checkSequentialOrdering: each sequential pool's occurrences in playlist
// order must be nondecreasing in (season, episode).
func checkSequentialOrdering(cfg model.ChannelConfig, entries []model.PlaylistEntry) []model.Finding {
	bumperSet := bumperPathSet(cfg)
	content := contentByPath(cfg)

	poolNames := make([]string, 0, len(cfg.Pools))
	for name := range cfg.Pools {
		poolNames = append(poolNames, name)
	}

	sort.Strings(poolNames)

	var findings []model.Finding

	for _, poolName := range poolNames {
		pc := cfg.Pools[poolName]
		if !pc.Sequential {
			continue
		}

		type occ struct {
			season, episode int
			path            string
		}

		var eps []occ

		for _, e := range entries {
			if bumperSet[e.Path] {
				continue
			}

			base, ok := content[e.Path]
			if !ok || base.Pool != poolName {
				continue
			}

			eid, ok := seqid.Parse(e.Path)
			if !ok {
				findings = append(findings, errf("sequential pool item missing SxxExx: %s", e.Path))
				continue
			}

			eps = append(eps, occ{season: eid.Season, episode: eid.Episode, path: e.Path})
		}

		for i := 0; i+1 < len(eps); i++ {
			a, b := eps[i], eps[i+1]
			if b.season < a.season || (b.season == a.season && b.episode < a.episode) {
				findings = append(findings, errf("sequential pool %q is out of order: %s then %s", poolName, a.path, b.path))
				break
			}
		}
	}

	return findings
}
