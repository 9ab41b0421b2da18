// ABOUTME: Loads and validates a channel's TOML config into a model.ChannelConfig
// ABOUTME: Eager validation: a malformed config fails here, never partway through a solve

// Package config decodes the TOML channel config into the domain model,
// validating everything the scheduler assumes is already true.
package config

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"chancycle/internal/model"
	"chancycle/internal/rng"
	"chancycle/internal/seqid"
)

type wireSolver struct {
	BlockMinutes              float64 `toml:"block_minutes"`
	AllowShortOverflowMinutes float64 `toml:"allow_short_overflow_minutes"`
	LongformConsumesBlock     bool    `toml:"longform_consumes_block"`
	TimeLimitSec              int     `toml:"time_limit_sec"`
	Seed                      any     `toml:"seed"`
}

type wireBumperItem struct {
	Path      string `toml:"path"`
	DurationS int    `toml:"duration_s"`
	MediaType string `toml:"media_type"`
}

type wireBumperPool struct {
	Weight float64          `toml:"weight"`
	Items  []wireBumperItem `toml:"items"`
}

type wireBumpers struct {
	SlotsPerBreak  int                       `toml:"slots_per_break"`
	MixingStrategy string                    `toml:"mixing_strategy"`
	Pools          map[string]wireBumperPool `toml:"pools"`
}

type wirePool struct {
	Sequential              bool   `toml:"sequential"`
	DefaultType             string `toml:"default_type"`
	DefaultRepeatable       bool   `toml:"default_repeatable"`
	DefaultRepeatCostS      int    `toml:"default_repeat_cost_s"`
	DefaultMaxExtraUses     int    `toml:"default_max_extra_uses"`
	DominantBlockThresholdS int    `toml:"dominant_block_threshold_s"`
	DominantBlockPenaltyS   int    `toml:"dominant_block_penalty_s"`
}

type wireItem struct {
	Path         string `toml:"path"`
	DurationS    int    `toml:"duration_s"`
	Pool         string `toml:"pool"`
	MediaType    string `toml:"media_type"`
	Repeatable   *bool  `toml:"repeatable"`
	RepeatCostS  *int   `toml:"repeat_cost_s"`
	MaxExtraUses *int   `toml:"max_extra_uses"`
}

type wireConfig struct {
	Solver  wireSolver          `toml:"solver"`
	Bumpers wireBumpers         `toml:"bumpers"`
	Pools   map[string]wirePool `toml:"pools"`
	Items   []wireItem          `toml:"items"`
}

// Load decodes and validates a TOML config file at path.
func Load(path string) (model.ChannelConfig, error) {
	var wire wireConfig

	meta, err := toml.DecodeFile(path, &wire)
	if err != nil {
		return model.ChannelConfig{}, &model.ConfigError{Reason: fmt.Sprintf("parsing %s: %v", path, err)}
	}

	return build(wire, meta)
}

func build(wire wireConfig, meta toml.MetaData) (model.ChannelConfig, error) {
	solver, err := buildSolver(wire.Solver)
	if err != nil {
		return model.ChannelConfig{}, err
	}

	bumpersCfg, err := buildBumpers(wire.Bumpers, meta)
	if err != nil {
		return model.ChannelConfig{}, err
	}

	pools, items, err := buildPoolsAndItems(wire.Pools, wire.Items)
	if err != nil {
		return model.ChannelConfig{}, err
	}

	if err := checkDuplicatePaths(bumpersCfg, items); err != nil {
		return model.ChannelConfig{}, err
	}

	return model.ChannelConfig{
		Solver:  solver,
		Bumpers: bumpersCfg,
		Pools:   pools,
		Items:   items,
	}, nil
}

func buildSolver(w wireSolver) (model.SolverConfig, error) {
	if w.BlockMinutes <= 0 {
		return model.SolverConfig{}, &model.ConfigError{Reason: "solver.block_minutes must be > 0"}
	}

	seed, err := parseSeed(w.Seed)
	if err != nil {
		return model.SolverConfig{}, err
	}

	if seed == 0 {
		seed, err = materializeSeed()
		if err != nil {
			return model.SolverConfig{}, &model.ConfigError{Reason: fmt.Sprintf("materializing auto seed: %v", err)}
		}
	}

	timeLimit := w.TimeLimitSec
	if timeLimit <= 0 {
		timeLimit = 60
	}

	return model.SolverConfig{
		BlockS:                minutesToSeconds(w.BlockMinutes),
		AllowShortOverflowS:   minutesToSeconds(w.AllowShortOverflowMinutes),
		LongformConsumesBlock: w.LongformConsumesBlock,
		TimeLimitSec:          timeLimit,
		Seed:                  seed,
	}, nil
}

func minutesToSeconds(m float64) int {
	return int(m*60 + 0.5)
}

// parseSeed accepts an absent value, an integer, or a string (parsed as a
// number, or else stably hashed), mirroring the original config's
// permissive seed convention where 0 means "auto".
func parseSeed(v any) (uint32, error) {
	switch val := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return uint32(val), nil
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 0, nil
		}

		if n, err := strconv.ParseInt(s, 0, 64); err == nil {
			return uint32(n), nil
		}

		return rng.StableHash32(s) & 0x7FFFFFFF, nil
	default:
		return 0, &model.ConfigError{Reason: fmt.Sprintf("solver.seed must be an int or string, got %T", v)}
	}
}

func materializeSeed() (uint32, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, err
	}

	v := binary.BigEndian.Uint32(buf[:]) & 0x7FFFFFFF
	if v == 0 {
		v = 1
	}

	return v, nil
}

// bumperPoolDeclOrder returns bumper pool names in the order they were
// declared in the TOML source (spec.md §4.4: round_robin mixing must
// cycle pools in declaration order, not some incidental order). Go maps
// don't preserve insertion order, but toml.MetaData.Keys() reports every
// key in the order the decoder first encountered it, so that order is
// recovered from meta instead of sorting the wire map's keys.
func bumperPoolDeclOrder(meta toml.MetaData, pools map[string]wireBumperPool) []string {
	seen := make(map[string]bool, len(pools))
	order := make([]string, 0, len(pools))

	for _, key := range meta.Keys() {
		if len(key) < 3 || key[0] != "bumpers" || key[1] != "pools" {
			continue
		}

		name := key[2]
		if _, ok := pools[name]; !ok || seen[name] {
			continue
		}

		seen[name] = true
		order = append(order, name)
	}

	// Defensive: a pool present in the decoded map but not observed via
	// Keys() (shouldn't happen for a map populated by the same decode)
	// is still included, in a stable order, rather than silently dropped.
	if len(order) < len(pools) {
		rest := make([]string, 0, len(pools)-len(order))

		for name := range pools {
			if !seen[name] {
				rest = append(rest, name)
			}
		}

		sort.Strings(rest)
		order = append(order, rest...)
	}

	return order
}

func buildBumpers(w wireBumpers, meta toml.MetaData) (model.BumpersConfig, error) {
	if w.SlotsPerBreak <= 0 {
		return model.BumpersConfig{}, &model.ConfigError{Reason: "bumpers.slots_per_break must be >= 1"}
	}

	strategy := model.MixingStrategy(w.MixingStrategy)
	if strategy == "" {
		strategy = model.MixRoundRobin
	}

	if !strategy.Valid() {
		return model.BumpersConfig{}, &model.ConfigError{Reason: fmt.Sprintf("bumpers.mixing_strategy must be one of round_robin, weighted; got %q", w.MixingStrategy)}
	}

	if len(w.Pools) == 0 {
		return model.BumpersConfig{}, &model.ConfigError{Reason: "bumpers.pools must be a non-empty object"}
	}

	names := bumperPoolDeclOrder(meta, w.Pools)

	pools := make([]model.BumperPoolConfig, 0, len(names))

	for _, name := range names {
		p := w.Pools[name]

		if len(p.Items) == 0 {
			return model.BumpersConfig{}, &model.ConfigError{Reason: fmt.Sprintf("bumpers.pools.%s.items must be non-empty", name)}
		}

		weight := p.Weight
		if weight == 0 {
			weight = 1.0
		}

		items := make([]model.BumperItem, 0, len(p.Items))

		for i, it := range p.Items {
			if it.Path == "" {
				return model.BumpersConfig{}, &model.ConfigError{Reason: fmt.Sprintf("bumpers.pools.%s.items[%d].path is required", name, i)}
			}

			mt := model.MediaType(it.MediaType)
			if mt == "" {
				mt = model.MediaOtherVideo
			}

			if !mt.Valid() {
				return model.BumpersConfig{}, &model.ConfigError{Reason: fmt.Sprintf("bumpers.pools.%s.items[%d].media_type %q is unknown", name, i, it.MediaType)}
			}

			items = append(items, model.BumperItem{Path: it.Path, DurationS: it.DurationS, MediaType: mt})
		}

		pools = append(pools, model.BumperPoolConfig{Name: name, Weight: weight, Items: items})
	}

	return model.BumpersConfig{
		SlotsPerBreak:  w.SlotsPerBreak,
		MixingStrategy: strategy,
		Pools:          pools,
	}, nil
}

func buildPoolsAndItems(wirePools map[string]wirePool, wireItems []wireItem) (map[string]model.PoolConfig, []model.Item, error) {
	if len(wirePools) == 0 {
		return nil, nil, &model.ConfigError{Reason: "pools must be a non-empty object"}
	}

	pools := make(map[string]model.PoolConfig, len(wirePools))

	for name, p := range wirePools {
		defaultType := model.MediaType(p.DefaultType)
		if !defaultType.Valid() {
			return nil, nil, &model.ConfigError{Reason: fmt.Sprintf("pools.%s.default_type %q is unknown", name, p.DefaultType)}
		}

		maxExtra := p.DefaultMaxExtraUses
		if maxExtra == 0 {
			maxExtra = 999
		}

		pools[name] = model.PoolConfig{
			Name:                    name,
			Sequential:              p.Sequential,
			DefaultType:             defaultType,
			DefaultRepeatable:       p.DefaultRepeatable,
			DefaultRepeatCostS:      p.DefaultRepeatCostS,
			DefaultMaxExtraUses:     maxExtra,
			DominantBlockThresholdS: p.DominantBlockThresholdS,
			DominantBlockPenaltyS:   p.DominantBlockPenaltyS,
		}
	}

	items := make([]model.Item, 0, len(wireItems))

	for i, it := range wireItems {
		where := fmt.Sprintf("items[%d]", i)

		if it.Path == "" {
			return nil, nil, &model.ConfigError{Reason: where + ".path is required"}
		}

		pc, ok := pools[it.Pool]
		if !ok {
			return nil, nil, &model.ConfigError{Reason: fmt.Sprintf("%s.pool %q is not defined in [pools]", where, it.Pool)}
		}

		mt := model.MediaType(it.MediaType)
		if mt == "" {
			mt = pc.DefaultType
		}

		if !mt.Valid() {
			return nil, nil, &model.ConfigError{Reason: fmt.Sprintf("%s.media_type %q is unknown", where, it.MediaType)}
		}

		repeatable := pc.DefaultRepeatable
		if it.Repeatable != nil {
			repeatable = *it.Repeatable
		}

		repeatCost := pc.DefaultRepeatCostS
		if it.RepeatCostS != nil {
			repeatCost = *it.RepeatCostS
		}

		maxExtra := pc.DefaultMaxExtraUses
		if it.MaxExtraUses != nil {
			maxExtra = *it.MaxExtraUses
		}

		var episode *model.EpisodeID

		if pc.Sequential {
			eid, ok := seqid.Parse(it.Path)
			if !ok {
				return nil, nil, &model.ConfigError{Reason: fmt.Sprintf("%s is in sequential pool %q but has no SxxExx pattern: %s", where, it.Pool, it.Path)}
			}

			episode = &eid
		}

		items = append(items, model.Item{
			Path:         it.Path,
			DurationS:    it.DurationS,
			Pool:         it.Pool,
			MediaType:    mt,
			Repeatable:   repeatable,
			RepeatCostS:  repeatCost,
			MaxExtraUses: maxExtra,
			Episode:      episode,
		})
	}

	return pools, items, nil
}

func checkDuplicatePaths(bumpersCfg model.BumpersConfig, items []model.Item) error {
	seen := make(map[string]bool)

	for _, pool := range bumpersCfg.Pools {
		for _, it := range pool.Items {
			if seen[it.Path] {
				return &model.ConfigError{Reason: fmt.Sprintf("duplicate path across bumper pools: %s", it.Path)}
			}

			seen[it.Path] = true
		}
	}

	for _, it := range items {
		if seen[it.Path] {
			return &model.ConfigError{Reason: fmt.Sprintf("duplicate content item path (already used by a bumper or another item): %s", it.Path)}
		}

		seen[it.Path] = true
	}

	return nil
}
