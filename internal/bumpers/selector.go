// ABOUTME: Deterministic, per-pool exhaust-shuffle bumper selection with round-robin/weighted mixing
// ABOUTME: A lazy infinite sequence of breaks; the assembler consumes one break per inter-block position

// Package bumpers implements the deterministic bumper selector (C5): an
// exhaust-before-repeat shuffler per pool, mixed across pools by
// round_robin or weighted slot selection.
package bumpers

import (
	"fmt"
	"math/rand/v2"

	"chancycle/internal/model"
	"chancycle/internal/rng"
)

// weightedMixSeedXOR is XORed into the base seed to derive the weighted
// mixing PRNG, keeping it independent from every pool's exhaust-shuffle
// stream and from the solver's own tie-break stream.
const weightedMixSeedXOR = 0xA5A5A5A5

// exhaustShuffleCycler returns every item of a pool once per shuffled bag
// cycle, guaranteeing no item repeats across a bag boundary when the pool
// has at least two items.
type exhaustShuffleCycler struct {
	items    []model.BumperItem
	rng      *rand.Rand
	bag      []model.BumperItem
	lastPath string
	hasLast  bool
}

func newExhaustShuffleCycler(items []model.BumperItem, seed uint64) (*exhaustShuffleCycler, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("bumper pool requires at least one item")
	}

	return &exhaustShuffleCycler{
		items: items,
		rng:   rng.New(seed),
	}, nil
}

func (c *exhaustShuffleCycler) refill() {
	bag := make([]model.BumperItem, len(c.items))
	copy(bag, c.items)

	c.rng.Shuffle(len(bag), func(i, j int) { bag[i], bag[j] = bag[j], bag[i] })

	if c.hasLast && len(bag) > 1 && bag[0].Path == c.lastPath {
		bag = append(bag[1:], bag[0])
	}

	c.bag = bag
}

func (c *exhaustShuffleCycler) next() model.BumperItem {
	if len(c.bag) == 0 {
		c.refill()
	}

	it := c.bag[0]
	c.bag = c.bag[1:]
	c.lastPath = it.Path
	c.hasLast = true

	return it
}

// Selector selects bumpers for each inter-block break.
type Selector struct {
	cfg         model.BumpersConfig
	poolNames   []string
	rrIndex     int
	weightedRng *rand.Rand
	cyclers     map[string]*exhaustShuffleCycler
}

// NewSelector constructs a Selector from a bumpers config and the (already
// materialized, non-zero) solver seed.
func NewSelector(cfg model.BumpersConfig, seed uint32) (*Selector, error) {
	if cfg.SlotsPerBreak <= 0 {
		return nil, fmt.Errorf("bumpers.slots_per_break must be >= 1")
	}

	if len(cfg.Pools) == 0 {
		return nil, fmt.Errorf("bumpers.pools must be non-empty")
	}

	s := &Selector{
		cfg:         cfg,
		poolNames:   make([]string, 0, len(cfg.Pools)),
		weightedRng: rng.New(uint64(seed ^ weightedMixSeedXOR)),
		cyclers:     make(map[string]*exhaustShuffleCycler, len(cfg.Pools)),
	}

	for _, pool := range cfg.Pools {
		s.poolNames = append(s.poolNames, pool.Name)

		cycler, err := newExhaustShuffleCycler(pool.Items, rng.Derive(seed, pool.Name))
		if err != nil {
			return nil, fmt.Errorf("pool %q: %w", pool.Name, err)
		}

		s.cyclers[pool.Name] = cycler
	}

	return s, nil
}

func (s *Selector) choosePoolName() string {
	switch s.cfg.MixingStrategy {
	case model.MixWeighted:
		total := 0.0

		for _, pool := range s.cfg.Pools {
			if pool.Weight > 0 {
				total += pool.Weight
			}
		}

		if total <= 0 {
			return s.roundRobinName()
		}

		draw := s.weightedRng.Float64() * total
		acc := 0.0

		for _, pool := range s.cfg.Pools {
			w := pool.Weight
			if w < 0 {
				w = 0
			}

			acc += w
			if draw < acc {
				return pool.Name
			}
		}

		// Floating-point rounding fallback: last positive-weight pool.
		for i := len(s.cfg.Pools) - 1; i >= 0; i-- {
			if s.cfg.Pools[i].Weight > 0 {
				return s.cfg.Pools[i].Name
			}
		}

		return s.poolNames[len(s.poolNames)-1]
	default:
		return s.roundRobinName()
	}
}

func (s *Selector) roundRobinName() string {
	name := s.poolNames[s.rrIndex%len(s.poolNames)]
	s.rrIndex++

	return name
}

// NextBumpers returns the bumper items for one break: exactly
// slots_per_break items, each chosen per the configured mixing strategy
// from a pool whose own cycler exhausts before repeating.
func (s *Selector) NextBumpers() []model.BumperItem {
	out := make([]model.BumperItem, 0, s.cfg.SlotsPerBreak)

	for range s.cfg.SlotsPerBreak {
		pool := s.choosePoolName()
		out = append(out, s.cyclers[pool].next())
	}

	return out
}
