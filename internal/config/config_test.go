package config

import (
	"os"
	"path/filepath"
	"testing"

	"chancycle/internal/model"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "channel.toml")

	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	return path
}

const validConfig = `
[solver]
block_minutes = 30
seed = 42

[bumpers]
slots_per_break = 1

[bumpers.pools.ads]
items = [
  { path = "ads/i1.mp4", duration_s = 10, media_type = "other_video" },
  { path = "ads/i2.mp4", duration_s = 10, media_type = "other_video" },
]

[pools.cartoons]
default_type = "episode"

[[items]]
path = "cartoons/ep01.mkv"
duration_s = 600
pool = "cartoons"
`

func TestLoadValidConfig(t *testing.T) {
	path := writeTempConfig(t, validConfig)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Solver.Seed != 42 {
		t.Fatalf("expected seed 42, got %d", cfg.Solver.Seed)
	}

	if cfg.Solver.BlockS != 1800 {
		t.Fatalf("expected block_s 1800, got %d", cfg.Solver.BlockS)
	}

	if len(cfg.Items) != 1 || cfg.Items[0].Path != "cartoons/ep01.mkv" {
		t.Fatalf("unexpected items: %+v", cfg.Items)
	}

	if cfg.Items[0].MediaType != model.MediaEpisode {
		t.Fatalf("expected item to inherit pool default_type, got %s", cfg.Items[0].MediaType)
	}
}

func TestLoadAutoSeed(t *testing.T) {
	path := writeTempConfig(t, `
[solver]
block_minutes = 30

[bumpers]
slots_per_break = 1

[bumpers.pools.ads]
items = [{ path = "ads/i1.mp4", duration_s = 10 }]

[pools.cartoons]
default_type = "episode"

[[items]]
path = "cartoons/ep01.mkv"
duration_s = 600
pool = "cartoons"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Solver.Seed == 0 {
		t.Fatal("expected seed 0 to be replaced with a materialized nonzero seed")
	}
}

func TestLoadRejectsUnknownMediaType(t *testing.T) {
	path := writeTempConfig(t, `
[solver]
block_minutes = 30
seed = 1

[bumpers]
slots_per_break = 1

[bumpers.pools.ads]
items = [{ path = "ads/i1.mp4", duration_s = 10 }]

[pools.cartoons]
default_type = "not_a_real_type"

[[items]]
path = "cartoons/ep01.mkv"
duration_s = 600
pool = "cartoons"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected a ConfigError for an unknown default_type")
	}

	if _, ok := err.(*model.ConfigError); !ok {
		t.Fatalf("expected *model.ConfigError, got %T", err)
	}
}

func TestLoadRejectsSequentialItemMissingSxxExx(t *testing.T) {
	path := writeTempConfig(t, `
[solver]
block_minutes = 30
seed = 1

[bumpers]
slots_per_break = 1

[bumpers.pools.ads]
items = [{ path = "ads/i1.mp4", duration_s = 10 }]

[pools.tv]
default_type = "episode"
sequential = true

[[items]]
path = "tv/no_episode_marker.mkv"
duration_s = 600
pool = "tv"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected a ConfigError for a sequential item missing SxxExx")
	}
}

func TestLoadRejectsDuplicatePaths(t *testing.T) {
	path := writeTempConfig(t, `
[solver]
block_minutes = 30
seed = 1

[bumpers]
slots_per_break = 1

[bumpers.pools.ads]
items = [{ path = "cartoons/ep01.mkv", duration_s = 10 }]

[pools.cartoons]
default_type = "episode"

[[items]]
path = "cartoons/ep01.mkv"
duration_s = 600
pool = "cartoons"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected a ConfigError for a path duplicated across bumpers and items")
	}
}

func TestLoadPreservesBumperPoolDeclarationOrder(t *testing.T) {
	path := writeTempConfig(t, `
[solver]
block_minutes = 30
seed = 1

[bumpers]
slots_per_break = 1

[bumpers.pools.zebra]
items = [{ path = "zebra/i1.mp4", duration_s = 10 }]

[bumpers.pools.apple]
items = [{ path = "apple/i1.mp4", duration_s = 10 }]

[bumpers.pools.mango]
items = [{ path = "mango/i1.mp4", duration_s = 10 }]

[pools.cartoons]
default_type = "episode"

[[items]]
path = "cartoons/ep01.mkv"
duration_s = 600
pool = "cartoons"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := []string{"zebra", "apple", "mango"}

	if len(cfg.Bumpers.Pools) != len(want) {
		t.Fatalf("expected %d bumper pools, got %d", len(want), len(cfg.Bumpers.Pools))
	}

	for i, name := range want {
		if cfg.Bumpers.Pools[i].Name != name {
			t.Fatalf("bumper pool %d: expected declaration order %v, got %q at position %d", i, want, cfg.Bumpers.Pools[i].Name, i)
		}
	}
}

func TestLoadRejectsZeroSlotsPerBreak(t *testing.T) {
	path := writeTempConfig(t, `
[solver]
block_minutes = 30
seed = 1

[bumpers]
slots_per_break = 0

[bumpers.pools.ads]
items = [{ path = "ads/i1.mp4", duration_s = 10 }]

[pools.cartoons]
default_type = "episode"

[[items]]
path = "cartoons/ep01.mkv"
duration_s = 600
pool = "cartoons"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected a ConfigError for slots_per_break = 0")
	}
}
