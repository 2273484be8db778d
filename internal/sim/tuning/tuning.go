package tuning

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Carbonadoks/claudecoderpg/internal/sim/world/terrain/gen"
)

type Tuning struct {
	Seed int64 `yaml:"seed"`

	ChunkCacheMax int `yaml:"chunk_cache_max"`
	LoadRadius    int `yaml:"load_radius"`
	ViewRange     int `yaml:"view_range"`
	GenWorkers    int `yaml:"gen_workers"`

	WorldGen WorldGen `yaml:"worldgen"`
	Log      Log      `yaml:"log"`
}

type WorldGen struct {
	SafeRadius    int     `yaml:"safe_radius"`
	SpawnMin      int     `yaml:"spawn_min"`
	SpawnMax      int     `yaml:"spawn_max"`
	SpawnAttempts int     `yaml:"spawn_attempts"`
	EnemyAttempts int     `yaml:"enemy_attempts"`
	DecorAttempts int     `yaml:"decor_attempts"`
	DecorProb     float64 `yaml:"decor_prob"`
	BlobCount     int     `yaml:"blob_count"`
	BiomeScale    float64 `yaml:"biome_scale"`
	TerrainScale  float64 `yaml:"terrain_scale"`
}

type Log struct {
	Level          string `yaml:"level"`
	Format         string `yaml:"format"`
	File           string `yaml:"file"`
	FileMaxSizeMB  int    `yaml:"file_max_size_mb"`
	FileMaxBackups int    `yaml:"file_max_backups"`
	FileMaxAgeDays int    `yaml:"file_max_age_days"`
}

func Defaults() Tuning {
	return Tuning{
		Seed:          42,
		ChunkCacheMax: 50,
		LoadRadius:    2,
		ViewRange:     10,
		GenWorkers:    4,
		WorldGen: WorldGen{
			SafeRadius:    64,
			SpawnMin:      2,
			SpawnMax:      5,
			SpawnAttempts: 20,
			EnemyAttempts: 30,
			DecorAttempts: 3,
			DecorProb:     0.02,
			BlobCount:     5,
			BiomeScale:    0.1,
			TerrainScale:  0.1,
		},
		Log: Log{
			Level:          "INFO",
			Format:         "text",
			FileMaxSizeMB:  50,
			FileMaxBackups: 3,
			FileMaxAgeDays: 14,
		},
	}
}

// Load reads tuning.yaml over Defaults. Keys absent from the file keep their default.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	var errs []error
	if t.ChunkCacheMax <= 0 {
		errs = append(errs, fmt.Errorf("chunk_cache_max must be > 0"))
	}
	if t.LoadRadius < 0 {
		errs = append(errs, fmt.Errorf("load_radius must be >= 0"))
	}
	if side := 2*t.LoadRadius + 1; side*side > t.ChunkCacheMax {
		errs = append(errs, fmt.Errorf("load_radius %d pins %d chunks, more than chunk_cache_max %d", t.LoadRadius, side*side, t.ChunkCacheMax))
	}
	if t.ViewRange < 0 {
		errs = append(errs, fmt.Errorf("view_range must be >= 0"))
	}
	if t.GenWorkers <= 0 {
		errs = append(errs, fmt.Errorf("gen_workers must be > 0"))
	}
	g := t.WorldGen
	if g.SpawnMin < 0 || g.SpawnMax < g.SpawnMin {
		errs = append(errs, fmt.Errorf("worldgen spawn range [%d,%d] invalid", g.SpawnMin, g.SpawnMax))
	}
	if g.SpawnAttempts <= 0 || g.EnemyAttempts <= 0 {
		errs = append(errs, fmt.Errorf("worldgen attempts must be > 0"))
	}
	if g.DecorProb < 0 || g.DecorProb > 1 {
		errs = append(errs, fmt.Errorf("worldgen decor_prob must be within [0,1]"))
	}
	if g.BiomeScale <= 0 || g.TerrainScale <= 0 {
		errs = append(errs, fmt.Errorf("worldgen noise scales must be > 0"))
	}
	return errors.Join(errs...)
}

// GenParams converts the worldgen block into generator parameters.
func (t Tuning) GenParams() gen.Params {
	g := t.WorldGen
	return gen.Params{
		Seed:          t.Seed,
		SafeRadius:    g.SafeRadius,
		SpawnMin:      g.SpawnMin,
		SpawnMax:      g.SpawnMax,
		SpawnAttempts: g.SpawnAttempts,
		EnemyAttempts: g.EnemyAttempts,
		DecorAttempts: g.DecorAttempts,
		DecorProb:     g.DecorProb,
		BlobCount:     g.BlobCount,
		BiomeScale:    g.BiomeScale,
		TerrainScale:  g.TerrainScale,
	}
}
