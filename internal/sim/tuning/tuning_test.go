package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTuning(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write tuning: %v", err)
	}
	return p
}

func TestDefaults_Valid(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	p := writeTuning(t, "seed: 7\nview_range: 14\nworldgen:\n  safe_radius: 10\nlog:\n  level: DEBUG\n")
	got, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Seed != 7 || got.ViewRange != 14 || got.WorldGen.SafeRadius != 10 || got.Log.Level != "DEBUG" {
		t.Fatalf("unexpected tuning: %+v", got)
	}
	if got.ChunkCacheMax != 50 || got.WorldGen.EnemyAttempts != 30 {
		t.Fatalf("defaults lost: %+v", got)
	}
}

func TestLoad_RejectsPinnedWindowLargerThanCache(t *testing.T) {
	p := writeTuning(t, "chunk_cache_max: 20\nload_radius: 2\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestGenParams_CarriesSeedAndWorldGen(t *testing.T) {
	tu := Defaults()
	tu.Seed = 7
	tu.WorldGen.DecorProb = 0.5
	p := tu.GenParams()
	if p.Seed != 7 || p.DecorProb != 0.5 || p.SafeRadius != tu.WorldGen.SafeRadius {
		t.Fatalf("unexpected params %+v", p)
	}
}
