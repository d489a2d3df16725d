package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lsmsample/lsmsample/pkg/lsm"
	"github.com/lsmsample/lsmsample/pkg/validation"
)

func validEngineConfig() validation.EngineConfig {
	return validation.EngineConfig{
		MemtableCount:        2,
		MemtableCap:          1000,
		MemtableTombstoneCap: 1000,
		ScaleFactor:          2,
		Policy:               "LEVELING",
		TombstoneMaxFraction: 0.2,
		BloomFPR:             0.01,
		SampleMode:           "UNIFORM",
		DeleteMode:           "CANCEL",
		IndexKind:            "ISAM",
		IndexPageSize:        64,
		IndexMaxError:        32,
	}
}

const validYAML = `
memtable_count: 4
memtable_cap: 500
memtable_tombstone_cap: 500
scale_factor: 4
policy: TIERING
tombstone_max_fraction: 0.3
bloom_fpr: 0.02
bloom_k: 0
sample_mode: WIRS
delete_mode: TAG
index_kind: SPLINE
index_page_size: 32
index_max_error: 16
seed: 42
`

func TestLoadValidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	if err := os.WriteFile(path, []byte(validYAML), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	opts, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if opts.MemtableCount != 4 {
		t.Errorf("memtable count = %d, want 4", opts.MemtableCount)
	}
	if opts.Policy != lsm.Tiering {
		t.Errorf("policy = %v, want Tiering", opts.Policy)
	}
	if opts.SampleMode != lsm.SampleWIRS {
		t.Errorf("sample mode = %v, want SampleWIRS", opts.SampleMode)
	}
	if opts.DeleteMode != lsm.DeleteTag {
		t.Errorf("delete mode = %v, want DeleteTag", opts.DeleteMode)
	}
	if opts.IndexKind != lsm.IndexSpline {
		t.Errorf("index kind = %v, want IndexSpline", opts.IndexKind)
	}
	if opts.Seed != 42 {
		t.Errorf("seed = %d, want 42", opts.Seed)
	}
}

func TestLoadInvalidConfigRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	bad := "memtable_count: 1\nscale_factor: 2\npolicy: LEVELING\n" +
		"tombstone_max_fraction: 0.2\nbloom_fpr: 0.01\nsample_mode: UNIFORM\n" +
		"delete_mode: CANCEL\nindex_kind: ISAM\nindex_page_size: 64\nindex_max_error: 32\n"
	if err := os.WriteFile(path, []byte(bad), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for memtable_count=1 with non-leveling-sized rotation, got nil")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestToEngineOptionsDefaultsOnUnknownEnums(t *testing.T) {
	cfg := validEngineConfig()
	cfg.Policy = "BOGUS"
	cfg.SampleMode = "BOGUS"
	cfg.DeleteMode = "BOGUS"
	cfg.IndexKind = "BOGUS"

	opts := ToEngineOptions(cfg)
	if opts.Policy != lsm.Leveling {
		t.Errorf("policy = %v, want Leveling fallback", opts.Policy)
	}
	if opts.SampleMode != lsm.SampleUniform {
		t.Errorf("sample mode = %v, want SampleUniform fallback", opts.SampleMode)
	}
	if opts.DeleteMode != lsm.DeleteCancel {
		t.Errorf("delete mode = %v, want DeleteCancel fallback", opts.DeleteMode)
	}
	if opts.IndexKind != lsm.IndexISAM {
		t.Errorf("index kind = %v, want IndexISAM fallback", opts.IndexKind)
	}
}
