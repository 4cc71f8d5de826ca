package warp

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"skywarp/pkg/exposure"
	"skywarp/pkg/frame"
)

func TestConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	if err := cfg.Validate(nil); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	if got := cfg.Types(); len(got) != 1 || got[0] != Direct {
		t.Fatalf("default variants: got %v want [direct]", got)
	}
	if cfg.Kernel().Name != "lanczos3" || cfg.Kernel().Support != 3 {
		t.Fatalf("default kernel: got %+v", cfg.Kernel())
	}
	if cfg.BadMask()&frame.MaskSat == 0 || cfg.BadMask()&frame.MaskNoData == 0 {
		t.Fatalf("default bad mask should include SAT and NO_DATA, got %s", frame.PlaneNames(cfg.BadMask()))
	}
	if !cfg.DoWrite || !cfg.DoOverwrite || !cfg.BgSubtracted {
		t.Fatalf("write/overwrite/bgsubtracted should default on")
	}
	if cfg.TargetPsf() != nil {
		t.Fatalf("no target psf when psf-matching is off")
	}
}

func TestConfigVariantMatrix(t *testing.T) {
	cases := []struct {
		direct, matched bool
		want            []Type
	}{
		{true, false, []Type{Direct}},
		{false, true, []Type{PsfMatched}},
		{true, true, []Type{Direct, PsfMatched}},
	}
	for _, c := range cases {
		cfg := NewConfig()
		cfg.MakeDirect = c.direct
		cfg.MakePsfMatched = c.matched
		if err := cfg.Validate(nil); err != nil {
			t.Fatalf("variant %v/%v: %v", c.direct, c.matched, err)
		}
		got := cfg.Types()
		if len(got) != len(c.want) {
			t.Fatalf("variant %v/%v: got %v want %v", c.direct, c.matched, got, c.want)
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Fatalf("variant %v/%v: got %v want %v", c.direct, c.matched, got, c.want)
			}
		}
	}

	cfg := NewConfig()
	cfg.MakeDirect = false
	cfg.MakePsfMatched = false
	if err := cfg.Validate(nil); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("no variants should be ErrInvalidConfig, got %v", err)
	}
}

func TestConfigLegacyPsfMatchFlag(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	cfg := NewConfig()
	cfg.MakeDirect = true
	cfg.DoPsfMatch = true
	if err := cfg.Validate(log); err != nil {
		t.Fatalf("legacy flag should validate: %v", err)
	}

	if got := cfg.Types(); len(got) != 1 || got[0] != PsfMatched {
		t.Fatalf("legacy flag should force psf-matched only, got %v", got)
	}
	if !strings.Contains(buf.String(), "deprecated") {
		t.Fatalf("expected a deprecation warning, log was: %s", buf.String())
	}

	// A second Validate must not warn again.
	n := strings.Count(buf.String(), "deprecated")
	if err := cfg.Validate(log); err != nil {
		t.Fatalf("re-validate: %v", err)
	}
	if got := strings.Count(buf.String(), "deprecated"); got != n {
		t.Fatalf("deprecation warned twice: %d then %d", n, got)
	}
}

func TestConfigRejectsBadStrategies(t *testing.T) {
	cfg := NewConfig()
	cfg.WarpKernel = "quintic"
	if err := cfg.Validate(nil); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("unknown kernel: got %v", err)
	}

	cfg = NewConfig()
	cfg.BadMaskPlanes = []string{"BAD", "WIBBLE"}
	if err := cfg.Validate(nil); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("unknown mask plane: got %v", err)
	}

	cfg = NewConfig()
	cfg.MakePsfMatched = true
	cfg.ModelPsf.SizePix = 20
	if err := cfg.Validate(nil); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("even kernel size: got %v", err)
	}

	cfg = NewConfig()
	cfg.VisitParallelism = -2
	if err := cfg.Validate(nil); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("negative parallelism: got %v", err)
	}
}

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	contents := `
make_psf_matched: true
warp_kernel: bilinear
model_psf:
  sigma_pix: 2.5
  size_pix: 9
visit_parallelism: 3
`
	filename := filepath.Join(t.TempDir(), "warp.yaml")
	if err := os.WriteFile(filename, []byte(contents), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(filename)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if err := cfg.Validate(nil); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if !cfg.MakeDirect || !cfg.MakePsfMatched {
		t.Fatalf("make_direct should default on, make_psf_matched set: %+v", cfg)
	}
	if cfg.WarpKernel != "bilinear" || cfg.VisitParallelism != 3 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.ModelPsf.SigmaPix != 2.5 {
		t.Fatalf("model psf override not applied: %+v", cfg.ModelPsf)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestGroupExposures(t *testing.T) {
	refs := []exposure.Ref{
		{Visit: 9, Detector: 1, Filter: "r"},
		{Visit: 9, Detector: 2, Filter: "r"},
		{Visit: 4, Detector: 1, Filter: "r"},
		{Visit: 9, Detector: 3, Filter: "r"},
		{Visit: 4, Detector: 1, Filter: "g"},
	}

	groups, err := GroupExposures(refs)
	if err != nil {
		t.Fatalf("GroupExposures: %v", err)
	}

	// First-seen key order, refs in arrival order, filters split.
	if len(groups) != 3 {
		t.Fatalf("got %d groups want 3: %v", len(groups), groups)
	}
	if groups[0].Key.Visit != 9 || len(groups[0].Refs) != 3 {
		t.Fatalf("group 0: %v", groups[0])
	}
	if groups[0].Refs[2].Detector != 3 {
		t.Fatalf("ref order lost in group 0: %v", groups[0].Refs)
	}
	if groups[1].Key.Visit != 4 || groups[1].Key.Filter != "r" || len(groups[1].Refs) != 1 {
		t.Fatalf("group 1: %v", groups[1])
	}
	if groups[2].Key.Filter != "g" {
		t.Fatalf("group 2 should be the g-band singleton: %v", groups[2])
	}

	total := 0
	for _, g := range groups {
		total += len(g.Refs)
	}
	if total != len(refs) {
		t.Fatalf("partition lost refs: %d of %d", total, len(refs))
	}

	if _, err := GroupExposures(nil); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("empty input: got %v", err)
	}
}

func TestVisitIDFallback(t *testing.T) {
	g := VisitGroup{Key: exposure.GroupKey{Visit: 42}}
	if got := g.VisitID(7); got != 42 {
		t.Fatalf("real id: got %d", got)
	}
	g = VisitGroup{Key: exposure.GroupKey{Visit: 0}}
	if got := g.VisitID(7); got != 7 {
		t.Fatalf("ordinal fallback: got %d", got)
	}
}
