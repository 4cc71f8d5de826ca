package main

import(
	"log/slog"
	"testing"

	"skywarp/pkg/skymap"
	"skywarp/pkg/warp"
)

func testTract() skymap.TractInfo {
	return skymap.TractInfo{
		ID: 3, TangentRADeg: 30, TangentDecDeg: -10,
		PixelScaleAsec: 0.2, PatchDim: 100, PatchOverlap: 10,
		NumPatchesX: 2, NumPatchesY: 2,
	}
}

func TestResolvePatches(t *testing.T) {
	ti := testTract()

	patches, err := resolvePatches(ti, []string{"0,0", "1,1"}, false)
	if err != nil {
		t.Fatalf("resolvePatches: %v", err)
	}
	if len(patches) != 2 || patches[1].Patch() != "1,1" {
		t.Fatalf("wrong patches: %v", patches)
	}

	all, err := resolvePatches(ti, nil, true)
	if err != nil || len(all) != 4 {
		t.Fatalf("--all should cover the grid: %v %v", err, all)
	}

	if _, err := resolvePatches(ti, nil, false); err == nil {
		t.Errorf("no patches and no --all should error")
	}
	if _, err := resolvePatches(ti, []string{"5,0"}, false); err == nil {
		t.Errorf("out-of-grid patch should error")
	}
	if _, err := resolvePatches(ti, []string{"wibble"}, false); err == nil {
		t.Errorf("malformed patch index should error")
	}
}

func TestParseVariant(t *testing.T) {
	if v, err := parseVariant("direct"); err != nil || v != warp.Direct {
		t.Errorf("direct: %v %v", v, err)
	}
	if v, err := parseVariant("psfMatched"); err != nil || v != warp.PsfMatched {
		t.Errorf("psfMatched: %v %v", v, err)
	}
	if _, err := parseVariant("fancy"); err == nil {
		t.Errorf("unknown variant should error")
	}
}

func TestParseLevel(t *testing.T) {
	if got := parseLevel("debug"); got != slog.LevelDebug {
		t.Errorf("debug: %v", got)
	}
	if got := parseLevel("WARN"); got != slog.LevelWarn {
		t.Errorf("case-insensitive warn: %v", got)
	}
	if got := parseLevel("wibble"); got != slog.LevelInfo {
		t.Errorf("unknown level should default to info: %v", got)
	}
}

func TestIsSidecar(t *testing.T) {
	if !isSidecar("/data/catalog/visit-000007-det01.yaml") {
		t.Errorf("yaml sidecar not recognized")
	}
	if isSidecar("/data/catalog/visit-000007-det01.tif") {
		t.Errorf("pixel file should not trigger a re-run")
	}
}
