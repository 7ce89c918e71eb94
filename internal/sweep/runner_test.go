package sweep

import (
	"context"
	"io"
	"log"
	"strings"
	"testing"

	"transient-filter/internal/cutout"
	"transient-filter/internal/discovery"
	"transient-filter/internal/domain"
	"transient-filter/internal/storage/memory"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func det(mjdVal, ra, dec, raErr, decErr float64) domain.Detection {
	return domain.Detection{Mjd: mjdVal, RA: ra, Dec: dec, RAErr: raErr, DecErr: decErr}
}

// stamp builds a rows x cols grid filled with val.
func stamp(t *testing.T, rows, cols int, val float64) *cutout.Grid {
	t.Helper()
	pixels := make([][]float64, rows)
	for r := range pixels {
		pixels[r] = make([]float64, cols)
		for c := range pixels[r] {
			pixels[r][c] = val
		}
	}
	g, err := cutout.NewGrid(pixels)
	if err != nil {
		t.Fatalf("build stamp: %v", err)
	}
	return g
}

// stampWithSquare builds a flat stamp with a size x size bright block whose
// top-left corner is (row, col).
func stampWithSquare(t *testing.T, rows, cols int, background float64, row, col, size int, val float64) *cutout.Grid {
	t.Helper()
	pixels := make([][]float64, rows)
	for r := range pixels {
		pixels[r] = make([]float64, cols)
		for c := range pixels[r] {
			pixels[r][c] = background
		}
	}
	for r := row; r < row+size; r++ {
		for c := col; c < col+size; c++ {
			pixels[r][c] = val
		}
	}
	g, err := cutout.NewGrid(pixels)
	if err != nil {
		t.Fatalf("build stamp: %v", err)
	}
	return g
}

// seededArchive holds four alerts on night 60100 and one outside the range:
// a stampless intra-night candidate, an inter-night candidate whose hostless
// verdict depends on the detection threshold, a first detection, and a
// malformed stamp pair.
func seededArchive(t *testing.T) *memory.AlertArchiveStore {
	t.Helper()
	archive := memory.NewAlertArchiveStore()

	alerts := []*domain.Alert{
		{
			AlertID:  1,
			ObjectID: "obj-a",
			Survey:   "ztf",
			Current:  det(60100.6, 10, 20, 1e-4, 1e-4),
			History:  []domain.Detection{det(60100.1, 10, 20, 1e-4, 1e-4)},
		},
		{
			AlertID:  2,
			ObjectID: "obj-b",
			Survey:   "ztf",
			Current:  det(60100.7, 30, -5, 1e-4, 1e-4),
			History:  []domain.Detection{det(60099.4, 30, -5, 1e-4, 1e-4)},
			Science:  stampWithSquare(t, 30, 30, 100, 12, 12, 7, 1000),
			Template: stamp(t, 30, 30, 100),
		},
		{
			AlertID:  3,
			ObjectID: "obj-c",
			Survey:   "ztf",
			Current:  det(60100.8, 50, 12, 1e-4, 1e-4),
		},
		{
			AlertID:  4,
			ObjectID: "obj-d",
			Survey:   "ztf",
			Current:  det(60100.9, 70, -30, 1e-4, 1e-4),
			History:  []domain.Detection{det(60100.3, 70, -30, 1e-4, 1e-4)},
			Science:  stamp(t, 30, 30, 100),
			Template: stamp(t, 20, 20, 100),
		},
		{
			AlertID:  5,
			ObjectID: "obj-e",
			Survey:   "ztf",
			Current:  det(60101.5, 90, 3, 1e-4, 1e-4),
			History:  []domain.Detection{det(60101.1, 90, 3, 1e-4, 1e-4)},
		},
	}
	for _, a := range alerts {
		if err := archive.Insert(context.Background(), a); err != nil {
			t.Fatalf("seed alert %d: %v", a.AlertID, err)
		}
	}
	return archive
}

func TestGridVariants_CrossProduct(t *testing.T) {
	base := discovery.DefaultClippingConfig()
	grid := Grid{
		Sigmas:          []float64{2, 3},
		CropRadii:       []int{8, 12},
		DetectionPixels: []int{5},
		CleanPixels:     []int{3},
	}

	variants, err := grid.Variants(base)
	if err != nil {
		t.Fatalf("Variants: %v", err)
	}
	if len(variants) != 4 {
		t.Fatalf("expected 4 variants, got %d", len(variants))
	}

	seen := make(map[string]bool)
	for _, v := range variants {
		if seen[v.Label] {
			t.Errorf("duplicate variant label %q", v.Label)
		}
		seen[v.Label] = true
		if v.Config.MaxIters != base.MaxIters {
			t.Errorf("variant %s lost base MaxIters: got %d, want %d", v.Label, v.Config.MaxIters, base.MaxIters)
		}
	}
	if !seen["sigma=2 crop=8 det=5 clean=3"] {
		t.Error("expected variant sigma=2 crop=8 det=5 clean=3")
	}
	if !seen["sigma=3 crop=12 det=5 clean=3"] {
		t.Error("expected variant sigma=3 crop=12 det=5 clean=3")
	}
}

func TestGridVariants_EmptyDimensionsFallBackToBase(t *testing.T) {
	base := discovery.DefaultClippingConfig()

	variants, err := Grid{}.Variants(base)
	if err != nil {
		t.Fatalf("Variants: %v", err)
	}
	if len(variants) != 1 {
		t.Fatalf("expected 1 variant, got %d", len(variants))
	}
	if variants[0].Config != base {
		t.Errorf("expected base config, got %+v", variants[0].Config)
	}
	if variants[0].Label != "sigma=3 crop=12 det=5 clean=3" {
		t.Errorf("unexpected label %q", variants[0].Label)
	}
}

func TestGridVariants_InvalidCombination(t *testing.T) {
	_, err := Grid{Sigmas: []float64{-1}}.Variants(discovery.DefaultClippingConfig())
	if err == nil {
		t.Fatal("expected error for negative sigma")
	}
}

func TestNewRunner_RequiresArchive(t *testing.T) {
	_, err := NewRunner(RunnerOptions{Logger: quietLogger()})
	if err == nil {
		t.Fatal("expected error without archive store")
	}
}

func TestRunSweep_TalliesAndOrdersByYield(t *testing.T) {
	archive := seededArchive(t)

	runner, err := NewRunner(RunnerOptions{
		Archive: archive,
		Engine:  discovery.DefaultEngineConfig(),
		Logger:  quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	// A permissive and a strict detection threshold: the 49-pixel science
	// source clears det=5 but not det=100.
	variants, err := Grid{DetectionPixels: []int{5, 100}}.Variants(discovery.DefaultClippingConfig())
	if err != nil {
		t.Fatalf("Variants: %v", err)
	}

	result, err := runner.Run(context.Background(), "ztf", 60100, 60100, variants)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Total != 4 {
		t.Errorf("expected 4 alerts in night range, got %d", result.Total)
	}
	if len(result.Variants) != 2 {
		t.Fatalf("expected 2 variant results, got %d", len(result.Variants))
	}

	permissive := result.Variants[0]
	strict := result.Variants[1]
	if permissive.Label != "sigma=3 crop=12 det=5 clean=3" {
		t.Errorf("expected permissive variant first, got %q", permissive.Label)
	}

	if permissive.Candidates != 2 {
		t.Errorf("permissive: expected 2 candidates, got %d", permissive.Candidates)
	}
	if strict.Candidates != 1 {
		t.Errorf("strict: expected 1 candidate, got %d", strict.Candidates)
	}

	for _, vr := range []VariantResult{permissive, strict} {
		if vr.IntraNight != 1 {
			t.Errorf("%s: expected 1 intra-night, got %d", vr.Label, vr.IntraNight)
		}
		if vr.InterNight != 1 {
			t.Errorf("%s: expected 1 inter-night, got %d", vr.Label, vr.InterNight)
		}
		if vr.NoDiscovery != 1 {
			t.Errorf("%s: expected 1 no-discovery, got %d", vr.Label, vr.NoDiscovery)
		}
		if vr.Malformed != 1 {
			t.Errorf("%s: expected 1 malformed, got %d", vr.Label, vr.Malformed)
		}
	}
}

func TestRunSweep_NoVariants(t *testing.T) {
	runner, err := NewRunner(RunnerOptions{
		Archive: memory.NewAlertArchiveStore(),
		Engine:  discovery.DefaultEngineConfig(),
		Logger:  quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	if _, err := runner.Run(context.Background(), "ztf", 60100, 60101, nil); err == nil {
		t.Fatal("expected error for empty variant list")
	}
}

func TestRenderMarkdown_ListsVariantsBestFirst(t *testing.T) {
	cfg := discovery.DefaultClippingConfig()
	looser := cfg
	looser.Sigma = 2
	result := &Result{
		Survey:     "ztf",
		StartNight: 60100,
		EndNight:   60101,
		Total:      12,
		Variants: []VariantResult{
			{Label: "sigma=3 crop=12 det=5 clean=3", Config: cfg, Candidates: 3, IntraNight: 2, InterNight: 1, NoDiscovery: 8, Malformed: 1},
			{Label: "sigma=2 crop=12 det=5 clean=3", Config: looser, Candidates: 1, IntraNight: 2, InterNight: 1, NoDiscovery: 8, Malformed: 1},
		},
	}

	md := RenderMarkdown(result)

	if !strings.Contains(md, "Survey: ztf | Nights: 60100-60101 | Alerts: 12 | Variants: 2") {
		t.Errorf("missing summary line:\n%s", md)
	}
	if !strings.Contains(md, "| 3 | 12 | 5 | 3 | 3 | 2 | 1 | 8 | 1 |") {
		t.Errorf("missing variant row:\n%s", md)
	}
	if !strings.Contains(md, "Best yield: sigma=3 crop=12 det=5 clean=3 with 3 candidates.") {
		t.Errorf("missing best-yield line:\n%s", md)
	}
}
