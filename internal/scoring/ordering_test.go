package scoring

import (
	"math"
	"testing"
)

const eps = 1e-9

func approx(a, b float64) bool {
	return math.Abs(a-b) < eps
}

func TestScoreOrdering_ExactMatch(t *testing.T) {
	canonical := []uint{10, 20, 30, 40}
	weights := []OrderingParams{
		DefaultOrderingParams(),
		{WeightExact: 1},
		{WeightInversions: 5, WeightDisplacement: 0.1, Alpha: 2},
	}
	for _, p := range weights {
		res := ScoreOrdering([]uint{10, 20, 30, 40}, canonical, p)
		if res.Ratio != 1 || !res.Exact {
			t.Errorf("params %+v: Ratio = %v, Exact = %v; want 1, true", p, res.Ratio, res.Exact)
		}
		if res.Breakdown.ExactPositions != 4 {
			t.Errorf("ExactPositions = %d; want 4", res.Breakdown.ExactPositions)
		}
	}
}

func TestScoreOrdering_Reverse(t *testing.T) {
	res := ScoreOrdering([]uint{4, 3, 2, 1}, []uint{1, 2, 3, 4}, DefaultOrderingParams())
	b := res.Breakdown
	if b.Inversions != 6 || b.MaxInversions != 6 {
		t.Errorf("Inversions = %d/%d; want 6/6", b.Inversions, b.MaxInversions)
	}
	if b.Softened {
		t.Error("reverse order should not be softened")
	}
	if res.Ratio != 0 || res.Exact {
		t.Errorf("Ratio = %v, Exact = %v; want 0, false", res.Ratio, res.Exact)
	}
}

func TestScoreOrdering_Empty(t *testing.T) {
	for _, sub := range [][]uint{nil, {}, {99, 98}} {
		res := ScoreOrdering(sub, []uint{1, 2, 3}, DefaultOrderingParams())
		if res.Ratio != 0 || res.Exact {
			t.Errorf("submission %v: Ratio = %v; want 0", sub, res.Ratio)
		}
	}
}

func TestScoreOrdering_EmptyCanonical(t *testing.T) {
	res := ScoreOrdering([]uint{1}, nil, DefaultOrderingParams())
	if res.Ratio != 0 || res.Exact {
		t.Errorf("Ratio = %v, Exact = %v; want 0, false", res.Ratio, res.Exact)
	}
}

func TestScoreOrdering_OmittedTail(t *testing.T) {
	res := ScoreOrdering([]uint{1, 2, 3}, []uint{1, 2, 3, 4}, DefaultOrderingParams())
	if res.Exact {
		t.Error("partial submission must not be exact")
	}
	if !approx(res.Breakdown.PresentRatio, 0.75) {
		t.Errorf("PresentRatio = %v; want 0.75", res.Breakdown.PresentRatio)
	}
	want := math.Pow(0.75, 0.9)
	if !approx(res.Ratio, want) {
		t.Errorf("Ratio = %v; want %v", res.Ratio, want)
	}
}

func TestScoreOrdering_NormalizesSubmission(t *testing.T) {
	res := ScoreOrdering([]uint{1, 1, 99, 2, 3, 2}, []uint{1, 2, 3}, DefaultOrderingParams())
	if got := res.Breakdown.Present; len(got) != 3 {
		t.Fatalf("Present = %v; want 3 ids", got)
	}
	if !res.Exact || res.Ratio != 1 {
		t.Errorf("Ratio = %v, Exact = %v; want 1, true", res.Ratio, res.Exact)
	}
}

func TestScoreOrdering_SingleOutlierIsSoftened(t *testing.T) {
	res := ScoreOrdering([]uint{2, 3, 4, 1, 5}, []uint{1, 2, 3, 4, 5}, DefaultOrderingParams())
	b := res.Breakdown
	if !b.Softened {
		t.Fatal("expected softening for a single far item")
	}
	if b.Inversions != 3 || !approx(b.EffectiveInversions, 1.5) {
		t.Errorf("Inversions = %d, effective = %v; want 3, 1.5", b.Inversions, b.EffectiveInversions)
	}
	if b.Displacements[1] != 3 {
		t.Errorf("Displacements[1] = %d; want 3", b.Displacements[1])
	}
	base := (0.85 + 0.5 + 0.2) / 3
	if want := math.Pow(base, 0.9); !approx(res.Ratio, want) {
		t.Errorf("Ratio = %v; want %v", res.Ratio, want)
	}
}

func TestScoreOrdering_AdjacentSwapsNotSoftened(t *testing.T) {
	res := ScoreOrdering([]uint{2, 1, 4, 3}, []uint{1, 2, 3, 4}, DefaultOrderingParams())
	if res.Breakdown.Softened {
		t.Error("no far item, softening must not apply")
	}
	if res.Breakdown.Inversions != 2 {
		t.Errorf("Inversions = %d; want 2", res.Breakdown.Inversions)
	}
	if res.Ratio <= 0 || res.Ratio >= 1 {
		t.Errorf("Ratio = %v; want partial credit", res.Ratio)
	}
}

func TestScoreOrdering_WeightsAndAlpha(t *testing.T) {
	tests := []struct {
		name   string
		params OrderingParams
		want   float64
	}{
		{"exact only", OrderingParams{WeightExact: 1}, math.Pow(0.5, 0.9)},
		{"alpha clamped high", OrderingParams{WeightExact: 1, Alpha: 5}, 0.25},
		{"alpha clamped low", OrderingParams{WeightExact: 1, Alpha: 0.1}, math.Pow(0.5, 0.5)},
		{"negative weights fall back", OrderingParams{WeightExact: -1, Alpha: 1}, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ScoreOrdering([]uint{1, 2, 4, 3}, []uint{1, 2, 3, 4}, tt.params)
			if tt.want < 0 {
				def := ScoreOrdering([]uint{1, 2, 4, 3}, []uint{1, 2, 3, 4}, OrderingParams{Alpha: 1})
				if !approx(res.Ratio, def.Ratio) {
					t.Errorf("Ratio = %v; want default-weight %v", res.Ratio, def.Ratio)
				}
				return
			}
			if !approx(res.Ratio, tt.want) {
				t.Errorf("Ratio = %v; want %v", res.Ratio, tt.want)
			}
		})
	}
}

func TestParseOrderingParams(t *testing.T) {
	base := DefaultOrderingParams()
	if got := ParseOrderingParams(nil, base); got != base {
		t.Errorf("nil raw = %+v; want base", got)
	}
	if got := ParseOrderingParams([]byte("{oops"), base); got != base {
		t.Errorf("malformed raw = %+v; want base", got)
	}
	got := ParseOrderingParams([]byte(`{"far_threshold":4,"alpha":1.2}`), base)
	if got.FarThreshold != 4 || got.Alpha != 1.2 {
		t.Errorf("overrides not applied: %+v", got)
	}
	if got.NearThreshold != base.NearThreshold || got.WeightExact != base.WeightExact {
		t.Errorf("defaults not kept: %+v", got)
	}
}

func TestParseOrderingParams_ExplicitZeroOverrides(t *testing.T) {
	base := DefaultOrderingParams()
	got := ParseOrderingParams([]byte(`{"near_threshold":0,"soft_factor":0}`), base)
	if got.NearThreshold != 0 || got.SoftFactor != 0 {
		t.Errorf("explicit zeros replaced by base: %+v", got)
	}
	if got.FarThreshold != base.FarThreshold || got.Alpha != base.Alpha {
		t.Errorf("absent keys lost their base value: %+v", got)
	}
}

func TestScoreOrdering_ZeroThresholdAndSoftFactor(t *testing.T) {
	// Item 1 is three slots late, the other four are one slot early.
	submitted, canonical := []uint{2, 3, 4, 1, 5}, []uint{1, 2, 3, 4, 5}

	tests := []struct {
		name      string
		raw       string
		softened  bool
		effective float64
	}{
		{"defaults", `{}`, true, 1.5},
		{"soft factor zero drops outlier inversions", `{"soft_factor":0}`, true, 0},
		{"near threshold zero disables softening", `{"near_threshold":0}`, false, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := ParseOrderingParams([]byte(tt.raw), DefaultOrderingParams())
			b := ScoreOrdering(submitted, canonical, params).Breakdown
			if b.Softened != tt.softened || !approx(b.EffectiveInversions, tt.effective) {
				t.Errorf("softened=%v effective=%v; want %v, %v", b.Softened, b.EffectiveInversions, tt.softened, tt.effective)
			}
		})
	}
}
