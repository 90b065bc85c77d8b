package scoring

import (
	"encoding/json"
	"math"
)

// OrderingParams tunes the partial-credit ordering scorer. Thresholds and the
// soft factor are used as given, zero included. Non-positive weights in total
// and a zero alpha fall back to the defaults.
type OrderingParams struct {
	NearThreshold      int     `json:"near_threshold" mapstructure:"near_threshold"`
	FarThreshold       int     `json:"far_threshold" mapstructure:"far_threshold"`
	SoftFactor         float64 `json:"soft_factor" mapstructure:"soft_factor"`
	WeightInversions   float64 `json:"weight_inversions" mapstructure:"weight_inversions"`
	WeightDisplacement float64 `json:"weight_displacement" mapstructure:"weight_displacement"`
	WeightExact        float64 `json:"weight_exact" mapstructure:"weight_exact"`
	Alpha              float64 `json:"alpha" mapstructure:"alpha"`
}

const (
	minAlpha = 0.5
	maxAlpha = 2.0
)

// DefaultOrderingParams splits the weights evenly.
func DefaultOrderingParams() OrderingParams {
	return OrderingParams{
		NearThreshold:      1,
		FarThreshold:       3,
		SoftFactor:         0.5,
		WeightInversions:   1.0 / 3,
		WeightDisplacement: 1.0 / 3,
		WeightExact:        1.0 / 3,
		Alpha:              0.9,
	}
}

// orderingOverrides marks which keys a stored override actually sets, so an
// explicit zero replaces the base value.
type orderingOverrides struct {
	NearThreshold      *int     `json:"near_threshold"`
	FarThreshold       *int     `json:"far_threshold"`
	SoftFactor         *float64 `json:"soft_factor"`
	WeightInversions   *float64 `json:"weight_inversions"`
	WeightDisplacement *float64 `json:"weight_displacement"`
	WeightExact        *float64 `json:"weight_exact"`
	Alpha              *float64 `json:"alpha"`
}

func (o orderingOverrides) apply(p OrderingParams) OrderingParams {
	if o.NearThreshold != nil {
		p.NearThreshold = *o.NearThreshold
	}
	if o.FarThreshold != nil {
		p.FarThreshold = *o.FarThreshold
	}
	if o.SoftFactor != nil {
		p.SoftFactor = *o.SoftFactor
	}
	if o.WeightInversions != nil {
		p.WeightInversions = *o.WeightInversions
	}
	if o.WeightDisplacement != nil {
		p.WeightDisplacement = *o.WeightDisplacement
	}
	if o.WeightExact != nil {
		p.WeightExact = *o.WeightExact
	}
	if o.Alpha != nil {
		p.Alpha = *o.Alpha
	}
	return p
}

// ParseOrderingParams layers per-question overrides from stored JSON over
// base. Keys absent from raw keep the base value; empty or malformed input
// yields base unchanged.
func ParseOrderingParams(raw []byte, base OrderingParams) OrderingParams {
	if len(raw) == 0 {
		return base
	}
	var o orderingOverrides
	if err := json.Unmarshal(raw, &o); err != nil {
		return base
	}
	return o.apply(base)
}

func (p OrderingParams) normalized() (wInv, wOffs, wExact, alpha float64) {
	def := DefaultOrderingParams()
	wInv, wOffs, wExact = math.Max(p.WeightInversions, 0), math.Max(p.WeightDisplacement, 0), math.Max(p.WeightExact, 0)
	sum := wInv + wOffs + wExact
	if sum <= 0 {
		wInv, wOffs, wExact = def.WeightInversions, def.WeightDisplacement, def.WeightExact
		sum = wInv + wOffs + wExact
	}
	alpha = p.Alpha
	if alpha == 0 {
		alpha = def.Alpha
	}
	alpha = math.Min(math.Max(alpha, minAlpha), maxAlpha)
	return wInv / sum, wOffs / sum, wExact / sum, alpha
}

// OrderingBreakdown explains how a ratio was reached.
type OrderingBreakdown struct {
	Present             []uint       `json:"present"`
	Full                []uint       `json:"full"`
	Displacements       map[uint]int `json:"displacements"`
	Inversions          int          `json:"inversions"`
	EffectiveInversions float64      `json:"effectiveInversions"`
	MaxInversions       int          `json:"maxInversions"`
	ExactPositions      int          `json:"exactPositions"`
	PresentRatio        float64      `json:"presentRatio"`
	OrderAccuracy       float64      `json:"orderAccuracy"`
	DisplacementNorm    float64      `json:"displacementNorm"`
	ExactRatio          float64      `json:"exactRatio"`
	Softened            bool         `json:"softened"`
}

type OrderingResult struct {
	Ratio     float64           `json:"ratio"`
	Exact     bool              `json:"exact"`
	Breakdown OrderingBreakdown `json:"breakdown"`
}

// ScoreOrdering grades a submitted permutation against the canonical order.
// Only a positionally identical submission is Exact; everything else is
// partial credit in [0,1].
func ScoreOrdering(submitted, canonical []uint, params OrderingParams) OrderingResult {
	n := len(canonical)
	var res OrderingResult
	if n == 0 {
		return res
	}

	pos := make(map[uint]int, n)
	for i, id := range canonical {
		pos[id] = i
	}

	seen := make(map[uint]bool, n)
	present := make([]uint, 0, n)
	for _, id := range submitted {
		if _, ok := pos[id]; !ok || seen[id] {
			continue
		}
		seen[id] = true
		present = append(present, id)
	}
	b := &res.Breakdown
	b.Present = present
	b.PresentRatio = float64(len(present)) / float64(n)

	if len(present) == n && sameOrder(present, canonical) {
		b.Full = present
		b.Displacements = make(map[uint]int, n)
		for _, id := range present {
			b.Displacements[id] = 0
		}
		b.MaxInversions = n * (n - 1) / 2
		b.ExactPositions = n
		b.OrderAccuracy, b.ExactRatio = 1, 1
		res.Ratio, res.Exact = 1, true
		return res
	}

	full := append(make([]uint, 0, n), present...)
	for _, id := range canonical {
		if !seen[id] {
			full = append(full, id)
		}
	}
	b.Full = full

	m := len(present)
	for i := 0; i < m; i++ {
		for j := i + 1; j < m; j++ {
			if pos[present[i]] > pos[present[j]] {
				b.Inversions++
			}
		}
	}
	b.MaxInversions = m * (m - 1) / 2

	b.Displacements = make(map[uint]int, n)
	offsSum := 0
	for i, id := range full {
		d := abs(i - pos[id])
		b.Displacements[id] = d
		offsSum += d
		if d == 0 {
			b.ExactPositions++
		}
	}
	if maxOffs := n * n / 2; maxOffs > 0 {
		b.DisplacementNorm = float64(offsSum) / float64(maxOffs)
	}
	b.ExactRatio = float64(b.ExactPositions) / float64(n)

	b.EffectiveInversions = float64(b.Inversions)
	if singleOutlier(present, b.Displacements, params.NearThreshold, params.FarThreshold) {
		b.EffectiveInversions *= clamp01(params.SoftFactor)
		b.Softened = true
	}

	b.OrderAccuracy = 1
	if m >= 2 {
		b.OrderAccuracy = 1 - b.EffectiveInversions/float64(b.MaxInversions)
	}

	wInv, wOffs, wExact, alpha := params.normalized()
	base := wInv*b.OrderAccuracy + wOffs*(1-b.DisplacementNorm) + wExact*b.ExactRatio
	scaled := clamp01(base * b.PresentRatio)
	res.Ratio = clamp01(math.Pow(scaled, alpha))
	return res
}

// singleOutlier is true when exactly one present item sits far from its slot
// and every other present item is at most near.
func singleOutlier(present []uint, disp map[uint]int, near, far int) bool {
	outliers := 0
	for _, id := range present {
		d := disp[id]
		switch {
		case d >= far:
			outliers++
		case d > near:
			return false
		}
	}
	return outliers == 1
}

func sameOrder(a, b []uint) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func clamp01(x float64) float64 {
	if math.IsNaN(x) || x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
