package service

import (
	"progression_backend/internal/config"
	"progression_backend/internal/scoring"
	"sync/atomic"
)

// ScoringSettings is an immutable snapshot of the scoring tunables.
type ScoringSettings struct {
	Leveling                scoring.Leveling
	DefaultTimeLimitSeconds int
	DefaultQuestionPoints   int
	Ordering                scoring.OrderingParams
}

func SettingsFromConfig(c config.ScoringConfig) ScoringSettings {
	o := c.Ordering
	return ScoringSettings{
		Leveling:                scoring.NewLeveling(c.XPPerLevel),
		DefaultTimeLimitSeconds: c.DefaultTimeLimitSeconds,
		DefaultQuestionPoints:   c.DefaultQuestionPoints,
		Ordering: scoring.OrderingParams{
			NearThreshold:      o.NearThreshold,
			FarThreshold:       o.FarThreshold,
			SoftFactor:         o.SoftFactor,
			WeightInversions:   o.WeightInversions,
			WeightDisplacement: o.WeightDisplacement,
			WeightExact:        o.WeightExact,
			Alpha:              o.Alpha,
		},
	}
}

// Tunables hands out the current settings; Store swaps them atomically on
// config reload.
type Tunables struct {
	v atomic.Pointer[ScoringSettings]
}

func NewTunables(c config.ScoringConfig) *Tunables {
	t := &Tunables{}
	t.Store(c)
	return t
}

func (t *Tunables) Load() ScoringSettings {
	return *t.v.Load()
}

func (t *Tunables) Store(c config.ScoringConfig) {
	s := SettingsFromConfig(c)
	t.v.Store(&s)
}
