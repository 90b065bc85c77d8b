package service

import (
	"testing"

	"progression_backend/internal/config"
)

func TestTunablesSwapOnReload(t *testing.T) {
	tun := NewTunables(config.DefaultScoring())
	before := tun.Load()
	if before.Leveling.XPPerLevel != 1000 || before.Ordering.Alpha != 0.9 {
		t.Fatalf("defaults = %+v", before)
	}

	next := config.DefaultScoring()
	next.XPPerLevel = 500
	next.Ordering.Alpha = 1.2
	next.Ordering.SoftFactor = 0
	tun.Store(next)

	after := tun.Load()
	if after.Leveling.XPPerLevel != 500 {
		t.Errorf("xp per level = %d, want 500", after.Leveling.XPPerLevel)
	}
	if after.Ordering.Alpha != 1.2 || after.Ordering.FarThreshold != 3 || after.Ordering.SoftFactor != 0 {
		t.Errorf("ordering params not taken from config: %+v", after.Ordering)
	}
	if before.Leveling.XPPerLevel != 1000 {
		t.Error("earlier snapshot changed")
	}
}
