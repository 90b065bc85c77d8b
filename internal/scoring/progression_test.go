package scoring

import (
	"testing"

	"progression_backend/internal/model"
)

func TestResolveReward(t *testing.T) {
	tests := []struct {
		pct     float64
		elapsed int
		want    model.RewardTier
	}{
		{0, 10, model.RewardCoal},
		{69.9, 10, model.RewardCoal},
		{70.0, 10, model.RewardCopper},
		{80, 10, model.RewardIron},
		{89.99, 10, model.RewardIron},
		{90, 10, model.RewardGold},
		{100, 45, model.RewardEmerald},
		{100, 60, model.RewardEmerald},
		{100, 61, model.RewardDiamond},
		{100, 0, model.RewardDiamond},
		{95, 5, model.RewardGold},
	}
	for _, tt := range tests {
		if got := ResolveReward(tt.pct, tt.elapsed, 60); got != tt.want {
			t.Errorf("ResolveReward(%v, %d) = %s; want %s", tt.pct, tt.elapsed, got, tt.want)
		}
	}
}

func TestComputeXP(t *testing.T) {
	g := ComputeXP(20, model.RewardEmerald, 0)
	if g.BaseXP != 20 || g.BonusXP != 30 || g.FinalXP != 50 || g.IncrementalXP != 50 {
		t.Errorf("emerald gain = %+v; want 20/30/50/50", g)
	}
	if g.MaxedOut {
		t.Error("first attempt is not maxed out")
	}

	worse := ComputeXP(10, model.RewardCoal, 50)
	if worse.IncrementalXP != 0 || worse.MaxedOut {
		t.Errorf("worse attempt = %+v; want 0 xp, not maxed", worse)
	}

	tie := ComputeXP(20, model.RewardEmerald, 50)
	if tie.IncrementalXP != 0 || !tie.MaxedOut {
		t.Errorf("tied attempt = %+v; want 0 xp, maxed", tie)
	}

	better := ComputeXP(20, model.RewardDiamond, 25)
	if better.FinalXP != 40 || better.IncrementalXP != 15 {
		t.Errorf("improved attempt = %+v; want final 40, incremental 15", better)
	}

	copper := ComputeXP(15, model.RewardCopper, 0)
	if copper.BonusXP != 6 {
		t.Errorf("copper bonus = %d; want 6", copper.BonusXP)
	}
}

func TestLeveling(t *testing.T) {
	l := NewLeveling(DefaultXPPerLevel)
	levels := map[int]int{0: 1, 999: 1, 1000: 2, 2500: 3, -5: 1}
	for xp, want := range levels {
		if got := l.Level(xp); got != want {
			t.Errorf("Level(%d) = %d; want %d", xp, got, want)
		}
	}
	if got := l.XPForNextLevel(0); got != 1000 {
		t.Errorf("XPForNextLevel(0) = %d; want 1000", got)
	}
	if got := l.XPForNextLevel(1500); got != 500 {
		t.Errorf("XPForNextLevel(1500) = %d; want 500", got)
	}
	if got := l.LevelProgress(1500); got != 50 {
		t.Errorf("LevelProgress(1500) = %v; want 50", got)
	}
	if got := NewLeveling(0).XPPerLevel; got != 1 {
		t.Errorf("NewLeveling(0).XPPerLevel = %d; want 1", got)
	}
}

func TestLongestStreak(t *testing.T) {
	tests := []struct {
		in   []bool
		want int
	}{
		{nil, 0},
		{[]bool{false, false}, 0},
		{[]bool{true, true, false, true, true, true}, 3},
		{[]bool{true, true, true, true}, 4},
	}
	for _, tt := range tests {
		if got := LongestStreak(tt.in); got != tt.want {
			t.Errorf("LongestStreak(%v) = %d; want %d", tt.in, got, tt.want)
		}
	}

	s := Streak{}.Fold([]bool{true, true})
	s = s.Fold([]bool{true, false, true})
	if s.Max != 3 || s.Current != 1 {
		t.Errorf("resumed fold = %+v; want max 3, current 1", s)
	}
}
