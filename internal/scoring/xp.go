package scoring

import (
	"math"

	"progression_backend/internal/model"
)

var rewardMultipliers = map[model.RewardTier]float64{
	model.RewardCoal:    0,
	model.RewardCopper:  0.4,
	model.RewardIron:    0.6,
	model.RewardGold:    0.8,
	model.RewardDiamond: 1.0,
	model.RewardEmerald: 1.5,
}

// BonusMultiplier returns the bonus factor for a tier; unknown tiers get none.
func BonusMultiplier(r model.RewardTier) float64 {
	return rewardMultipliers[r]
}

// XPGain is the XP outcome of one finished attempt.
type XPGain struct {
	BaseXP        int  `json:"baseXp"`
	BonusXP       int  `json:"bonusXp"`
	FinalXP       int  `json:"finalXp"`
	PreviousBest  int  `json:"previousBest"`
	IncrementalXP int  `json:"xpEarned"`
	MaxedOut      bool `json:"maxedOut"`
}

// ComputeXP credits only the part of the attempt's XP above the user's
// previous best on the same exercise. MaxedOut marks an exact tie with that
// best, as opposed to a strictly worse attempt.
func ComputeXP(totalAwarded int, reward model.RewardTier, prevBest int) XPGain {
	g := XPGain{BaseXP: totalAwarded, PreviousBest: prevBest}
	g.BonusXP = int(math.Floor(float64(g.BaseXP) * BonusMultiplier(reward)))
	g.FinalXP = g.BaseXP + g.BonusXP
	if diff := g.FinalXP - prevBest; diff > 0 {
		g.IncrementalXP = diff
	}
	g.MaxedOut = g.IncrementalXP == 0 && g.FinalXP == prevBest
	return g
}
