package model

// RewardTier is the medal earned by a finished attempt.
type RewardTier string

const (
	RewardCoal    RewardTier = "coal"
	RewardCopper  RewardTier = "copper"
	RewardIron    RewardTier = "iron"
	RewardGold    RewardTier = "gold"
	RewardDiamond RewardTier = "diamond"
	RewardEmerald RewardTier = "emerald"
)

// RewardTiers lists every tier from lowest to highest.
var RewardTiers = []RewardTier{RewardCoal, RewardCopper, RewardIron, RewardGold, RewardDiamond, RewardEmerald}

// Rank orders tiers; unknown values rank below coal.
func (r RewardTier) Rank() int {
	for i, t := range RewardTiers {
		if t == r {
			return i
		}
	}
	return -1
}

// AtLeast reports whether r is the same as or better than other.
func (r RewardTier) AtLeast(other RewardTier) bool {
	return r.Rank() >= other.Rank()
}

