package scoring

import "progression_backend/internal/model"

// rewardThresholds are evaluated in ascending order; the last one reached wins.
var rewardThresholds = []struct {
	min    float64
	reward model.RewardTier
}{
	{70, model.RewardCopper},
	{80, model.RewardIron},
	{90, model.RewardGold},
	{100, model.RewardDiamond},
}

// ResolveReward maps a score percentage to a tier. A diamond finished within
// the time limit is upgraded to emerald.
func ResolveReward(percentage float64, elapsedSeconds, timeLimitSeconds int) model.RewardTier {
	reward := model.RewardCoal
	for _, t := range rewardThresholds {
		if percentage >= t.min {
			reward = t.reward
		}
	}
	if reward == model.RewardDiamond && elapsedSeconds > 0 && elapsedSeconds <= timeLimitSeconds {
		reward = model.RewardEmerald
	}
	return reward
}
