package service

import (
	"progression_backend/internal/model"
	"progression_backend/internal/repository"
)

// Progress is how far a user is towards a badge requirement.
type Progress struct {
	Current int `json:"current"`
	Target  int `json:"target"`
}

func (p Progress) Reached() bool {
	return p.Target > 0 && p.Current >= p.Target
}

var rewardRequirements = map[model.RequirementType]model.RewardTier{
	model.ReqCoalEarned:     model.RewardCoal,
	model.ReqCopperEarned:   model.RewardCopper,
	model.ReqIronEarned:     model.RewardIron,
	model.ReqGoldEarned:     model.RewardGold,
	model.ReqDiamondsEarned: model.RewardDiamond,
	model.ReqEmeraldsEarned: model.RewardEmerald,
}

// Measure maps a badge requirement onto the user's aggregates. Unknown
// requirement types measure as zero progress towards an unreachable target.
func Measure(b *model.Badge, s *repository.UserStats) Progress {
	threshold := b.RequirementValue
	if threshold < 1 {
		threshold = 1
	}
	if tier, ok := rewardRequirements[b.RequirementType]; ok {
		return Progress{Current: s.ExercisesAtLeast(tier), Target: threshold}
	}

	switch b.RequirementType {
	case model.ReqExercisesCompleted:
		return Progress{Current: s.ExercisesCompleted, Target: threshold}
	case model.ReqTimeSpent:
		return Progress{Current: s.TimeSpentSeconds, Target: threshold}
	case model.ReqFirstTryEmerald:
		return Progress{Current: s.FirstTryEmeralds, Target: threshold}
	case model.ReqPerfectStreak:
		return Progress{Current: s.LongestStreak, Target: threshold}
	case model.ReqNightCompletion:
		return Progress{Current: s.NightCompletions, Target: threshold}
	case model.ReqSpeedCompletion:
		return Progress{Current: s.SpeedCompletions, Target: threshold}
	case model.ReqTypeMaster:
		c := s.TypeMastery[b.RequirementParam]
		return Progress{Current: c.Qualified, Target: c.Total}
	case model.ReqDifficultyComplete:
		c := s.Difficulty[b.RequirementParam]
		return Progress{Current: c.Qualified, Target: c.Total}
	}
	return Progress{}
}

// Qualifies evaluates the badge's requirement predicate.
func Qualifies(b *model.Badge, s *repository.UserStats) bool {
	return Measure(b, s).Reached()
}

// statsQuery collects the parameters the given badges need aggregated.
func statsQuery(badges []model.Badge) (q repository.StatsQuery, needsStreak bool) {
	seenType := map[string]bool{}
	seenDiff := map[string]bool{}
	for i := range badges {
		b := &badges[i]
		switch b.RequirementType {
		case model.ReqTypeMaster:
			if !seenType[b.RequirementParam] {
				seenType[b.RequirementParam] = true
				q.QuestionTypes = append(q.QuestionTypes, b.RequirementParam)
			}
		case model.ReqDifficultyComplete:
			if !seenDiff[b.RequirementParam] {
				seenDiff[b.RequirementParam] = true
				q.Difficulties = append(q.Difficulties, b.RequirementParam)
			}
		case model.ReqPerfectStreak:
			needsStreak = true
		}
	}
	return q, needsStreak
}
