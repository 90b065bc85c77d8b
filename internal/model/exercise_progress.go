package model

import "time"

// ExerciseProgress aggregates a user's finished attempts on one exercise.
// BestReward and BestScore never decrease.
type ExerciseProgress struct {
	RecordModel
	UserID           uint       `gorm:"uniqueIndex:uq_progress_user_exercise,priority:1;not null" json:"userId"`
	ExerciseID       uint       `gorm:"uniqueIndex:uq_progress_user_exercise,priority:2;not null" json:"exerciseId"`
	AttemptsCount    int        `gorm:"default:0" json:"attemptsCount"`
	BestReward       RewardTier `gorm:"size:20" json:"bestReward"`
	BestScore        int        `gorm:"default:0" json:"bestScore"`
	TotalScore       int        `gorm:"default:0" json:"totalScore"`
	Completed        bool       `gorm:"default:false" json:"completed"`
	FirstCompletedAt *time.Time `json:"firstCompletedAt,omitempty"`
	LastAttemptedAt  *time.Time `json:"lastAttemptedAt,omitempty"`
}

func (ExerciseProgress) TableName() string {
	return "user_exercise_progress"
}

// Record folds one finished attempt into the aggregate.
func (p *ExerciseProgress) Record(score int, reward RewardTier, at time.Time) {
	p.AttemptsCount++
	if p.BestReward == "" || reward.Rank() > p.BestReward.Rank() {
		p.BestReward = reward
	}
	if score > p.BestScore {
		p.BestScore = score
	}
	p.TotalScore += score
	p.Completed = true
	if p.FirstCompletedAt == nil {
		p.FirstCompletedAt = &at
	}
	p.LastAttemptedAt = &at
}
