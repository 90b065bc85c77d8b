package model

import (
	"time"

	"gorm.io/datatypes"
)

// Attempt is created on start and written once on finish.
// swagger:model Attempt
type Attempt struct {
	RecordModel
	UserID         uint       `gorm:"index:idx_attempt_user_exercise,priority:1;not null" json:"userId"`
	ExerciseID     uint       `gorm:"index:idx_attempt_user_exercise,priority:2;not null" json:"exerciseId"`
	StartedAt      time.Time  `json:"startedAt"`
	FinishedAt     *time.Time `gorm:"index" json:"finishedAt,omitempty"`
	Score          int        `gorm:"default:0" json:"score"`
	Reward         RewardTier `gorm:"size:20" json:"reward,omitempty"`
	ElapsedSeconds int        `gorm:"default:0" json:"elapsedSeconds"`
}

func (Attempt) TableName() string {
	return "attempts"
}

func (a *Attempt) Finished() bool {
	return a.FinishedAt != nil
}

// AttemptAnswer is unique per (attempt, question); resubmission overwrites it.
type AttemptAnswer struct {
	RecordModel
	AttemptID     uint           `gorm:"uniqueIndex:uq_attempt_question,priority:1;not null" json:"attemptId"`
	QuestionID    uint           `gorm:"uniqueIndex:uq_attempt_question,priority:2;not null" json:"questionId"`
	Answer        datatypes.JSON `json:"answer"`
	Correct       bool           `gorm:"default:false" json:"correct"`
	PointsAwarded int            `gorm:"default:0" json:"pointsAwarded"`
}

func (AttemptAnswer) TableName() string {
	return "attempt_answers"
}
