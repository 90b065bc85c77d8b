package model

import "gorm.io/datatypes"

type QuestionType string

const (
	QuestionChoice   QuestionType = "choice"
	QuestionOrdering QuestionType = "ordering"
	QuestionMatching QuestionType = "matching"
)

// Legacy catalog types that are graded as choice questions.
const (
	QuestionMCQ       QuestionType = "mcq"
	QuestionTrueFalse QuestionType = "truefalse"
	QuestionFillBlank QuestionType = "fillblank"
)

// Kind collapses the legacy choice-style types onto QuestionChoice.
func (t QuestionType) Kind() QuestionType {
	switch t {
	case QuestionChoice, QuestionMCQ, QuestionTrueFalse, QuestionFillBlank:
		return QuestionChoice
	}
	return t
}

// swagger:model Exercise
type Exercise struct {
	BaseModel
	Title            string `gorm:"size:200;not null" json:"title"`
	Difficulty       string `gorm:"size:20;index" json:"difficulty"` // easy, hard
	TimeLimitSeconds int    `gorm:"default:0" json:"timeLimitSeconds"`
}

func (Exercise) TableName() string {
	return "exercises"
}

// swagger:model Question
type Question struct {
	BaseModel
	ExerciseID   uint           `gorm:"index;not null" json:"exerciseId"`
	Type         QuestionType   `gorm:"size:20;index" json:"type"`
	Content      string         `gorm:"type:text" json:"content"`
	Points       int            `gorm:"not null;default:0" json:"points"` // 0 means the configured default
	Position     int            `gorm:"default:0" json:"position"`
	ScorerParams datatypes.JSON `json:"scorerParams,omitempty"` // ordering scorer overrides
}

func (Question) TableName() string {
	return "questions"
}

type Choice struct {
	BaseModel
	QuestionID uint   `gorm:"index;not null" json:"questionId"`
	Content    string `gorm:"type:text" json:"content"`
	IsCorrect  bool   `gorm:"default:false" json:"-"`
	Position   int    `gorm:"default:0" json:"position"`
}

func (Choice) TableName() string {
	return "question_choices"
}

// OrderingItem.CorrectPosition is 0-based.
type OrderingItem struct {
	BaseModel
	QuestionID      uint   `gorm:"index;not null" json:"questionId"`
	Content         string `gorm:"type:text" json:"content"`
	CorrectPosition int    `gorm:"not null" json:"-"`
}

func (OrderingItem) TableName() string {
	return "ordering_items"
}

type MatchingSide string

const (
	MatchingLeft  MatchingSide = "left"
	MatchingRight MatchingSide = "right"
)

// MatchingItem is one side of a matching question. Both sides share one id
// sequence, so a left item never carries the id of its right partner. A
// left item points at its partner through MatchID; right items without a
// partner act as distractors.
type MatchingItem struct {
	BaseModel
	QuestionID uint         `gorm:"index;not null" json:"questionId"`
	Side       MatchingSide `gorm:"size:10;not null" json:"side"`
	Content    string       `gorm:"type:text" json:"content"`
	MatchID    *uint        `json:"-"`
	Position   int          `gorm:"default:0" json:"position"`
}

func (MatchingItem) TableName() string {
	return "matching_items"
}
