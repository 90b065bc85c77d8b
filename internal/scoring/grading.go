package scoring

import (
	"encoding/json"
	"math"
)

// Answer is the submitted payload. Which field is read depends on the
// question body.
type Answer struct {
	ChoiceID uint        `json:"choice_id,omitempty"`
	Order    []uint      `json:"order,omitempty"`
	Pairs    []MatchPair `json:"pairs,omitempty"`
}

type MatchPair struct {
	Left  uint `json:"left"`
	Right uint `json:"right"`
}

// ParseAnswer decodes a raw payload. A malformed payload decodes to an empty
// Answer, which grades as wrong.
func ParseAnswer(raw []byte) Answer {
	var a Answer
	if len(raw) == 0 {
		return a
	}
	if err := json.Unmarshal(raw, &a); err != nil {
		return Answer{}
	}
	return a
}

// Body is the type-specific part of a gradable question.
type Body interface {
	grade(points int, a Answer) Outcome
}

// ChoiceBody covers multiple choice, true/false and fill-in-the-blank.
type ChoiceBody struct {
	Correct map[uint]bool // choice id -> is-correct; ids outside the map do not belong to the question
}

// OrderingBody holds item ids in canonical order.
type OrderingBody struct {
	Canonical []uint
	Params    OrderingParams
}

// MatchingBody maps each left item id to the id of its right partner.
type MatchingBody struct {
	Key map[uint]uint
}

// Question is the gradable view of a catalog question. A nil Body stands for
// an unsupported type.
type Question struct {
	ID     uint
	Points int
	Body   Body
}

type Outcome struct {
	Correct       bool
	PointsAwarded int
	Ordering      *OrderingResult
}

// Grade evaluates one answer. Unsupported question types grade as wrong
// with zero points.
func Grade(q Question, a Answer) Outcome {
	if q.Body == nil {
		return Outcome{}
	}
	return q.Body.grade(q.Points, a)
}

func (b ChoiceBody) grade(points int, a Answer) Outcome {
	if a.ChoiceID == 0 || !b.Correct[a.ChoiceID] {
		return Outcome{}
	}
	return Outcome{Correct: true, PointsAwarded: points}
}

func (b OrderingBody) grade(points int, a Answer) Outcome {
	res := ScoreOrdering(a.Order, b.Canonical, b.Params)
	return Outcome{
		Correct:       res.Exact,
		PointsAwarded: int(math.Round(float64(points) * res.Ratio)),
		Ordering:      &res,
	}
}

func (b MatchingBody) grade(points int, a Answer) Outcome {
	if len(b.Key) == 0 {
		return Outcome{}
	}
	matched := make(map[uint]uint, len(a.Pairs))
	for _, p := range a.Pairs {
		if _, dup := matched[p.Left]; dup {
			return Outcome{}
		}
		matched[p.Left] = p.Right
	}
	for left, right := range b.Key {
		if got, ok := matched[left]; !ok || got != right {
			return Outcome{}
		}
	}
	return Outcome{Correct: true, PointsAwarded: points}
}

// AttemptTotals aggregates an attempt at finish time.
type AttemptTotals struct {
	TotalAwarded   int `json:"totalAwarded"`
	TotalPossible  int `json:"totalPossible"`
	CorrectCount   int `json:"correctCount"`
	TotalQuestions int `json:"totalQuestions"`
}

// Percentage is TotalAwarded as a share of TotalPossible, 0 when nothing
// was possible.
func (t AttemptTotals) Percentage() float64 {
	if t.TotalPossible <= 0 {
		return 0
	}
	return float64(t.TotalAwarded) / float64(t.TotalPossible) * 100
}
