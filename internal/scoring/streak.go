package scoring

// Streak is the running state of a correct-answer fold.
type Streak struct {
	Current int `json:"current"`
	Max     int `json:"max"`
}

// Push folds one answer into the streak.
func (s Streak) Push(correct bool) Streak {
	if !correct {
		s.Current = 0
		return s
	}
	s.Current++
	if s.Current > s.Max {
		s.Max = s.Current
	}
	return s
}

// Fold continues s over answers in chronological order.
func (s Streak) Fold(answers []bool) Streak {
	for _, c := range answers {
		s = s.Push(c)
	}
	return s
}

// LongestStreak returns the longest run of consecutive true values.
func LongestStreak(answers []bool) int {
	return Streak{}.Fold(answers).Max
}
