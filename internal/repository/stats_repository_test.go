package repository

import (
	"context"
	"testing"
	"time"

	"progression_backend/internal/model"
	"progression_backend/internal/testutil"

	"gorm.io/gorm"
)

// finishedAttempt inserts a finished attempt plus its answer rows.
func finishedAttempt(t *testing.T, db *gorm.DB, userID, exerciseID uint, reward model.RewardTier, elapsed int, at time.Time, correct ...bool) *model.Attempt {
	t.Helper()
	a := &model.Attempt{UserID: userID, ExerciseID: exerciseID, StartedAt: at.Add(-time.Duration(elapsed) * time.Second), FinishedAt: &at, Reward: reward, ElapsedSeconds: elapsed}
	if err := db.Create(a).Error; err != nil {
		t.Fatalf("create attempt: %v", err)
	}
	for i, c := range correct {
		ans := &model.AttemptAnswer{AttemptID: a.ID, QuestionID: uint(i + 1), Correct: c}
		if err := db.Create(ans).Error; err != nil {
			t.Fatalf("create answer: %v", err)
		}
	}
	progress, err := NewExerciseProgressRepository(db).LockOrNew(userID, exerciseID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	progress.Record(a.Score, reward, at)
	if err := NewExerciseProgressRepository(db).Save(progress); err != nil {
		t.Fatalf("save progress: %v", err)
	}
	return a
}

func TestStatsLoad(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "a@example.com")

	easy1 := &model.Exercise{Title: "e1", Difficulty: "easy"}
	easy2 := &model.Exercise{Title: "e2", Difficulty: "easy"}
	hard := &model.Exercise{Title: "h", Difficulty: "hard"}
	for _, ex := range []*model.Exercise{easy1, easy2, hard} {
		if err := db.Create(ex).Error; err != nil {
			t.Fatalf("create exercise: %v", err)
		}
	}
	testutil.OrderingQuestion(t, db, easy1.ID, 10, "a", "b")
	testutil.OrderingQuestion(t, db, hard.ID, 10, "a", "b")

	noon := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	night := time.Date(2024, 3, 2, 2, 30, 0, 0, time.UTC)

	finishedAttempt(t, db, user.ID, easy1.ID, model.RewardEmerald, 20, noon)
	finishedAttempt(t, db, user.ID, easy1.ID, model.RewardIron, 50, noon.Add(time.Hour))
	finishedAttempt(t, db, user.ID, easy2.ID, model.RewardCopper, 40, night)
	finishedAttempt(t, db, user.ID, easy2.ID, model.RewardDiamond, 60, noon.Add(48*time.Hour))

	stats, err := NewStatsRepository(db).Load(user.ID, StatsQuery{
		QuestionTypes: []string{"ordering"},
		Difficulties:  []string{"easy", "hard"},
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if stats.ExercisesCompleted != 2 {
		t.Errorf("exercises completed = %d, want 2", stats.ExercisesCompleted)
	}
	if stats.TimeSpentSeconds != 170 {
		t.Errorf("time spent = %d, want 170", stats.TimeSpentSeconds)
	}
	if stats.FirstTryEmeralds != 1 {
		t.Errorf("first try emeralds = %d, want 1", stats.FirstTryEmeralds)
	}
	if stats.NightCompletions != 1 {
		t.Errorf("night completions = %d, want 1", stats.NightCompletions)
	}
	if stats.SpeedCompletions != 1 {
		t.Errorf("speed completions = %d, want 1", stats.SpeedCompletions)
	}
	if got := stats.ExercisesAtLeast(model.RewardDiamond); got != 2 {
		t.Errorf("diamond or better = %d, want 2", got)
	}
	if got := stats.ExercisesAtLeast(model.RewardEmerald); got != 1 {
		t.Errorf("emerald = %d, want 1", got)
	}
	if got := stats.ExercisesAtLeast(model.RewardCoal); got != 2 {
		t.Errorf("coal or better = %d, want 2", got)
	}

	if c := stats.TypeMastery["ordering"]; c.Total != 2 || c.Qualified != 1 || c.Complete() {
		t.Errorf("ordering coverage = %+v", c)
	}
	if c := stats.Difficulty["easy"]; !c.Complete() {
		t.Errorf("easy coverage = %+v, want complete", c)
	}
	if c := stats.Difficulty["hard"]; c.Total != 1 || c.Complete() {
		t.Errorf("hard coverage = %+v", c)
	}
	if c := stats.Difficulty["legendary"]; c.Complete() {
		t.Error("empty difficulty group counted as complete")
	}
}

func TestStreakFoldsAcrossAttempts(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "a@example.com")
	ex, _, _ := testutil.ChoiceExercise(t, db, 1, 10, 60)
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	finishedAttempt(t, db, user.ID, ex.ID, model.RewardGold, 30, at, true, true, false, true)
	finishedAttempt(t, db, user.ID, ex.ID, model.RewardGold, 30, at.Add(time.Hour), true, true, true)

	// Open attempts do not count.
	open := &model.Attempt{UserID: user.ID, ExerciseID: ex.ID, StartedAt: at}
	db.Create(open)
	db.Create(&model.AttemptAnswer{AttemptID: open.ID, QuestionID: 1, Correct: true})

	longest, err := NewStreakRepository(db, nil, time.Minute).Longest(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("longest: %v", err)
	}
	if longest != 4 {
		t.Errorf("longest streak = %d, want 4", longest)
	}
}
