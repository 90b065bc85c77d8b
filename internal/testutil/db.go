// Package testutil builds throwaway databases for package tests.
package testutil

import (
	"path/filepath"
	"testing"

	"progression_backend/internal/model"
	"progression_backend/pkg/database"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB returns a migrated in-memory SQLite database. The pool is capped at
// one connection so every query sees the same memory database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	return open(t, ":memory:", 1)
}

// NewFileDB returns a migrated SQLite database in a temp file with a real
// connection pool. Transactions begin IMMEDIATE and wait on the busy timeout,
// so concurrent writers queue instead of failing.
func NewFileDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "progression.db") + "?_busy_timeout=10000&_txlock=immediate"
	return open(t, dsn, 4)
}

func open(t *testing.T, dsn string, maxConns int) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(maxConns)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// CreateUser inserts a student with zero XP.
func CreateUser(t *testing.T, db *gorm.DB, email string) *model.User {
	t.Helper()
	u := &model.User{Name: email, Email: email, Role: model.Student, Level: 1}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// ChoiceExercise creates an exercise with n choice questions of the given
// points. It returns the exercise and, per question, the correct choice id
// followed by a wrong one.
func ChoiceExercise(t *testing.T, db *gorm.DB, n, points, timeLimit int) (*model.Exercise, []model.Question, [][2]uint) {
	t.Helper()
	ex := &model.Exercise{Title: "choice exercise", Difficulty: "easy", TimeLimitSeconds: timeLimit}
	if err := db.Create(ex).Error; err != nil {
		t.Fatalf("create exercise: %v", err)
	}
	questions := make([]model.Question, 0, n)
	choices := make([][2]uint, 0, n)
	for i := 0; i < n; i++ {
		q := model.Question{ExerciseID: ex.ID, Type: model.QuestionChoice, Content: "q", Points: points, Position: i}
		if err := db.Create(&q).Error; err != nil {
			t.Fatalf("create question: %v", err)
		}
		right := model.Choice{QuestionID: q.ID, Content: "right", IsCorrect: true, Position: 0}
		wrong := model.Choice{QuestionID: q.ID, Content: "wrong", Position: 1}
		if err := db.Create(&right).Error; err != nil {
			t.Fatalf("create choice: %v", err)
		}
		if err := db.Create(&wrong).Error; err != nil {
			t.Fatalf("create choice: %v", err)
		}
		questions = append(questions, q)
		choices = append(choices, [2]uint{right.ID, wrong.ID})
	}
	return ex, questions, choices
}

// OrderingQuestion adds an ordering question with len(contents) items in
// canonical order and returns the item ids in that order.
func OrderingQuestion(t *testing.T, db *gorm.DB, exerciseID uint, points int, contents ...string) (model.Question, []uint) {
	t.Helper()
	q := model.Question{ExerciseID: exerciseID, Type: model.QuestionOrdering, Content: "order", Points: points}
	if err := db.Create(&q).Error; err != nil {
		t.Fatalf("create question: %v", err)
	}
	ids := make([]uint, 0, len(contents))
	for i, c := range contents {
		item := model.OrderingItem{QuestionID: q.ID, Content: c, CorrectPosition: i}
		if err := db.Create(&item).Error; err != nil {
			t.Fatalf("create item: %v", err)
		}
		ids = append(ids, item.ID)
	}
	return q, ids
}

// MatchingQuestion adds a matching question whose left items pair with the
// right items at the same index, plus one unpaired right item. It returns the
// left ids and the right ids in that order.
func MatchingQuestion(t *testing.T, db *gorm.DB, exerciseID uint, points int, pairs [][2]string) (model.Question, []uint, []uint) {
	t.Helper()
	q := model.Question{ExerciseID: exerciseID, Type: model.QuestionMatching, Content: "match", Points: points}
	if err := db.Create(&q).Error; err != nil {
		t.Fatalf("create question: %v", err)
	}
	rights := make([]uint, 0, len(pairs))
	for i, p := range pairs {
		right := model.MatchingItem{QuestionID: q.ID, Side: model.MatchingRight, Content: p[1], Position: len(pairs) - i}
		if err := db.Create(&right).Error; err != nil {
			t.Fatalf("create right item: %v", err)
		}
		rights = append(rights, right.ID)
	}
	distractor := model.MatchingItem{QuestionID: q.ID, Side: model.MatchingRight, Content: "none of these"}
	if err := db.Create(&distractor).Error; err != nil {
		t.Fatalf("create right item: %v", err)
	}
	lefts := make([]uint, 0, len(pairs))
	for i, p := range pairs {
		match := rights[i]
		left := model.MatchingItem{QuestionID: q.ID, Side: model.MatchingLeft, Content: p[0], MatchID: &match, Position: i}
		if err := db.Create(&left).Error; err != nil {
			t.Fatalf("create left item: %v", err)
		}
		lefts = append(lefts, left.ID)
	}
	return q, lefts, rights
}
