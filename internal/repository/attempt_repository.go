package repository

import (
	"progression_backend/internal/model"
	"progression_backend/internal/util"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) Create(attempt *model.Attempt) error {
	return r.DB.Create(attempt).Error
}

// FindOwned returns the attempt only when it belongs to userID.
func (r *AttemptRepository) FindOwned(id, userID uint) (*model.Attempt, error) {
	var a model.Attempt
	err := r.DB.Where("id = ? AND user_id = ?", id, userID).First(&a).Error
	if err != nil {
		return nil, notFound(err, util.ErrAttemptNotFound)
	}
	return &a, nil
}

// LockOwned is FindOwned with a row lock. Call it inside a transaction.
func (r *AttemptRepository) LockOwned(id, userID uint) (*model.Attempt, error) {
	var a model.Attempt
	err := r.DB.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND user_id = ?", id, userID).
		First(&a).Error
	if err != nil {
		return nil, notFound(err, util.ErrAttemptNotFound)
	}
	return &a, nil
}

// MarkFinished writes the result columns of an open attempt. A second call
// for the same attempt returns ErrAttemptFinished.
func (r *AttemptRepository) MarkFinished(a *model.Attempt) error {
	res := r.DB.Model(&model.Attempt{}).
		Where("id = ? AND finished_at IS NULL", a.ID).
		Updates(map[string]interface{}{
			"finished_at":     a.FinishedAt,
			"score":           a.Score,
			"reward":          a.Reward,
			"elapsed_seconds": a.ElapsedSeconds,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return util.ErrAttemptFinished
	}
	return nil
}

// PreviousBest is the highest score among the user's other finished
// attempts on the exercise, 0 if there are none.
func (r *AttemptRepository) PreviousBest(userID, exerciseID, excludeAttemptID uint) (int, error) {
	var best int
	err := r.DB.Model(&model.Attempt{}).
		Select("COALESCE(MAX(score), 0)").
		Where("user_id = ? AND exercise_id = ? AND finished_at IS NOT NULL AND id <> ?", userID, exerciseID, excludeAttemptID).
		Scan(&best).Error
	return best, err
}

// UpsertAnswer stores the answer for (attempt, question), replacing any
// earlier submission.
func (r *AttemptRepository) UpsertAnswer(ans *model.AttemptAnswer) error {
	now := time.Now()
	if ans.CreatedAt.IsZero() {
		ans.CreatedAt = now
	}
	ans.UpdatedAt = now
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"answer", "correct", "points_awarded", "updated_at"}),
	}).Create(ans).Error
}

// Answers are returned in first-submission order.
func (r *AttemptRepository) Answers(attemptID uint) ([]model.AttemptAnswer, error) {
	var answers []model.AttemptAnswer
	err := r.DB.Where("attempt_id = ?", attemptID).Order("id ASC").Find(&answers).Error
	return answers, err
}

func (r *AttemptRepository) RunningCorrectness(attemptID uint) ([]bool, error) {
	var flags []bool
	err := r.DB.Model(&model.AttemptAnswer{}).
		Where("attempt_id = ?", attemptID).
		Order("id ASC").
		Pluck("correct", &flags).Error
	return flags, err
}

// CorrectnessRow is one answer in the user's chronological answer history.
type CorrectnessRow struct {
	AttemptID uint
	Correct   bool
}

// CorrectnessAfter lists answers of the user's finished attempts with an id
// above afterAttemptID, ordered by attempt and then by submission.
func (r *AttemptRepository) CorrectnessAfter(userID, afterAttemptID uint) ([]CorrectnessRow, error) {
	var rows []CorrectnessRow
	err := r.DB.Table("attempt_answers").
		Select("attempt_answers.attempt_id, attempt_answers.correct").
		Joins("JOIN attempts ON attempts.id = attempt_answers.attempt_id").
		Where("attempts.user_id = ? AND attempts.finished_at IS NOT NULL AND attempts.id > ?", userID, afterAttemptID).
		Order("attempts.id ASC, attempt_answers.id ASC").
		Scan(&rows).Error
	return rows, err
}

// CountFinishedUpTo counts the user's finished attempts with id <= maxID.
func (r *AttemptRepository) CountFinishedUpTo(userID, maxID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Attempt{}).
		Where("user_id = ? AND finished_at IS NOT NULL AND id <= ?", userID, maxID).
		Count(&count).Error
	return count, err
}
