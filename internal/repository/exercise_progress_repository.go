package repository

import (
	"errors"
	"progression_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ExerciseProgressRepository struct {
	DB *gorm.DB
}

func NewExerciseProgressRepository(db *gorm.DB) *ExerciseProgressRepository {
	return &ExerciseProgressRepository{DB: db}
}

// LockOrNew reads the (user, exercise) aggregate FOR UPDATE, or returns an
// unsaved zero row when the user has never finished the exercise.
func (r *ExerciseProgressRepository) LockOrNew(userID, exerciseID uint) (*model.ExerciseProgress, error) {
	var p model.ExerciseProgress
	err := r.DB.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND exercise_id = ?", userID, exerciseID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.ExerciseProgress{UserID: userID, ExerciseID: exerciseID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ExerciseProgressRepository) Save(p *model.ExerciseProgress) error {
	return r.DB.Save(p).Error
}

func (r *ExerciseProgressRepository) Find(userID, exerciseID uint) (*model.ExerciseProgress, error) {
	var p model.ExerciseProgress
	err := r.DB.Where("user_id = ? AND exercise_id = ?", userID, exerciseID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

