package repository

import (
	"progression_backend/internal/model"
	"progression_backend/internal/util"

	"gorm.io/gorm"
)

// ExerciseRepository reads the question catalog. The engine never writes it.
type ExerciseRepository struct {
	DB *gorm.DB
}

func NewExerciseRepository(db *gorm.DB) *ExerciseRepository {
	return &ExerciseRepository{DB: db}
}

func (r *ExerciseRepository) FindByID(id uint) (*model.Exercise, error) {
	var ex model.Exercise
	if err := r.DB.First(&ex, id).Error; err != nil {
		return nil, notFound(err, util.ErrExerciseNotFound)
	}
	return &ex, nil
}

// FindQuestion returns the question only if it belongs to the exercise.
func (r *ExerciseRepository) FindQuestion(exerciseID, questionID uint) (*model.Question, error) {
	var q model.Question
	err := r.DB.Where("id = ? AND exercise_id = ?", questionID, exerciseID).First(&q).Error
	if err != nil {
		return nil, notFound(err, util.ErrQuestionNotFound)
	}
	return &q, nil
}

func (r *ExerciseRepository) Choices(questionID uint) ([]model.Choice, error) {
	var choices []model.Choice
	err := r.DB.Where("question_id = ?", questionID).
		Order("position ASC, id ASC").
		Find(&choices).Error
	return choices, err
}

// OrderingItems returns the items in canonical order.
func (r *ExerciseRepository) OrderingItems(questionID uint) ([]model.OrderingItem, error) {
	var items []model.OrderingItem
	err := r.DB.Where("question_id = ?", questionID).
		Order("correct_position ASC, id ASC").
		Find(&items).Error
	return items, err
}

// MatchingKey maps each left item of a matching question to its right
// partner. Left items without a partner are skipped.
func (r *ExerciseRepository) MatchingKey(questionID uint) (map[uint]uint, error) {
	var lefts []model.MatchingItem
	err := r.DB.Where("question_id = ? AND side = ?", questionID, model.MatchingLeft).
		Order("id ASC").
		Find(&lefts).Error
	if err != nil {
		return nil, err
	}
	key := make(map[uint]uint, len(lefts))
	for _, it := range lefts {
		if it.MatchID != nil {
			key[it.ID] = *it.MatchID
		}
	}
	return key, nil
}

// QuestionPoints maps question id to its point value, substituting
// defaultPoints for non-positive values.
func (r *ExerciseRepository) QuestionPoints(exerciseID uint, defaultPoints int) (map[uint]int, error) {
	var rows []struct {
		ID     uint
		Points int
	}
	err := r.DB.Model(&model.Question{}).
		Select("id, points").
		Where("exercise_id = ?", exerciseID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	points := make(map[uint]int, len(rows))
	for _, row := range rows {
		p := row.Points
		if p <= 0 {
			p = defaultPoints
		}
		points[row.ID] = p
	}
	return points, nil
}
