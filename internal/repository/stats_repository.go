package repository

import (
	"progression_backend/internal/model"

	"gorm.io/gorm"
)

// UserStats is everything the badge predicates look at, aggregated once per
// evaluation pass.
type UserStats struct {
	ExercisesCompleted int
	// BestRewards counts exercises by the best reward reached on them.
	BestRewards      map[model.RewardTier]int
	TimeSpentSeconds int
	FirstTryEmeralds int
	NightCompletions int
	SpeedCompletions int
	LongestStreak    int
	// TypeMastery and Difficulty are keyed by the requested parameter.
	TypeMastery map[string]Coverage
	Difficulty  map[string]Coverage
}

// Coverage compares how many exercises of a group qualify against the
// group's size.
type Coverage struct {
	Total     int
	Qualified int
}

// Complete is false for empty groups.
func (c Coverage) Complete() bool {
	return c.Total > 0 && c.Qualified >= c.Total
}

// ExercisesAtLeast counts exercises whose best reward is tier or better.
func (s UserStats) ExercisesAtLeast(tier model.RewardTier) int {
	n := 0
	for r, count := range s.BestRewards {
		if r.AtLeast(tier) {
			n += count
		}
	}
	return n
}

// StatsQuery names the parameterised aggregates a pass needs.
type StatsQuery struct {
	QuestionTypes []string
	Difficulties  []string
}

const (
	nightEndHour    = 5
	speedMaxSeconds = 30
)

type StatsRepository struct {
	DB *gorm.DB
}

func NewStatsRepository(db *gorm.DB) *StatsRepository {
	return &StatsRepository{DB: db}
}

func (r *StatsRepository) finished(userID uint) *gorm.DB {
	return r.DB.Model(&model.Attempt{}).Where("user_id = ? AND finished_at IS NOT NULL", userID)
}

// Load computes the aggregates for userID. LongestStreak is left to the
// streak repository.
func (r *StatsRepository) Load(userID uint, q StatsQuery) (*UserStats, error) {
	s := &UserStats{
		BestRewards: make(map[model.RewardTier]int),
		TypeMastery: make(map[string]Coverage, len(q.QuestionTypes)),
		Difficulty:  make(map[string]Coverage, len(q.Difficulties)),
	}

	var completed int64
	if err := r.finished(userID).Distinct("exercise_id").Count(&completed).Error; err != nil {
		return nil, err
	}
	s.ExercisesCompleted = int(completed)

	var rewardRows []struct {
		BestReward model.RewardTier
		Total      int
	}
	err := r.DB.Model(&model.ExerciseProgress{}).
		Select("best_reward, COUNT(*) AS total").
		Where("user_id = ?", userID).
		Group("best_reward").
		Scan(&rewardRows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rewardRows {
		s.BestRewards[row.BestReward] = row.Total
	}

	if err := r.finished(userID).Select("COALESCE(SUM(elapsed_seconds), 0)").Scan(&s.TimeSpentSeconds).Error; err != nil {
		return nil, err
	}

	var firstTry int64
	err = r.DB.Table("attempts AS a").
		Where("a.user_id = ? AND a.finished_at IS NOT NULL AND a.reward = ?", userID, model.RewardEmerald).
		Where(`NOT EXISTS (
			SELECT 1 FROM attempts b
			WHERE b.user_id = a.user_id AND b.exercise_id = a.exercise_id AND b.finished_at IS NOT NULL
			AND (b.finished_at < a.finished_at OR (b.finished_at = a.finished_at AND b.id < a.id)))`).
		Distinct("a.exercise_id").
		Count(&firstTry).Error
	if err != nil {
		return nil, err
	}
	s.FirstTryEmeralds = int(firstTry)

	var night int64
	if err := r.finished(userID).Where(hourExpr(r.DB, "finished_at")+" < ?", nightEndHour).Count(&night).Error; err != nil {
		return nil, err
	}
	s.NightCompletions = int(night)

	var speed int64
	err = r.finished(userID).
		Where("elapsed_seconds <= ? AND reward IN ?", speedMaxSeconds, []model.RewardTier{model.RewardDiamond, model.RewardEmerald}).
		Count(&speed).Error
	if err != nil {
		return nil, err
	}
	s.SpeedCompletions = int(speed)

	for _, t := range q.QuestionTypes {
		c, err := r.typeCoverage(userID, t)
		if err != nil {
			return nil, err
		}
		s.TypeMastery[t] = c
	}
	for _, d := range q.Difficulties {
		c, err := r.difficultyCoverage(userID, d)
		if err != nil {
			return nil, err
		}
		s.Difficulty[d] = c
	}
	return s, nil
}

// typeCoverage counts exercises containing a question of the type and how
// many of them the user finished with gold or better.
func (r *StatsRepository) typeCoverage(userID uint, questionType string) (Coverage, error) {
	types := matchingTypes(model.QuestionType(questionType))
	withType := r.DB.Model(&model.Question{}).Select("exercise_id").Where("type IN ?", types)

	var total int64
	if err := r.DB.Model(&model.Exercise{}).Where("id IN (?)", withType).Count(&total).Error; err != nil {
		return Coverage{}, err
	}

	var qualified int64
	err := r.DB.Model(&model.ExerciseProgress{}).
		Where("user_id = ? AND best_reward IN ? AND exercise_id IN (?)", userID, tiersFrom(model.RewardGold), withType).
		Where("exercise_id IN (?)", r.DB.Model(&model.Exercise{}).Select("id")).
		Count(&qualified).Error
	if err != nil {
		return Coverage{}, err
	}
	return Coverage{Total: int(total), Qualified: int(qualified)}, nil
}

func (r *StatsRepository) difficultyCoverage(userID uint, difficulty string) (Coverage, error) {
	ofDifficulty := r.DB.Model(&model.Exercise{}).Select("id").Where("difficulty = ?", difficulty)

	var total int64
	if err := r.DB.Model(&model.Exercise{}).Where("difficulty = ?", difficulty).Count(&total).Error; err != nil {
		return Coverage{}, err
	}

	var qualified int64
	err := r.DB.Model(&model.ExerciseProgress{}).
		Where("user_id = ? AND completed = ? AND exercise_id IN (?)", userID, true, ofDifficulty).
		Count(&qualified).Error
	if err != nil {
		return Coverage{}, err
	}
	return Coverage{Total: int(total), Qualified: int(qualified)}, nil
}

// matchingTypes widens "choice" to the legacy choice-style types.
func matchingTypes(t model.QuestionType) []model.QuestionType {
	if t == model.QuestionChoice {
		return []model.QuestionType{model.QuestionChoice, model.QuestionMCQ, model.QuestionTrueFalse, model.QuestionFillBlank}
	}
	return []model.QuestionType{t}
}

func tiersFrom(min model.RewardTier) []model.RewardTier {
	var tiers []model.RewardTier
	for _, t := range model.RewardTiers {
		if t.AtLeast(min) {
			tiers = append(tiers, t)
		}
	}
	return tiers
}

// hourExpr extracts the hour of day from a datetime column.
func hourExpr(db *gorm.DB, column string) string {
	if db.Dialector.Name() == "sqlite" {
		return "CAST(strftime('%H', " + column + ") AS INTEGER)"
	}
	return "HOUR(" + column + ")"
}
