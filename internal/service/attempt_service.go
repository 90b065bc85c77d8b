package service

import (
	"context"
	"encoding/json"
	"progression_backend/internal/model"
	"progression_backend/internal/repository"
	"progression_backend/internal/scoring"
	"progression_backend/internal/util"
	"progression_backend/pkg/logger"
	"progression_backend/pkg/monitoring"
	"progression_backend/pkg/tracing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BadgeChecker runs a badge evaluation pass for a user.
type BadgeChecker interface {
	CheckAndAwardBadges(ctx context.Context, actor Actor) ([]AwardedBadge, error)
}

type SubmitAnswerRequest struct {
	QuestionID uint            `json:"questionId" binding:"required"`
	Answer     json.RawMessage `json:"answer" binding:"required"`
}

type SubmitResult struct {
	QuestionID         uint                    `json:"questionId"`
	Correct            bool                    `json:"correct"`
	PointsAwarded      int                     `json:"pointsAwarded"`
	RunningCorrectness []bool                  `json:"runningCorrectness"`
	Breakdown          *scoring.OrderingResult `json:"breakdown,omitempty"`
}

type FinishResult struct {
	AttemptID uint `json:"attemptId"`
	scoring.AttemptTotals
	Score      int              `json:"score"`
	Reward     model.RewardTier `json:"reward"`
	Percentage float64          `json:"percentage"`
	scoring.XPGain
	NewLevel  int            `json:"newLevel"`
	LeveledUp bool           `json:"leveledUp"`
	Level     *LevelUpdate   `json:"level"`
	NewBadges []AwardedBadge `json:"newBadges"`
}

type AttemptService struct {
	DB           *gorm.DB
	ExerciseRepo *repository.ExerciseRepository
	AttemptRepo  *repository.AttemptRepository
	Levels       *LevelService
	Badges       BadgeChecker
	Tunables     *Tunables
}

func NewAttemptService(db *gorm.DB, exerciseRepo *repository.ExerciseRepository, attemptRepo *repository.AttemptRepository,
	levels *LevelService, badges BadgeChecker, tunables *Tunables) *AttemptService {
	return &AttemptService{
		DB:           db,
		ExerciseRepo: exerciseRepo,
		AttemptRepo:  attemptRepo,
		Levels:       levels,
		Badges:       badges,
		Tunables:     tunables,
	}
}

func (s *AttemptService) StartAttempt(ctx context.Context, actor Actor, exerciseID uint) (*model.Attempt, error) {
	_, span := tracing.StartSpan(ctx, "attempt.Start",
		attribute.Int("user.id", int(actor.UserID)), attribute.Int("exercise.id", int(exerciseID)))
	if _, err := s.ExerciseRepo.FindByID(exerciseID); err != nil {
		tracing.End(span, err)
		return nil, err
	}
	attempt := &model.Attempt{
		UserID:     actor.UserID,
		ExerciseID: exerciseID,
		StartedAt:  time.Now(),
	}
	err := s.AttemptRepo.Create(attempt)
	tracing.End(span, err)
	if err != nil {
		return nil, err
	}
	return attempt, nil
}

// SubmitAnswer grades one answer and stores it, replacing any earlier answer
// to the same question in the attempt.
func (s *AttemptService) SubmitAnswer(ctx context.Context, actor Actor, attemptID uint, req SubmitAnswerRequest) (*SubmitResult, error) {
	ctx, span := tracing.StartSpan(ctx, "attempt.SubmitAnswer",
		attribute.Int("attempt.id", int(attemptID)), attribute.Int("question.id", int(req.QuestionID)))
	if !json.Valid(req.Answer) {
		tracing.End(span, util.ErrInvalidAnswer)
		return nil, util.ErrInvalidAnswer
	}
	settings := s.Tunables.Load()

	var result *SubmitResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		attempts := repository.NewAttemptRepository(tx)
		exercises := repository.NewExerciseRepository(tx)

		attempt, err := attempts.LockOwned(attemptID, actor.UserID)
		if err != nil {
			return err
		}
		if attempt.Finished() {
			return util.ErrAttemptFinished
		}
		question, err := exercises.FindQuestion(attempt.ExerciseID, req.QuestionID)
		if err != nil {
			return err
		}
		gradable, err := gradableQuestion(exercises, question, settings)
		if err != nil {
			return err
		}

		outcome := scoring.Grade(gradable, scoring.ParseAnswer(req.Answer))
		answer := &model.AttemptAnswer{
			AttemptID:     attempt.ID,
			QuestionID:    question.ID,
			Answer:        datatypes.JSON(req.Answer),
			Correct:       outcome.Correct,
			PointsAwarded: outcome.PointsAwarded,
		}
		if err := attempts.UpsertAnswer(answer); err != nil {
			return err
		}
		running, err := attempts.RunningCorrectness(attempt.ID)
		if err != nil {
			return err
		}
		result = &SubmitResult{
			QuestionID:         question.ID,
			Correct:            outcome.Correct,
			PointsAwarded:      outcome.PointsAwarded,
			RunningCorrectness: running,
			Breakdown:          outcome.Ordering,
		}
		return nil
	})
	tracing.End(span, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// gradableQuestion loads the type-specific part of a catalog question.
func gradableQuestion(exercises *repository.ExerciseRepository, q *model.Question, settings ScoringSettings) (scoring.Question, error) {
	points := q.Points
	if points <= 0 {
		points = settings.DefaultQuestionPoints
	}
	gq := scoring.Question{ID: q.ID, Points: points}

	switch q.Type.Kind() {
	case model.QuestionChoice:
		choices, err := exercises.Choices(q.ID)
		if err != nil {
			return gq, err
		}
		body := scoring.ChoiceBody{Correct: make(map[uint]bool, len(choices))}
		for _, c := range choices {
			body.Correct[c.ID] = c.IsCorrect
		}
		gq.Body = body
	case model.QuestionOrdering:
		items, err := exercises.OrderingItems(q.ID)
		if err != nil {
			return gq, err
		}
		canonical := make([]uint, 0, len(items))
		for _, it := range items {
			canonical = append(canonical, it.ID)
		}
		gq.Body = scoring.OrderingBody{
			Canonical: canonical,
			Params:    scoring.ParseOrderingParams([]byte(q.ScorerParams), settings.Ordering),
		}
	case model.QuestionMatching:
		key, err := exercises.MatchingKey(q.ID)
		if err != nil {
			return gq, err
		}
		gq.Body = scoring.MatchingBody{Key: key}
	}
	return gq, nil
}

// FinishAttempt closes the attempt, credits the XP above the user's previous
// best on the exercise and then runs a badge pass. The user row stays locked
// from reading the previous best until the XP is written, so concurrent
// finishes cannot both credit against the same best.
func (s *AttemptService) FinishAttempt(ctx context.Context, actor Actor, attemptID uint, elapsedSeconds int) (*FinishResult, error) {
	ctx, span := tracing.StartSpan(ctx, "attempt.Finish",
		attribute.Int("attempt.id", int(attemptID)), attribute.Int("attempt.elapsed", elapsedSeconds))
	if elapsedSeconds < 0 {
		elapsedSeconds = 0
	}
	settings := s.Tunables.Load()

	result := &FinishResult{AttemptID: attemptID}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := repository.NewUserRepository(tx)
		attempts := repository.NewAttemptRepository(tx)
		exercises := repository.NewExerciseRepository(tx)
		progress := repository.NewExerciseProgressRepository(tx)

		if _, err := users.LockByID(actor.UserID); err != nil {
			return err
		}
		attempt, err := attempts.LockOwned(attemptID, actor.UserID)
		if err != nil {
			return err
		}
		if attempt.Finished() {
			return util.ErrAttemptFinished
		}
		exercise, err := exercises.FindByID(attempt.ExerciseID)
		if err != nil {
			return err
		}
		timeLimit := exercise.TimeLimitSeconds
		if timeLimit <= 0 {
			timeLimit = settings.DefaultTimeLimitSeconds
		}

		totals, err := attemptTotals(attempts, exercises, attempt, settings.DefaultQuestionPoints)
		if err != nil {
			return err
		}
		result.AttemptTotals = totals
		percentage := totals.Percentage()
		result.Percentage = util.Round1(percentage)
		result.Reward = scoring.ResolveReward(percentage, elapsedSeconds, timeLimit)

		prevBest, err := attempts.PreviousBest(actor.UserID, attempt.ExerciseID, attempt.ID)
		if err != nil {
			return err
		}
		result.XPGain = scoring.ComputeXP(totals.TotalAwarded, result.Reward, prevBest)
		result.Score = result.FinalXP

		now := time.Now()
		attempt.FinishedAt = &now
		attempt.Score = result.FinalXP
		attempt.Reward = result.Reward
		attempt.ElapsedSeconds = elapsedSeconds
		if err := attempts.MarkFinished(attempt); err != nil {
			return err
		}

		p, err := progress.LockOrNew(actor.UserID, attempt.ExerciseID)
		if err != nil {
			return err
		}
		p.Record(attempt.Score, attempt.Reward, now)
		if err := progress.Save(p); err != nil {
			return err
		}

		result.Level, err = s.Levels.awardXPTx(tx, actor.UserID, result.IncrementalXP, util.XPSourceAttempt)
		if err != nil {
			return err
		}
		result.NewLevel = result.Level.NewLevel
		result.LeveledUp = result.Level.LeveledUp
		return nil
	})
	tracing.End(span, err)
	if err != nil {
		return nil, err
	}

	monitoring.AttemptsFinished.WithLabelValues(string(result.Reward)).Inc()
	recordXP(result.Level)
	logger.Log.Info("Attempt finished",
		zap.Uint("userID", actor.UserID),
		zap.Uint("attemptID", attemptID),
		zap.String("reward", string(result.Reward)),
		zap.Int("finalXP", result.FinalXP),
		zap.Int("xpEarned", result.IncrementalXP),
		zap.String("requestID", actor.RequestID))

	// The attempt is committed; badge failures are logged only.
	result.NewBadges = []AwardedBadge{}
	if s.Badges != nil {
		badges, err := s.Badges.CheckAndAwardBadges(ctx, actor)
		if err != nil {
			logger.Log.Error("Badge check after attempt failed",
				zap.Uint("userID", actor.UserID),
				zap.Uint("attemptID", attemptID),
				zap.Error(err))
		}
		if badges != nil {
			result.NewBadges = badges
		}
	}
	return result, nil
}

// attemptTotals sums the stored answers against the exercise's questions.
// Answers to questions no longer in the exercise are ignored.
func attemptTotals(attempts *repository.AttemptRepository, exercises *repository.ExerciseRepository, attempt *model.Attempt, defaultPoints int) (scoring.AttemptTotals, error) {
	var totals scoring.AttemptTotals
	points, err := exercises.QuestionPoints(attempt.ExerciseID, defaultPoints)
	if err != nil {
		return totals, err
	}
	for _, p := range points {
		totals.TotalPossible += p
	}
	totals.TotalQuestions = len(points)

	answers, err := attempts.Answers(attempt.ID)
	if err != nil {
		return totals, err
	}
	for _, a := range answers {
		if _, ok := points[a.QuestionID]; !ok {
			continue
		}
		totals.TotalAwarded += a.PointsAwarded
		if a.Correct {
			totals.CorrectCount++
		}
	}
	return totals, nil
}
