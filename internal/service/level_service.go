package service

import (
	"context"
	"progression_backend/internal/repository"
	"progression_backend/internal/util"
	"progression_backend/pkg/logger"
	"progression_backend/pkg/monitoring"
	"progression_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LevelUpdate is the outcome of one XP grant.
type LevelUpdate struct {
	UserID         uint    `json:"userId"`
	Source         string  `json:"source"`
	XPAwarded      int     `json:"xpAwarded"`
	OldPoints      int     `json:"oldPoints"`
	NewPoints      int     `json:"newPoints"`
	OldLevel       int     `json:"oldLevel"`
	NewLevel       int     `json:"newLevel"`
	LeveledUp      bool    `json:"leveledUp"`
	LevelsGained   int     `json:"levelsGained"`
	XPForNextLevel int     `json:"xpForNextLevel"`
	LevelProgress  float64 `json:"levelProgress"`
}

// LevelInfo describes a user's standing.
type LevelInfo struct {
	UserID         uint    `json:"userId"`
	Points         int     `json:"points"`
	Level          int     `json:"level"`
	XPPerLevel     int     `json:"xpPerLevel"`
	XPForNextLevel int     `json:"xpForNextLevel"`
	LevelProgress  float64 `json:"levelProgress"`
}

// LevelService owns the XP and level columns of users. Nothing else
// writes them.
type LevelService struct {
	DB       *gorm.DB
	UserRepo *repository.UserRepository
	Tunables *Tunables
}

func NewLevelService(db *gorm.DB, userRepo *repository.UserRepository, tunables *Tunables) *LevelService {
	return &LevelService{DB: db, UserRepo: userRepo, Tunables: tunables}
}

// AwardXP adds amount to the user's points in its own transaction.
func (s *LevelService) AwardXP(ctx context.Context, userID uint, amount int, source string) (*LevelUpdate, error) {
	ctx, span := tracing.StartSpan(ctx, "level.AwardXP",
		attribute.Int("user.id", int(userID)), attribute.Int("xp.amount", amount), attribute.String("xp.source", source))
	var update *LevelUpdate
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		update, err = s.awardXPTx(tx, userID, amount, source)
		return err
	})
	tracing.End(span, err)
	if err != nil {
		return nil, err
	}
	recordXP(update)
	return update, nil
}

// awardXPTx applies the grant inside tx, holding the user row lock until tx
// ends. Callers report metrics after commit.
func (s *LevelService) awardXPTx(tx *gorm.DB, userID uint, amount int, source string) (*LevelUpdate, error) {
	users := repository.NewUserRepository(tx)
	user, err := users.LockByID(userID)
	if err != nil {
		return nil, err
	}
	lv := s.Tunables.Load().Leveling

	u := &LevelUpdate{
		UserID:    userID,
		Source:    source,
		XPAwarded: amount,
		OldPoints: user.Points,
		OldLevel:  user.Level,
	}
	u.NewPoints = user.Points + amount
	if u.NewPoints < 0 {
		u.NewPoints = 0
	}
	u.NewLevel = lv.Level(u.NewPoints)
	u.LeveledUp = u.NewLevel > u.OldLevel
	if u.LeveledUp {
		u.LevelsGained = u.NewLevel - u.OldLevel
	}
	u.XPForNextLevel = lv.XPForNextLevel(u.NewPoints)
	u.LevelProgress = lv.LevelProgress(u.NewPoints)

	if u.NewPoints != u.OldPoints || u.NewLevel != u.OldLevel {
		if err := users.UpdateProgression(userID, u.NewPoints, u.NewLevel); err != nil {
			return nil, err
		}
	}

	logger.Log.Info("XP awarded",
		zap.Uint("userID", userID),
		zap.String("source", source),
		zap.Int("amount", amount),
		zap.Int("oldPoints", u.OldPoints),
		zap.Int("newPoints", u.NewPoints),
		zap.Int("oldLevel", u.OldLevel),
		zap.Int("newLevel", u.NewLevel))
	return u, nil
}

func recordXP(u *LevelUpdate) {
	if u == nil || u.XPAwarded <= 0 {
		return
	}
	monitoring.XPAwarded.WithLabelValues(u.Source).Add(float64(u.XPAwarded))
	if u.LeveledUp {
		monitoring.LevelUps.Inc()
	}
}

func (s *LevelService) GetUserLevelInfo(_ context.Context, userID uint) (*LevelInfo, error) {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	lv := s.Tunables.Load().Leveling
	return &LevelInfo{
		UserID:         user.ID,
		Points:         user.Points,
		Level:          lv.Level(user.Points),
		XPPerLevel:     lv.XPPerLevel,
		XPForNextLevel: lv.XPForNextLevel(user.Points),
		LevelProgress:  lv.LevelProgress(user.Points),
	}, nil
}

// RecalculateLevel recomputes the stored level from stored points. Running
// it twice changes nothing the second time.
func (s *LevelService) RecalculateLevel(ctx context.Context, actor Actor, userID uint) (*LevelUpdate, error) {
	if !actor.IsAdmin() && actor.UserID != userID {
		return nil, util.ErrPermissionDenied
	}
	var update *LevelUpdate
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		update, err = s.awardXPTx(tx, userID, 0, util.XPSourceRecalculate)
		return err
	})
	if err != nil {
		return nil, err
	}
	if update.NewLevel != update.OldLevel {
		logger.Log.Warn("Stored level corrected",
			zap.Uint("userID", userID),
			zap.Int("oldLevel", update.OldLevel),
			zap.Int("newLevel", update.NewLevel),
			zap.String("requestID", actor.RequestID))
	}
	return update, nil
}
