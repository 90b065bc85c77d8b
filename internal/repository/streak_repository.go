package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"progression_backend/internal/scoring"
	"progression_backend/pkg/logger"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// streakState is the cached fold over every answer up to LastAttemptID.
type streakState struct {
	LastAttemptID uint           `json:"lastAttemptId"`
	FinishedCount int64          `json:"finishedCount"`
	Streak        scoring.Streak `json:"streak"`
}

// StreakRepository computes the user's longest run of correct answers. With
// a redis client it folds only answers of attempts finished since the last
// call; without one it folds the whole history.
type StreakRepository struct {
	DB    *gorm.DB
	Redis *redis.Client
	TTL   time.Duration
}

func NewStreakRepository(db *gorm.DB, rdb *redis.Client, ttl time.Duration) *StreakRepository {
	return &StreakRepository{DB: db, Redis: rdb, TTL: ttl}
}

func streakKey(userID uint) string {
	return fmt.Sprintf("progression:streak:%d", userID)
}

func (r *StreakRepository) Longest(ctx context.Context, userID uint) (int, error) {
	attempts := NewAttemptRepository(r.DB)

	state, cached := r.load(ctx, userID)
	if cached {
		// An older attempt finishing late would be skipped by the
		// incremental fold; start over when the count moved.
		count, err := attempts.CountFinishedUpTo(userID, state.LastAttemptID)
		if err != nil {
			return 0, err
		}
		if count != state.FinishedCount {
			state, cached = streakState{}, false
		}
	}

	rows, err := attempts.CorrectnessAfter(userID, state.LastAttemptID)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 && cached {
		return state.Streak.Max, nil
	}
	for _, row := range rows {
		state.Streak = state.Streak.Push(row.Correct)
		if row.AttemptID > state.LastAttemptID {
			state.LastAttemptID = row.AttemptID
		}
	}

	if r.Redis != nil {
		count, err := attempts.CountFinishedUpTo(userID, state.LastAttemptID)
		if err != nil {
			return 0, err
		}
		state.FinishedCount = count
		r.store(ctx, userID, state)
	}
	return state.Streak.Max, nil
}

func (r *StreakRepository) load(ctx context.Context, userID uint) (streakState, bool) {
	var state streakState
	if r.Redis == nil {
		return state, false
	}
	raw, err := r.Redis.Get(ctx, streakKey(userID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Log.Warn("Streak cache read failed", zap.Uint("userID", userID), zap.Error(err))
		}
		return state, false
	}
	if err := json.Unmarshal(raw, &state); err != nil {
		return streakState{}, false
	}
	return state, true
}

func (r *StreakRepository) store(ctx context.Context, userID uint, state streakState) {
	raw, err := json.Marshal(state)
	if err != nil {
		return
	}
	if err := r.Redis.Set(ctx, streakKey(userID), raw, r.TTL).Err(); err != nil {
		logger.Log.Warn("Streak cache write failed", zap.Uint("userID", userID), zap.Error(err))
	}
}
