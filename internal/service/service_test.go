package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"progression_backend/internal/config"
	"progression_backend/internal/model"
	"progression_backend/internal/repository"
	"progression_backend/internal/testutil"
	"progression_backend/internal/util"

	"gorm.io/gorm"
)

type engine struct {
	db       *gorm.DB
	levels   *LevelService
	badges   *BadgeService
	attempts *AttemptService
}

func newEngine(t *testing.T) *engine {
	t.Helper()
	return newEngineOn(t, testutil.NewDB(t), config.DefaultScoring())
}

func newEngineOn(t *testing.T, db *gorm.DB, cfg config.ScoringConfig) *engine {
	t.Helper()
	tunables := NewTunables(cfg)
	levels := NewLevelService(db, repository.NewUserRepository(db), tunables)
	badges := NewBadgeService(db,
		repository.NewBadgeRepository(db),
		repository.NewStatsRepository(db),
		repository.NewStreakRepository(db, nil, time.Minute),
		levels)
	attempts := NewAttemptService(db,
		repository.NewExerciseRepository(db),
		repository.NewAttemptRepository(db),
		levels, badges, tunables)
	return &engine{db: db, levels: levels, badges: badges, attempts: attempts}
}

func actorFor(u *model.User) Actor {
	return NewActor(u.ID, u.Role, "")
}

func choiceAnswer(id uint) SubmitAnswerRequest {
	return SubmitAnswerRequest{Answer: json.RawMessage(fmt.Sprintf(`{"choice_id":%d}`, id))}
}

// play starts an attempt, answers every question with the chosen index
// (0 = correct, 1 = wrong) and finishes it.
func (e *engine) play(t *testing.T, actor Actor, ex *model.Exercise, questions []model.Question, choices [][2]uint, pick []int, elapsed int) *FinishResult {
	t.Helper()
	ctx := context.Background()
	attempt, err := e.attempts.StartAttempt(ctx, actor, ex.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	for i, q := range questions {
		req := choiceAnswer(choices[i][pick[i]])
		req.QuestionID = q.ID
		if _, err := e.attempts.SubmitAnswer(ctx, actor, attempt.ID, req); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	res, err := e.attempts.FinishAttempt(ctx, actor, attempt.ID, elapsed)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	return res
}

func TestFinishPerfectFastAttemptIsEmerald(t *testing.T) {
	e := newEngine(t)
	user := testutil.CreateUser(t, e.db, "a@example.com")
	ex, questions, choices := testutil.ChoiceExercise(t, e.db, 2, 10, 60)

	res := e.play(t, actorFor(user), ex, questions, choices, []int{0, 0}, 45)

	if res.Percentage != 100 {
		t.Errorf("percentage = %v, want 100", res.Percentage)
	}
	if res.Reward != model.RewardEmerald {
		t.Errorf("reward = %s, want emerald", res.Reward)
	}
	if res.BaseXP != 20 || res.BonusXP != 30 || res.FinalXP != 50 {
		t.Errorf("xp = %d/%d/%d, want 20/30/50", res.BaseXP, res.BonusXP, res.FinalXP)
	}
	if res.IncrementalXP != 50 || res.MaxedOut {
		t.Errorf("incremental = %d maxedOut = %v", res.IncrementalXP, res.MaxedOut)
	}
	if res.CorrectCount != 2 || res.TotalQuestions != 2 || res.TotalPossible != 20 {
		t.Errorf("totals = %+v", res.AttemptTotals)
	}

	var stored model.User
	e.db.First(&stored, user.ID)
	if stored.Points != 50 || stored.Level != 1 {
		t.Errorf("user points/level = %d/%d, want 50/1", stored.Points, stored.Level)
	}

	var attempt model.Attempt
	e.db.First(&attempt, res.AttemptID)
	if attempt.Score != 50 || attempt.Reward != model.RewardEmerald || attempt.ElapsedSeconds != 45 || attempt.FinishedAt == nil {
		t.Errorf("stored attempt = %+v", attempt)
	}
}

func TestFinishSlowPerfectAttemptIsDiamond(t *testing.T) {
	e := newEngine(t)
	user := testutil.CreateUser(t, e.db, "a@example.com")
	ex, questions, choices := testutil.ChoiceExercise(t, e.db, 2, 10, 60)

	res := e.play(t, actorFor(user), ex, questions, choices, []int{0, 0}, 61)
	if res.Reward != model.RewardDiamond {
		t.Errorf("reward = %s, want diamond", res.Reward)
	}
	if res.FinalXP != 40 {
		t.Errorf("final xp = %d, want 40", res.FinalXP)
	}
}

func TestIncrementalXPAgainstPreviousBest(t *testing.T) {
	e := newEngine(t)
	user := testutil.CreateUser(t, e.db, "a@example.com")
	actor := actorFor(user)
	ex, questions, choices := testutil.ChoiceExercise(t, e.db, 2, 10, 60)

	first := e.play(t, actor, ex, questions, choices, []int{0, 0}, 45)
	if first.IncrementalXP != 50 {
		t.Fatalf("first incremental = %d, want 50", first.IncrementalXP)
	}

	tie := e.play(t, actor, ex, questions, choices, []int{0, 0}, 30)
	if tie.IncrementalXP != 0 || !tie.MaxedOut || tie.PreviousBest != 50 {
		t.Errorf("tie: incremental=%d maxedOut=%v prev=%d", tie.IncrementalXP, tie.MaxedOut, tie.PreviousBest)
	}

	worse := e.play(t, actor, ex, questions, choices, []int{0, 1}, 30)
	if worse.IncrementalXP != 0 || worse.MaxedOut {
		t.Errorf("worse: incremental=%d maxedOut=%v", worse.IncrementalXP, worse.MaxedOut)
	}
	if worse.Reward != model.RewardCoal || worse.FinalXP != 10 {
		t.Errorf("worse: reward=%s final=%d, want coal/10", worse.Reward, worse.FinalXP)
	}

	var stored model.User
	e.db.First(&stored, user.ID)
	if stored.Points != 50 {
		t.Errorf("points = %d, want 50 (no double credit)", stored.Points)
	}

	progress, err := repository.NewExerciseProgressRepository(e.db).Find(user.ID, ex.ID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if progress.AttemptsCount != 3 || progress.BestScore != 50 || progress.BestReward != model.RewardEmerald || progress.TotalScore != 110 {
		t.Errorf("progress = %+v", progress)
	}
}

func TestFinishTwiceIsRejected(t *testing.T) {
	e := newEngine(t)
	user := testutil.CreateUser(t, e.db, "a@example.com")
	actor := actorFor(user)
	ex, _, _ := testutil.ChoiceExercise(t, e.db, 1, 10, 60)
	ctx := context.Background()

	attempt, err := e.attempts.StartAttempt(ctx, actor, ex.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := e.attempts.FinishAttempt(ctx, actor, attempt.ID, 10); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if _, err := e.attempts.FinishAttempt(ctx, actor, attempt.ID, 10); !errors.Is(err, util.ErrAttemptFinished) {
		t.Errorf("second finish: err = %v, want ErrAttemptFinished", err)
	}
	req := SubmitAnswerRequest{QuestionID: 1, Answer: json.RawMessage(`{"choice_id":1}`)}
	if _, err := e.attempts.SubmitAnswer(ctx, actor, attempt.ID, req); !errors.Is(err, util.ErrAttemptFinished) {
		t.Errorf("submit after finish: err = %v, want ErrAttemptFinished", err)
	}
}

func TestNotFoundConditions(t *testing.T) {
	e := newEngine(t)
	owner := testutil.CreateUser(t, e.db, "owner@example.com")
	other := testutil.CreateUser(t, e.db, "other@example.com")
	ex, questions, _ := testutil.ChoiceExercise(t, e.db, 1, 10, 60)
	_, otherQuestions, _ := testutil.ChoiceExercise(t, e.db, 1, 10, 60)
	ctx := context.Background()

	if _, err := e.attempts.StartAttempt(ctx, actorFor(owner), 9999); !errors.Is(err, util.ErrExerciseNotFound) {
		t.Errorf("start on missing exercise: err = %v", err)
	}

	attempt, err := e.attempts.StartAttempt(ctx, actorFor(owner), ex.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	req := SubmitAnswerRequest{QuestionID: questions[0].ID, Answer: json.RawMessage(`{"choice_id":1}`)}
	if _, err := e.attempts.SubmitAnswer(ctx, actorFor(other), attempt.ID, req); !errors.Is(err, util.ErrAttemptNotFound) {
		t.Errorf("submit on someone else's attempt: err = %v", err)
	}
	req.QuestionID = otherQuestions[0].ID
	if _, err := e.attempts.SubmitAnswer(ctx, actorFor(owner), attempt.ID, req); !errors.Is(err, util.ErrQuestionNotFound) {
		t.Errorf("submit foreign question: err = %v", err)
	}
	req.Answer = json.RawMessage(`{not json`)
	if _, err := e.attempts.SubmitAnswer(ctx, actorFor(owner), attempt.ID, req); !errors.Is(err, util.ErrInvalidAnswer) {
		t.Errorf("malformed payload: err = %v", err)
	}
	if _, err := e.attempts.FinishAttempt(ctx, actorFor(other), attempt.ID, 10); !errors.Is(err, util.ErrAttemptNotFound) {
		t.Errorf("finish someone else's attempt: err = %v", err)
	}

	var stored model.Attempt
	e.db.First(&stored, attempt.ID)
	if stored.FinishedAt != nil {
		t.Error("rejected finish mutated the attempt")
	}
}

func TestSubmitOrderingReturnsBreakdown(t *testing.T) {
	e := newEngine(t)
	user := testutil.CreateUser(t, e.db, "a@example.com")
	actor := actorFor(user)
	ex := &model.Exercise{Title: "order", Difficulty: "easy", TimeLimitSeconds: 60}
	e.db.Create(ex)
	q, ids := testutil.OrderingQuestion(t, e.db, ex.ID, 10, "a", "b", "c", "d")
	ctx := context.Background()

	attempt, err := e.attempts.StartAttempt(ctx, actor, ex.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	reversed, _ := json.Marshal(map[string][]uint{"order": {ids[3], ids[2], ids[1], ids[0]}})
	res, err := e.attempts.SubmitAnswer(ctx, actor, attempt.ID, SubmitAnswerRequest{QuestionID: q.ID, Answer: reversed})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Correct || res.PointsAwarded != 0 || res.Breakdown == nil || res.Breakdown.Breakdown.Inversions != 6 {
		t.Errorf("reversed submission = %+v", res)
	}

	exact, _ := json.Marshal(map[string][]uint{"order": ids})
	res, err = e.attempts.SubmitAnswer(ctx, actor, attempt.ID, SubmitAnswerRequest{QuestionID: q.ID, Answer: exact})
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if !res.Correct || res.PointsAwarded != 10 {
		t.Errorf("exact submission = %+v", res)
	}
	if len(res.RunningCorrectness) != 1 || !res.RunningCorrectness[0] {
		t.Errorf("running correctness = %v, want [true]", res.RunningCorrectness)
	}
}

func TestAwardXPLevelsUp(t *testing.T) {
	e := newEngine(t)
	user := testutil.CreateUser(t, e.db, "a@example.com")
	ctx := context.Background()

	u, err := e.levels.AwardXP(ctx, user.ID, 999, util.XPSourceAttempt)
	if err != nil {
		t.Fatalf("award: %v", err)
	}
	if u.NewLevel != 1 || u.LeveledUp || u.XPForNextLevel != 1 {
		t.Errorf("after 999: %+v", u)
	}
	u, err = e.levels.AwardXP(ctx, user.ID, 2001, util.XPSourceAttempt)
	if err != nil {
		t.Fatalf("award: %v", err)
	}
	if u.OldPoints != 999 || u.NewPoints != 3000 || u.NewLevel != 4 || !u.LeveledUp || u.LevelsGained != 3 {
		t.Errorf("after 3000: %+v", u)
	}

	info, err := e.levels.GetUserLevelInfo(ctx, user.ID)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if info.Level != 4 || info.Points != 3000 || info.LevelProgress != 0 {
		t.Errorf("info = %+v", info)
	}

	if _, err := e.levels.AwardXP(ctx, 9999, 10, util.XPSourceAttempt); !errors.Is(err, util.ErrUserNotFound) {
		t.Errorf("missing user: err = %v", err)
	}
}

func TestRecalculateLevelRepairsStoredLevel(t *testing.T) {
	e := newEngine(t)
	user := testutil.CreateUser(t, e.db, "a@example.com")
	admin := &model.User{Name: "root", Email: "root@example.com", Role: model.Admin}
	e.db.Create(admin)
	e.db.Model(&model.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{"points": 2500, "level": 1})
	ctx := context.Background()

	if _, err := e.levels.RecalculateLevel(ctx, NewActor(9999, model.Student, ""), user.ID); !errors.Is(err, util.ErrPermissionDenied) {
		t.Errorf("student recalculating someone else: err = %v", err)
	}

	u, err := e.levels.RecalculateLevel(ctx, actorFor(admin), user.ID)
	if err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	if u.OldLevel != 1 || u.NewLevel != 3 || u.NewPoints != 2500 {
		t.Errorf("update = %+v", u)
	}
	u, err = e.levels.RecalculateLevel(ctx, actorFor(admin), user.ID)
	if err != nil {
		t.Fatalf("recalculate again: %v", err)
	}
	if u.OldLevel != 3 || u.NewLevel != 3 || u.LeveledUp {
		t.Errorf("second run changed something: %+v", u)
	}
}

func TestConcurrentFinishesCreditBestOnce(t *testing.T) {
	e := newEngineOn(t, testutil.NewFileDB(t), config.DefaultScoring())
	user := testutil.CreateUser(t, e.db, "a@example.com")
	actor := actorFor(user)
	ex, questions, choices := testutil.ChoiceExercise(t, e.db, 2, 10, 60)
	ctx := context.Background()

	attemptIDs := make([]uint, 2)
	for i := range attemptIDs {
		attempt, err := e.attempts.StartAttempt(ctx, actor, ex.ID)
		if err != nil {
			t.Fatalf("start: %v", err)
		}
		for j, q := range questions {
			req := choiceAnswer(choices[j][0])
			req.QuestionID = q.ID
			if _, err := e.attempts.SubmitAnswer(ctx, actor, attempt.ID, req); err != nil {
				t.Fatalf("submit: %v", err)
			}
		}
		attemptIDs[i] = attempt.ID
	}

	results := make([]*FinishResult, len(attemptIDs))
	errs := make([]error, len(attemptIDs))
	var wg sync.WaitGroup
	for i, id := range attemptIDs {
		wg.Add(1)
		go func(i int, id uint) {
			defer wg.Done()
			results[i], errs[i] = e.attempts.FinishAttempt(ctx, actor, id, 30)
		}(i, id)
	}
	wg.Wait()

	credited := 0
	for i, err := range errs {
		if err != nil {
			t.Fatalf("finish %d: %v", attemptIDs[i], err)
		}
		if results[i].FinalXP != 50 {
			t.Errorf("finish %d: final xp = %d, want 50", attemptIDs[i], results[i].FinalXP)
		}
		credited += results[i].IncrementalXP
	}
	if credited != 50 {
		t.Errorf("incremental xp across both finishes = %d, want 50", credited)
	}

	var stored model.User
	e.db.First(&stored, user.ID)
	if stored.Points != 50 {
		t.Errorf("points = %d, want 50", stored.Points)
	}
	progress, err := repository.NewExerciseProgressRepository(e.db).Find(user.ID, ex.ID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if progress.AttemptsCount != 2 || progress.BestScore != 50 {
		t.Errorf("progress = %+v", progress)
	}
}

func TestZeroPointQuestionUsesConfiguredDefault(t *testing.T) {
	cfg := config.DefaultScoring()
	cfg.DefaultQuestionPoints = 7
	e := newEngineOn(t, testutil.NewDB(t), cfg)
	user := testutil.CreateUser(t, e.db, "a@example.com")
	ex, questions, choices := testutil.ChoiceExercise(t, e.db, 1, 0, 60)

	var stored model.Question
	e.db.First(&stored, questions[0].ID)
	if stored.Points != 0 {
		t.Fatalf("stored points = %d, want 0", stored.Points)
	}

	res := e.play(t, actorFor(user), ex, questions, choices, []int{0}, 30)
	if res.TotalPossible != 7 || res.TotalAwarded != 7 || res.BaseXP != 7 {
		t.Errorf("totals = %+v base = %d, want 7 possible/awarded/base", res.AttemptTotals, res.BaseXP)
	}
}

func TestSubmitMatchingGradesAgainstPartners(t *testing.T) {
	e := newEngine(t)
	user := testutil.CreateUser(t, e.db, "a@example.com")
	actor := actorFor(user)
	ex := &model.Exercise{Title: "match", Difficulty: "easy", TimeLimitSeconds: 60}
	e.db.Create(ex)
	q, lefts, rights := testutil.MatchingQuestion(t, e.db, ex.ID, 6, [][2]string{
		{"go", "gopher"}, {"rust", "crab"}, {"python", "snake"},
	})
	ctx := context.Background()

	attempt, err := e.attempts.StartAttempt(ctx, actor, ex.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	pairsAnswer := func(right []uint) json.RawMessage {
		pairs := make([]map[string]uint, 0, len(lefts))
		for i, l := range lefts {
			pairs = append(pairs, map[string]uint{"left": l, "right": right[i]})
		}
		raw, _ := json.Marshal(map[string]interface{}{"pairs": pairs})
		return raw
	}

	tests := []struct {
		name    string
		right   []uint
		correct bool
	}{
		{"left ids echoed", lefts, false},
		{"rotated partners", []uint{rights[1], rights[2], rights[0]}, false},
		{"own partners", rights, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.attempts.SubmitAnswer(ctx, actor, attempt.ID, SubmitAnswerRequest{QuestionID: q.ID, Answer: pairsAnswer(tt.right)})
			if err != nil {
				t.Fatalf("submit: %v", err)
			}
			want := 0
			if tt.correct {
				want = 6
			}
			if res.Correct != tt.correct || res.PointsAwarded != want {
				t.Errorf("correct=%v points=%d, want %v, %d", res.Correct, res.PointsAwarded, tt.correct, want)
			}
		})
	}
}
