package service

import (
	"context"
	"errors"
	"fmt"
	"progression_backend/internal/model"
	"progression_backend/internal/repository"
	"progression_backend/internal/util"
	"progression_backend/pkg/logger"
	"progression_backend/pkg/monitoring"
	"progression_backend/pkg/tracing"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AwardedBadge is one badge unlocked by an evaluation pass.
type AwardedBadge struct {
	Badge       model.Badge  `json:"badge"`
	EarnedTiers int          `json:"earnedTiers"`
	TotalTiers  int          `json:"totalTiers"`
	IsRare      bool         `json:"isRare"`
	Level       *LevelUpdate `json:"level,omitempty"`
}

// BadgeView is a catalog entry as the user sees it.
type BadgeView struct {
	model.Badge
	Earned   bool       `json:"earned"`
	EarnedAt *time.Time `json:"earnedAt,omitempty"`
	Progress *Progress  `json:"progress,omitempty"`
}

// BadgeNotificationView is an unshown unlock ready for display.
type BadgeNotificationView struct {
	NotificationID uint        `json:"notificationId"`
	Badge          model.Badge `json:"badge"`
	CurrentTier    int         `json:"currentTier"`
	TotalTiers     int         `json:"totalTiers"`
	NextTierTitle  string      `json:"nextTierTitle,omitempty"`
	IsRare         bool        `json:"isRare"`
}

type BadgeService struct {
	DB        *gorm.DB
	BadgeRepo *repository.BadgeRepository
	StatsRepo *repository.StatsRepository
	Streaks   *repository.StreakRepository
	Levels    *LevelService
}

func NewBadgeService(db *gorm.DB, badgeRepo *repository.BadgeRepository, statsRepo *repository.StatsRepository,
	streaks *repository.StreakRepository, levels *LevelService) *BadgeService {
	return &BadgeService{
		DB:        db,
		BadgeRepo: badgeRepo,
		StatsRepo: statsRepo,
		Streaks:   streaks,
		Levels:    levels,
	}
}

func (s *BadgeService) loadStats(ctx context.Context, userID uint, badges []model.Badge) (*repository.UserStats, error) {
	query, needsStreak := statsQuery(badges)
	stats, err := s.StatsRepo.Load(userID, query)
	if err != nil {
		return nil, err
	}
	if needsStreak {
		if stats.LongestStreak, err = s.Streaks.Longest(ctx, userID); err != nil {
			return nil, err
		}
	}
	return stats, nil
}

// CheckAndAwardBadges evaluates every badge the user does not hold yet and
// awards, per family, the highest qualifying tier. Each award commits on its
// own; a failed award is skipped and reported in the returned error while
// the others still go through.
func (s *BadgeService) CheckAndAwardBadges(ctx context.Context, actor Actor) ([]AwardedBadge, error) {
	ctx, span := tracing.StartSpan(ctx, "badge.CheckAndAwardBadges", attribute.Int("user.id", int(actor.UserID)))
	awarded, err := s.checkAndAward(ctx, actor)
	tracing.End(span, err)
	return awarded, err
}

func (s *BadgeService) checkAndAward(ctx context.Context, actor Actor) ([]AwardedBadge, error) {
	candidates, err := s.BadgeRepo.Candidates(actor.UserID)
	if err != nil {
		return nil, err
	}
	awarded := []AwardedBadge{}
	if len(candidates) == 0 {
		return awarded, nil
	}

	stats, err := s.loadStats(ctx, actor.UserID, candidates)
	if err != nil {
		return nil, err
	}
	sizes, err := s.BadgeRepo.FamilySizes()
	if err != nil {
		return nil, err
	}

	families, order := groupByFamily(candidates)
	var errs []error
	for _, family := range order {
		var best *model.Badge
		qualifying := 0
		for i := range families[family] {
			b := &families[family][i]
			if !Qualifies(b, stats) {
				continue
			}
			qualifying++
			if best == nil || b.Tier > best.Tier {
				best = b
			}
		}
		if best == nil {
			continue
		}

		update, inserted, err := s.award(ctx, actor.UserID, best)
		if err != nil {
			logger.Log.Error("Failed to award badge",
				zap.Uint("userID", actor.UserID),
				zap.String("badge", best.Key),
				zap.String("requestID", actor.RequestID),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("award %s: %w", best.Key, err))
			continue
		}
		if !inserted {
			continue
		}

		monitoring.BadgesAwarded.WithLabelValues(best.Category).Inc()
		recordXP(update)
		logger.Log.Info("Badge awarded",
			zap.Uint("userID", actor.UserID),
			zap.String("badge", best.Key),
			zap.Int("tier", best.Tier),
			zap.String("requestID", actor.RequestID))

		awarded = append(awarded, AwardedBadge{
			Badge:       *best,
			EarnedTiers: qualifying,
			TotalTiers:  sizes[family],
			IsRare:      best.IsRare(),
			Level:       update,
		})
	}
	return awarded, errors.Join(errs...)
}

// award inserts the badge, queues its notification and grants its XP in one
// transaction. When the badge was already recorded nothing else happens.
func (s *BadgeService) award(ctx context.Context, userID uint, b *model.Badge) (*LevelUpdate, bool, error) {
	var update *LevelUpdate
	inserted := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		badges := repository.NewBadgeRepository(tx)
		ok, err := badges.InsertAward(userID, b.ID, time.Now())
		if err != nil || !ok {
			return err
		}
		inserted = true
		if err := badges.QueueNotification(userID, b.ID); err != nil {
			return err
		}
		if b.XPReward > 0 {
			update, err = s.Levels.awardXPTx(tx, userID, b.XPReward, util.XPSourceBadge)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return update, inserted, nil
}

func groupByFamily(badges []model.Badge) (map[string][]model.Badge, []string) {
	families := make(map[string][]model.Badge)
	var order []string
	for _, b := range badges {
		family := b.Family
		if family == "" {
			family = model.FamilyFromKey(b.Key)
		}
		if _, ok := families[family]; !ok {
			order = append(order, family)
		}
		families[family] = append(families[family], b)
	}
	sort.Strings(order)
	return families, order
}

// GetUnshownNotifications lists pending unlock notifications without
// changing them.
func (s *BadgeService) GetUnshownNotifications(_ context.Context, actor Actor) ([]BadgeNotificationView, error) {
	pending, err := s.BadgeRepo.Unshown(actor.UserID)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return []BadgeNotificationView{}, nil
	}
	catalog, err := s.BadgeRepo.Catalog()
	if err != nil {
		return nil, err
	}
	tiers := make(map[string][]model.Badge)
	for _, b := range catalog {
		tiers[b.Family] = append(tiers[b.Family], b)
	}

	views := make([]BadgeNotificationView, 0, len(pending))
	for _, p := range pending {
		v := BadgeNotificationView{
			NotificationID: p.NotificationID,
			Badge:          p.Badge,
			CurrentTier:    p.Badge.Tier,
			TotalTiers:     len(tiers[p.Badge.Family]),
			IsRare:         p.Badge.IsRare(),
		}
		for _, b := range tiers[p.Badge.Family] {
			if b.Tier == p.Badge.Tier+1 {
				v.NextTierTitle = b.Title
				break
			}
		}
		views = append(views, v)
	}
	return views, nil
}

// MarkNotificationsShown flags the caller's notifications as shown and
// returns how many changed.
func (s *BadgeService) MarkNotificationsShown(_ context.Context, actor Actor, ids []uint) (int64, error) {
	return s.BadgeRepo.MarkShown(actor.UserID, ids)
}

// PollNotifications returns pending notifications and marks them shown.
func (s *BadgeService) PollNotifications(ctx context.Context, actor Actor) ([]BadgeNotificationView, error) {
	views, err := s.GetUnshownNotifications(ctx, actor)
	if err != nil || len(views) == 0 {
		return views, err
	}
	ids := make([]uint, 0, len(views))
	for _, v := range views {
		ids = append(ids, v.NotificationID)
	}
	if _, err := s.BadgeRepo.MarkShown(actor.UserID, ids); err != nil {
		return nil, err
	}
	return views, nil
}

// GetUserBadges lists the catalog with the user's earned flags, earned
// badges first. Secret badges stay hidden until earned.
func (s *BadgeService) GetUserBadges(ctx context.Context, actor Actor) ([]BadgeView, error) {
	catalog, err := s.BadgeRepo.Catalog()
	if err != nil {
		return nil, err
	}
	earned, err := s.BadgeRepo.Earned(actor.UserID)
	if err != nil {
		return nil, err
	}
	earnedAt := make(map[uint]time.Time, len(earned))
	for _, e := range earned {
		earnedAt[e.ID] = e.EarnedAt
	}

	var open []model.Badge
	for _, b := range catalog {
		if _, ok := earnedAt[b.ID]; !ok && !b.IsSecret {
			open = append(open, b)
		}
	}
	var stats *repository.UserStats
	if len(open) > 0 {
		if stats, err = s.loadStats(ctx, actor.UserID, open); err != nil {
			return nil, err
		}
	}

	views := make([]BadgeView, 0, len(catalog))
	for _, b := range catalog {
		v := BadgeView{Badge: b}
		if at, ok := earnedAt[b.ID]; ok {
			v.Earned, v.EarnedAt = true, &at
		} else if b.IsSecret {
			continue
		} else {
			p := Measure(&b, stats)
			v.Progress = &p
		}
		views = append(views, v)
	}
	sort.SliceStable(views, func(i, j int) bool {
		if views[i].Earned != views[j].Earned {
			return views[i].Earned
		}
		if views[i].Category != views[j].Category {
			return views[i].Category < views[j].Category
		}
		if views[i].Tier != views[j].Tier {
			return views[i].Tier < views[j].Tier
		}
		return views[i].ID < views[j].ID
	})
	return views, nil
}
