package repository

import (
	"progression_backend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BadgeRepository struct {
	DB *gorm.DB
}

func NewBadgeRepository(db *gorm.DB) *BadgeRepository {
	return &BadgeRepository{DB: db}
}

// Catalog returns every badge ordered by family and tier.
func (r *BadgeRepository) Catalog() ([]model.Badge, error) {
	var badges []model.Badge
	err := r.DB.Order("family ASC, tier ASC, id ASC").Find(&badges).Error
	return badges, err
}

// Candidates returns the badges the user does not hold yet.
func (r *BadgeRepository) Candidates(userID uint) ([]model.Badge, error) {
	var badges []model.Badge
	held := r.DB.Model(&model.UserBadge{}).Select("badge_id").Where("user_id = ?", userID)
	err := r.DB.Where("id NOT IN (?)", held).
		Order("family ASC, tier ASC, id ASC").
		Find(&badges).Error
	return badges, err
}

// EarnedBadge is a held badge with its award time.
type EarnedBadge struct {
	model.Badge
	EarnedAt time.Time `json:"earnedAt"`
}

func (r *BadgeRepository) Earned(userID uint) ([]EarnedBadge, error) {
	var rows []EarnedBadge
	err := r.DB.Model(&model.Badge{}).
		Select("badges.*, user_badges.earned_at").
		Joins("JOIN user_badges ON user_badges.badge_id = badges.id").
		Where("user_badges.user_id = ?", userID).
		Order("user_badges.earned_at ASC, badges.id ASC").
		Scan(&rows).Error
	return rows, err
}

// FamilySizes counts catalog tiers per family.
func (r *BadgeRepository) FamilySizes() (map[string]int, error) {
	var rows []struct {
		Family string
		Total  int
	}
	err := r.DB.Model(&model.Badge{}).
		Select("family, COUNT(*) AS total").
		Group("family").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	sizes := make(map[string]int, len(rows))
	for _, row := range rows {
		sizes[row.Family] = row.Total
	}
	return sizes, nil
}

// InsertAward records the badge for the user unless it is already there.
// It reports whether a row was inserted.
func (r *BadgeRepository) InsertAward(userID, badgeID uint, at time.Time) (bool, error) {
	award := model.UserBadge{UserID: userID, BadgeID: badgeID, EarnedAt: at}
	res := r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "badge_id"}},
		DoNothing: true,
	}).Create(&award)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// QueueNotification creates the notification or resets it to unshown.
func (r *BadgeRepository) QueueNotification(userID, badgeID uint) error {
	n := model.BadgeNotification{UserID: userID, BadgeID: badgeID, Shown: false}
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "badge_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"shown": false, "updated_at": time.Now()}),
	}).Create(&n).Error
}

// PendingNotification joins an unshown notification with its badge.
type PendingNotification struct {
	NotificationID uint
	model.Badge
}

func (r *BadgeRepository) Unshown(userID uint) ([]PendingNotification, error) {
	var rows []PendingNotification
	err := r.DB.Model(&model.BadgeNotification{}).
		Select("badge_notifications.id AS notification_id, badges.*").
		Joins("JOIN badges ON badges.id = badge_notifications.badge_id").
		Where("badge_notifications.user_id = ? AND badge_notifications.shown = ?", userID, false).
		Order("badge_notifications.id ASC").
		Scan(&rows).Error
	return rows, err
}

// MarkShown flags the given notifications of userID as shown. Ids that
// belong to other users are ignored.
func (r *BadgeRepository) MarkShown(userID uint, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.DB.Model(&model.BadgeNotification{}).
		Where("user_id = ? AND id IN ?", userID, ids).
		Updates(map[string]interface{}{"shown": true})
	return res.RowsAffected, res.Error
}
