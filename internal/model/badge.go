package model

import (
	"regexp"
	"time"

	"gorm.io/gorm"
)

type RequirementType string

const (
	ReqExercisesCompleted RequirementType = "exercises_completed"
	ReqDiamondsEarned     RequirementType = "diamonds_earned"
	ReqEmeraldsEarned     RequirementType = "emeralds_earned"
	ReqTimeSpent          RequirementType = "time_spent"
	ReqCoalEarned         RequirementType = "coal_earned"
	ReqCopperEarned       RequirementType = "copper_earned"
	ReqIronEarned         RequirementType = "iron_earned"
	ReqGoldEarned         RequirementType = "gold_earned"
	ReqFirstTryEmerald    RequirementType = "first_try_emerald"
	ReqPerfectStreak      RequirementType = "perfect_streak"
	ReqTypeMaster         RequirementType = "type_master"
	ReqDifficultyComplete RequirementType = "difficulty_complete"
	ReqNightCompletion    RequirementType = "night_completion"
	ReqSpeedCompletion    RequirementType = "speed_completion"
)

const (
	BadgeCategoryProgress = "progress"
	BadgeCategoryReward   = "reward"
	BadgeCategoryMastery  = "mastery"
	BadgeCategorySecret   = "secret"
)

var tierSuffix = regexp.MustCompile(`_\d+$`)

// FamilyFromKey strips a trailing "_<tier>" from a badge key.
func FamilyFromKey(key string) string {
	return tierSuffix.ReplaceAllString(key, "")
}

// Badge is a read-only catalog row. Tiers of one achievement share Family.
// swagger:model Badge
type Badge struct {
	BaseModel
	Key              string          `gorm:"size:100;uniqueIndex;not null" json:"key"`
	Family           string          `gorm:"size:100;index;not null" json:"family"`
	Tier             int             `gorm:"default:1" json:"tier"`
	Title            string          `gorm:"size:200" json:"title"`
	Description      string          `gorm:"type:text" json:"description"`
	Icon             string          `gorm:"size:255" json:"icon"`
	RequirementType  RequirementType `gorm:"size:50;not null" json:"requirementType"`
	RequirementValue int             `gorm:"default:0" json:"requirementValue"`
	RequirementParam string          `gorm:"size:50" json:"requirementParam,omitempty"`
	XPReward         int             `gorm:"default:0" json:"xpReward"`
	Category         string          `gorm:"size:50" json:"category"`
	IsSecret         bool            `gorm:"default:false" json:"isSecret"`
}

func (Badge) TableName() string {
	return "badges"
}

func (b *Badge) BeforeSave(tx *gorm.DB) error {
	if b.Family == "" {
		b.Family = FamilyFromKey(b.Key)
	}
	if b.Tier <= 0 {
		b.Tier = 1
	}
	return nil
}

// IsRare marks badges that get the special unlock treatment.
func (b *Badge) IsRare() bool {
	return b.Category == BadgeCategoryMastery || b.Category == BadgeCategorySecret
}

// UserBadge is inserted once and never updated.
type UserBadge struct {
	ID       uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID   uint      `gorm:"uniqueIndex:uq_user_badge,priority:1;not null" json:"userId"`
	BadgeID  uint      `gorm:"uniqueIndex:uq_user_badge,priority:2;not null" json:"badgeId"`
	EarnedAt time.Time `json:"earnedAt"`
}

func (UserBadge) TableName() string {
	return "user_badges"
}

type BadgeNotification struct {
	RecordModel
	UserID  uint `gorm:"uniqueIndex:uq_badge_notification,priority:1;not null" json:"userId"`
	BadgeID uint `gorm:"uniqueIndex:uq_badge_notification,priority:2;not null" json:"badgeId"`
	Shown   bool `gorm:"default:false;index" json:"shown"`
}

func (BadgeNotification) TableName() string {
	return "badge_notifications"
}
