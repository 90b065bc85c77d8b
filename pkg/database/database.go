package database

import (
	"fmt"
	"log"
	"progression_backend/internal/config"
	"progression_backend/internal/model"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel(cfg.LogLevel)),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Println("Database connection established")
	return db, nil
}

func logLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

// Models lists every table the engine owns or reads.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Exercise{},
		&model.Question{},
		&model.Choice{},
		&model.OrderingItem{},
		&model.MatchingItem{},
		&model.Attempt{},
		&model.AttemptAnswer{},
		&model.ExerciseProgress{},
		&model.Badge{},
		&model.UserBadge{},
		&model.BadgeNotification{},
	}
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return err
	}
	log.Println("Database migration completed")
	return nil
}

// SeedBadges inserts the default badge catalog. Existing keys are left alone.
func SeedBadges(db *gorm.DB) error {
	badges := DefaultBadges()
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoNothing: true,
	}).Create(&badges).Error
}

func DefaultBadges() []model.Badge {
	return []model.Badge{
		{Key: "exercises_1", Tier: 1, Title: "First Steps", Description: "Finish your first exercise", Icon: "footprints", RequirementType: model.ReqExercisesCompleted, RequirementValue: 1, XPReward: 50, Category: model.BadgeCategoryProgress},
		{Key: "exercises_2", Tier: 2, Title: "Getting Going", Description: "Finish 10 exercises", Icon: "footprints", RequirementType: model.ReqExercisesCompleted, RequirementValue: 10, XPReward: 100, Category: model.BadgeCategoryProgress},
		{Key: "exercises_3", Tier: 3, Title: "Marathoner", Description: "Finish 50 exercises", Icon: "footprints", RequirementType: model.ReqExercisesCompleted, RequirementValue: 50, XPReward: 250, Category: model.BadgeCategoryProgress},

		{Key: "time_1", Tier: 1, Title: "Warming Up", Description: "Spend 10 minutes on exercises", Icon: "clock", RequirementType: model.ReqTimeSpent, RequirementValue: 600, XPReward: 50, Category: model.BadgeCategoryProgress},
		{Key: "time_2", Tier: 2, Title: "Dedicated", Description: "Spend one hour on exercises", Icon: "clock", RequirementType: model.ReqTimeSpent, RequirementValue: 3600, XPReward: 150, Category: model.BadgeCategoryProgress},

		{Key: "copper_1", Tier: 1, Title: "Copper Collector", Description: "Earn copper or better on 5 exercises", Icon: "copper", RequirementType: model.ReqCopperEarned, RequirementValue: 5, XPReward: 50, Category: model.BadgeCategoryReward},
		{Key: "iron_1", Tier: 1, Title: "Iron Collector", Description: "Earn iron or better on 5 exercises", Icon: "iron", RequirementType: model.ReqIronEarned, RequirementValue: 5, XPReward: 75, Category: model.BadgeCategoryReward},
		{Key: "gold_1", Tier: 1, Title: "Gold Collector", Description: "Earn gold or better on 5 exercises", Icon: "gold", RequirementType: model.ReqGoldEarned, RequirementValue: 5, XPReward: 100, Category: model.BadgeCategoryReward},
		{Key: "diamonds_1", Tier: 1, Title: "Diamond Cutter", Description: "Earn diamond on 5 exercises", Icon: "diamond", RequirementType: model.ReqDiamondsEarned, RequirementValue: 5, XPReward: 150, Category: model.BadgeCategoryReward},
		{Key: "diamonds_2", Tier: 2, Title: "Diamond Hoard", Description: "Earn diamond on 10 exercises", Icon: "diamond", RequirementType: model.ReqDiamondsEarned, RequirementValue: 10, XPReward: 300, Category: model.BadgeCategoryReward},
		{Key: "emeralds_1", Tier: 1, Title: "Emerald Hunter", Description: "Earn emerald on 3 exercises", Icon: "emerald", RequirementType: model.ReqEmeraldsEarned, RequirementValue: 3, XPReward: 200, Category: model.BadgeCategoryReward},

		{Key: "streak_1", Tier: 1, Title: "On a Roll", Description: "Answer 10 questions in a row correctly", Icon: "flame", RequirementType: model.ReqPerfectStreak, RequirementValue: 10, XPReward: 100, Category: model.BadgeCategoryMastery},
		{Key: "streak_2", Tier: 2, Title: "Unstoppable", Description: "Answer 25 questions in a row correctly", Icon: "flame", RequirementType: model.ReqPerfectStreak, RequirementValue: 25, XPReward: 250, Category: model.BadgeCategoryMastery},
		{Key: "first_try_1", Tier: 1, Title: "Natural", Description: "Earn emerald on your first try", Icon: "sparkle", RequirementType: model.ReqFirstTryEmerald, RequirementValue: 1, XPReward: 150, Category: model.BadgeCategoryMastery},
		{Key: "ordering_master", Tier: 1, Title: "Sequencer", Description: "Earn gold or better on every exercise with an ordering question", Icon: "list", RequirementType: model.ReqTypeMaster, RequirementParam: string(model.QuestionOrdering), XPReward: 300, Category: model.BadgeCategoryMastery},
		{Key: "hard_complete", Tier: 1, Title: "Hardened", Description: "Complete every hard exercise", Icon: "mountain", RequirementType: model.ReqDifficultyComplete, RequirementParam: "hard", XPReward: 400, Category: model.BadgeCategoryMastery},

		{Key: "night_owl", Tier: 1, Title: "Night Owl", Description: "Finish an exercise between midnight and 5am", Icon: "moon", RequirementType: model.ReqNightCompletion, RequirementValue: 1, XPReward: 50, Category: model.BadgeCategorySecret, IsSecret: true},
		{Key: "speed_demon", Tier: 1, Title: "Speed Demon", Description: "Earn diamond or better in 30 seconds or less", Icon: "bolt", RequirementType: model.ReqSpeedCompletion, RequirementValue: 1, XPReward: 100, Category: model.BadgeCategorySecret, IsSecret: true},
	}
}
