package repository

import (
	"errors"
	"progression_backend/internal/model"
	"progression_backend/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	if err := r.DB.First(&user, id).Error; err != nil {
		return nil, notFound(err, util.ErrUserNotFound)
	}
	return &user, nil
}

// LockByID reads the user row FOR UPDATE. Call it inside a transaction.
func (r *UserRepository) LockByID(id uint) (*model.User, error) {
	var user model.User
	err := r.DB.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, id).Error
	if err != nil {
		return nil, notFound(err, util.ErrUserNotFound)
	}
	return &user, nil
}

// UpdateProgression writes the XP and level columns only.
func (r *UserRepository) UpdateProgression(userID uint, points, level int) error {
	return r.DB.Model(&model.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{"points": points, "level": level}).
		Error
}

// notFound maps gorm's missing-row error onto a domain sentinel.
func notFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}
