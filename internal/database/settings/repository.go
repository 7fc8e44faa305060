// Package settings provides database operations for library settings.
//
// # Usage
//
//	repo := settings.NewRepository(db)
//	next, err := repo.NextValue(entities.SettingKeyLastLUID, 0)
package settings

import (
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"github.com/mrlokans/storyshelf/internal/entities"
)

// Repository handles all settings database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new settings repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetSetting retrieves a setting by key.
func (r *Repository) GetSetting(key string) (*entities.Setting, error) {
	var setting entities.Setting
	err := r.db.Where("key = ?", key).First(&setting).Error
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

// SetSetting creates or updates a setting.
func (r *Repository) SetSetting(key, value string) error {
	var setting entities.Setting
	result := r.db.Where("key = ?", key).First(&setting)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		setting = entities.Setting{
			Key:   key,
			Value: value,
		}
		return r.db.Create(&setting).Error
	} else if result.Error != nil {
		return result.Error
	}

	setting.Value = value
	return r.db.Save(&setting).Error
}

// DeleteSetting removes a setting by key.
func (r *Repository) DeleteSetting(key string) error {
	return r.db.Where("key = ?", key).Delete(&entities.Setting{}).Error
}

// NextValue treats the setting as a counter and advances it by one,
// starting from floor when floor is higher than the stored value. The
// read and the write happen in one transaction.
func (r *Repository) NextValue(key string, floor int) (int, error) {
	var next int
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var setting entities.Setting
		current := 0

		err := tx.Where("key = ?", key).First(&setting).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			setting = entities.Setting{Key: key}
		case err != nil:
			return err
		default:
			current, err = strconv.Atoi(setting.Value)
			if err != nil {
				return fmt.Errorf("setting %s is not a counter: %w", key, err)
			}
		}

		if floor > current {
			current = floor
		}
		next = current + 1
		setting.Value = strconv.Itoa(next)
		return tx.Save(&setting).Error
	})
	return next, err
}
