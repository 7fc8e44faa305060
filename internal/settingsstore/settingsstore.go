// Package settingsstore resolves runtime settings that can be overridden
// in the library's settings table.
//
// Priority: database > config (environment or default)
package settingsstore

import (
	"errors"

	"gorm.io/gorm"

	"github.com/mrlokans/storyshelf/internal/entities"
)

const (
	SourceDatabase = "database"
	SourceConfig   = "config"
)

// Repository is the settings table of a library.
type Repository interface {
	GetSetting(key string) (*entities.Setting, error)
	SetSetting(key, value string) error
	DeleteSetting(key string) error
}

type SettingsStore struct {
	repo Repository
}

func New(repo Repository) *SettingsStore {
	return &SettingsStore{repo: repo}
}

// lookup returns the stored value of key, or ok=false when none is stored.
func (s *SettingsStore) lookup(key string) (string, bool) {
	setting, err := s.repo.GetSetting(key)
	if err != nil || setting.Value == "" {
		return "", false
	}
	return setting.Value, true
}

func (s *SettingsStore) getString(key, fallback string) (string, string) {
	if v, ok := s.lookup(key); ok {
		return v, SourceDatabase
	}
	return fallback, SourceConfig
}

func (s *SettingsStore) getBool(key string, fallback bool) (bool, string) {
	if v, ok := s.lookup(key); ok {
		return v == "true" || v == "1", SourceDatabase
	}
	return fallback, SourceConfig
}

func (s *SettingsStore) clear(keys ...string) error {
	for _, key := range keys {
		err := s.repo.DeleteSetting(key)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}
	return nil
}
