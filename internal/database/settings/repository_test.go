package settings

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/storyshelf/internal/entities"
)

func setupTestDB(t *testing.T) *Repository {
	dbPath := filepath.Join(t.TempDir(), "settings.db")

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.Setting{})
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	return NewRepository(db)
}

func TestRepository_SetSetting_New(t *testing.T) {
	repo := setupTestDB(t)

	err := repo.SetSetting("export_last_status", "ok")
	require.NoError(t, err)

	setting, err := repo.GetSetting("export_last_status")
	require.NoError(t, err)
	assert.Equal(t, "export_last_status", setting.Key)
	assert.Equal(t, "ok", setting.Value)
}

func TestRepository_SetSetting_Update(t *testing.T) {
	repo := setupTestDB(t)

	require.NoError(t, repo.SetSetting("export_last_status", "failed"))
	require.NoError(t, repo.SetSetting("export_last_status", "ok"))

	setting, err := repo.GetSetting("export_last_status")
	require.NoError(t, err)
	assert.Equal(t, "ok", setting.Value)
}

func TestRepository_GetSetting_NotFound(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.GetSetting("nonexistent")

	assert.Error(t, err)
}

func TestRepository_DeleteSetting(t *testing.T) {
	repo := setupTestDB(t)

	require.NoError(t, repo.SetSetting("to-delete", "value"))
	require.NoError(t, repo.DeleteSetting("to-delete"))

	_, err := repo.GetSetting("to-delete")
	assert.Error(t, err)

	// Deleting twice is fine
	assert.NoError(t, repo.DeleteSetting("to-delete"))
}

func TestRepository_NextValue(t *testing.T) {
	t.Run("starts at one", func(t *testing.T) {
		repo := setupTestDB(t)

		next, err := repo.NextValue(entities.SettingKeyLastLUID, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, next)
	})

	t.Run("increments", func(t *testing.T) {
		repo := setupTestDB(t)

		for want := 1; want <= 3; want++ {
			next, err := repo.NextValue(entities.SettingKeyLastLUID, 0)
			require.NoError(t, err)
			assert.Equal(t, want, next)
		}
	})

	t.Run("jumps over floor", func(t *testing.T) {
		repo := setupTestDB(t)

		next, err := repo.NextValue(entities.SettingKeyLastLUID, 41)
		require.NoError(t, err)
		assert.Equal(t, 42, next)

		next, err = repo.NextValue(entities.SettingKeyLastLUID, 10)
		require.NoError(t, err)
		assert.Equal(t, 43, next)
	})

	t.Run("rejects non numeric values", func(t *testing.T) {
		repo := setupTestDB(t)
		require.NoError(t, repo.SetSetting("counter", "abc"))

		_, err := repo.NextValue("counter", 0)
		assert.Error(t, err)
	})
}
