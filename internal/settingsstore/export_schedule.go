package settingsstore

import (
	"fmt"
	"strconv"
	"time"

	"github.com/mrlokans/storyshelf/internal/config"
	"github.com/mrlokans/storyshelf/internal/entities"
	"github.com/mrlokans/storyshelf/internal/scheduler"
)

// ExportScheduleInfo is the effective export schedule with the source of
// each field.
type ExportScheduleInfo struct {
	config.ExportSchedule

	EnabledSource  string `json:"enabled_source"`
	ScheduleSource string `json:"schedule_source"`
	DirSource      string `json:"dir_source"`
	FormatSource   string `json:"format_source"`
}

// ExportStatus represents the last export run
type ExportStatus struct {
	LastAt  *time.Time `json:"last_at,omitempty"`
	Status  string     `json:"status,omitempty"`  // "success", "partial", "failed", ""
	Message string     `json:"message,omitempty"` // Error message or stats summary
}

// GetExportSchedule merges the stored overrides over cfg.
func (s *SettingsStore) GetExportSchedule(cfg config.ExportSchedule) ExportScheduleInfo {
	var info ExportScheduleInfo
	info.Enabled, info.EnabledSource = s.getBool(entities.SettingKeyExportEnabled, cfg.Enabled)
	info.Schedule, info.ScheduleSource = s.getString(entities.SettingKeyExportSchedule, cfg.Schedule)
	info.Dir, info.DirSource = s.getString(entities.SettingKeyExportDir, cfg.Dir)
	info.Format, info.FormatSource = s.getString(entities.SettingKeyExportFormat, cfg.Format)
	return info
}

func (s *SettingsStore) SetExportEnabled(enabled bool) error {
	return s.repo.SetSetting(entities.SettingKeyExportEnabled, strconv.FormatBool(enabled))
}

// SetExportSchedule stores a 5-field cron schedule.
func (s *SettingsStore) SetExportSchedule(schedule string) error {
	if err := scheduler.ValidateSchedule(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", schedule, err)
	}
	return s.repo.SetSetting(entities.SettingKeyExportSchedule, schedule)
}

func (s *SettingsStore) SetExportDir(dir string) error {
	return s.repo.SetSetting(entities.SettingKeyExportDir, dir)
}

func (s *SettingsStore) SetExportFormat(format string) error {
	return s.repo.SetSetting(entities.SettingKeyExportFormat, format)
}

// ClearExportSchedule drops every override, reverting to the config.
func (s *SettingsStore) ClearExportSchedule() error {
	return s.clear(
		entities.SettingKeyExportEnabled,
		entities.SettingKeyExportSchedule,
		entities.SettingKeyExportDir,
		entities.SettingKeyExportFormat,
	)
}

// GetExportStatus returns what the export scheduler recorded last.
func (s *SettingsStore) GetExportStatus() ExportStatus {
	var status ExportStatus

	if v, ok := s.lookup(entities.SettingKeyExportLastAt); ok {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			status.LastAt = &ts
		}
	}
	status.Status, _ = s.lookup(entities.SettingKeyExportLastStatus)
	status.Message, _ = s.lookup(entities.SettingKeyExportLastMessage)

	return status
}
