package entities

import (
	"time"
)

type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"uniqueIndex;size:100" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}

// Known setting keys
const (
	// Highest numeric LUID handed out so far; LUIDs are never reused
	SettingKeyLastLUID = "last_luid"

	// Export schedule overrides; an unset key falls back to the config
	SettingKeyExportEnabled  = "export_enabled"
	SettingKeyExportSchedule = "export_schedule"
	SettingKeyExportDir      = "export_dir"
	SettingKeyExportFormat   = "export_format"

	// Last scheduled export
	SettingKeyExportLastAt      = "export_last_at"
	SettingKeyExportLastStatus  = "export_last_status"
	SettingKeyExportLastMessage = "export_last_message"
)
