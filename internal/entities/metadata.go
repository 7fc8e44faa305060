package entities

import (
	"strings"
	"time"
)

// MetaData describes a story independently of its body. LUID is assigned by
// the library on first save and never changes afterwards.
type MetaData struct {
	LUID          string   `gorm:"primaryKey;column:luid;size:16" json:"luid"`
	Title         string   `gorm:"index;size:512" json:"title" validate:"required,max=512"`
	Author        string   `gorm:"index;size:256" json:"author,omitempty" validate:"max=256"`
	Source        string   `gorm:"index;size:256" json:"source,omitempty" validate:"max=256"`
	Subject       string   `gorm:"size:256" json:"subject,omitempty"`
	Publisher     string   `gorm:"size:256" json:"publisher,omitempty"`
	Lang          string   `gorm:"size:16" json:"lang,omitempty"`
	Tags          []string `gorm:"serializer:json" json:"tags,omitempty" validate:"max=64,dive,max=100"`
	Words         int      `json:"words"`
	Created       string   `gorm:"size:32" json:"created,omitempty"`
	Date          string   `gorm:"size:32" json:"date,omitempty"`
	URL           string   `gorm:"size:2048" json:"url,omitempty"`
	UUID          string   `gorm:"size:256" json:"uuid,omitempty"`
	Type          string   `gorm:"size:32" json:"type,omitempty"`
	ImageDocument bool     `json:"image_document"`
	FakeCover     bool     `json:"fake_cover,omitempty"`
	Resume        *Chapter `gorm:"serializer:json" json:"resume,omitempty"`
	Cover         *Image   `gorm:"-" json:"cover,omitempty"`

	UpdatedAt time.Time `json:"-"`
}

func (MetaData) TableName() string {
	return "metas"
}

// Clone returns a deep copy of the metadata.
func (m *MetaData) Clone() *MetaData {
	if m == nil {
		return nil
	}
	out := *m
	if m.Tags != nil {
		out.Tags = append([]string(nil), m.Tags...)
	}
	out.Resume = m.Resume.Clone()
	out.Cover = m.Cover.Clone()
	return &out
}

// WithoutCover returns a copy of the metadata with the cover dropped.
func (m *MetaData) WithoutCover() *MetaData {
	out := m.Clone()
	if out != nil {
		out.Cover = nil
	}
	return out
}

// SourceRoot returns the first segment of a hierarchical source
// ("site/subsection" -> "site").
func (m *MetaData) SourceRoot() string {
	root, _, _ := strings.Cut(m.Source, "/")
	return root
}
