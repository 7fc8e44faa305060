package database

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/storyshelf/internal/entities"
)

// AllMetas returns every indexed story, ordered by LUID.
func (d *Database) AllMetas() ([]*entities.MetaData, error) {
	var metas []*entities.MetaData
	err := d.DB.Order("luid").Find(&metas).Error
	return metas, err
}

// GetMeta returns the indexed metadata of luid, or nil.
func (d *Database) GetMeta(luid string) (*entities.MetaData, error) {
	var meta entities.MetaData
	err := d.DB.Where("luid = ?", luid).First(&meta).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

// SaveMeta inserts or replaces the index row of meta.
func (d *Database) SaveMeta(meta *entities.MetaData) error {
	return d.DB.Clauses(clause.OnConflict{UpdateAll: true}).Create(meta).Error
}

// DeleteMeta removes the index row of luid, if any.
func (d *Database) DeleteMeta(luid string) error {
	return d.DB.Where("luid = ?", luid).Delete(&entities.MetaData{}).Error
}

// CountMetas returns the number of indexed stories.
func (d *Database) CountMetas() (int64, error) {
	var count int64
	err := d.DB.Model(&entities.MetaData{}).Count(&count).Error
	return count, err
}
