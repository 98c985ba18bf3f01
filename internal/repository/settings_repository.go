package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/danmermels/momentum-spark-app/internal/model"
)

// SettingsRepository reads and writes the singleton settings row.
type SettingsRepository struct {
	db       *gorm.DB
	defaults model.AppSettings
}

func NewSettingsRepository(db *gorm.DB, defaults model.AppSettings) *SettingsRepository {
	return &SettingsRepository{db: db, defaults: defaults}
}

// Get returns the stored settings. The row is created with defaults on first
// read; a concurrent creator wins and its row is returned.
func (r *SettingsRepository) Get(ctx context.Context) (model.AppSettings, error) {
	db := r.db.WithContext(ctx)
	defaults := model.SettingsFromApp(r.defaults)
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&defaults).Error; err != nil {
		return model.AppSettings{}, fmt.Errorf("create settings: %w", err)
	}

	var row model.Settings
	if err := db.First(&row, model.SettingsID).Error; err != nil {
		return model.AppSettings{}, fmt.Errorf("find settings: %w", err)
	}
	return row.AppSettings(), nil
}

// Update merges patch into the stored settings and writes the whole row.
func (r *SettingsRepository) Update(ctx context.Context, patch model.AppSettingsPatch) (model.AppSettings, error) {
	current, err := r.Get(ctx)
	if err != nil {
		return model.AppSettings{}, err
	}
	merged := current.Merge(patch)
	row := model.SettingsFromApp(merged)
	if err := r.db.WithContext(ctx).Save(&row).Error; err != nil {
		return model.AppSettings{}, fmt.Errorf("update settings: %w", err)
	}
	return merged, nil
}
