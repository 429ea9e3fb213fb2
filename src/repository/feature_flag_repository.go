package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"signalengine/src/database"
	"signalengine/src/model"
)

// FeatureFlagRepository reads operational toggles. Callers read fresh on
// every use; nothing here is cached.
type FeatureFlagRepository struct {
	db *gorm.DB
}

func NewFeatureFlagRepository() *FeatureFlagRepository {
	return &FeatureFlagRepository{db: database.MainDB}
}

func (r *FeatureFlagRepository) WithDB(db *gorm.DB) *FeatureFlagRepository {
	return &FeatureFlagRepository{db: db}
}

// IsEnabled returns the flag state, or fallback when the flag row does not
// exist yet.
func (r *FeatureFlagRepository) IsEnabled(ctx context.Context, name string, fallback bool) (bool, error) {
	var flag model.FeatureFlag

	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		First(&flag).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fallback, nil
		}
		return fallback, err
	}

	return flag.Enabled, nil
}

// Set upserts a flag. Used by operational tooling and tests.
func (r *FeatureFlagRepository) Set(ctx context.Context, name string, enabled bool) error {
	flag := model.FeatureFlag{Name: name, Enabled: enabled}

	return r.db.WithContext(ctx).
		Where("name = ?", name).
		Assign(map[string]interface{}{"enabled": enabled}).
		FirstOrCreate(&flag).Error
}
