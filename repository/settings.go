package repository

import (
	"context"
	"fmt"

	apperrors "github.com/NomadCrew/climapro-backend/errors"
	"github.com/NomadCrew/climapro-backend/types"
)

// GetSettings returns the stored settings merged over the defaults key by
// key. Missing keys and keys holding an invalid value keep their default.
func (r *WeatherRepository) GetSettings(ctx context.Context) types.UserSettings {
	settings := types.DefaultSettings()
	var stored map[string]interface{}
	if !r.readJSON(ctx, KeySettings, &stored) {
		return settings
	}
	for key, value := range stored {
		patch, err := types.PatchForKey(key, value)
		if err != nil {
			r.fail(ctx, "decode", KeySettings, err)
			continue
		}
		merged := patch.Apply(settings)
		if err := merged.Validate(); err != nil {
			r.fail(ctx, "decode", KeySettings, fmt.Errorf("setting %s: %w", key, err))
			continue
		}
		settings = merged
	}
	return settings
}

// SaveSettings replaces the stored settings.
func (r *WeatherRepository) SaveSettings(ctx context.Context, settings types.UserSettings) error {
	if err := settings.Validate(); err != nil {
		return apperrors.ValidationFailed("invalid settings", err.Error())
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writeJSON(ctx, KeySettings, settings)
	return nil
}

// UpdateSettings merges patch over the current settings and stores the result.
func (r *WeatherRepository) UpdateSettings(ctx context.Context, patch types.SettingsPatch) (types.UserSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.GetSettings(ctx)
	updated := patch.Apply(current)
	if err := updated.Validate(); err != nil {
		return current, apperrors.ValidationFailed("invalid settings", err.Error())
	}
	r.writeJSON(ctx, KeySettings, updated)
	return updated, nil
}

// UpdateSetting changes a single field by key.
func (r *WeatherRepository) UpdateSetting(ctx context.Context, key string, value interface{}) (types.UserSettings, error) {
	patch, err := types.PatchForKey(key, value)
	if err != nil {
		return r.GetSettings(ctx), apperrors.ValidationFailed("invalid setting", err.Error())
	}
	return r.UpdateSettings(ctx, patch)
}
