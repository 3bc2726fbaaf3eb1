package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nhle/taskchat/internal/model"
	"github.com/nhle/taskchat/internal/store"
)

// SettingsStore reads and writes key/value settings.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
}

// LoadProfile reads the stored user profile. It returns nil without error
// when no profile has been saved.
func LoadProfile(ctx context.Context, s SettingsStore) (*model.UserProfile, error) {
	raw, ok, err := s.GetSetting(ctx, store.SettingUserProfile)
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var p model.UserProfile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("decoding profile: %w", err)
	}
	return &p, nil
}

// SaveProfile stores p as JSON.
func SaveProfile(ctx context.Context, s SettingsStore, p model.UserProfile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	if err := s.SetSetting(ctx, store.SettingUserProfile, string(data)); err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	return nil
}
