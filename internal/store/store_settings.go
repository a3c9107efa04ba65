package store

import (
	"context"
	"fmt"
	"strings"
)

// GlobalSettingsKey is the id of the device-wide settings record.
const GlobalSettingsKey = "global"

// UserSettingsKey returns the settings id for a user.
func UserSettingsKey(userID string) string {
	return "user_" + strings.TrimSpace(userID)
}

// GetSetting returns the settings record for key, or nil when absent.
func (s *Store) GetSetting(ctx context.Context, key string) (*Setting, error) {
	return Get[Setting](ctx, s, CollectionSettings, key)
}

// SaveSetting upserts a settings record.
func (s *Store) SaveSetting(ctx context.Context, setting *Setting) error {
	if setting == nil || strings.TrimSpace(setting.ID) == "" {
		return fmt.Errorf("%w: setting needs a key", ErrInvalidRecord)
	}
	if setting.Values == nil {
		setting.Values = map[string]any{}
	}
	setting.UpdatedAt = s.now()
	return s.Update(ctx, CollectionSettings, setting)
}
