package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"queuepanel/pkg/interfaces"

	"github.com/go-redis/redis/v8"
)

const (
	preferenceKeyPrefix = "panel:prefs:" // Panel preferences (panel:prefs:{panelID})
	panelSetKey         = "panels"       // Known panel ids
)

// PreferenceRepository stores panel preferences in Redis (persistent, no TTL)
type PreferenceRepository struct {
	client *RedisClient
	now    func() time.Time
}

var _ interfaces.PreferenceStore = (*PreferenceRepository)(nil)

// NewPreferenceRepository creates preference repository
func NewPreferenceRepository(redisClient *RedisClient) *PreferenceRepository {
	return &PreferenceRepository{client: redisClient, now: time.Now}
}

// Save saves panel preferences
func (r *PreferenceRepository) Save(ctx context.Context, panelID string, prefs *interfaces.Preferences) error {
	if prefs == nil {
		return fmt.Errorf("preferences are nil")
	}
	stored := *prefs
	stored.UpdatedAt = r.now().UTC()

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}

	pipe := r.client.GetClient().Pipeline()
	pipe.Set(ctx, r.client.Key(preferenceKeyPrefix+panelID), data, 0)
	pipe.SAdd(ctx, r.client.Key(panelSetKey), panelID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}

// Load loads panel preferences
func (r *PreferenceRepository) Load(ctx context.Context, panelID string) (*interfaces.Preferences, error) {
	data, err := r.client.GetClient().Get(ctx, r.client.Key(preferenceKeyPrefix+panelID)).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrPreferencesNotFound, panelID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get preferences: %w", err)
	}

	var prefs interfaces.Preferences
	if err := json.Unmarshal([]byte(data), &prefs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal preferences: %w", err)
	}
	return &prefs, nil
}

// Delete removes panel preferences
func (r *PreferenceRepository) Delete(ctx context.Context, panelID string) error {
	pipe := r.client.GetClient().Pipeline()
	pipe.Del(ctx, r.client.Key(preferenceKeyPrefix+panelID))
	pipe.SRem(ctx, r.client.Key(panelSetKey), panelID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete preferences: %w", err)
	}
	return nil
}

// ListPanels returns the ids of every panel with stored preferences, sorted
func (r *PreferenceRepository) ListPanels(ctx context.Context) ([]string, error) {
	ids, err := r.client.GetClient().SMembers(ctx, r.client.Key(panelSetKey)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list panels: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}
