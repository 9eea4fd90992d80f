package redis

import (
	"context"
	"testing"
	"time"

	"queuepanel/internal/ordering"
	"queuepanel/pkg/interfaces"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) (*PreferenceRepository, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	repo := NewPreferenceRepository(WrapClient(client, "qp:"))
	repo.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return repo, mr
}

func TestPreferenceRepository_SaveLoad(t *testing.T) {
	repo, mr := newTestRepository(t)
	ctx := context.Background()

	since := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	prefs := &interfaces.Preferences{
		Direction: ordering.Asc,
		Since:     &since,
		Selection: []string{"a", "b"},
	}
	require.NoError(t, repo.Save(ctx, "studio", prefs))
	assert.True(t, mr.Exists("qp:panel:prefs:studio"))

	loaded, err := repo.Load(ctx, "studio")
	require.NoError(t, err)
	assert.Equal(t, ordering.Asc, loaded.Direction)
	require.NotNil(t, loaded.Since)
	assert.True(t, since.Equal(*loaded.Since))
	assert.Nil(t, loaded.Until)
	assert.Equal(t, []string{"a", "b"}, loaded.Selection)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), loaded.UpdatedAt)

	// the caller's value is not modified
	assert.True(t, prefs.UpdatedAt.IsZero())
}

func TestPreferenceRepository_NotFound(t *testing.T) {
	repo, _ := newTestRepository(t)

	_, err := repo.Load(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, interfaces.ErrPreferencesNotFound)
}

func TestPreferenceRepository_CorruptData(t *testing.T) {
	repo, mr := newTestRepository(t)
	require.NoError(t, mr.Set("qp:panel:prefs:broken", "{not json"))

	_, err := repo.Load(context.Background(), "broken")
	require.Error(t, err)
	assert.NotErrorIs(t, err, interfaces.ErrPreferencesNotFound)
}

func TestPreferenceRepository_ListAndDelete(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "b", &interfaces.Preferences{Direction: ordering.Desc}))
	require.NoError(t, repo.Save(ctx, "a", &interfaces.Preferences{Direction: ordering.Desc}))
	require.NoError(t, repo.Save(ctx, "a", &interfaces.Preferences{Direction: ordering.Asc}))

	panels, err := repo.ListPanels(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, panels)

	require.NoError(t, repo.Delete(ctx, "a"))
	panels, err = repo.ListPanels(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, panels)

	_, err = repo.Load(ctx, "a")
	assert.ErrorIs(t, err, interfaces.ErrPreferencesNotFound)
}

func TestPreferenceRepository_SaveNil(t *testing.T) {
	repo, _ := newTestRepository(t)
	assert.Error(t, repo.Save(context.Background(), "x", nil))
}
