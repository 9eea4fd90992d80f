package rest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"queuepanel/internal/model"
	"queuepanel/internal/ordering"
	"queuepanel/internal/pagination"
	"queuepanel/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.RemoteConfig{BaseURL: srv.URL + "/", APIKey: "secret", Timeout: 2 * time.Second})
}

func TestFetchPage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, historyPath, r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		q := r.URL.Query()
		assert.Equal(t, "completed_at", q.Get("sort_field"))
		assert.Equal(t, "asc", q.Get("sort_direction"))
		assert.Equal(t, "20", q.Get("limit"))
		assert.Equal(t, "7", q.Get("after_id"))
		assert.Equal(t, "1704103200000", q.Get("after_value"))
		assert.Equal(t, "2024-01-01T00:00:00Z", q.Get("since"))
		assert.Empty(t, q.Get("until"))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"records": [
				{"id": 8, "timestamp": 1704103260, "status": "COMPLETED", "duration_seconds": 12.5, "category_key": "upscale"},
				{"id": 9, "timestamp": "2024-01-01 10:02:00", "status": "FAILED"}
			],
			"total": 42,
			"next_continuation": "tok-2",
			"has_more": true
		}`)
	})

	params := pagination.DefaultParams()
	params.Direction = ordering.Asc
	params.Limit = 20
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	params.Since = &since

	page, err := client.FetchPage(context.Background(), pagination.After(params, ordering.Key{TimeMillis: 1704103200000, ID: 7}))
	require.NoError(t, err)

	require.Len(t, page.Records, 2)
	assert.Equal(t, int64(8), page.Records[0].ID)
	assert.Equal(t, model.RecordStatusSuccess, page.Records[0].Status)
	assert.Equal(t, model.RecordStatusError, page.Records[1].Status)
	assert.Equal(t, int64(1704103260000), ordering.KeyOf(page.Records[0]).TimeMillis)
	require.NotNil(t, page.Total)
	assert.Equal(t, int64(42), *page.Total)
	assert.Equal(t, "tok-2", page.Continuation)
	assert.True(t, page.HasMore)
}

func TestFetchPage_ContinuationReplacesKeyset(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "tok-2", q.Get("continuation"))
		assert.Empty(t, q.Get("after_id"))
		assert.Equal(t, "desc", q.Get("sort_direction"))
		io.WriteString(w, `{"has_more": false}`)
	})

	cursor := pagination.After(pagination.DefaultParams(), ordering.Key{TimeMillis: 1, ID: 1})
	cursor.Continuation = "tok-2"

	page, err := client.FetchPage(context.Background(), cursor)
	require.NoError(t, err)
	assert.NotNil(t, page.Records)
	assert.Empty(t, page.Records)
	assert.Nil(t, page.Total)
	assert.False(t, page.HasMore)
}

func TestFetchSnapshot(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, queuePath, r.URL.Path)
		io.WriteString(w, `{
			"paused": true,
			"running": [{"id": "r1", "number": 1, "category_key": "render"}],
			"pending": [{"id": "p1", "number": 2}, {"id": "p2", "number": 3}],
			"persisted": [{"id": "s1", "position": 1}]
		}`)
	})

	snap, err := client.FetchSnapshot(context.Background())
	require.NoError(t, err)
	assert.True(t, snap.Paused)
	require.Len(t, snap.Running, 1)
	assert.Equal(t, "render", snap.Running[0].CategoryKey)
	assert.Len(t, snap.Pending, 2)
	assert.Len(t, snap.Persisted, 1)
}

func TestDispatch(t *testing.T) {
	var got model.Intent
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, intentsPath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	})

	intent := model.Intent{ID: "i-1", Kind: model.IntentRename, ItemIDs: []string{"p1"}, Text: "hero shot"}
	require.NoError(t, client.Dispatch(context.Background(), intent))
	assert.Equal(t, "i-1", got.ID)
	assert.Equal(t, model.IntentRename, got.Kind)
	assert.Equal(t, "hero shot", got.Text)
}

func TestRemoteErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == queuePath {
			io.WriteString(w, `{not json`)
			return
		}
		http.Error(w, "queue offline", http.StatusServiceUnavailable)
	})
	ctx := context.Background()

	_, err := client.FetchPage(ctx, pagination.First(pagination.DefaultParams()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
	assert.Contains(t, err.Error(), "queue offline")

	_, err = client.FetchSnapshot(ctx)
	assert.Error(t, err)

	assert.Error(t, client.Dispatch(ctx, model.Intent{ID: "x", Kind: model.IntentPause}))
}

func TestFetchPage_ContextCancelled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{}`)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchPage(ctx, pagination.First(pagination.DefaultParams()))
	assert.Error(t, err)
}
