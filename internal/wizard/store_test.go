package wizard

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewStore(client, zerolog.Nop()), mr
}

func TestLoad_MissingYieldsFreshProgress(t *testing.T) {
	store, _ := setupStore(t)

	progress := store.Load(context.Background(), "u1")

	assert.Equal(t, 0, progress.Step)
	assert.Empty(t, progress.Fields)
}

func TestSaveThenLoad(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	saved := &Progress{
		Step: 2,
		Fields: map[string]json.RawMessage{
			"title":    json.RawMessage(`"My project"`),
			"minimum":  json.RawMessage(`4000`),
			"calendar": json.RawMessage(`{"release":"2026-10-01"}`),
		},
	}
	require.NoError(t, store.Save(ctx, "u1", saved))

	got := store.Load(ctx, "u1")
	assert.Equal(t, 2, got.Step)
	assert.JSONEq(t, `"My project"`, string(got.Fields["title"]))
	assert.WithinDuration(t, time.Now(), got.UpdatedAt, time.Minute)
}

func TestLoad_CorruptRecordYieldsFreshProgress(t *testing.T) {
	store, mr := setupStore(t)

	require.NoError(t, mr.Set("wizard:u1", "{broken"))

	progress := store.Load(context.Background(), "u1")
	assert.Equal(t, 0, progress.Step)
}

func TestSave_SetsExpiry(t *testing.T) {
	store, mr := setupStore(t)

	require.NoError(t, store.Save(context.Background(), "u1", &Progress{Step: 1}))

	assert.Greater(t, mr.TTL("wizard:u1"), 6*24*time.Hour)
}

func TestReset(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "u1", &Progress{Step: 3}))
	require.NoError(t, store.Reset(ctx, "u1"))

	assert.False(t, mr.Exists("wizard:u1"))
	assert.Equal(t, 0, store.Load(ctx, "u1").Step)
}
