package repository

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"

	"github.com/goteo/org.goteo.www-sub000/internal/domain"
)

// These tests spin up a real MongoDB via testcontainers. Set INTEGRATION=1
// to run them.
func setupTestDB(t *testing.T) CartRepository {
	t.Helper()
	if os.Getenv("INTEGRATION") == "" {
		t.Skip("set INTEGRATION=1 to run container-backed tests")
	}

	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := ConnectMongoDB(ctx, uri, "testdb")
	require.NoError(t, err)

	require.NoError(t, CreateIndexes(ctx, db))

	repo := NewMongoRepository(db)

	return repo
}

func TestGetCart_NotFound(t *testing.T) {
	repo := setupTestDB(t)

	cart, err := repo.GetCart(context.Background(), "nonexistent")

	assert.ErrorIs(t, err, ErrCartNotFound)
	assert.Nil(t, cart)
}

func TestUpsertCart_RoundTrip(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	cart := &domain.Cart{
		OwnerID: "u1",
		Items: []domain.CartItem{
			{Key: "9-R-0", Title: "Poster", Amount: 2500, Quantity: 2, Target: "9", Project: "42", Currency: "EUR"},
		},
		NextSeq: 1,
	}
	require.NoError(t, repo.UpsertCart(ctx, cart))

	got, err := repo.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, cart.Items, got.Items)
	assert.Equal(t, int64(1), got.NextSeq)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestUpsertCart_LastWriteWins(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	first := &domain.Cart{OwnerID: "u1", Items: []domain.CartItem{
		{Key: "9-R-0", Title: "Poster", Amount: 2500, Quantity: 1, Target: "9", Currency: "EUR"},
	}, NextSeq: 1}
	second := &domain.Cart{OwnerID: "u1", Items: []domain.CartItem{
		{Key: "9-R-1", Title: "Zine", Amount: 500, Quantity: 3, Target: "9", Currency: "EUR"},
	}, NextSeq: 2}

	require.NoError(t, repo.UpsertCart(ctx, first))
	require.NoError(t, repo.UpsertCart(ctx, second))

	got, err := repo.GetCart(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Zine", got.Items[0].Title)
}

func TestDeleteCart(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertCart(ctx, &domain.Cart{OwnerID: "u1"}))
	require.NoError(t, repo.DeleteCart(ctx, "u1"))

	_, err := repo.GetCart(ctx, "u1")
	assert.ErrorIs(t, err, ErrCartNotFound)

	assert.ErrorIs(t, repo.DeleteCart(ctx, "u1"), ErrCartNotFound)
}
