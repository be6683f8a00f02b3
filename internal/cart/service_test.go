package cart

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goteo/org.goteo.www-sub000/internal/cart/cache"
	"github.com/goteo/org.goteo.www-sub000/internal/cart/repository"
	"github.com/goteo/org.goteo.www-sub000/internal/domain"
)

const freeLabel = "Free donation"

type mockRepository struct {
	m         sync.RWMutex
	carts     map[string]*domain.Cart
	getErr    error
	upsertErr error
	upserts   int
}

func (m *mockRepository) stored(ownerID string) *domain.Cart {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.carts[ownerID]
}

func (m *mockRepository) GetCart(_ context.Context, ownerID string) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	cart, ok := m.carts[ownerID]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	clone := *cart
	clone.Items = append([]domain.CartItem(nil), cart.Items...)
	return &clone, nil
}

func (m *mockRepository) UpsertCart(_ context.Context, c *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.upserts++
	if m.upsertErr != nil {
		return m.upsertErr
	}
	if m.carts == nil {
		m.carts = make(map[string]*domain.Cart)
	}
	clone := *c
	clone.Items = append([]domain.CartItem(nil), c.Items...)
	m.carts[c.OwnerID] = &clone
	return nil
}

func (m *mockRepository) DeleteCart(_ context.Context, ownerID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if _, ok := m.carts[ownerID]; !ok {
		return repository.ErrCartNotFound
	}
	delete(m.carts, ownerID)
	return nil
}

type mockCache struct {
	m     sync.RWMutex
	carts map[string]*domain.Cart
	err   error
}

func (m *mockCache) stored(ownerID string) *domain.Cart {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.carts[ownerID]
}

func (m *mockCache) Get(_ context.Context, ownerID string) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	cart, ok := m.carts[ownerID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return cart, nil
}

func (m *mockCache) Set(_ context.Context, ownerID string, cart *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.carts == nil {
		m.carts = make(map[string]*domain.Cart)
	}
	m.carts[ownerID] = cart
	return m.err
}

func (m *mockCache) Delete(_ context.Context, ownerID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	delete(m.carts, ownerID)
	return m.err
}

func newService(repo *mockRepository, c *mockCache) *Service {
	return NewService(repo, c, freeLabel, zerolog.Nop())
}

func item(target, title string, amount int64, qty int, project string) domain.CartItem {
	return domain.CartItem{
		Title:    title,
		Amount:   amount,
		Quantity: qty,
		Target:   target,
		Project:  project,
		Currency: "EUR",
	}
}

func TestGet_MissingCartIsEmpty(t *testing.T) {
	svc := newService(&mockRepository{}, &mockCache{})

	cart := svc.Get(context.Background(), "u1")

	assert.Equal(t, "u1", cart.OwnerID)
	assert.Empty(t, cart.Items)
}

func TestGet_RepoFailureDegradesToEmptyCart(t *testing.T) {
	repo := &mockRepository{getErr: errors.New("connection reset")}
	svc := newService(repo, &mockCache{})

	cart := svc.Get(context.Background(), "u1")

	assert.Empty(t, cart.Items)
}

func TestGet_ReturnsIndependentCopies(t *testing.T) {
	repo := &mockRepository{carts: map[string]*domain.Cart{
		"u1": {OwnerID: "u1", Items: []domain.CartItem{item("42", "Poster", 2500, 1, "p1")}},
	}}
	svc := newService(repo, &mockCache{})
	ctx := context.Background()

	first := svc.Get(ctx, "u1")
	first.Items[0].Quantity = 99
	first.Items = nil

	second := svc.Get(ctx, "u1")
	require.Len(t, second.Items, 1)
	assert.Equal(t, 1, second.Items[0].Quantity)
}

func TestAddItem_ConcurrentMutationsStaySane(t *testing.T) {
	repo := &mockRepository{}
	svc := newService(repo, &mockCache{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.AddItem(ctx, "u1", item("42", gofakeit.ProductName(), 1000, i+1, "p1"))
		}()
	}
	wg.Wait()

	// Last write wins per line, but every caller worked on its own copy;
	// the persisted cart is a valid snapshot of one of them.
	cart := svc.Get(ctx, "u1")
	for _, line := range cart.Items {
		assert.NotEmpty(t, line.Key)
		assert.Positive(t, line.Quantity)
	}
}

func TestAddItem_PersistsAndInvalidatesCache(t *testing.T) {
	repo := &mockRepository{}
	c := &mockCache{carts: map[string]*domain.Cart{"u1": {OwnerID: "u1"}}}
	svc := newService(repo, c)

	cart := svc.AddItem(context.Background(), "u1", item("42", gofakeit.ProductName(), 2500, 1, "p1"))

	require.Len(t, cart.Items, 1)
	require.NotNil(t, repo.stored("u1"))
	assert.Equal(t, cart.Items, repo.stored("u1").Items)
	assert.Nil(t, c.stored("u1"), "cache entry invalidated after mutation")
}

func TestAddItem_PersistFailureDoesNotRollBack(t *testing.T) {
	repo := &mockRepository{upsertErr: errors.New("quota exceeded")}
	svc := newService(repo, &mockCache{})

	cart := svc.AddItem(context.Background(), "u1", item("42", "Poster", 2500, 1, "p1"))

	// The in-memory result still reflects the mutation.
	require.Len(t, cart.Items, 1)
	assert.Nil(t, repo.stored("u1"))
}

func TestAddItem_NoOpSkipsPersistence(t *testing.T) {
	repo := &mockRepository{}
	svc := newService(repo, &mockCache{})

	svc.AddItem(context.Background(), "u1", item("42", "Poster", 2500, 0, "p1"))

	assert.Zero(t, repo.upserts)
}

func TestUpdateQuantity_ZeroRemovesLine(t *testing.T) {
	repo := &mockRepository{}
	svc := newService(repo, &mockCache{})

	cart := svc.AddItem(context.Background(), "u1", item("42", "Poster", 2500, 2, "p1"))
	key := cart.Items[0].Key

	cart = svc.UpdateQuantity(context.Background(), "u1", key, 0)

	assert.Empty(t, cart.Items)
	assert.Empty(t, repo.stored("u1").Items)
}

func TestClear_ErasesPersistedState(t *testing.T) {
	repo := &mockRepository{}
	svc := newService(repo, &mockCache{})

	svc.AddItem(context.Background(), "u1", item("42", "Poster", 2500, 1, "p1"))
	cart := svc.Clear(context.Background(), "u1")

	assert.Empty(t, cart.Items)
	assert.Nil(t, repo.stored("u1"))
}

func TestClearProject_RemovesOnlyThatProject(t *testing.T) {
	repo := &mockRepository{}
	svc := newService(repo, &mockCache{})
	ctx := context.Background()

	svc.AddItem(ctx, "u1", item("42", "Poster", 1000, 1, "p1"))
	svc.AddItem(ctx, "u1", item("43", "Zine", 500, 2, "p2"))

	cart := svc.ClearProject(ctx, "u1", "p1")

	require.Len(t, cart.Items, 1)
	assert.Equal(t, "p2", cart.Items[0].Project)
}

func TestMerge_FoldsSourceIntoTargetAndDiscardsSource(t *testing.T) {
	repo := &mockRepository{}
	svc := newService(repo, &mockCache{})
	ctx := context.Background()

	svc.AddItem(ctx, "anon-1", item("42", "Poster", 2500, 2, "p1"))
	svc.AddItem(ctx, "7", item("43", "Zine", 500, 1, "p2"))

	merged := svc.Merge(ctx, "anon-1", "7")

	require.Len(t, merged.Items, 2)
	assert.Equal(t, "7", merged.OwnerID)
	assert.Nil(t, repo.stored("anon-1"), "source cart discarded")
	require.NotNil(t, repo.stored("7"))
	assert.Len(t, repo.stored("7").Items, 2)
}

func TestMerge_SameTargetTitleLastWriteWins(t *testing.T) {
	repo := &mockRepository{}
	svc := newService(repo, &mockCache{})
	ctx := context.Background()

	svc.AddItem(ctx, "anon-1", item("42", "Poster", 2500, 5, "p1"))
	svc.AddItem(ctx, "7", item("42", "Poster", 2500, 1, "p1"))

	merged := svc.Merge(ctx, "anon-1", "7")

	require.Len(t, merged.Items, 1)
	assert.Equal(t, 5, merged.Items[0].Quantity)
}

func TestMerge_EmptySourceLeavesTargetUntouched(t *testing.T) {
	repo := &mockRepository{}
	svc := newService(repo, &mockCache{})
	ctx := context.Background()

	svc.AddItem(ctx, "7", item("42", "Poster", 2500, 1, "p1"))
	before := repo.upserts

	merged := svc.Merge(ctx, "anon-1", "7")

	require.Len(t, merged.Items, 1)
	assert.Equal(t, before, repo.upserts, "nothing to fold in, nothing written")
}

func TestRoundTrip_PersistedCartReloadsEqual(t *testing.T) {
	repo := &mockRepository{}
	svc := newService(repo, &mockCache{})
	ctx := context.Background()

	svc.AddItem(ctx, "u1", item("42", "Poster", 1000, 3, "p1"))
	want := svc.AddItem(ctx, "u1", item("43", "Free donation", 2500, 1, "p2"))

	// A fresh service sees exactly the persisted lines.
	reloaded := newService(repo, &mockCache{}).Get(ctx, "u1")

	assert.Equal(t, want.Items, reloaded.Items)
	assert.Equal(t, want.NextSeq, reloaded.NextSeq)
}
