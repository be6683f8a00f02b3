package cache

import (
	"context"
	"errors"

	"github.com/goteo/org.goteo.www-sub000/internal/domain"
)

// CartCache sits in front of the cart repository; consumers define the
// interface, not the Redis implementation.
type CartCache interface {
	Get(ctx context.Context, ownerID string) (*domain.Cart, error)
	Set(ctx context.Context, ownerID string, cart *domain.Cart) error
	Delete(ctx context.Context, ownerID string) error
}

var ErrCacheMiss = errors.New("cache miss")
