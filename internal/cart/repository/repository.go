package repository

import (
	"context"
	"errors"

	"github.com/goteo/org.goteo.www-sub000/internal/domain"
)

var ErrCartNotFound = errors.New("cart not found")

// CartRepository persists whole carts. Mutations always write the full
// document, so concurrent sessions resolve last-write-wins, the same as
// two tabs sharing one localStorage key did.
type CartRepository interface {
	GetCart(ctx context.Context, ownerID string) (*domain.Cart, error)
	UpsertCart(ctx context.Context, cart *domain.Cart) error
	DeleteCart(ctx context.Context, ownerID string) error
}
