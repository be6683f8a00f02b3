// Package cart implements the donation cart store: per-session pending
// contributions persisted as one document, with a Redis cache in front.
package cart

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/goteo/org.goteo.www-sub000/internal/cart/cache"
	"github.com/goteo/org.goteo.www-sub000/internal/cart/repository"
	"github.com/goteo/org.goteo.www-sub000/internal/domain"
)

type Service struct {
	repo      repository.CartRepository
	cache     cache.CartCache
	sfg       singleflight.Group // prevents cache stampede on reads
	freeLabel string
	log       zerolog.Logger
}

func NewService(repo repository.CartRepository, cache cache.CartCache, freeDonationLabel string, log zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		cache:     cache,
		freeLabel: freeDonationLabel,
		log:       log,
	}
}

// Get loads the owner's cart. Missing or unreadable persisted state comes
// back as an empty cart; storage trouble is logged, never surfaced.
//
// Every caller receives its own copy: collapsed concurrent loads share
// one fetch, never one mutable cart.
func (s *Service) Get(ctx context.Context, ownerID string) *domain.Cart {
	v, err, _ := s.sfg.Do(ownerID, func() (any, error) {
		cart, err := s.cache.Get(ctx, ownerID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn().Err(err).Str("owner", ownerID).Msg("cart cache read failed")
		}

		cart, err = s.repo.GetCart(ctx, ownerID)
		if err != nil {
			if !errors.Is(err, repository.ErrCartNotFound) {
				s.log.Warn().Err(err).Str("owner", ownerID).Msg("cart load failed, starting empty")
			}
			return &domain.Cart{OwnerID: ownerID, CreatedAt: time.Now(), UpdatedAt: time.Now()}, nil
		}

		go func() {
			if err := s.cache.Set(context.Background(), ownerID, cart); err != nil {
				s.log.Warn().Err(err).Str("owner", ownerID).Msg("cart cache write failed")
			}
		}()

		return cart, nil
	})
	if err != nil {
		// The closure never returns an error; keep the compiler honest.
		return &domain.Cart{OwnerID: ownerID}
	}
	return v.(*domain.Cart).Clone()
}

// AddItem inserts or overwrites the line matching (target, title) and
// returns the resulting cart. See domain.Cart.AddItem for the quantity
// semantics.
func (s *Service) AddItem(ctx context.Context, ownerID string, item domain.CartItem) *domain.Cart {
	cart := s.Get(ctx, ownerID)
	if cart.AddItem(item, s.freeLabel) {
		s.persist(ctx, cart)
	}
	return cart
}

// UpdateQuantity sets a line's quantity; zero removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, ownerID, key string, quantity int) *domain.Cart {
	cart := s.Get(ctx, ownerID)
	if cart.UpdateQuantity(key, quantity) {
		s.persist(ctx, cart)
	}
	return cart
}

// RemoveItem drops a line by key; no-op when absent.
func (s *Service) RemoveItem(ctx context.Context, ownerID, key string) *domain.Cart {
	cart := s.Get(ctx, ownerID)
	if cart.RemoveItem(key) {
		s.persist(ctx, cart)
	}
	return cart
}

// ClearProject removes one project's lines, leaving the rest intact.
func (s *Service) ClearProject(ctx context.Context, ownerID, projectID string) *domain.Cart {
	cart := s.Get(ctx, ownerID)
	if cart.ClearProject(projectID) {
		s.persist(ctx, cart)
	}
	return cart
}

// Merge folds the lines collected under fromOwner into toOwner's cart
// and discards the source, so a cart filled before logging in follows the
// visitor into the account. Lines landing on an existing (target, title)
// pair overwrite it, last write wins.
func (s *Service) Merge(ctx context.Context, fromOwner, toOwner string) *domain.Cart {
	if fromOwner == "" || fromOwner == toOwner {
		return s.Get(ctx, toOwner)
	}

	source := s.Get(ctx, fromOwner)
	target := s.Get(ctx, toOwner)
	if len(source.Items) == 0 {
		return target
	}

	changed := false
	for _, item := range source.Items {
		item.Key = ""
		if target.AddItem(item, s.freeLabel) {
			changed = true
		}
	}
	if changed {
		s.persist(ctx, target)
	}

	if err := s.repo.DeleteCart(ctx, fromOwner); err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		s.log.Warn().Err(err).Str("owner", fromOwner).Msg("merged cart delete failed")
	}
	s.invalidate(fromOwner)

	return target
}

// Clear empties the cart and erases its persisted state.
func (s *Service) Clear(ctx context.Context, ownerID string) *domain.Cart {
	if err := s.repo.DeleteCart(ctx, ownerID); err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		s.log.Warn().Err(err).Str("owner", ownerID).Msg("cart delete failed")
	}
	s.invalidate(ownerID)
	return &domain.Cart{OwnerID: ownerID, CreatedAt: time.Now(), UpdatedAt: time.Now()}
}

// persist writes the whole cart. A failed write is logged but does not
// roll back the in-memory result handed to the caller; the UI may briefly
// diverge from storage, same as the localStorage original on quota errors.
func (s *Service) persist(ctx context.Context, cart *domain.Cart) {
	if err := s.repo.UpsertCart(ctx, cart); err != nil {
		s.log.Warn().Err(err).Str("owner", cart.OwnerID).Msg("cart persist failed")
	}
	s.invalidate(cart.OwnerID)
}

func (s *Service) invalidate(ownerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, ownerID); err != nil {
		s.log.Warn().Err(err).Str("owner", ownerID).Msg("cart cache invalidate failed")
	}
}
