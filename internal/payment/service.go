// Package payment maps the cart into a single gateway checkout request
// and guards the submission with an idempotency ledger.
package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/goteo/org.goteo.www-sub000/internal/action"
	"github.com/goteo/org.goteo.www-sub000/internal/domain"
	"github.com/goteo/org.goteo.www-sub000/internal/payment/repository"
	"github.com/goteo/org.goteo.www-sub000/internal/v4"
)

// API is the slice of the v4 client the payment action consumes.
type API interface {
	ListGateways(ctx context.Context) ([]v4.Gateway, error)
	CreateGatewayCheckout(ctx context.Context, checkout *v4.GatewayCheckout, bearer string) (*v4.GatewayCheckout, error)
	GetGatewayCheckout(ctx context.Context, id string, bearer string) (*v4.GatewayCheckout, error)
}

type Service struct {
	api    API
	ledger repository.SubmissionLedger
	log    zerolog.Logger

	// The gateway list is fetched once per process lifetime and never
	// refreshed. The singleflight group keeps concurrent first callers
	// from racing the fetch.
	sfg      singleflight.Group
	mu       sync.RWMutex
	gateways []v4.Gateway
}

func NewService(api API, ledger repository.SubmissionLedger, log zerolog.Logger) *Service {
	return &Service{api: api, ledger: ledger, log: log}
}

// Request is the payment action input: a payment method plus the cart
// lines to charge.
type Request struct {
	Method         string            `json:"method"`
	IdempotencyKey string            `json:"idempotencyKey,omitempty"`
	ReturnURL      string            `json:"returnUrl,omitempty"`
	Items          []domain.CartItem `json:"items"`
}

// Submit validates the request, builds one charge per cart line
// (amount x quantity headed to the line's accounting) and creates the
// gateway checkout. A repeated idempotency key returns the original
// checkout instead of creating a new one.
func (s *Service) Submit(ctx context.Context, ownerID, accountingID, bearer string, req Request) (*v4.GatewayCheckout, error) {
	if len(req.Items) == 0 {
		return nil, action.Invalid("cart.empty")
	}
	for _, item := range req.Items {
		if item.Title == "" || item.Amount <= 0 || item.Quantity <= 0 || item.Target == "" {
			return nil, action.Invalid("cart.invalidItem")
		}
	}
	if accountingID == "" {
		return nil, action.Unauthorized("payment.missingAccounting")
	}

	allowed, err := s.availableGateways(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("gateway list fetch failed")
		return nil, action.Upstream("payment.genericError", err)
	}
	if !gatewayAllowed(allowed, req.Method) {
		return nil, action.Invalid("payment.invalidMethod")
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.NewString()
	}

	// Reserve the key before talking to the gateway. The ledger's unique
	// constraint makes two concurrent submissions with the same key
	// mutually exclusive: exactly one reservation wins and gets to create
	// the remote checkout.
	sub := &domain.CheckoutSubmission{
		IdempotencyKey: req.IdempotencyKey,
		OwnerID:        ownerID,
		Gateway:        req.Method,
		TotalAmount:    totalAmount(req.Items),
	}
	if err := s.ledger.Record(ctx, sub); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return s.replay(ctx, req.IdempotencyKey, bearer)
		}
		s.log.Warn().Err(err).Msg("idempotency reservation failed, proceeding")
	}

	checkout := &v4.GatewayCheckout{
		Gateway:   req.Method,
		Origin:    v4.IRI("accountings", accountingID),
		Charges:   buildCharges(req.Items),
		ReturnURL: req.ReturnURL,
		Metadata:  map[string]any{"owner": ownerID},
	}

	created, err := s.api.CreateGatewayCheckout(ctx, checkout, bearer)
	if err != nil {
		s.log.Error().Err(err).Str("gateway", req.Method).Msg("checkout creation failed")
		if rerr := s.ledger.Release(ctx, req.IdempotencyKey); rerr != nil {
			s.log.Warn().Err(rerr).Str("idempotency_key", req.IdempotencyKey).Msg("reservation release failed")
		}
		return nil, action.Upstream("payment.genericError", err)
	}

	checkoutID := fmt.Sprint(created.ID)
	if err := s.ledger.Complete(ctx, req.IdempotencyKey, checkoutID); err != nil {
		s.log.Warn().Err(err).Str("checkout_id", checkoutID).Msg("idempotency record failed")
	}

	return created, nil
}

// replay answers a submission whose key is already reserved. A filled-in
// checkout id means the original submission finished, so its checkout is
// fetched and returned; an empty one means it is still in flight and the
// caller has to back off.
func (s *Service) replay(ctx context.Context, idempotencyKey, bearer string) (*v4.GatewayCheckout, error) {
	existing, err := s.ledger.Find(ctx, idempotencyKey)
	if err != nil {
		s.log.Warn().Err(err).Str("idempotency_key", idempotencyKey).Msg("duplicate key lookup failed")
		return nil, action.Conflict("payment.duplicateSubmission")
	}
	if existing.CheckoutID == "" {
		return nil, action.Conflict("payment.duplicateSubmission")
	}
	s.log.Info().
		Str("idempotency_key", idempotencyKey).
		Str("checkout_id", existing.CheckoutID).
		Msg("duplicate payment submission, returning original checkout")
	return s.api.GetGatewayCheckout(ctx, existing.CheckoutID, bearer)
}

func buildCharges(items []domain.CartItem) []v4.GatewayCharge {
	charges := make([]v4.GatewayCharge, len(items))
	for i, item := range items {
		charges[i] = v4.GatewayCharge{
			Type:   v4.ChargeTypeSingle,
			Title:  item.Title,
			Money:  v4.Money{Amount: item.Amount * int64(item.Quantity), Currency: item.Currency},
			Target: v4.IRI("accountings", item.Target),
		}
	}
	return charges
}

func totalAmount(items []domain.CartItem) int64 {
	var total int64
	for _, item := range items {
		total += item.Amount * int64(item.Quantity)
	}
	return total
}

func gatewayAllowed(gateways []v4.Gateway, method string) bool {
	for _, g := range gateways {
		if g.Name == method {
			return true
		}
	}
	return false
}

func (s *Service) availableGateways(ctx context.Context) ([]v4.Gateway, error) {
	s.mu.RLock()
	cached := s.gateways
	s.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	v, err, _ := s.sfg.Do("gateways", func() (any, error) {
		s.mu.RLock()
		cached := s.gateways
		s.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}

		list, err := s.api.ListGateways(ctx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.gateways = list
		s.mu.Unlock()
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]v4.Gateway), nil
}
