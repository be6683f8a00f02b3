package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goteo/org.goteo.www-sub000/internal/domain"
)

type mockClearer struct {
	cleared []string
}

func (m *mockClearer) Clear(_ context.Context, ownerID string) *domain.Cart {
	m.cleared = append(m.cleared, ownerID)
	return &domain.Cart{OwnerID: ownerID}
}

func newTestPoller(clearer *mockClearer) *Poller {
	return &Poller{carts: clearer, log: zerolog.Nop()}
}

func TestHandle_CompletedPaymentClearsCart(t *testing.T) {
	clearer := &mockClearer{}
	p := newTestPoller(clearer)

	payload, err := json.Marshal(domain.PaymentEvent{
		CheckoutID: "3",
		OwnerID:    "u1",
		Gateway:    "paypal",
		Status:     domain.PaymentStatusCompleted,
	})
	require.NoError(t, err)

	p.handle(context.Background(), payload)

	assert.Equal(t, []string{"u1"}, clearer.cleared)
}

func TestHandle_DeniedPaymentKeepsCart(t *testing.T) {
	clearer := &mockClearer{}
	p := newTestPoller(clearer)

	payload, err := json.Marshal(domain.PaymentEvent{
		CheckoutID: "3",
		OwnerID:    "u1",
		Gateway:    "paypal",
		Status:     domain.PaymentStatusDenied,
	})
	require.NoError(t, err)

	p.handle(context.Background(), payload)

	assert.Empty(t, clearer.cleared)
}

func TestHandle_BadPayloadIgnored(t *testing.T) {
	clearer := &mockClearer{}
	p := newTestPoller(clearer)

	p.handle(context.Background(), []byte("{not json"))
	p.handle(context.Background(), []byte(`{"status":"COMPLETED"}`))

	assert.Empty(t, clearer.cleared, "events without an owner are dropped")
}
