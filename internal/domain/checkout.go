package domain

import "time"

// CheckoutSubmission records one gateway-checkout creation keyed by the
// client-supplied idempotency key. A repeated key returns the original
// checkout instead of creating a second one.
type CheckoutSubmission struct {
	IdempotencyKey string    `json:"idempotency_key"`
	CheckoutID     string    `json:"checkout_id"`
	OwnerID        string    `json:"owner_id"`
	Gateway        string    `json:"gateway"`
	TotalAmount    int64     `json:"total_amount"`
	CreatedAt      time.Time `json:"created_at"`
}

// PaymentEvent is published when a gateway reports a completed capture.
// Consumers use it to clear the payer's cart.
type PaymentEvent struct {
	CheckoutID string    `json:"checkout_id"`
	OwnerID    string    `json:"owner_id"`
	Gateway    string    `json:"gateway"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

const (
	PaymentStatusCompleted = "COMPLETED"
	PaymentStatusDenied    = "DENIED"
)
