// Package webhook handles gateway notifications delivered to the relay
// endpoint. PayPal capture events are parsed, matched back to the
// submission that created the checkout and republished internally.
//
// Deliveries are acknowledged unconditionally; a failed event is logged,
// never bounced back to the gateway for redelivery loops.
package webhook

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/goteo/org.goteo.www-sub000/internal/domain"
)

const (
	eventCaptureCompleted = "PAYMENT.CAPTURE.COMPLETED"
	eventCaptureDenied    = "PAYMENT.CAPTURE.DENIED"
)

type Publisher interface {
	PublishPaymentEvent(ctx context.Context, event domain.PaymentEvent) error
}

// SubmissionResolver maps a checkout id back to the submission that
// created it, so the event can carry the payer.
type SubmissionResolver interface {
	FindByCheckout(ctx context.Context, checkoutID string) (*domain.CheckoutSubmission, error)
}

type Receiver struct {
	publisher Publisher
	ledger    SubmissionResolver
	log       zerolog.Logger
}

func NewReceiver(publisher Publisher, ledger SubmissionResolver, log zerolog.Logger) *Receiver {
	return &Receiver{publisher: publisher, ledger: ledger, log: log}
}

// paypalEvent is the subset of a PayPal webhook delivery we read.
// CustomID carries the checkout id set at creation time.
type paypalEvent struct {
	ID         string `json:"id"`
	EventType  string `json:"event_type"`
	CreateTime string `json:"create_time"`
	Resource   struct {
		ID       string `json:"id"`
		CustomID string `json:"custom_id"`
		Status   string `json:"status"`
		Amount   struct {
			Value        string `json:"value"`
			CurrencyCode string `json:"currency_code"`
		} `json:"amount"`
	} `json:"resource"`
}

// Process inspects one delivery. Unknown event types and unparseable
// bodies are dropped after logging.
func (r *Receiver) Process(ctx context.Context, body []byte) {
	var event paypalEvent
	if err := json.Unmarshal(body, &event); err != nil {
		r.log.Warn().Err(err).Msg("unparseable webhook delivery")
		return
	}

	var status string
	switch event.EventType {
	case eventCaptureCompleted:
		status = domain.PaymentStatusCompleted
	case eventCaptureDenied:
		status = domain.PaymentStatusDenied
	default:
		r.log.Debug().Str("event_type", event.EventType).Msg("ignoring webhook event")
		return
	}

	checkoutID := event.Resource.CustomID
	if checkoutID == "" {
		r.log.Warn().Str("delivery", event.ID).Msg("capture event without checkout reference")
		return
	}

	payment := domain.PaymentEvent{
		CheckoutID: checkoutID,
		Status:     status,
		OccurredAt: parseTime(event.CreateTime),
	}
	if sub, err := r.ledger.FindByCheckout(ctx, checkoutID); err == nil {
		payment.OwnerID = sub.OwnerID
		payment.Gateway = sub.Gateway
	} else {
		r.log.Warn().Err(err).Str("checkout_id", checkoutID).Msg("no submission for capture event")
	}

	r.log.Info().
		Str("checkout_id", checkoutID).
		Str("status", status).
		Str("capture", event.Resource.ID).
		Msg("payment capture received")

	if err := r.publisher.PublishPaymentEvent(ctx, payment); err != nil {
		r.log.Error().Err(err).Str("checkout_id", checkoutID).Msg("payment event publish failed")
	}
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Now().UTC()
	}
	return t
}
