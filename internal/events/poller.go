package events

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/goteo/org.goteo.www-sub000/internal/domain"
)

// CartClearer is the slice of the cart service the poller needs.
type CartClearer interface {
	Clear(ctx context.Context, ownerID string) *domain.Cart
}

// Poller consumes payment events and empties the payer's cart once the
// gateway confirms the capture, the server-side counterpart of the
// browser clearing its cart on the payment return page.
type Poller struct {
	carts  CartClearer
	reader *kafka.Reader
	log    zerolog.Logger
}

func NewPoller(carts CartClearer, log zerolog.Logger, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    Topic,
		GroupID:  "webapp-cart-clear",
		MaxBytes: 10e6,
	})
	return &Poller{carts: carts, reader: reader, log: log}
}

func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		m, err := p.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			p.log.Warn().Err(err).Msg("payment event read failed")
			continue
		}
		p.handle(ctx, m.Value)
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.log.Warn().Err(err).Msg("error closing kafka reader")
	}
}

func (p *Poller) handle(ctx context.Context, value []byte) {
	var event domain.PaymentEvent
	if err := json.Unmarshal(value, &event); err != nil {
		p.log.Warn().Err(err).Msg("unparseable payment event")
		return
	}
	if event.Status != domain.PaymentStatusCompleted {
		return
	}
	if event.OwnerID == "" {
		p.log.Warn().Str("checkout_id", event.CheckoutID).Msg("payment event without owner")
		return
	}

	p.carts.Clear(ctx, event.OwnerID)
	p.log.Info().
		Str("owner", event.OwnerID).
		Str("checkout_id", event.CheckoutID).
		Msg("cart cleared after completed payment")
}
