package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/goteo/org.goteo.www-sub000/internal/action"
	"github.com/goteo/org.goteo.www-sub000/internal/i18n"
	"github.com/goteo/org.goteo.www-sub000/internal/payment"
	"github.com/goteo/org.goteo.www-sub000/internal/v4"
)

// PaymentService is the slice of the payment action the handler consumes.
type PaymentService interface {
	Submit(ctx context.Context, ownerID, accountingID, bearer string, req payment.Request) (*v4.GatewayCheckout, error)
}

type PaymentHandler struct {
	payments   PaymentService
	carts      CartService
	translator *i18n.Translator
	timeout    time.Duration
	log        zerolog.Logger
}

func NewPaymentHandler(payments PaymentService, carts CartService, translator *i18n.Translator, timeout time.Duration, log zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, carts: carts, translator: translator, timeout: timeout, log: log}
}

type PaymentRequestDTO struct {
	Method         string `json:"method"`
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
	ReturnURL      string `json:"returnUrl,omitempty"`
}

type PaymentResponseDTO struct {
	CheckoutID int64  `json:"checkoutId"`
	Status     string `json:"status"`
	PaymentURL string `json:"paymentUrl,omitempty"`
}

// Submit charges the server-side cart, never client-supplied lines; the
// browser only picks the payment method.
func (h *PaymentHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sess := SessionFrom(r.Context())
	if sess == nil {
		respondError(w, r, h.translator, h.log, action.Unauthorized("auth.unauthorized"))
		return
	}

	var req PaymentRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, h.translator, h.log, action.Invalid("validation.invalidBody"))
		return
	}

	cart := h.carts.Get(ctx, OwnerFrom(r.Context()))

	checkout, err := h.payments.Submit(ctx, OwnerFrom(r.Context()), sess.AccountingID, sess.Token, payment.Request{
		Method:         req.Method,
		IdempotencyKey: req.IdempotencyKey,
		ReturnURL:      req.ReturnURL,
		Items:          cart.Items,
	})
	if err != nil {
		respondError(w, r, h.translator, h.log, err)
		return
	}

	respondJSON(w, http.StatusCreated, PaymentResponseDTO{
		CheckoutID: checkout.ID,
		Status:     checkout.Status,
		PaymentURL: checkout.PaymentURL(),
	})
}
