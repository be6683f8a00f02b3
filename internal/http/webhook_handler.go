package http

import (
	"context"
	"io"
	"net/http"

	"github.com/rs/zerolog"
)

// WebhookProcessor handles one raw gateway delivery.
type WebhookProcessor interface {
	Process(ctx context.Context, body []byte)
}

const maxWebhookBody = 1 << 20

// WebhookHandler receives gateway notifications. Deliveries are always
// answered 200 so the gateway never retries; whatever goes wrong with a
// payload is handled internally.
type WebhookHandler struct {
	processor WebhookProcessor
	log       zerolog.Logger
}

func NewWebhookHandler(processor WebhookProcessor, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{processor: processor, log: log}
}

func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.log.Warn().Err(err).Msg("webhook body read failed")
	} else {
		h.processor.Process(r.Context(), body)
	}

	respondJSON(w, http.StatusOK, map[string]bool{"received": true})
}
