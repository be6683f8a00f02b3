package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/goteo/org.goteo.www-sub000/internal/action"
	"github.com/goteo/org.goteo.www-sub000/internal/i18n"
	"github.com/goteo/org.goteo.www-sub000/internal/wizard"
)

// WizardStore is the slice of the wizard progress store the handler
// consumes.
type WizardStore interface {
	Load(ctx context.Context, ownerID string) *wizard.Progress
	Save(ctx context.Context, ownerID string, progress *wizard.Progress) error
	Reset(ctx context.Context, ownerID string) error
}

type WizardHandler struct {
	store      WizardStore
	translator *i18n.Translator
	timeout    time.Duration
	log        zerolog.Logger
}

func NewWizardHandler(store WizardStore, translator *i18n.Translator, timeout time.Duration, log zerolog.Logger) *WizardHandler {
	return &WizardHandler{store: store, translator: translator, timeout: timeout, log: log}
}

func (h *WizardHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	respondJSON(w, http.StatusOK, h.store.Load(ctx, OwnerFrom(r.Context())))
}

func (h *WizardHandler) Put(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var progress wizard.Progress
	if err := json.NewDecoder(r.Body).Decode(&progress); err != nil {
		respondError(w, r, h.translator, h.log, action.Invalid("validation.invalidBody"))
		return
	}

	if err := h.store.Save(ctx, OwnerFrom(r.Context()), &progress); err != nil {
		respondError(w, r, h.translator, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, progress)
}

func (h *WizardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.store.Reset(ctx, OwnerFrom(r.Context())); err != nil {
		respondError(w, r, h.translator, h.log, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
