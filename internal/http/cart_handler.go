package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/goteo/org.goteo.www-sub000/internal/action"
	"github.com/goteo/org.goteo.www-sub000/internal/domain"
	"github.com/goteo/org.goteo.www-sub000/internal/i18n"
)

// CartService is the slice of the cart store the handlers consume.
type CartService interface {
	Get(ctx context.Context, ownerID string) *domain.Cart
	AddItem(ctx context.Context, ownerID string, item domain.CartItem) *domain.Cart
	UpdateQuantity(ctx context.Context, ownerID, key string, quantity int) *domain.Cart
	RemoveItem(ctx context.Context, ownerID, key string) *domain.Cart
	ClearProject(ctx context.Context, ownerID, projectID string) *domain.Cart
	Clear(ctx context.Context, ownerID string) *domain.Cart
	Merge(ctx context.Context, fromOwner, toOwner string) *domain.Cart
}

type CartHandler struct {
	carts      CartService
	translator *i18n.Translator
	timeout    time.Duration
	log        zerolog.Logger
}

func NewCartHandler(carts CartService, translator *i18n.Translator, timeout time.Duration, log zerolog.Logger) *CartHandler {
	return &CartHandler{carts: carts, translator: translator, timeout: timeout, log: log}
}

type AddItemRequestDTO struct {
	Title    string `json:"title"`
	Amount   int64  `json:"amount"`
	Quantity int    `json:"quantity"`
	Target   string `json:"target"`
	Project  string `json:"project,omitempty"`
	Currency string `json:"currency"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart := h.carts.Get(ctx, OwnerFrom(r.Context()))
	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, h.translator, h.log, action.Invalid("validation.invalidBody"))
		return
	}
	if req.Title == "" || req.Amount <= 0 || req.Target == "" || req.Currency == "" {
		respondError(w, r, h.translator, h.log, action.Invalid("cart.invalidItem"))
		return
	}

	cart := h.carts.AddItem(ctx, OwnerFrom(r.Context()), domain.CartItem{
		Title:    req.Title,
		Amount:   req.Amount,
		Quantity: req.Quantity,
		Target:   req.Target,
		Project:  req.Project,
		Currency: req.Currency,
	})
	respondJSON(w, http.StatusCreated, cart)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, h.translator, h.log, action.Invalid("validation.invalidBody"))
		return
	}

	cart := h.carts.UpdateQuantity(ctx, OwnerFrom(r.Context()), chi.URLParam(r, "key"), req.Quantity)
	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart := h.carts.RemoveItem(ctx, OwnerFrom(r.Context()), chi.URLParam(r, "key"))
	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) ClearProject(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart := h.carts.ClearProject(ctx, OwnerFrom(r.Context()), chi.URLParam(r, "project"))
	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart := h.carts.Clear(ctx, OwnerFrom(r.Context()))
	respondJSON(w, http.StatusOK, cart)
}
