package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/goteo/org.goteo.www-sub000/internal/action"
	"github.com/goteo/org.goteo.www-sub000/internal/auth"
	"github.com/goteo/org.goteo.www-sub000/internal/i18n"
)

// AuthService is the slice of the auth actions the handler consumes.
type AuthService interface {
	Login(ctx context.Context, identifier, password string) (*auth.Session, error)
	Register(ctx context.Context, form auth.RegisterForm) (*auth.Session, error)
	Logout(ctx context.Context, sess *auth.Session) error
}

type AuthHandler struct {
	svc        AuthService
	carts      CartService
	codec      *auth.CookieCodec
	translator *i18n.Translator
	timeout    time.Duration
	log        zerolog.Logger
}

func NewAuthHandler(svc AuthService, carts CartService, codec *auth.CookieCodec, translator *i18n.Translator, timeout time.Duration, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, carts: carts, codec: codec, translator: translator, timeout: timeout, log: log}
}

type LoginRequestDTO struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type SessionResponseDTO struct {
	UserID       int64  `json:"userId"`
	AccountingID string `json:"accountingId"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req LoginRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, h.translator, h.log, action.Invalid("validation.invalidBody"))
		return
	}
	if req.Identifier == "" || req.Password == "" {
		respondError(w, r, h.translator, h.log, action.Unauthorized("auth.invalidCredentials"))
		return
	}

	sess, err := h.svc.Login(ctx, req.Identifier, req.Password)
	if err != nil {
		respondError(w, r, h.translator, h.log, err)
		return
	}

	h.respondWithSession(w, r, sess)
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var form auth.RegisterForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		respondError(w, r, h.translator, h.log, action.Invalid("validation.invalidBody"))
		return
	}

	sess, err := h.svc.Register(ctx, form)
	if err != nil {
		respondError(w, r, h.translator, h.log, err)
		return
	}

	h.respondWithSession(w, r, sess)
}

// Logout clears the cookie even when the remote token deletion fails; a
// visitor must always be able to leave.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sess := SessionFrom(r.Context())
	if err := h.svc.Logout(ctx, sess); err != nil {
		respondError(w, r, h.translator, h.log, err)
		return
	}

	http.SetCookie(w, h.codec.Clear())
	respondJSON(w, http.StatusNoContent, nil)
}

func (h *AuthHandler) respondWithSession(w http.ResponseWriter, r *http.Request, sess *auth.Session) {
	cookie, err := h.codec.Encode(sess)
	if err != nil {
		respondError(w, r, h.translator, h.log, err)
		return
	}

	// A cart filled before logging in follows the visitor into the
	// account; the anonymous cart is folded in and discarded.
	if anon := OwnerFrom(r.Context()); anon != "" {
		h.carts.Merge(r.Context(), anon, userOwnerID(sess.UserID))
	}

	http.SetCookie(w, cookie)
	respondJSON(w, http.StatusOK, SessionResponseDTO{
		UserID:       sess.UserID,
		AccountingID: sess.AccountingID,
	})
}
