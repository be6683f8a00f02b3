package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/goteo/org.goteo.www-sub000/internal/auth"
	"github.com/goteo/org.goteo.www-sub000/internal/i18n"
)

type RouterDeps struct {
	Carts    CartService
	Auth     AuthService
	Payments PaymentService
	Wizard   WizardStore
	Relay    Relay
	Webhook  WebhookProcessor

	Codec      *auth.CookieCodec
	Translator *i18n.Translator
	Timeout    time.Duration
	Secure     bool
	Log        zerolog.Logger
}

func NewRouter(deps RouterDeps) chi.Router {
	cartHandler := NewCartHandler(deps.Carts, deps.Translator, deps.Timeout, deps.Log)
	authHandler := NewAuthHandler(deps.Auth, deps.Carts, deps.Codec, deps.Translator, deps.Timeout, deps.Log)
	paymentHandler := NewPaymentHandler(deps.Payments, deps.Carts, deps.Translator, deps.Timeout, deps.Log)
	wizardHandler := NewWizardHandler(deps.Wizard, deps.Translator, deps.Timeout, deps.Log)
	relayHandler := NewRelayHandler(deps.Relay, deps.Timeout, deps.Log)
	webhookHandler := NewWebhookHandler(deps.Webhook, deps.Log)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(deps.Log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(deps.Timeout))
	r.Use(middleware.Compress(5))
	r.Use(SessionMiddleware(deps.Codec, deps.Secure))
	r.Use(LocaleMiddleware(deps.Translator))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{key}", cartHandler.UpdateQuantity)
			r.Delete("/items/{key}", cartHandler.RemoveItem)
			r.Delete("/projects/{project}", cartHandler.ClearProject)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)
			r.Post("/register", authHandler.Register)
			r.Post("/logout", authHandler.Logout)
		})

		r.Post("/payments", paymentHandler.Submit)

		r.Route("/wizard", func(r chi.Router) {
			r.Get("/", wizardHandler.Get)
			r.Put("/", wizardHandler.Put)
			r.Delete("/", wizardHandler.Delete)
		})

		r.Handle("/relay/*", http.HandlerFunc(relayHandler.Proxy))

		r.Post("/received", webhookHandler.Receive)
	})

	return r
}
