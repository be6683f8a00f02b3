package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/goteo/org.goteo.www-sub000/internal/auth"
	"github.com/goteo/org.goteo.www-sub000/internal/i18n"
)

// CartSessionCookie identifies anonymous visitors so their cart survives
// across requests before they log in.
const CartSessionCookie = "cart-session"

// SessionMiddleware decodes the access-token cookie into the request
// context and settles the cart owner: the user id when a valid session
// exists, otherwise an anonymous id from the cart-session cookie, minted
// on first contact.
func SessionMiddleware(codec *auth.CookieCodec, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if sess, err := codec.Decode(r); err == nil {
				ctx = context.WithValue(ctx, sessionKey, sess)
				ctx = context.WithValue(ctx, ownerKey, userOwnerID(sess.UserID))
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			anon := ""
			if cookie, err := r.Cookie(CartSessionCookie); err == nil && cookie.Value != "" {
				anon = cookie.Value
			}
			if anon == "" {
				anon = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     CartSessionCookie,
					Value:    anon,
					Path:     "/",
					MaxAge:   int((30 * 24 * time.Hour).Seconds()),
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx = context.WithValue(ctx, ownerKey, anon)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LocaleMiddleware resolves the request locale from path prefix, cookie
// and Accept-Language, and advertises the choice back.
func LocaleMiddleware(t *i18n.Translator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			locale := t.Resolve(r)
			w.Header().Set("Content-Language", locale)
			ctx := context.WithValue(r.Context(), localeKey, locale)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestLogger emits one structured line per request.
func RequestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}
