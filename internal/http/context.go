// Package http exposes the web app's endpoints: cart, auth, payment,
// wizard, the v4 relay and the gateway webhook.
package http

import (
	"context"
	"strconv"

	"github.com/goteo/org.goteo.www-sub000/internal/auth"
)

type contextKey int

const (
	sessionKey contextKey = iota
	ownerKey
	localeKey
)

// SessionFrom returns the decoded session, or nil for anonymous visitors.
func SessionFrom(ctx context.Context) *auth.Session {
	sess, _ := ctx.Value(sessionKey).(*auth.Session)
	return sess
}

// OwnerFrom returns the cart owner id: the user id when logged in,
// otherwise the anonymous session id from the cart-session cookie.
func OwnerFrom(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey).(string)
	return owner
}

// LocaleFrom returns the locale resolved for the request.
func LocaleFrom(ctx context.Context) string {
	locale, _ := ctx.Value(localeKey).(string)
	return locale
}

func userOwnerID(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
