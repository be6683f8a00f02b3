package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName carries the signed session: user id, bearer token and the
// derived accounting id.
const CookieName = "access-token"

var ErrNoSession = errors.New("no session cookie")

// Session is the decoded access-token cookie payload.
type Session struct {
	UserID       int64
	Token        string // v4 bearer token
	TokenID      int64  // for token deletion at logout
	AccountingID string
	IssuedAt     time.Time
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Token        string `json:"tok"`
	TokenID      int64  `json:"tid"`
	AccountingID string `json:"acc"`
}

// CookieCodec signs and verifies the session cookie. The cookie is
// httpOnly and path-scoped; Secure is disabled only for local development.
type CookieCodec struct {
	key    []byte
	secure bool
	maxAge time.Duration
}

func NewCookieCodec(key []byte, secure bool) *CookieCodec {
	return &CookieCodec{key: key, secure: secure, maxAge: 24 * time.Hour}
}

func (c *CookieCodec) Encode(s *Session) (*http.Cookie, error) {
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(s.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(s.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(s.IssuedAt.Add(c.maxAge)),
		},
		Token:        s.Token,
		TokenID:      s.TokenID,
		AccountingID: s.AccountingID,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return nil, fmt.Errorf("sign session cookie: %w", err)
	}

	return &http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(c.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// Decode reads and verifies the session cookie. Absent, expired or
// tampered cookies all come back as ErrNoSession.
func (c *CookieCodec) Decode(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil, ErrNoSession
	}

	var claims sessionClaims
	token, err := jwt.ParseWithClaims(cookie.Value, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.key, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrNoSession
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, ErrNoSession
	}

	return &Session{
		UserID:       userID,
		Token:        claims.Token,
		TokenID:      claims.TokenID,
		AccountingID: claims.AccountingID,
		IssuedAt:     claims.IssuedAt.Time,
	}, nil
}

// Clear expires the cookie immediately.
func (c *CookieCodec) Clear() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
