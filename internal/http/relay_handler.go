package http

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Relay is the slice of the v4 client the relay endpoint consumes.
type Relay interface {
	Forward(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType, bearer string) (*http.Response, error)
}

// relayHeaders is the whitelist of upstream response headers passed back
// to the browser. Everything else, upstream cookies included, is dropped.
var relayHeaders = []string{
	"Content-Type",
	"Content-Language",
	"Cache-Control",
	"ETag",
	"Last-Modified",
	"Retry-After",
}

// RelayHandler proxies API calls to the v4 platform, attaching the
// session's bearer token server-side so it never reaches the browser.
type RelayHandler struct {
	api     Relay
	timeout time.Duration
	log     zerolog.Logger
}

func NewRelayHandler(api Relay, timeout time.Duration, log zerolog.Logger) *RelayHandler {
	return &RelayHandler{api: api, timeout: timeout, log: log}
}

func (h *RelayHandler) Proxy(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	path := strings.TrimPrefix(r.URL.Path, "/api/relay")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	bearer := ""
	if sess := SessionFrom(r.Context()); sess != nil {
		bearer = sess.Token
	}

	resp, err := h.api.Forward(ctx, r.Method, path, r.URL.Query(), r.Body, r.Header.Get("Content-Type"), bearer)
	if err != nil {
		h.log.Warn().Err(err).Str("path", path).Msg("relay request failed")
		respondJSON(w, http.StatusBadGateway, ErrorResponse{Error: "upstream unavailable"})
		return
	}
	defer resp.Body.Close()

	for _, name := range relayHeaders {
		if value := resp.Header.Get(name); value != "" {
			w.Header().Set(name, value)
		}
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		h.log.Warn().Err(err).Str("path", path).Msg("relay body copy interrupted")
	}
}
