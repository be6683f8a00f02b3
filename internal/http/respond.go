package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/goteo/org.goteo.www-sub000/internal/action"
	"github.com/goteo/org.goteo.www-sub000/internal/i18n"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Key   string `json:"key,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	// Headers are already out; an encode failure here can only be logged
	// by the request logger seeing the short write.
	_ = json.NewEncoder(w).Encode(data)
}

// respondError localizes action errors for the request's locale. Anything
// that is not an action error answers 500 with a generic message; the
// cause stays in the server logs.
func respondError(w http.ResponseWriter, r *http.Request, t *i18n.Translator, log zerolog.Logger, err error) {
	locale := LocaleFrom(r.Context())

	var actionErr *action.Error
	if errors.As(err, &actionErr) {
		if actionErr.Err != nil {
			log.Warn().Err(actionErr.Err).Str("key", actionErr.Key).Msg("action failed")
		}
		respondJSON(w, actionErr.Status, ErrorResponse{
			Error: t.T(locale, actionErr.Key, actionErr.Args...),
			Key:   actionErr.Key,
		})
		return
	}

	log.Error().Err(err).Msg("unhandled error")
	respondJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error: t.T(locale, "payment.genericError"),
	})
}
