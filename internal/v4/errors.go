package v4

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError is any non-2xx response from the v4 API. Detail is best-effort
// extracted from the problem+json / hydra error body.
type APIError struct {
	Status int
	Detail string
	Body   []byte
}

func newAPIError(status int, body []byte) *APIError {
	var problem struct {
		Detail      string `json:"detail"`
		Description string `json:"description"`
		HydraDesc   string `json:"hydra:description"`
	}
	detail := ""
	if err := json.Unmarshal(body, &problem); err == nil {
		switch {
		case problem.Detail != "":
			detail = problem.Detail
		case problem.Description != "":
			detail = problem.Description
		case problem.HydraDesc != "":
			detail = problem.HydraDesc
		}
	}
	return &APIError{Status: status, Detail: detail, Body: body}
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("v4 api: %d %s: %s", e.Status, http.StatusText(e.Status), e.Detail)
	}
	return fmt.Sprintf("v4 api: %d %s", e.Status, http.StatusText(e.Status))
}

// IsNotFound reports whether err is a v4 404.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsUnauthorized reports whether err is a v4 401.
func IsUnauthorized(err error) bool {
	return hasStatus(err, http.StatusUnauthorized)
}

func hasStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
