// Package handlers exposes the services over JSON. Handlers parse the request,
// call one service operation and map its error with httpx.Error.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/diewo77/go-factures/auth"
	"github.com/diewo77/go-factures/internal/apperr"
	"github.com/diewo77/go-factures/validation"
	"github.com/go-chi/chi/v5"
)

const dayLayout = "2006-01-02"

// idParam reads a positive numeric path parameter.
func idParam(r *http.Request, name string) (uint, error) {
	n, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	if err != nil || n == 0 {
		return 0, apperr.Invalid(validation.Violations{name: "invalid_id"})
	}
	return uint(n), nil
}

// decodeJSON decodes the body into dst. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return apperr.Invalid(validation.Violations{"body": "invalid_json"})
}

// callerID returns the authenticated user. RequireAuth runs first, so a
// missing principal is reported as Unauthorized rather than trusted.
func callerID(r *http.Request) (uint, error) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return 0, apperr.Unauthorized("authentication required")
	}
	return uid, nil
}

// dayQuery parses an optional YYYY-MM-DD query parameter.
func dayQuery(r *http.Request, name string, v validation.Violations) *time.Time {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	d, err := time.Parse(dayLayout, raw)
	if err != nil {
		v[name] = "invalid_date"
		return nil
	}
	return &d
}

// uintQuery parses an optional numeric query parameter.
func uintQuery(r *http.Request, name string, v validation.Violations) *uint {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		v[name] = "invalid_value"
		return nil
	}
	id := uint(n)
	return &id
}
