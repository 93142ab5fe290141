package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/upsolucions/up-control-access/internal/auth"
	"github.com/upsolucions/up-control-access/internal/blob"
	"github.com/upsolucions/up-control-access/internal/condo"
	"github.com/upsolucions/up-control-access/internal/devices"
	"github.com/upsolucions/up-control-access/internal/export"
	"github.com/upsolucions/up-control-access/internal/localstore"
	"github.com/upsolucions/up-control-access/internal/logos"
	"github.com/upsolucions/up-control-access/internal/maintenance"
	"github.com/upsolucions/up-control-access/internal/obs"
	"github.com/upsolucions/up-control-access/internal/remote"
	"github.com/upsolucions/up-control-access/internal/reports"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errors.New("request body too large")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

var (
	notFoundErrs = []error{
		auth.ErrNotFound, condo.ErrNotFound, devices.ErrNotFound, reports.ErrNotFound,
		maintenance.ErrNotFound, logos.ErrNotFound, blob.ErrNotFound,
		remote.ErrNotFound, localstore.ErrNotFound,
	}
	invalidErrs = []error{
		auth.ErrInvalidInput, condo.ErrInvalidInput, devices.ErrInvalidInput,
		reports.ErrInvalidInput, maintenance.ErrInvalidInput, logos.ErrInvalidInput,
		export.ErrUnknownCollection,
	}
	conflictErrs = []error{
		auth.ErrConflict, auth.ErrSessionActive, condo.ErrConflict, devices.ErrConflict,
		maintenance.ErrInvalidTransition, remote.ErrConflict,
	}
)

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// handleError maps service sentinels to status codes.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case isAny(err, notFoundErrs):
		writeError(w, r, http.StatusNotFound, "resource not found")
	case isAny(err, invalidErrs):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case isAny(err, conflictErrs):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrUnauthorized), errors.Is(err, auth.ErrInvalidToken):
		writeError(w, r, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, r, http.StatusForbidden, "forbidden")
	case errors.Is(err, localstore.ErrQuotaExceeded):
		writeError(w, r, http.StatusInsufficientStorage, "local storage quota exceeded")
	default:
		obs.Error("request failed",
			"request_id", RequestIDFromContext(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func queryBool(r *http.Request, key string) (*bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, errors.New(key + " must be a boolean")
	}
	return &v, nil
}

// queryRange reads from/to as RFC 3339 timestamps or plain dates. A plain
// "to" date covers the whole day.
func queryRange(r *http.Request) (from, to *time.Time, err error) {
	parse := func(key string, endOfDay bool) (*time.Time, error) {
		raw := queryString(r, key)
		if raw == "" {
			return nil, nil
		}
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return &t, nil
		}
		t, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return nil, errors.New(key + " must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
		}
		if endOfDay {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return &t, nil
	}
	if from, err = parse("from", false); err != nil {
		return nil, nil, err
	}
	if to, err = parse("to", true); err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

func queryString(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}
