// Package audit writes append-only audit lines for state-changing actions.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"maps"
	"strings"
	"time"

	"github.com/upsolucions/up-control-access/internal/auth"
	"github.com/upsolucions/up-control-access/internal/obs"
)

// Event names.
const (
	EventLogin         = "auth.login"
	EventLoginRejected = "auth.login_rejected"
	EventLogout        = "auth.logout"
	EventSessionRevoke = "auth.session_revoked"
	EventCreate        = "record.created"
	EventUpdate        = "record.updated"
	EventDelete        = "record.deleted"
	EventImport        = "record.imported"
	EventExport        = "data.exported"
	EventLogoActivate  = "logo.activated"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

var now = time.Now

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the request id, if any.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// LogEvent writes an audit log entry enriched with request and principal context.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	entry := map[string]any{
		"ts":    now().UTC().Format(time.RFC3339Nano),
		"type":  "audit",
		"event": event,
	}
	if rid := RequestIDFromContext(ctx); rid != "" {
		entry["request_id"] = rid
	}
	if p, ok := auth.PrincipalFromContext(ctx); ok {
		entry["user_id"] = p.User.ID
		entry["profile"] = string(p.User.Profile)
		if p.Session.ID != "" {
			entry["session_id"] = p.Session.ID
		}
	}
	copyFields := make(map[string]any, len(fields))
	maps.Copy(copyFields, fields)
	entry["fields"] = copyFields

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	obs.Logger().Println(string(data))
	return nil
}

// Record is LogEvent for callers that cannot act on a logging failure.
func Record(ctx context.Context, event string, fields map[string]any) {
	if err := LogEvent(ctx, event, fields); err != nil {
		obs.Warn("audit log failed", "event", event, "error", err)
	}
}
