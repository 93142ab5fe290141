package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/upsolucions/up-control-access/internal/auth"
	"github.com/upsolucions/up-control-access/internal/obs"
)

func TestLogEvent(t *testing.T) {
	logger := obs.Logger()
	original := logger.Writer()
	logger.SetFlags(0)
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(original)

	ctx := context.Background()
	ctx = WithRequestID(ctx, "req-123")
	ctx = auth.ContextWithPrincipal(ctx, auth.NewPrincipal(
		auth.User{ID: "user-42", Profile: auth.ProfileManager},
		auth.Session{ID: "sess-1"},
	))

	if err := LogEvent(ctx, EventDelete, map[string]any{"collection": "devices"}); err != nil {
		t.Fatalf("LogEvent failed: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log not valid JSON: %v", err)
	}
	if entry["type"] != "audit" || entry["event"] != EventDelete {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if entry["request_id"] != "req-123" {
		t.Fatalf("unexpected request id: %v", entry["request_id"])
	}
	if entry["user_id"] != "user-42" || entry["profile"] != "manager" || entry["session_id"] != "sess-1" {
		t.Fatalf("principal fields missing: %v", entry)
	}
	fields, ok := entry["fields"].(map[string]any)
	if !ok || fields["collection"] != "devices" {
		t.Fatalf("fields missing or incorrect: %v", entry["fields"])
	}
}

func TestLogEventRequiresName(t *testing.T) {
	if err := LogEvent(context.Background(), "  ", nil); err == nil {
		t.Fatal("expected error for empty event")
	}
}
