package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestJSONLogging(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(Config{Level: "info", Format: "json", Environment: "test"}, &buf)

	FromContext(WithRequestID(context.Background(), "req-1")).Info("purchase committed", "user_id", 7)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log line: %v", err)
	}
	if entry["msg"] != "purchase committed" {
		t.Fatalf("unexpected msg: %v", entry["msg"])
	}
	if entry["request_id"] != "req-1" {
		t.Fatalf("expected request_id req-1, got %v", entry["request_id"])
	}
	if entry["environment"] != "test" || entry["service"] != "forumshop" {
		t.Fatalf("missing base attributes: %v", entry)
	}
	if entry["user_id"] != float64(7) {
		t.Fatalf("unexpected user_id: %v", entry["user_id"])
	}
}

func TestDebugSuppressedAtInfo(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(Config{Level: "info", Format: "text"}, &buf)
	FromContext(context.Background()).Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestRequestIDFromContext(t *testing.T) {
	if _, ok := RequestIDFromContext(context.Background()); ok {
		t.Fatalf("expected no request id")
	}
	id := NewRequestID()
	got, ok := RequestIDFromContext(WithRequestID(context.Background(), id))
	if !ok || got != id {
		t.Fatalf("expected %s, got %s", id, got)
	}
}
