package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestSetupWritesStructuredJSON(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := SetupWithOptions(Options{Service: "settlectl", Env: "test", Level: "debug", Output: &buf})
	logger.Debug("account credited", "height", 7)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if line["message"] != "account credited" || line["severity"] != "DEBUG" {
		t.Fatalf("unexpected log line: %v", line)
	}
	if line["service"] != "settlectl" || line["env"] != "test" {
		t.Fatalf("missing service attributes: %v", line)
	}
}

func TestLevelFiltersDebug(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := SetupWithOptions(Options{Service: "settlectl", Output: &buf})
	logger.Debug("hidden")
	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("debug line written at info level")
	}
}

func TestMaskDSN(t *testing.T) {
	got := MaskDSN("postgres://settle:hunter2@db:5432/payments")
	if strings.Contains(got, "hunter2") {
		t.Fatalf("password leaked: %s", got)
	}
	if MaskDSN("/var/lib/settle/payments.db") != "/var/lib/settle/payments.db" {
		t.Fatalf("file path altered")
	}
}

func TestMaskField(t *testing.T) {
	if attr := MaskField("height", "12"); attr.Value.String() != "12" {
		t.Fatalf("allowlisted key masked")
	}
	if attr := MaskField("password", "x"); attr.Value.String() != RedactedValue {
		t.Fatalf("sensitive key not masked")
	}
}
