package logger_i

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/akolanti/ClinicalRAG/internal/config"
)

func TestInitWith_JSONInProd(t *testing.T) {
	var buf bytes.Buffer
	InitWith(&buf, true, "debug", "doc-ingestor")

	log := NewLogger("test")
	log.Debug("hidden in prod")
	log.Info("visible", "key", "value")

	out := buf.String()
	if strings.Contains(out, "hidden in prod") {
		t.Errorf("debug line leaked in prod mode: %s", out)
	}
	if !strings.Contains(out, `"service":"doc-ingestor"`) || !strings.Contains(out, `"component":"test"`) {
		t.Errorf("missing service/component attributes: %s", out)
	}
}

func TestWithTrace(t *testing.T) {
	var buf bytes.Buffer
	InitWith(&buf, false, "info", "")

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "trace-123")
	NewLogger("test").WithTrace(ctx).Info("hello")

	if !strings.Contains(buf.String(), "traceId=trace-123") {
		t.Errorf("trace id not attached: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]string{
		"error":   "ERROR",
		"WARN":    "WARN",
		"info":    "INFO",
		"":        "DEBUG",
		"verbose": "DEBUG",
	}
	for in, want := range tests {
		if got := parseLevel(in).String(); got != want {
			t.Errorf("parseLevel(%q) = %s; want %s", in, got, want)
		}
	}
}

func TestLoggerCreatedBeforeInit(t *testing.T) {
	early := NewLogger("early").With("k", "v")

	var buf bytes.Buffer
	InitWith(&buf, false, "info", "qa")
	early.Info("after init")

	if !strings.Contains(buf.String(), "component=early") || !strings.Contains(buf.String(), "k=v") {
		t.Errorf("early logger did not pick up the configured handler: %s", buf.String())
	}
}
