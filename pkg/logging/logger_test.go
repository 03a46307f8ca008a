package logging

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRespectsLevel(t *testing.T) {
	logger, err := New(Options{Env: "production", Level: "warn"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if logger.Core().Enabled(zap.InfoLevel) {
		t.Fatalf("info should be disabled at warn level")
	}
	if !logger.Core().Enabled(zap.WarnLevel) {
		t.Fatalf("warn should be enabled at warn level")
	}
}

func TestContextLoggerCarriesFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := WithLogger(context.Background(), zap.New(core))
	ctx = WithFields(ctx, zap.String("request_id", "abc"))

	L(ctx).Info("hello")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["request_id"]; got != "abc" {
		t.Fatalf("expected request_id field, got %v", got)
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	nop := zap.NewNop()
	SetDefault(nop)

	if got := FromContext(context.Background()); got != nop {
		t.Fatalf("expected default logger")
	}
}
