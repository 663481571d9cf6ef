package otel

import (
	"context"
	"testing"
)

func TestSetupDisabledWithoutEndpoint(t *testing.T) {
	t.Setenv("ORDERDESK_OTEL_ENDPOINT", "")

	shutdown, err := Setup(context.Background(), "pipeline")
	if err != nil {
		t.Fatalf("setup without endpoint: %v", err)
	}
	if shutdown == nil {
		t.Fatal("expected no-op shutdown function")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("no-op shutdown: %v", err)
	}
}

func TestSetupDisabledByFlag(t *testing.T) {
	t.Setenv("ORDERDESK_OTEL_ENDPOINT", "http://localhost:4318")
	t.Setenv("ORDERDESK_OTEL_ENABLED", "false")

	shutdown, err := Setup(context.Background(), "pipeline")
	if err != nil {
		t.Fatalf("setup with disabled flag: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("no-op shutdown: %v", err)
	}
}
