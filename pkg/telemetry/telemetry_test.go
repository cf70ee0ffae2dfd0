package telemetry

import (
	"bytes"
	"context"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestSetupStdout(t *testing.T) {
	var buf bytes.Buffer
	p, err := Setup(context.Background(), Config{
		ServiceName: "tsera-test",
		Version:     "v0.0.1",
		ProjectDir:  "/tmp/app",
		Exporter:    ExporterStdout,
		Writer:      &buf,
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	_, span := otel.Tracer("tsera/test").Start(context.Background(), "unit")
	span.End()

	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
	out := buf.String()
	if !bytes.Contains(buf.Bytes(), []byte(`"Name": "unit"`)) {
		t.Errorf("expected span on the configured writer, got %q", out)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`/tmp/app`)) {
		t.Errorf("expected project dir in the resource, got %q", out)
	}
}

func TestSetupNone(t *testing.T) {
	p, err := Setup(context.Background(), Config{Exporter: ExporterNone})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
	var nilProvider *Provider
	if err := nilProvider.Shutdown(context.Background()); err != nil {
		t.Errorf("nil shutdown: %v", err)
	}
}

func TestSetupErrors(t *testing.T) {
	if _, err := Setup(context.Background(), Config{Exporter: "zipkin"}); err == nil {
		t.Error("expected error for unknown exporter")
	}
	if _, err := Setup(context.Background(), Config{Exporter: ExporterOTLP}); err == nil {
		t.Error("expected error for otlp without endpoint")
	}
}
