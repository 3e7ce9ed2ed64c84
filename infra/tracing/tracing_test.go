package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/kilianp07/erdispatch/config"
)

func TestInitDisabled(t *testing.T) {
	shutdown, err := Init(context.Background(), config.TracingConfig{})
	require.NoError(t, err)
	_, span := otel.Tracer("test").Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
	require.NoError(t, shutdown(context.Background()))
}

func TestInitStdoutExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	stdoutWriter = &buf
	prev := stdoutWriter
	t.Cleanup(func() { stdoutWriter = prev })

	cfg := config.TracingConfig{Enabled: true}
	cfg.SetDefaults()
	shutdown, err := Init(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = Init(context.Background(), config.TracingConfig{}) })

	_, span := otel.Tracer("test").Start(context.Background(), "dispatch.test")
	assert.True(t, span.SpanContext().IsValid())
	span.End()
	ShutdownWithTimeout(context.Background(), shutdown)
	assert.Contains(t, buf.String(), "dispatch.test")
}

func TestInitUnknownExporter(t *testing.T) {
	_, err := Init(context.Background(), config.TracingConfig{Enabled: true, Exporter: "zipkin", SampleRatio: 1})
	assert.Error(t, err)
}
