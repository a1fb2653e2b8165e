package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestSetupTracing_None(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), Options{Exporter: "none"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetupTracing_StdoutWritesSpans(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var buf bytes.Buffer
	shutdown, err := SetupTracing(context.Background(), Options{
		Exporter:    "stdout",
		ServiceName: "tasklists-test",
		Writer:      &buf,
	})
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "GET /task-lists/{id}")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "GET /task-lists/{id}")
	assert.Contains(t, buf.String(), "tasklists-test")
}

func TestSetupTracing_UnknownExporter(t *testing.T) {
	_, err := SetupTracing(context.Background(), Options{Exporter: "zipkin"})
	assert.Error(t, err)
}
