package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSetup_WithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	require.NoError(t, shutdown(context.Background()))
}

func TestNewProvider_RecordsSpansWithServiceName(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider, err := NewProvider(context.Background(), Config{ServiceName: "storefront-test", ServiceVersion: "v0.0.1"},
		sdktrace.WithSyncer(exporter))
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	_, span := provider.Tracer("test").Start(context.Background(), "op")
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	require.Equal(t, "op", spans[0].Name)

	var found bool
	for _, attr := range spans[0].Resource.Attributes() {
		if string(attr.Key) == "service.name" && attr.Value.AsString() == "storefront-test" {
			found = true
		}
	}
	require.True(t, found, "service.name attribute missing")
}
