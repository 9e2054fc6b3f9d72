package telemetry

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	traceSDK "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestMiddleware(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := traceSDK.NewTracerProvider(traceSDK.WithSpanProcessor(recorder))
	tel := NewTelemetryWithProviders(OrderSagaServiceConfig, provider, noop.NewMeterProvider())

	r := chi.NewRouter()
	r.Use(Middleware(tel))
	r.Get("/api/v1/sagas/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Same(t, tel, FromContext(r.Context()))
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sagas/123", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "HTTP GET /api/v1/sagas/{id}", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.Int("http.status_code", http.StatusNotFound))
	assert.Contains(t, spans[0].Attributes(), attribute.String("http.status_class", "4xx"))
}

func TestGetStatusClass(t *testing.T) {
	for code, class := range map[int]string{
		101: "1xx",
		200: "2xx",
		302: "3xx",
		409: "4xx",
		503: "5xx",
		0:   "unknown",
	} {
		assert.Equal(t, class, getStatusClass(code))
	}
}
