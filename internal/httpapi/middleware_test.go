package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JorgeRiveraMancilla/go-store-api/pkg/metrics"
)

func TestMetricsMiddleware_LabelsByRoutePattern(t *testing.T) {
	m := metrics.NewServerMetrics("middleware_test")

	r := chi.NewRouter()
	r.Use(MetricsMiddleware(m))
	r.Get("/widgets/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, id := range []string{"1", "2", "42"} {
		req := httptest.NewRequest(http.MethodGet, "/widgets/"+id, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	// Every id collapses onto the route pattern, so label cardinality stays
	// bounded by the route table.
	got := testutil.ToFloat64(m.Requests.WithLabelValues("GET /widgets/{id}", "200"))
	assert.Equal(t, float64(3), got)

	perPath := testutil.ToFloat64(m.Requests.WithLabelValues("GET /widgets/42", "200"))
	assert.Equal(t, float64(0), perPath)
}
