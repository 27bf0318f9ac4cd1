package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_RecordsRouteAndCode(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := Metrics(mux)

	before := testutil.ToFloat64(RequestsTotal.WithLabelValues("GET /items/{id}", "418"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/42", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/43", nil))

	after := testutil.ToFloat64(RequestsTotal.WithLabelValues("GET /items/{id}", "418"))
	assert.Equal(t, before+2, after)
	assert.Zero(t, testutil.ToFloat64(ActiveRequests))
}

func TestMetrics_Unmatched(t *testing.T) {
	h := Metrics(http.NewServeMux())

	before := testutil.ToFloat64(RequestsTotal.WithLabelValues("unmatched", "404"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, before+1, testutil.ToFloat64(RequestsTotal.WithLabelValues("unmatched", "404")))
}

func TestStatusRecorder_DefaultsToOK(t *testing.T) {
	rec := NewStatusRecorder(httptest.NewRecorder())
	_, _ = rec.Write([]byte("hi"))
	assert.Equal(t, http.StatusOK, rec.Status)
}
