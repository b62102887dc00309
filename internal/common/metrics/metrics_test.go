package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "/records/{id}", normalizePath("/records/0b5c8a3e-8c1b-4d0e-9d9c-3a7f7f0e2b11"))
	assert.Equal(t, "/records/", normalizePath("/records/"))
	assert.Equal(t, "/wizard/next", normalizePath("/wizard/next"))
}

func TestMiddlewareCountsRequests(t *testing.T) {
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodPost, "/wizard/next", "422"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/wizard/next", nil))
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodPost, "/wizard/next", "422"))

	assert.Equal(t, before+1, after)
}

func TestWizardCounters(t *testing.T) {
	before := testutil.ToFloat64(RecordsEnsured.WithLabelValues("adopted"))
	RecordEnsured("adopted")
	assert.Equal(t, before+1, testutil.ToFloat64(RecordsEnsured.WithLabelValues("adopted")))

	RecordOutboxBacklog(4, 0)
	assert.Equal(t, float64(4), testutil.ToFloat64(OutboxPendingEvents))
}
