package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheus_Contadores(t *testing.T) {
	p := NewPrometheus("facturador")

	p.ObserveSubmission("accepted", 200*time.Millisecond)
	p.ObserveSubmission("accepted", 300*time.Millisecond)
	p.ObserveSubmission("failed_transport", time.Second)
	p.ObserveTokenRefresh("sandbox", nil)
	p.ObserveTokenRefresh("sandbox", errors.New("401"))
	p.ObserveRetrySweep(1, 3)

	assert.Equal(t, 2.0, testutil.ToFloat64(p.submissions.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.submissions.WithLabelValues("failed_transport")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.tokenRefreshes.WithLabelValues("sandbox", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.tokenRefreshes.WithLabelValues("sandbox", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.sweepRecovered))
	assert.Equal(t, 3.0, testutil.ToFloat64(p.sweepRetried))
}

func TestPrometheus_Handler(t *testing.T) {
	p := NewPrometheus("facturador")
	p.ObserveSubmission("accepted", time.Millisecond)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), `facturador_fiscal_submissions_total{outcome="accepted"} 1`)
}
