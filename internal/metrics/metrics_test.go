package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.Commits.WithLabelValues("PROCESSING").Inc()
	m.LineFailures.WithLabelValues("insufficient_stock").Add(2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.LineFailures.WithLabelValues("insufficient_stock")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `storefront_commit_total{status="PROCESSING"} 1`)
}

func TestInstancesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.Commits.WithLabelValues("PROCESSING").Inc()
	assert.Zero(t, testutil.ToFloat64(b.Commits.WithLabelValues("PROCESSING")))
}
