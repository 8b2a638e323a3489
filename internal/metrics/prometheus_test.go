package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"keyrelay/internal/metrics"
)

func TestObserveBundleSplitsByPreKey(t *testing.T) {
	present := testutil.ToFloat64(metrics.BundlesServedTotal.WithLabelValues(metrics.PreKeyPresent))
	absent := testutil.ToFloat64(metrics.BundlesServedTotal.WithLabelValues(metrics.PreKeyAbsent))

	metrics.ObserveBundle(true, time.Millisecond)
	metrics.ObserveBundle(false, time.Millisecond)
	metrics.ObserveBundle(false, time.Millisecond)

	assert.Equal(t, present+1, testutil.ToFloat64(metrics.BundlesServedTotal.WithLabelValues(metrics.PreKeyPresent)))
	assert.Equal(t, absent+2, testutil.ToFloat64(metrics.BundlesServedTotal.WithLabelValues(metrics.PreKeyAbsent)))
}

func TestMetricsMiddlewareCountsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(metrics.MetricsMiddleware())
	r.GET("/v1/keys/:user", func(c *gin.Context) { c.Status(http.StatusOK) })

	before := testutil.ToFloat64(metrics.RESTRequestMetricsTotal.WithLabelValues(http.MethodGet, "/v1/keys/:user"))
	for _, u := range []string{"alice", "bob"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/keys/"+u, nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
	assert.Equal(t, before+2, testutil.ToFloat64(metrics.RESTRequestMetricsTotal.WithLabelValues(http.MethodGet, "/v1/keys/:user")))
}

func TestInitMetricsIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		metrics.InitMetrics()
		metrics.InitMetrics()
	})
}
