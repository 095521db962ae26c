package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/activity-log-api/internal/service"
)

func requestCounts(t *testing.T, metrics *service.MetricsService) map[string]float64 {
	t.Helper()
	families, err := metrics.Registry().Gather()
	require.NoError(t, err)

	counts := map[string]float64{}
	for _, family := range families {
		if family.GetName() != "http_requests_total" {
			continue
		}
		for _, m := range family.GetMetric() {
			labels := map[string]string{}
			for _, pair := range m.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			counts[labels["method"]+" "+labels["path"]+" "+labels["status"]] = m.GetCounter().GetValue()
		}
	}
	return counts
}

func TestMetricsObservesRouteTemplates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()

	r := gin.New()
	r.Use(Metrics(metrics, "/metrics"))
	r.GET("/users/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/users/1", "/users/2", "/nowhere", "/metrics"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	counts := requestCounts(t, metrics)
	assert.Equal(t, float64(2), counts["GET /users/:id 200"])
	assert.Equal(t, float64(1), counts["GET unmatched 404"])
	assert.Len(t, counts, 2)
}

func TestMetricsWithoutServicePassesThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics(nil, "/metrics"))
	r.GET("/events", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
