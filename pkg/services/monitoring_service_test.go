package services

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func monitoredRouter(svc *MonitoringService) *gin.Engine {
	r := gin.New()
	r.Use(svc.LoggingMiddleware())
	r.GET("/api/predictions", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	r.GET("/api/broken", func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false})
	})
	r.GET("/api/admin/logs", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	return r
}

func serve(r *gin.Engine, path string) {
	req, _ := http.NewRequest("GET", path, nil)
	r.ServeHTTP(httptest.NewRecorder(), req)
}

func TestLoggingMiddlewareRecordsRequests(t *testing.T) {
	svc := NewMonitoringService(quietLogger())
	r := monitoredRouter(svc)

	serve(r, "/api/predictions")
	serve(r, "/api/broken")

	logs := svc.RecentLogs(0)
	require.Len(t, logs, 2)

	// newest first
	assert.Equal(t, "/api/broken", logs[0].Path)
	assert.Equal(t, http.StatusInternalServerError, logs[0].StatusCode)
	assert.Equal(t, "/api/predictions", logs[1].Path)
	assert.Equal(t, http.StatusOK, logs[1].StatusCode)
	assert.Equal(t, "GET", logs[1].Method)
	assert.GreaterOrEqual(t, logs[1].ResponseTime, time.Duration(0))
}

func TestLoggingMiddlewareSkipsAdminPaths(t *testing.T) {
	svc := NewMonitoringService(quietLogger())
	r := monitoredRouter(svc)

	serve(r, "/api/admin/logs")
	assert.Empty(t, svc.RecentLogs(0))

	serve(r, "/api/predictions")
	logs := svc.RecentLogs(0)
	require.Len(t, logs, 1)
	assert.Equal(t, "/api/predictions", logs[0].Path)
}

func TestRecentLogsLimit(t *testing.T) {
	svc := NewMonitoringService(quietLogger())
	r := monitoredRouter(svc)

	for i := 0; i < 5; i++ {
		serve(r, "/api/predictions")
	}

	assert.Len(t, svc.RecentLogs(3), 3)
	assert.Len(t, svc.RecentLogs(0), 5)
	assert.Len(t, svc.RecentLogs(100), 5)
}

func TestRecentLogsBounded(t *testing.T) {
	svc := NewMonitoringService(quietLogger())
	for i := 0; i < maxRetainedLogs+50; i++ {
		svc.record(RequestLog{Path: "/api/predictions", Method: "GET", StatusCode: http.StatusOK})
	}
	assert.Len(t, svc.RecentLogs(0), maxRetainedLogs)
}

func TestErrorRate(t *testing.T) {
	svc := NewMonitoringService(quietLogger())
	assert.Equal(t, 0.0, svc.ErrorRate())

	r := monitoredRouter(svc)
	serve(r, "/api/predictions")
	serve(r, "/api/predictions")
	serve(r, "/api/predictions")
	serve(r, "/api/broken")

	assert.InDelta(t, 0.25, svc.ErrorRate(), 1e-9)
}
