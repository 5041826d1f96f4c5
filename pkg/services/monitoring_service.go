package services

import (
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// maxRetainedLogs bounds the in-memory request log ring.
const maxRetainedLogs = 5000

// RequestLog is one recorded API request.
type RequestLog struct {
	Timestamp    time.Time     `json:"timestamp"`
	Path         string        `json:"path"`
	Method       string        `json:"method"`
	StatusCode   int           `json:"status_code"`
	ResponseTime time.Duration `json:"response_time"`
}

// MonitoringService records per-request timing for the admin endpoints
// and emits a structured access log line per request.
type MonitoringService struct {
	logger *logrus.Logger
	mu     sync.RWMutex
	logs   []RequestLog
}

// NewMonitoringService creates an empty monitoring service.
func NewMonitoringService(logger *logrus.Logger) *MonitoringService {
	return &MonitoringService{
		logger: logger,
		logs:   make([]RequestLog, 0),
	}
}

// LoggingMiddleware records every request except the admin endpoints
// themselves, which would otherwise dominate the log during dashboard
// polling.
func (s *MonitoringService) LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api/admin") {
			return
		}

		entry := RequestLog{
			Timestamp:    start,
			Path:         path,
			Method:       c.Request.Method,
			StatusCode:   c.Writer.Status(),
			ResponseTime: time.Since(start),
		}
		s.record(entry)

		s.logger.WithFields(logrus.Fields{
			"method":   entry.Method,
			"path":     entry.Path,
			"status":   entry.StatusCode,
			"duration": entry.ResponseTime.String(),
		}).Info("request")
	}
}

func (s *MonitoringService) record(entry RequestLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, entry)
	if len(s.logs) > maxRetainedLogs {
		s.logs = s.logs[len(s.logs)-maxRetainedLogs:]
	}
}

// RecentLogs returns up to limit of the latest entries, newest first.
func (s *MonitoringService) RecentLogs(limit int) []RequestLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.logs) {
		limit = len(s.logs)
	}
	out := make([]RequestLog, limit)
	for i := 0; i < limit; i++ {
		out[i] = s.logs[len(s.logs)-1-i]
	}
	return out
}

// ErrorRate returns the share of 5xx responses over the retained window.
func (s *MonitoringService) ErrorRate() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.logs) == 0 {
		return 0
	}
	errors := 0
	for _, entry := range s.logs {
		if entry.StatusCode >= 500 {
			errors++
		}
	}
	return float64(errors) / float64(len(s.logs))
}
