package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/temcen/reelshelf/internal/services"
)

type stubHealth struct {
	status string
}

func (s stubHealth) CheckHealth(context.Context) *services.HealthStatus {
	return &services.HealthStatus{
		Status:    s.status,
		Timestamp: time.Now(),
		Services:  map[string]string{"postgresql": s.status},
	}
}

func TestHealthHandler_Check(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		status         string
		expectedStatus int
	}{
		{"healthy", http.StatusOK},
		{"degraded", http.StatusOK},
		{"unhealthy", http.StatusServiceUnavailable},
		{"unknown", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			router := gin.New()
			router.GET("/health", NewHealthHandler(testLogger(), stubHealth{status: tt.status}).Check)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), `"status":"`+tt.status+`"`)
		})
	}
}
