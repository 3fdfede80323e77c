package middleware

import (
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/temcen/reelshelf/pkg/models"
)

type MockTokenValidator struct {
	mock.Mock
}

func (m *MockTokenValidator) ValidateToken(ctx context.Context, tokenString string) (*models.JWTClaims, error) {
	args := m.Called(ctx, tokenString)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.JWTClaims), args.Error(1)
}

type MockRateLimiter struct {
	mock.Mock
}

func (m *MockRateLimiter) IsAllowed(ctx context.Context, userID, userTier string) (bool, *models.RateLimitInfo, error) {
	args := m.Called(ctx, userID, userTier)
	if args.Get(1) == nil {
		return args.Bool(0), nil, args.Error(2)
	}
	return args.Bool(0), args.Get(1).(*models.RateLimitInfo), args.Error(2)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func whoAmI(c *gin.Context) {
	userID, tier, ok := GetUserFromContext(c)
	if !ok {
		c.String(http.StatusOK, "anonymous")
		return
	}
	c.String(http.StatusOK, userID.String()+"/"+tier)
}

func TestAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	userID := uuid.New()

	validator := new(MockTokenValidator)
	validator.On("ValidateToken", mock.Anything, "good").
		Return(&models.JWTClaims{UserID: userID, UserTier: "premium"}, nil)
	validator.On("ValidateToken", mock.Anything, "bad").
		Return(nil, errors.New("token is expired"))

	router := gin.New()
	router.GET("/me", Auth(validator, testLogger()), whoAmI)

	tests := []struct {
		name           string
		header         string
		expectedStatus int
		expectedBody   string
	}{
		{"valid token", "Bearer good", http.StatusOK, userID.String() + "/premium"},
		{"missing header", "", http.StatusUnauthorized, "MISSING_AUTHORIZATION"},
		{"wrong scheme", "Basic good", http.StatusUnauthorized, "INVALID_AUTHORIZATION_FORMAT"},
		{"extra parts", "Bearer good extra", http.StatusUnauthorized, "INVALID_AUTHORIZATION_FORMAT"},
		{"rejected token", "Bearer bad", http.StatusUnauthorized, "INVALID_TOKEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
		})
	}
}

func TestGetUserFromContext_WithoutAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/me", whoAmI)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))

	assert.Equal(t, "anonymous", w.Body.String())
}

func withUser(userID uuid.UUID, tier string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextUserID, userID)
		c.Set(ContextUserTier, tier)
		c.Next()
	}
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	userID := uuid.New()

	t.Run("allowed sets headers", func(t *testing.T) {
		limiter := new(MockRateLimiter)
		limiter.On("IsAllowed", mock.Anything, userID.String(), "premium").
			Return(true, &models.RateLimitInfo{Limit: 10000, Remaining: 9999, ResetTime: 1700000000}, nil)

		router := gin.New()
		router.GET("/r", withUser(userID, "premium"), RateLimit(limiter, testLogger()), whoAmI)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/r", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "10000", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "9999", w.Header().Get("X-RateLimit-Remaining"))
		assert.Equal(t, "1700000000", w.Header().Get("X-RateLimit-Reset"))
	})

	t.Run("exceeded", func(t *testing.T) {
		limiter := new(MockRateLimiter)
		limiter.On("IsAllowed", mock.Anything, userID.String(), "free").
			Return(false, &models.RateLimitInfo{Limit: 1000, Remaining: 0, ResetTime: 1700000000}, nil)

		router := gin.New()
		router.GET("/r", withUser(userID, ""), RateLimit(limiter, testLogger()), whoAmI)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/r", nil))

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Contains(t, w.Body.String(), "RATE_LIMIT_EXCEEDED")
		limiter.AssertExpectations(t)
	})

	t.Run("limiter failure lets the request through", func(t *testing.T) {
		limiter := new(MockRateLimiter)
		limiter.On("IsAllowed", mock.Anything, userID.String(), "free").
			Return(false, nil, errors.New("redis down"))

		router := gin.New()
		router.GET("/r", withUser(userID, "free"), RateLimit(limiter, testLogger()), whoAmI)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/r", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	})

	t.Run("no user context", func(t *testing.T) {
		limiter := new(MockRateLimiter)

		router := gin.New()
		router.GET("/r", RateLimit(limiter, testLogger()), whoAmI)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/r", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		limiter.AssertNotCalled(t, "IsAllowed", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestCompressionMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CompressionMiddleware())
	router.GET("/page", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"overview": "A ticking-time-bomb insomniac and a slippery soap salesman."})
	})
	router.GET("/metrics", func(c *gin.Context) {
		c.String(http.StatusOK, "up 1")
	})

	t.Run("gzip when accepted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/page", nil)
		req.Header.Set("Accept-Encoding", "gzip, deflate")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
		reader, err := gzip.NewReader(w.Body)
		require.NoError(t, err)
		body, err := io.ReadAll(reader)
		require.NoError(t, err)
		assert.Contains(t, string(body), "soap salesman")
	})

	t.Run("plain without accept-encoding", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/page", nil))

		assert.Empty(t, w.Header().Get("Content-Encoding"))
		assert.Contains(t, w.Body.String(), "soap salesman")
	})

	t.Run("metrics endpoint is skipped", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Empty(t, w.Header().Get("Content-Encoding"))
		assert.Equal(t, "up 1", w.Body.String())
	})
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID(), Logger(testLogger()))
	router.GET("/id", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextRequestID))
	})

	t.Run("generated", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/id", nil))

		_, err := uuid.Parse(w.Body.String())
		assert.NoError(t, err)
		assert.Equal(t, w.Body.String(), w.Header().Get(RequestIDHeader))
	})

	t.Run("propagated", func(t *testing.T) {
		incoming := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/id", nil)
		req.Header.Set(RequestIDHeader, incoming)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, incoming, w.Body.String())
	})

	t.Run("garbage is replaced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/id", nil)
		req.Header.Set(RequestIDHeader, "<script>")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.NotEqual(t, "<script>", w.Body.String())
	})
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Recovery(testLogger()))
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_SERVER_ERROR")
}
