package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/temcen/reelshelf/internal/middleware"
	"github.com/temcen/reelshelf/internal/validation"
	"github.com/temcen/reelshelf/pkg/models"
)

type MockRecommendationOrchestrator struct {
	mock.Mock
}

func (m *MockRecommendationOrchestrator) GenerateRecommendations(ctx context.Context, userID uuid.UUID, limit, page int) (*models.RecommendationResult, error) {
	args := m.Called(ctx, userID, limit, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RecommendationResult), args.Error(1)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishRecommendationsServed(ctx context.Context, userID uuid.UUID, limit int, result *models.RecommendationResult) error {
	args := m.Called(ctx, userID, limit, result)
	return args.Error(0)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func samplePage() *models.RecommendationResult {
	return &models.RecommendationResult{
		Results: []models.CatalogItem{
			{ID: 603, Title: "The Matrix", VoteAverage: 8.2, MediaType: models.MediaTypeMovie},
			{ID: 1396, Name: "Breaking Bad", VoteAverage: 8.9, MediaType: models.MediaTypeTV},
		},
		SourceCollections: []models.SourceCollection{{ID: uuid.New(), Name: "Favorites"}},
		TotalSourceItems:  12,
		Page:              1,
		Limit:             5,
		TotalPages:        1,
		TotalResults:      2,
	}
}

// newRouter mounts the handler behind a stub that plays the role of the auth middleware.
func newRouter(handler *RecommendationHandler, tokenUser uuid.UUID) *gin.Engine {
	router := gin.New()
	router.GET("/api/v1/recommendations/:userId", func(c *gin.Context) {
		if tokenUser != uuid.Nil {
			c.Set(middleware.ContextUserID, tokenUser)
			c.Set(middleware.ContextUserTier, "free")
		}
		c.Next()
	}, handler.Get)
	return router
}

func TestRecommendationHandler_Get(t *testing.T) {
	gin.SetMode(gin.TestMode)

	userID := uuid.New()
	page := samplePage()

	orchestrator := new(MockRecommendationOrchestrator)
	orchestrator.On("GenerateRecommendations", mock.Anything, userID, 5, 1).Return(page, nil)
	publisher := new(MockEventPublisher)
	publisher.On("PublishRecommendationsServed", mock.Anything, userID, 5, page).Return(nil)

	schemaValidator, err := validation.NewSchemaValidator()
	require.NoError(t, err)
	handler := NewRecommendationHandler(orchestrator, publisher, schemaValidator, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/recommendations/"+userID.String()+"?limit=5", nil)
	w := httptest.NewRecorder()
	newRouter(handler, userID).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response models.RecommendationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Len(t, response.Results, 2)
	assert.Equal(t, 12, response.TotalSourceItems)
	assert.Equal(t, "Breaking Bad", response.Results[1].DisplayTitle())

	assert.True(t, schemaValidator.Validate(validation.SchemaRecommendationResponse, w.Body.Bytes()).Valid)

	orchestrator.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestRecommendationHandler_DefaultsPassThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)

	userID := uuid.New()
	orchestrator := new(MockRecommendationOrchestrator)
	// limit normalization belongs to the orchestrator; the handler only defaults the page
	orchestrator.On("GenerateRecommendations", mock.Anything, userID, 0, 1).
		Return(models.EmptyRecommendationResult(1, nil, 0), nil)

	handler := NewRecommendationHandler(orchestrator, nil, nil, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/recommendations/"+userID.String(), nil)
	w := httptest.NewRecorder()
	newRouter(handler, userID).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"results":[],"sourceCollections":[],"totalSourceItems":0,"page":1,"limit":0,"total_pages":0,"total_results":0}`, w.Body.String())
	orchestrator.AssertExpectations(t)
}

func TestRecommendationHandler_Errors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	userID := uuid.New()

	tests := []struct {
		name           string
		path           string
		tokenUser      uuid.UUID
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "invalid user id",
			path:           "/api/v1/recommendations/not-a-uuid",
			tokenUser:      userID,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "INVALID_USER_ID",
		},
		{
			name:           "another user's recommendations",
			path:           "/api/v1/recommendations/" + uuid.New().String(),
			tokenUser:      userID,
			expectedStatus: http.StatusForbidden,
			expectedCode:   "FORBIDDEN",
		},
		{
			name:           "non-numeric limit",
			path:           "/api/v1/recommendations/" + userID.String() + "?limit=lots",
			tokenUser:      userID,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "INVALID_QUERY",
		},
		{
			name:           "limit above maximum",
			path:           "/api/v1/recommendations/" + userID.String() + "?limit=101",
			tokenUser:      userID,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_FAILED",
		},
		{
			name:           "negative page",
			path:           "/api/v1/recommendations/" + userID.String() + "?page=-1",
			tokenUser:      userID,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orchestrator := new(MockRecommendationOrchestrator)
			handler := NewRecommendationHandler(orchestrator, nil, nil, testLogger())

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()
			newRouter(handler, tt.tokenUser).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var body map[string]map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.expectedCode, body["error"]["code"])
			orchestrator.AssertNotCalled(t, "GenerateRecommendations", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestRecommendationHandler_GenerationFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)

	userID := uuid.New()
	orchestrator := new(MockRecommendationOrchestrator)
	orchestrator.On("GenerateRecommendations", mock.Anything, userID, 20, 2).
		Return(nil, errors.New("failed to load source collections: connection refused"))
	publisher := new(MockEventPublisher)

	handler := NewRecommendationHandler(orchestrator, publisher, nil, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/recommendations/"+userID.String()+"?limit=20&page=2", nil)
	w := httptest.NewRecorder()
	newRouter(handler, userID).ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "RECOMMENDATION_GENERATION_FAILED")
	assert.NotContains(t, w.Body.String(), "connection refused")
	publisher.AssertNotCalled(t, "PublishRecommendationsServed", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRecommendationHandler_PublishFailureDoesNotFailRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)

	userID := uuid.New()
	page := samplePage()
	orchestrator := new(MockRecommendationOrchestrator)
	orchestrator.On("GenerateRecommendations", mock.Anything, userID, 0, 1).Return(page, nil)
	publisher := new(MockEventPublisher)
	publisher.On("PublishRecommendationsServed", mock.Anything, userID, 5, page).Return(errors.New("broker down"))

	handler := NewRecommendationHandler(orchestrator, publisher, nil, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/recommendations/"+userID.String(), nil)
	w := httptest.NewRecorder()
	newRouter(handler, userID).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	publisher.AssertExpectations(t)
}

func TestRecommendationHandler_PublishesAppliedLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	userID := uuid.New()
	page := models.EmptyRecommendationResult(1, nil, 4)
	page.Limit = 20

	orchestrator := new(MockRecommendationOrchestrator)
	orchestrator.On("GenerateRecommendations", mock.Anything, userID, 0, 1).Return(page, nil)
	publisher := new(MockEventPublisher)
	publisher.On("PublishRecommendationsServed", mock.Anything, userID, 20, page).Return(nil)

	handler := NewRecommendationHandler(orchestrator, publisher, nil, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/recommendations/"+userID.String(), nil)
	w := httptest.NewRecorder()
	newRouter(handler, userID).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"limit":20`)
	publisher.AssertExpectations(t)
}
