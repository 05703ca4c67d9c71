package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redline-backend/models"
	"redline-backend/service"
)

type stubRetriever struct {
	precedents []models.RetrievedPrecedent
	err        error
}

func (s *stubRetriever) Retrieve(ctx context.Context, queryText string, k int) ([]models.RetrievedPrecedent, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.precedents, nil
}

func newTestRouter(retriever service.Retriever) *gin.Engine {
	gin.SetMode(gin.TestMode)

	classifier := service.NewClassifierService(
		service.ClassifierWithRetriever(retriever),
	)
	handler := NewClassifyHandler(classifier, nil, retriever)

	r := gin.New()
	r.POST("/api/classify-text", handler.ClassifyText)
	r.GET("/api/search", handler.SearchPrecedents)
	return r
}

func TestClassifyTextEndpoint(t *testing.T) {
	router := newTestRouter(&stubRetriever{})

	body := `{"text": "The Company shall indemnify and hold harmless the Client against any and all claims."}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/classify-text", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success        bool                        `json:"success"`
		Classification models.ClauseClassification `json:"classification"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.True(t, resp.Classification.RiskLevel.Valid())
	assert.NotEmpty(t, resp.Classification.Explanation)
}

func TestClassifyTextRejectsMissingText(t *testing.T) {
	router := newTestRouter(&stubRetriever{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/classify-text", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_REQUEST")
}

func TestSearchEndpoint(t *testing.T) {
	retriever := &stubRetriever{
		precedents: []models.RetrievedPrecedent{
			{
				Clause:     models.ReferenceClause{Text: "reference clause", RiskLevel: models.RiskRed},
				Similarity: 0.9,
			},
		},
	}
	router := newTestRouter(retriever)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/search?q=indemnify&k=3", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "reference clause")
}

func TestSearchRequiresQuery(t *testing.T) {
	router := newTestRouter(&stubRetriever{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/search", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "MISSING_QUERY")
}

func TestSearchUnavailableIndex(t *testing.T) {
	router := newTestRouter(&stubRetriever{err: service.ErrRetrievalUnavailable})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/search?q=indemnify", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "SEARCH_UNAVAILABLE")
}
