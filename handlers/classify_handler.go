package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"redline-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ClassifyHandler handles HTTP requests for clause and document risk
// classification.
type ClassifyHandler struct {
	classifier      *service.ClassifierService
	documentService *service.DocumentService
	retriever       service.Retriever
}

// NewClassifyHandler creates a new classify handler
func NewClassifyHandler(classifier *service.ClassifierService, documentService *service.DocumentService, retriever service.Retriever) *ClassifyHandler {
	return &ClassifyHandler{
		classifier:      classifier,
		documentService: documentService,
		retriever:       retriever,
	}
}

// ClassifyTextRequest represents the request body for classifying raw text
type ClassifyTextRequest struct {
	Text            string `json:"text" binding:"required"`
	ContractContext string `json:"contract_context"`
}

// ClassifyText handles POST /api/classify-text
func (h *ClassifyHandler) ClassifyText(c *gin.Context) {
	var req ClassifyTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": err.Error(),
			},
		})
		return
	}

	classification := h.classifier.ClassifyClause(c.Request.Context(), req.Text, req.ContractContext)

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"classification": classification,
	})
}

// AnalyzeDocument handles POST /api/documents/:id/analyze
func (h *ClassifyHandler) AnalyzeDocument(c *gin.Context) {
	documentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_DOCUMENT_ID",
				"message": "Invalid document id format",
			},
		})
		return
	}

	contractContext := c.Query("context")

	report, err := h.documentService.AnalyzeDocument(c.Request.Context(), documentID, contractContext)
	if err != nil {
		if errors.Is(err, service.ErrDocumentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DOCUMENT_NOT_FOUND",
					"message": "Document not found",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ANALYSIS_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"report":  report,
	})
}

// SearchPrecedents handles GET /api/search
func (h *ClassifyHandler) SearchPrecedents(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MISSING_QUERY",
				"message": "Query parameter q is required",
			},
		})
		return
	}

	k := 5
	if kStr := c.Query("k"); kStr != "" {
		parsed, err := strconv.Atoi(kStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_K",
					"message": "Query parameter k must be an integer",
				},
			})
			return
		}
		k = parsed
	}

	precedents, err := h.retriever.Retrieve(c.Request.Context(), query, k)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "SEARCH_UNAVAILABLE",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"precedents": precedents,
		"count":      len(precedents),
	})
}
