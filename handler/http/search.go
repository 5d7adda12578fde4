package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"chatdocs/src/core/rag"
)

// HybridSearcher is the optional store capability behind the search
// endpoint. The weaviate store implements it.
type HybridSearcher interface {
	QueryHybrid(ctx context.Context, namespace string, vector []float32, query string, alpha float32, k int) ([]rag.ScoredChunk, error)
}

type searchRequest struct {
	botConfigRequest
	Query     string  `json:"query" binding:"required"`
	Namespace string  `json:"namespace" binding:"required"`
	UseHybrid bool    `json:"useHybrid"` // Whether to mix in BM25 keyword matching
	Alpha     float32 `json:"alpha"`
	Limit     int     `json:"limit"`
}

// Search godoc
// @Summary Search chunks in a namespace without running the chat chain
// @Tags search
// @Accept json
// @Produce json
// @Param body body searchRequest true "Search parameters"
// @Success 200 {array} rag.ScoredChunk
// @Failure 400 {object} ErrorResponse
// @Router /search [post]
func (h *Handler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	cfg, err := h.resolveBotConfig(c, req.botConfigRequest)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	provider, err := h.factory.Provider(cfg)
	if err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	vectors, err := provider.Embed(c.Request.Context(), []string{req.Query})
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	if len(vectors) != 1 {
		sendError(c, http.StatusBadGateway, &rag.ProviderError{
			Op:  "failed to embed query",
			Err: fmt.Errorf("expected exactly one query vector, got %d", len(vectors)),
		})
		return
	}

	var results []rag.ScoredChunk
	if hs, ok := h.store.(HybridSearcher); ok && req.UseHybrid {
		results, err = hs.QueryHybrid(c.Request.Context(), req.Namespace, vectors[0], req.Query, req.Alpha, req.Limit)
	} else {
		results, err = h.store.Query(c.Request.Context(), req.Namespace, vectors[0], req.Limit)
	}
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	sendJSON(c, http.StatusOK, results)
}
