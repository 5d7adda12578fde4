package http

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"chatdocs/src/core/extract"
	"chatdocs/src/core/ingest"
	"chatdocs/src/core/rag"
	"chatdocs/src/infrastructure/job"
)

type ingestTextRequest struct {
	botConfigRequest
	Text           string `json:"text" binding:"required"`
	Namespace      string `json:"namespace" binding:"required"`
	ClearNamespace bool   `json:"clearNamespace"`
}

type ingestURLsRequest struct {
	botConfigRequest
	URLs           []string `json:"urls" binding:"required,min=1"`
	Namespace      string   `json:"namespace" binding:"required"`
	ClearNamespace bool     `json:"clearNamespace"`
	Async          bool     `json:"async"`
}

type ingestFilesRequest struct {
	botConfigRequest
	FileIDs        []string `json:"fileIds" binding:"required,min=1"`
	Namespace      string   `json:"namespace" binding:"required"`
	ClearNamespace bool     `json:"clearNamespace"`
}

type ingestResponse struct {
	Namespace string      `json:"namespace"`
	Chunks    []rag.Chunk `json:"chunks"`
}

// IngestText godoc
// @Summary Ingest raw text into a namespace
// @Tags ingest
// @Accept json
// @Produce json
// @Param body body ingestTextRequest true "Ingestion parameters"
// @Success 200 {object} ingestResponse
// @Failure 400 {object} ErrorResponse
// @Router /ingest/text [post]
func (h *Handler) IngestText(c *gin.Context) {
	var req ingestTextRequest
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

	docs := extract.FromText(req.Text)
	chunks, err := h.ingestService.Ingest(c.Request.Context(), provider, ingest.Request{
		Namespace:      req.Namespace,
		EmbeddingModel: provider.EmbeddingModelName(),
		ClearNamespace: req.ClearNamespace,
		Documents:      docs,
	})
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	sendJSON(c, http.StatusOK, ingestResponse{Namespace: req.Namespace, Chunks: chunks})
}

// IngestURLs godoc
// @Summary Ingest web pages into a namespace
// @Tags ingest
// @Accept json
// @Produce json
// @Param body body ingestURLsRequest true "Ingestion parameters"
// @Success 200 {object} ingestResponse
// @Success 202 {object} map[string]int
// @Failure 400 {object} ErrorResponse
// @Router /ingest/urls [post]
func (h *Handler) IngestURLs(c *gin.Context) {
	var req ingestURLsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	cfg, err := h.resolveBotConfig(c, req.botConfigRequest)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	if req.Async {
		payload, err := json.Marshal(job.IngestURLsPayload{
			Namespace:      req.Namespace,
			URLs:           req.URLs,
			ClearNamespace: req.ClearNamespace,
			APIKey:         cfg.APIKey,
			Provider:       cfg.Provider,
			EmbeddingModel: cfg.EmbeddingModel,
		})
		if err != nil {
			sendError(c, http.StatusInternalServerError, err)
			return
		}

		j, err := h.jobService.EnqueueJob(c.Request.Context(), job.TaskTypeIngestURLs, payload)
		if err != nil {
			sendError(c, http.StatusInternalServerError, err)
			return
		}

		sendJSON(c, http.StatusAccepted, gin.H{"jobId": j.ID})
		return
	}

	provider, err := h.factory.Provider(cfg)
	if err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	docs := h.fetcher.FromURLs(c.Request.Context(), req.URLs)
	if len(docs) == 0 {
		sendError(c, http.StatusBadRequest, rag.NewValidationError("no content could be extracted from the given urls"))
		return
	}

	chunks, err := h.ingestService.Ingest(c.Request.Context(), provider, ingest.Request{
		Namespace:      req.Namespace,
		EmbeddingModel: provider.EmbeddingModelName(),
		ClearNamespace: req.ClearNamespace,
		Documents:      docs,
	})
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	sendJSON(c, http.StatusOK, ingestResponse{Namespace: req.Namespace, Chunks: chunks})
}

// IngestFiles godoc
// @Summary Ingest previously uploaded PDF files into a namespace
// @Tags ingest
// @Accept json
// @Produce json
// @Param body body ingestFilesRequest true "Ingestion parameters"
// @Success 200 {object} ingestResponse
// @Failure 400 {object} ErrorResponse
// @Router /ingest/files [post]
func (h *Handler) IngestFiles(c *gin.Context) {
	var req ingestFilesRequest
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

	var docs []rag.Document
	for _, fileID := range req.FileIDs {
		data, err := h.minioService.GetObject(c.Request.Context(), h.uploadBucket, fileID)
		if err != nil {
			sendError(c, http.StatusNotFound, err)
			return
		}

		pages, err := extract.FromPDF(data, fileID)
		if err != nil {
			sendError(c, http.StatusBadRequest, err)
			return
		}
		docs = append(docs, pages...)
	}

	chunks, err := h.ingestService.Ingest(c.Request.Context(), provider, ingest.Request{
		Namespace:      req.Namespace,
		EmbeddingModel: provider.EmbeddingModelName(),
		ClearNamespace: req.ClearNamespace,
		Documents:      docs,
	})
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	sendJSON(c, http.StatusOK, ingestResponse{Namespace: req.Namespace, Chunks: chunks})
}
