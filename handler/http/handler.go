package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chatdocs/src/core/chain"
	"chatdocs/src/core/extract"
	"chatdocs/src/core/ingest"
	"chatdocs/src/core/rag"
	"chatdocs/src/infrastructure/job"
	"chatdocs/src/infrastructure/providers"
	"chatdocs/src/storage/minioctrl"
	"chatdocs/src/storage/postgres/userctrl"
)

type Handler struct {
	ingestService *ingest.Service
	fetcher       *extract.Fetcher
	factory       *providers.Factory
	store         rag.VectorStore
	userService   *userctrl.UserService
	minioService  *minioctrl.MinioService
	jobService    *job.JobService
	jobRepo       job.JobRepository
	chainOpts     []chain.Option
	billingURL    string
	uploadBucket  string
}

func NewHandler(
	ingestService *ingest.Service,
	fetcher *extract.Fetcher,
	factory *providers.Factory,
	store rag.VectorStore,
	userService *userctrl.UserService,
	minioService *minioctrl.MinioService,
	jobService *job.JobService,
	jobRepo job.JobRepository,
	billingURL string,
	chainOpts ...chain.Option,
) *Handler {
	return &Handler{
		ingestService: ingestService,
		fetcher:       fetcher,
		factory:       factory,
		store:         store,
		userService:   userService,
		minioService:  minioService,
		jobService:    jobService,
		jobRepo:       jobRepo,
		chainOpts:     chainOpts,
		billingURL:    billingURL,
		uploadBucket:  minioctrl.DefaultUploadBucket,
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	v1 := r.Group("/api/v1")

	// Ingestion routes
	v1.POST("/ingest/text", h.IngestText)
	v1.POST("/ingest/urls", h.IngestURLs)
	v1.POST("/ingest/files", h.IngestFiles)

	// Upload routes
	v1.POST("/files", h.UploadFile)

	// Chat routes
	v1.POST("/chat", h.Chat)

	// Search routes
	v1.POST("/search", h.Search)

	// Settings routes
	v1.GET("/users/:id/settings", h.GetSettings)
	v1.PATCH("/users/:id/settings", h.UpdateSettings)

	// Billing routes
	v1.GET("/billing/portal", h.BillingPortal)

	// Job routes
	v1.GET("/jobs/:id", h.GetJob)

	// System routes
	v1.GET("/health", h.CheckHealth)
}

// Common error response structure
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

func sendError(c *gin.Context, status int, err error) {
	var (
		validationErr *rag.ValidationError
		authErr       *rag.AuthError
		rateLimitErr  *rag.RateLimitError
		providerErr   *rag.ProviderError
	)
	switch {
	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
	case errors.As(err, &authErr):
		status = http.StatusUnauthorized
	case errors.As(err, &rateLimitErr):
		status = http.StatusTooManyRequests
	case errors.As(err, &providerErr):
		status = http.StatusBadGateway
	}

	c.JSON(status, ErrorResponse{
		Error: ErrorBody{
			StatusCode: status,
			Message:    err.Error(),
		},
	})
}

func sendJSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// botConfigRequest is the bot configuration subset every
// ingestion/chat request may carry inline. Inline fields win over the
// stored row of UserID; nothing falls back to server-side defaults
// beyond the provider's own.
type botConfigRequest struct {
	UserID         string `json:"userId"`
	APIKey         string `json:"apiKey"`
	PromptTemplate string `json:"promptTemplate"`
	ModelName      string `json:"modelName"`
	EmbeddingModel string `json:"embeddingModel"`
	Provider       string `json:"provider"`
}

// resolveBotConfig folds the request-level fields over the stored user
// row into one explicit per-call config.
func (h *Handler) resolveBotConfig(c *gin.Context, req botConfigRequest) (rag.BotConfig, error) {
	cfg := rag.BotConfig{
		APIKey:         req.APIKey,
		PromptTemplate: req.PromptTemplate,
		ModelName:      req.ModelName,
		EmbeddingModel: req.EmbeddingModel,
		Provider:       req.Provider,
	}

	if req.UserID != "" {
		user, err := h.userService.GetByID(c.Request.Context(), req.UserID)
		if err != nil {
			return rag.BotConfig{}, err
		}
		if user != nil {
			if cfg.APIKey == "" {
				cfg.APIKey = user.UserAPI
			}
			if cfg.PromptTemplate == "" {
				cfg.PromptTemplate = user.UserPrompt
			}
			if cfg.ModelName == "" {
				cfg.ModelName = user.UserModel
			}
		}
	}

	return cfg, nil
}
