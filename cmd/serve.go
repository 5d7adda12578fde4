package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/pkg/amqp"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	weaviateClient "github.com/weaviate/weaviate-go-client/v4/weaviate"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	handler "chatdocs/handler/http"
	"chatdocs/src/core/chain"
	"chatdocs/src/core/chunk"
	"chatdocs/src/core/extract"
	"chatdocs/src/core/ingest"
	"chatdocs/src/infrastructure/job"
	"chatdocs/src/infrastructure/log"
	"chatdocs/src/infrastructure/providers"
	"chatdocs/src/storage/minioctrl"
	"chatdocs/src/storage/postgres/userctrl"
	"chatdocs/src/storage/weaviate"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chatdocs HTTP server",
	Long:  `The serve command starts an HTTP server that provides the ingestion and chat APIs`,
	Run:   RunServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	settingDefaultConfig()
}

func openPostgres() (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		viper.GetString("postgres.host"),
		viper.GetString("postgres.user"),
		viper.GetString("postgres.password"),
		viper.GetString("postgres.db"),
		viper.GetString("postgres.port"))
	return gorm.Open(postgres.Open(dsn), &gorm.Config{})
}

func RunServer(cmd *cobra.Command, args []string) {
	// Initialize PostgreSQL connection
	db, err := openPostgres()
	if err != nil {
		log.Error(err, "Failed to connect to database")
		return
	}

	userService, err := userctrl.NewUserService(db)
	if err != nil {
		log.Error(err, "Failed to create user service")
		return
	}

	// Initialize Weaviate client
	wc := weaviateClient.New(weaviateClient.Config{
		Host:   viper.GetString("weaviate.url"),
		Scheme: "http",
	})
	store := weaviate.NewStore(wc)

	// Initialize MinIO
	minioService, err := minioctrl.NewMinioService(
		viper.GetString("minio.endpoint"),
		viper.GetString("minio.access_key"),
		viper.GetString("minio.secret_key"),
		viper.GetBool("minio.use_ssl"),
	)
	if err != nil {
		log.Error(err, "Failed to create minio service")
		return
	}
	if err := minioService.EnsureBucketExists(context.Background(), minioctrl.DefaultUploadBucket); err != nil {
		log.Error(err, "Failed to ensure upload bucket exists")
		return
	}

	// Initialize AMQP publisher for async ingestion jobs
	wmLogger := watermill.NewStdLogger(false, false)
	amqpPublisher, err := amqp.NewPublisher(
		amqp.NewDurableQueueConfig(viper.GetString("amqp.url")),
		wmLogger,
	)
	if err != nil {
		log.Error(err, "Failed to create amqp publisher")
		return
	}
	defer amqpPublisher.Close()

	jobRepo, err := job.NewPostgresJobRepository(db)
	if err != nil {
		log.Error(err, "Failed to create job repository")
		return
	}
	// The server only enqueues; workers run the tasks.
	jobService := job.NewJobService(amqpPublisher, jobRepo, wmLogger, nil)

	splitter := chunk.NewSplitter(
		viper.GetInt("rag.chunk_size"),
		viper.GetInt("rag.chunk_overlap"),
	)
	ingestService := ingest.NewService(store, splitter)
	factory := providers.NewFactory(viper.GetString("ollama.url"))
	fetcher := extract.NewFetcher(nil)

	h := handler.NewHandler(
		ingestService,
		fetcher,
		factory,
		store,
		userService,
		minioService,
		jobService,
		jobRepo,
		viper.GetString("billing.portal_url"),
		chain.WithTopK(viper.GetInt("rag.top_k")),
		chain.WithContextBudget(viper.GetInt("rag.context_budget")),
	)

	// Setup gin router
	r := gin.Default()

	// Register routes
	h.RegisterRoutes(r)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + viper.GetString("server.port"),
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(err, "Failed to start server")
			return
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// Parse shutdown timeout
	timeout, err := time.ParseDuration(viper.GetString("server.shutdown_timeout"))
	if err != nil {
		log.Error(err, "Invalid shutdown timeout, using default 5s")
		timeout = 5 * time.Second
	}

	// Create context with timeout for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Close database connection
	sqlDB, err := db.DB()
	if err != nil {
		log.Error(err, "Failed to get underlying *sql.DB")
	} else {
		if err := sqlDB.Close(); err != nil {
			log.Error(err, "Error closing database connection")
		}
	}

	// Attempt graceful shutdown
	if err := srv.Shutdown(ctx); err != nil {
		log.Error(err, "Server forced to shutdown")
	}

	log.Info("Server exited")
}
