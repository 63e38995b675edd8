// Command memoryd is the memory store's process entrypoint: it loads
// configuration, connects to Postgres, wires the chunker/embedder/
// resolver/extractor/graph/ingester/retriever stack into a pkg/memory.Store,
// starts the job-queue worker pool and the retention cleanup loop, and
// serves the internal /healthz + /v1/status HTTP surface.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/hybridmem/memstore/pkg/api"
	"github.com/hybridmem/memstore/pkg/cleanup"
	"github.com/hybridmem/memstore/pkg/config"
	"github.com/hybridmem/memstore/pkg/database"
	"github.com/hybridmem/memstore/pkg/embedder"
	"github.com/hybridmem/memstore/pkg/embedder/grpcembed"
	"github.com/hybridmem/memstore/pkg/extractor"
	"github.com/hybridmem/memstore/pkg/graph"
	"github.com/hybridmem/memstore/pkg/ingester"
	"github.com/hybridmem/memstore/pkg/llmclient"
	"github.com/hybridmem/memstore/pkg/llmclient/grpcllm"
	"github.com/hybridmem/memstore/pkg/memory"
	"github.com/hybridmem/memstore/pkg/queue"
	"github.com/hybridmem/memstore/pkg/resolver"
	"github.com/hybridmem/memstore/pkg/retriever"
	"github.com/hybridmem/memstore/pkg/vectorindex/pgvector"
	"github.com/hybridmem/memstore/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("warning: could not load %s: %v", envPath, err)
		log.Printf("continuing with existing environment variables")
	} else {
		log.Printf("loaded environment from %s", envPath)
	}

	httpAddr := ":" + getEnv("HTTP_PORT", "8090")
	livenessAddr := ":" + getEnv("LIVENESS_PORT", "8091")
	gin.SetMode(getEnv("GIN_MODE", "release"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("failed to load database config: %v", err)
	}
	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			log.Printf("error closing database client: %v", err)
		}
	}()
	slog.Info("connected to postgres", "host", dbConfig.Host, "database", dbConfig.Database)

	embedProvider, err := grpcembed.New(getEnv("EMBEDDING_SERVICE_ADDR", "localhost:9091"), cfg.Embedding.Model)
	if err != nil {
		log.Fatalf("failed to create embedding client: %v", err)
	}
	defer embedProvider.Close()
	embedClient := embedder.NewClient(embedProvider, cfg.Embedding.ToEmbedderConfig())

	llmProvider, err := grpcllm.New(getEnv("LLM_SERVICE_ADDR", "localhost:9092"))
	if err != nil {
		log.Fatalf("failed to create LLM client: %v", err)
	}
	defer llmProvider.Close()
	llmClient := llmclient.NewClient(llmProvider, llmclient.Config{
		RetryBase:       1 * time.Second,
		RetryMultiplier: 2,
		RetryMaxElapsed: 30 * time.Second,
	})

	vindex := pgvector.New(dbClient.DB())

	res := resolver.New(dbClient.Client, dbClient.DB(), embedClient, llmClient, cfg.Entity.ToResolverConfig())
	ext := extractor.New(dbClient.Client, llmClient, res, cfg.Extraction)
	materializer := graph.New(dbClient.Client)
	expander := graph.NewExpander(dbClient.Client)

	ing := ingester.New(dbClient.Client, vindex, embedClient, cfg.Chunker.ToChunkerConfig(), cfg.Extraction, cfg.Queue)
	retr := retriever.New(dbClient.Client, vindex, embedClient, expander, cfg.Retrieval)

	store := memory.New(dbClient.Client, ing, retr, llmClient, version.Full())

	pool := queue.NewWorkerPool(dbClient.Client, cfg.Queue, ext, materializer)
	if err := pool.Start(ctx); err != nil {
		log.Fatalf("failed to start worker pool: %v", err)
	}
	defer pool.Stop()

	cleanupSvc := cleanup.NewService(dbClient.Client, cfg.Retention)
	cleanupSvc.Start(ctx)
	defer cleanupSvc.Stop()

	server := api.NewServer(dbClient, store, pool)

	liveness := gin.New()
	liveness.GET("/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "alive", "version": version.Full()})
	})
	livenessServer := &http.Server{Addr: livenessAddr, Handler: liveness}
	go func() {
		slog.Info("liveness probe listening", "addr", livenessAddr)
		if err := livenessServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("liveness server error: %v", err)
		}
	}()

	go func() {
		slog.Info("memoryd HTTP server listening", "addr", httpAddr)
		if err := server.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			log.Printf("http server error: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down memoryd")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("error shutting down http server: %v", err)
	}
	if err := livenessServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("error shutting down liveness server: %v", err)
	}
}
