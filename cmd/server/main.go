package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"docvault/internal/auth"
	"docvault/internal/config"
	"docvault/internal/handler"
	"docvault/internal/middleware"
	"docvault/internal/repository/postgres"
	"docvault/internal/search"
	"docvault/internal/service"
	"docvault/internal/storage"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	// Log to stdout, plus a rotated file when LOG_DIR is set
	var logOut io.Writer = os.Stdout
	if cfg.LogDir != "" {
		logFile, err := config.SetupLogFile(cfg.LogDir, 10)
		if err != nil {
			log.Fatalf("Failed to set up log file: %v", err)
		}
		defer logFile.Close()
		logOut = io.MultiWriter(os.Stdout, logFile)
	}

	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	jwtVerifier, err := auth.NewJWTVerifier(cfg.JWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	// Create pgx connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected")

	tables := postgres.NewTableNames(cfg.TablePrefix)
	if err := postgres.EnsureSchema(ctx, pool, tables); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	docRepo := postgres.NewDocumentRepository(repoConfig)
	versionRepo := postgres.NewVersionRepository(repoConfig)
	txManager := postgres.NewTxManager(pool, logger)

	// External collaborators: best-effort index notification and the
	// blob store versions reference by handle
	notifier := search.NewAsyncNotifier(search.NewLogIndexer(logger), logger)

	policy, err := storage.LoadPolicy()
	if err != nil {
		log.Fatalf("Failed to load upload policy: %v", err)
	}
	fileStore, err := storage.NewLocalFileStore(cfg.StorageDir, policy, logger)
	if err != nil {
		log.Fatalf("Failed to create file store: %v", err)
	}

	// Create services
	docService := service.NewDocumentService(docRepo, logger)
	versionService := service.NewVersionService(docRepo, versionRepo, txManager, notifier, logger)

	// Create handlers
	docHandler := handler.NewDocumentHandler(docService, logger)
	versionHandler := handler.NewVersionHandler(versionService, fileStore, logger)

	api := http.NewServeMux()

	api.HandleFunc("POST /api/documents", docHandler.CreateDocument)
	api.HandleFunc("GET /api/documents", docHandler.ListDocuments)
	api.HandleFunc("GET /api/documents/{id}", docHandler.GetDocument)
	api.HandleFunc("PATCH /api/documents/{id}", docHandler.UpdateDocument)
	api.HandleFunc("DELETE /api/documents/{id}", docHandler.DeleteDocument)

	api.HandleFunc("POST /api/documents/{id}/versions", versionHandler.CreateVersion)
	api.HandleFunc("POST /api/documents/{id}/restore", versionHandler.Restore)
	api.HandleFunc("GET /api/documents/{id}/history", versionHandler.History)
	api.HandleFunc("GET /api/documents/{id}/branches", versionHandler.ListBranches)

	api.HandleFunc("GET /api/versions/compare", versionHandler.Compare)
	api.HandleFunc("GET /api/versions/{id}", versionHandler.GetVersion)
	api.HandleFunc("GET /api/versions/{id}/file", versionHandler.DownloadVersion)
	api.HandleFunc("POST /api/versions/{id}/branches", versionHandler.CreateBranch)
	api.HandleFunc("POST /api/versions/{id}/merge", versionHandler.Merge)

	mux := http.NewServeMux()
	mux.Handle("/api/", middleware.Auth(jwtVerifier, logger)(api))
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Panic recovery outermost
	root := middleware.Recovery(logger)(mux)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	addr := ":" + cfg.Port
	logger.Info("listening", "addr", addr)
	if err := http.ListenAndServe(addr, corsHandler.Handler(root)); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
