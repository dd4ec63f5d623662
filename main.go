package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"loanlens/features/analysis"
	"loanlens/features/application"
	"loanlens/features/document"
	"loanlens/features/stats"
	"loanlens/internal/adapter/gemini"
	"loanlens/internal/adapter/ocr"
	"loanlens/internal/adapter/openai"
	wstore "loanlens/internal/adapter/weaviate"
	"loanlens/internal/config"
	"loanlens/internal/extract"
	"loanlens/internal/middleware"
	"loanlens/internal/retrieval"
	"loanlens/internal/text"
	"loanlens/internal/vector"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/nsqio/go-nsq"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// 2. Database Connection
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPass, cfg.DBName)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("failed to open db connection", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Retry connection
	for i := 0; i < cfg.BootstrapRetryAttempts; i++ {
		if err := db.Ping(); err == nil {
			break
		}
		slog.Warn("failed to ping db, retrying...", "attempt", i+1, "max_attempts", cfg.BootstrapRetryAttempts)
		time.Sleep(time.Duration(cfg.BootstrapRetryDelaySeconds) * time.Second)
	}

	if err := db.Ping(); err != nil {
		slog.Error("failed to ping db after retries", "error", err)
		os.Exit(1)
	}

	// 3. Run Migrations
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		slog.Error("failed to create migration driver", "error", err)
		os.Exit(1)
	}

	m, err := migrate.NewWithDatabaseInstance(cfg.MigrationPath, "postgres", driver)
	if err != nil {
		slog.Error("failed to create migration instance", "error", err)
		os.Exit(1)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("migrations applied successfully")

	// 4. Weaviate Connection & Schema
	wCfg := weaviate.Config{
		Host:   cfg.WeaviateHost,
		Scheme: cfg.WeaviateScheme,
	}
	wClient, err := weaviate.NewClient(wCfg)
	if err != nil {
		slog.Error("failed to create weaviate client", "error", err)
		os.Exit(1)
	}

	wAdapter := vector.NewWeaviateClientAdapter(wClient)

	// Retry Weaviate Schema Ensure
	for i := 0; i < cfg.BootstrapRetryAttempts; i++ {
		if err := vector.EnsureSchema(context.Background(), wAdapter); err == nil {
			slog.Info("weaviate schema ensured")
			break
		}
		slog.Warn("failed to ensure weaviate schema, retrying...", "attempt", i+1, "error", err)
		time.Sleep(time.Duration(cfg.BootstrapRetryDelaySeconds) * time.Second)
	}

	if err := vector.EnsureSchema(context.Background(), wAdapter); err != nil {
		slog.Error("failed to ensure weaviate schema after retries", "error", err)
		os.Exit(1)
	}

	vecStore := wstore.NewStore(wClient)

	// 5. Providers
	openaiClient := openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIEmbedModel, cfg.OpenAIChatModel)

	var embedder document.Embedder = openaiClient
	if cfg.EmbeddingProvider == "gemini" {
		geminiEmbedder, err := gemini.NewEmbedder(context.Background(), cfg.GeminiAPIKey)
		if err != nil {
			slog.Error("failed to create gemini embedder", "error", err)
			os.Exit(1)
		}
		defer geminiEmbedder.Close()
		embedder = geminiEmbedder
	}

	extractor := extract.NewExtractor(ocr.NewClient(cfg.OCRURL))

	// NSQ Producer
	nsqCfg := nsq.NewConfig()
	nsqProducer, err := nsq.NewProducer(cfg.NSQDHost, nsqCfg)
	if err != nil {
		slog.Error("failed to create NSQ producer", "error", err)
		os.Exit(1)
	}

	// Pre-create topics: NSQ creates them lazily on publish, but consumers
	// querying lookupd 404 until the first message lands.
	go func() {
		time.Sleep(2 * time.Second)
		host, _, _ := net.SplitHostPort(cfg.NSQDHost)
		if host == "" {
			host = cfg.NSQDHost
		}
		for _, topic := range []string{application.TopicAnalysisRequest, analysis.TopicAnalysisCompleted} {
			url := fmt.Sprintf("http://%s:4151/topic/create?topic=%s", host, topic)
			resp, err := http.Post(url, "application/json", nil)
			if err != nil {
				slog.Warn("failed to pre-create topic", "error", err, "topic", topic)
				continue
			}
			resp.Body.Close()
		}
	}()

	// Repositories
	chunkRepo := document.NewPostgresRepo(db)
	appRepo := application.NewPostgresRepo(db)
	analysisRepo := analysis.NewPostgresRepo(db)

	// Feature: Document ingestion
	documentService := document.NewService(
		extractor, chunkRepo, embedder, vecStore, analysisRepo,
		text.Policy(cfg.ChunkPolicy), cfg.ChunkMaxWords, cfg.IngestionConcurrency,
	)
	documentHandler := document.NewHandler(documentService)

	// Feature: Application intake
	applicationService := application.NewService(appRepo, documentService, documentService, analysisRepo, nsqProducer)
	applicationHandler := application.NewHandler(applicationService, cfg.UploadDir, cfg.MaxUploadSizeMB)

	// Feature: Retrieval
	queryLogger, err := retrieval.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = retrieval.NewQueryLogger(os.Stdout)
	}
	retrievalService := retrieval.NewService(embedder, vecStore, chunkRepo, cfg.RetrievalTopK, queryLogger)

	// Feature: Analysis
	generator := analysis.NewGenerator(retrievalService, openaiClient)
	analysisService := analysis.NewService(applicationService, generator, analysisRepo, nsqProducer)
	analysisHandler := analysis.NewHandler(analysisService)

	// Feature: Stats
	statsHandler := stats.NewHandler(appRepo, analysisRepo, chunkRepo)

	// Middleware: CORS
	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	// Routes
	http.Handle("POST /applications", middleware.CorrelationID(enableCORS(applicationHandler.Create)))
	http.Handle("GET /applications", middleware.CorrelationID(enableCORS(applicationHandler.List)))
	http.Handle("GET /applications/{id}", middleware.CorrelationID(enableCORS(applicationHandler.Get)))
	http.Handle("DELETE /applications/{id}", middleware.CorrelationID(enableCORS(applicationHandler.Delete)))

	http.Handle("POST /applications/{id}/analyze", middleware.CorrelationID(enableCORS(analysisHandler.Analyze)))
	http.Handle("GET /applications/{id}/analysis", middleware.CorrelationID(enableCORS(analysisHandler.Get)))

	http.Handle("GET /documents", middleware.CorrelationID(enableCORS(documentHandler.List)))
	http.Handle("DELETE /documents", middleware.CorrelationID(enableCORS(documentHandler.WipeAll)))

	http.Handle("GET /stats", middleware.CorrelationID(enableCORS(statsHandler.GetStats)))

	// Serve uploaded applicant photos
	http.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadDir))))

	// Worker (Analysis Request Consumer)
	requestConsumer := analysis.NewRequestConsumer(analysisService)

	nsqCfg = nsq.NewConfig()
	consumer, err := nsq.NewConsumer(application.TopicAnalysisRequest, "backend", nsqCfg)
	if err != nil {
		slog.Error("failed to create NSQ consumer for analysis requests", "error", err)
	} else {
		consumer.AddHandler(nsq.HandlerFunc(func(m *nsq.Message) error {
			return requestConsumer.HandleMessage(m)
		}))
		if err := consumer.ConnectToNSQLookupd(cfg.NSQLookupd); err != nil {
			slog.Error("failed to connect to NSQLookupd", "error", err)
		} else {
			slog.Info("NSQ analysis consumer connected")
		}
	}

	// 6. Start Server
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	slog.Info("server starting", "port", cfg.ServerPort)
	if err := http.ListenAndServe(fmt.Sprintf(":%d", cfg.ServerPort), nil); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
