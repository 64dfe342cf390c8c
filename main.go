package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/urfave/negroni"

	"github.com/koios-ai/koios/agent"
	"github.com/koios-ai/koios/chunker"
	"github.com/koios-ai/koios/config"
	"github.com/koios-ai/koios/document_store"
	"github.com/koios-ai/koios/document_store/pgstore"
	"github.com/koios-ai/koios/document_store/sqlitestore"
	"github.com/koios-ai/koios/embedding"
	"github.com/koios-ai/koios/llm_service"
	"github.com/koios-ai/koios/logging"
	"github.com/koios-ai/koios/search_provider"
	"github.com/koios-ai/koios/server"
)

func main() {
	cfg := config.Load()

	logger := setupLogger()

	embedder := embedding.NewClient(cfg.OpenAIURL, cfg.OpenAIAPIKey, cfg.EmbeddingModel,
		cfg.EmbeddingTimeout, cfg.LLMMaxRetries, logger)
	splitter := chunker.New(cfg.ChunkSize, cfg.ChunkOverlap)

	store, err := openStore(cfg, splitter, embedder, logger)
	if err != nil {
		log.Fatalf("Failed to open document store: %v", err)
	}
	defer store.Close()

	llm := llm_service.NewOpenAIService(cfg.OpenAIURL, cfg.OpenAIAPIKey,
		cfg.GenerationTimeout, cfg.LLMMaxRetries, logger)

	chain := search_provider.NewChain(cfg.MinSearchSnippets, cfg.SearchTimeout, logger,
		buildProviders(cfg)...)

	workflow := agent.NewWorkflow(store, chain, llm, agent.NewEvaluator(nil, ""), agent.Settings{
		DefaultModel:     cfg.DefaultModel,
		RetrievalTopK:    cfg.RetrievalTopK,
		ContextBudget:    cfg.ContextBudget,
		MaxSearchResults: cfg.MaxSearchResults,
		PipelineTimeout:  cfg.PipelineTimeout,
	}, logger)

	r := server.SetupRoutes(cfg, workflow, store, llm, logger)
	n := setupNegroni(r)

	logger.Info("Starting server",
		slog.String("environment", cfg.Environment),
		slog.String("store_backend", cfg.StoreBackend))

	if cfg.Environment == "production" {
		server.ServeProduction(n, cfg)
	} else {
		srv := &http.Server{
			Addr:         ":" + cfg.HTTPPort,
			Handler:      n,
			IdleTimeout:  time.Minute,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 2 * time.Minute,
		}
		server.ServeDevelopment(srv)
	}
}

func setupLogger() *slog.Logger {
	handler, err := logging.NewDailyFileHandler("logs", &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	if err != nil {
		log.Printf("Failed to initialize file logging, falling back to stdout: %v", err)
		return slog.Default()
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func openStore(cfg config.Config, splitter *chunker.Chunker, embedder document_store.Embedder, logger *slog.Logger) (document_store.Store, error) {
	if cfg.StoreBackend == "postgres" {
		return pgstore.Connect(context.Background(), cfg.DatabaseURL, splitter, embedder, logger)
	}
	return sqlitestore.Open(cfg.SQLitePath, splitter, embedder, logger)
}

func buildProviders(cfg config.Config) []search_provider.Provider {
	providers := []search_provider.Provider{
		search_provider.NewDuckDuckGoProvider(&http.Client{Timeout: cfg.SearchTimeout}),
		&search_provider.WikipediaProvider{
			HttpClient: &http.Client{Timeout: cfg.SearchTimeout},
		},
	}
	// Google only joins the chain when credentials are configured.
	if cfg.GoogleCustomSearchAPIKey != "" && cfg.GoogleCustomSearchEngineID != "" {
		providers = append(providers, &search_provider.GoogleProvider{
			HttpClient:     &http.Client{Timeout: cfg.SearchTimeout},
			APIKey:         cfg.GoogleCustomSearchAPIKey,
			SearchEngineID: cfg.GoogleCustomSearchEngineID,
		})
	}
	return providers
}

func setupNegroni(r *mux.Router) *negroni.Negroni {
	n := negroni.New()

	n.Use(negroni.NewRecovery())
	n.Use(negroni.NewLogger())

	n.UseHandler(r)
	return n
}
