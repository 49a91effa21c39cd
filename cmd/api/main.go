// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/promptdeck/agent-platform/internal/config"
	"github.com/promptdeck/agent-platform/internal/delegation"
	"github.com/promptdeck/agent-platform/internal/events"
	"github.com/promptdeck/agent-platform/internal/handler"
	"github.com/promptdeck/agent-platform/internal/identity"
	"github.com/promptdeck/agent-platform/internal/llm"
	"github.com/promptdeck/agent-platform/internal/middleware"
	"github.com/promptdeck/agent-platform/internal/registry"
	"github.com/promptdeck/agent-platform/internal/service"
	"github.com/promptdeck/agent-platform/internal/sharing"
	"github.com/promptdeck/agent-platform/internal/store"
	"github.com/promptdeck/agent-platform/pkg/logger"
	"github.com/promptdeck/agent-platform/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "agent-platform", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Open the store
	st, err := store.NewSQLiteStore(cfg.DatabasePath, log)
	if err != nil {
		log.Error("failed to open store", zap.Error(err))
		os.Exit(1)
	}
	defer st.Close()

	// Optional conversation event stream
	var natsClient *events.Client
	var publisher *events.Publisher
	if cfg.EventsEnabled {
		natsClient, err = events.Connect(ctx, events.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Error("failed to connect to NATS", zap.Error(err))
			os.Exit(1)
		}
		defer natsClient.Close()

		publisher = events.NewPublisher(natsClient)
		if err := publisher.EnsureStream(ctx); err != nil {
			log.Error("failed to ensure event stream", zap.Error(err))
			os.Exit(1)
		}
	}

	// Completion provider
	var llmClient llm.Client
	if cfg.DefaultLLM == string(llm.ProviderOpenAI) && cfg.OpenAIAPIKey != "" {
		llmClient, err = llm.NewOpenAIClient(cfg.OpenAIAPIKey)
	} else if cfg.AnthropicAPIKey != "" {
		llmClient, err = llm.NewAnthropicClient(cfg.AnthropicAPIKey)
	} else if cfg.OpenAIAPIKey != "" {
		llmClient, err = llm.NewOpenAIClient(cfg.OpenAIAPIKey)
	}
	if err != nil {
		log.Error("failed to create completion client", zap.Error(err))
		os.Exit(1)
	}
	if llmClient == nil {
		log.Warn("no completion provider configured, turns will fail")
	}

	// Identity gate (degraded mode when no JWT secret is configured)
	gate := identity.NewGate(verifierOrNil(cfg.JWTSecret), cfg.DegradedMinTokenLength, log)

	// Core services
	reg := registry.New(st, cfg.SystemAgentIDs, log)
	router := delegation.NewRouter(reg, llmClient, cfg.DelegationMaxDepth, cfg.LLMTimeout, log)
	conversationSvc := service.NewConversationService(st, publisher, log)
	turnSvc := service.NewTurnService(conversationSvc, reg, router, log)
	shareGateway := sharing.NewGateway(st, reg, log)

	// Handlers
	healthHandler := handler.NewHealthHandler(st, natsClient)
	agentHandler := handler.NewAgentHandler(reg, log)
	conversationHandler := handler.NewConversationHandler(conversationSvc, log)
	messageHandler := handler.NewMessageHandler(turnSvc, conversationSvc, log)
	shareHandler := handler.NewShareHandler(shareGateway, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS())

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// Public share resolution: deliberately outside the authenticated API.
	r.Get("/share/{shareId}", shareHandler.Resolve)

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(gate))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		// Agents
		r.Route("/agents", func(r chi.Router) {
			r.Post("/", agentHandler.Create)
			r.Get("/", agentHandler.List)
			r.Get("/public", agentHandler.ListPublic)
			r.Get("/public/{id}", agentHandler.GetPublic)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", agentHandler.Get)
				r.Put("/", agentHandler.Update)
				r.Delete("/", agentHandler.Delete)
			})
		})

		// Conversations
		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", conversationHandler.Create)
			r.Get("/", conversationHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", conversationHandler.Get)
				r.Put("/", conversationHandler.Rename)
				r.Put("/folder", conversationHandler.Move)
				r.Put("/share", conversationHandler.Share)
				r.Delete("/", conversationHandler.Delete)

				// Messages
				r.Get("/messages", messageHandler.List)
				r.Post("/messages", messageHandler.Send)
			})
		})

		// First turn without an existing conversation
		r.Post("/messages", messageHandler.SendNew)
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

// verifierOrNil returns a nil Verifier when no secret is configured so the
// gate starts in degraded mode.
func verifierOrNil(secret string) identity.Verifier {
	if v := identity.NewJWTVerifier(secret); v != nil {
		return v
	}
	return nil
}
