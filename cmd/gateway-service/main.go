package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/earlycare-ai/gateway/pkg/common/config"
	"github.com/earlycare-ai/gateway/pkg/common/database"
	"github.com/earlycare-ai/gateway/pkg/common/kafka"
	"github.com/earlycare-ai/gateway/pkg/common/logger"
	"github.com/earlycare-ai/gateway/pkg/gateway"
	"github.com/earlycare-ai/gateway/pkg/gateway/auth"
	"github.com/earlycare-ai/gateway/pkg/gateway/middleware"
	"github.com/earlycare-ai/gateway/pkg/gateway/routes"
	"github.com/earlycare-ai/gateway/pkg/monitoring"
	"github.com/earlycare-ai/gateway/pkg/narrative"
	"github.com/earlycare-ai/gateway/pkg/privacy"
	"github.com/earlycare-ai/gateway/pkg/storage"
	"github.com/earlycare-ai/gateway/pkg/strategy"
	"github.com/gorilla/mux"
)

func main() {
	logger.Init()
	cfg := config.Load()

	// Strategy selector from the catalog file, or compiled defaults
	catalog, err := strategy.LoadCatalog(cfg.StrategyCatalogPath)
	if err != nil {
		logger.Log.WithError(err).Warn("Strategy catalog not loaded, using defaults")
	}
	selector := strategy.BuildSelector(catalog)
	if cfg.EnsembleEnabled {
		selector.EnableEnsemble(true)
	}

	gw := gateway.New(selector)

	// Optional pipeline stages beyond the default chain
	rules, err := privacy.LoadRules(cfg.PrivacyRulesPath)
	if err != nil {
		logger.Log.WithError(err).Warn("Privacy rules not loaded, using defaults")
		rules = privacy.DefaultRules()
	}
	detector, err := privacy.NewDetector(rules)
	if err != nil {
		logger.Log.WithError(err).Fatal("Invalid privacy rules")
	}
	gw.SetChain(
		gateway.ValidationStage{},
		gateway.NormalizationStage{},
		gateway.PrivacyStage{Detector: detector},
		gateway.EnrichmentStage{},
		gateway.TriageStage{},
	)

	// Observers
	metricsObs := monitoring.NewMetricsObserver()
	perfObs := monitoring.NewPerformanceObserver(cfg.SlowRequestMs)
	auditObs := monitoring.NewAuditObserver(cfg.AuditLogPath)
	gw.Attach(metricsObs)
	gw.Attach(perfObs)
	gw.Attach(auditObs)

	var producer *kafka.Producer
	if cfg.PublishLifecyle {
		producer = kafka.NewProducer(cfg.LifecycleTopic)
		defer producer.Close()
		gw.Attach(monitoring.NewEventBusObserver(producer, "gateway-service"))
	}

	// Diagnostic narrative backend
	if cfg.NarrativeBaseURL != "" {
		gw.SetNarrative(narrative.NewClient(cfg.NarrativeBaseURL, cfg.NarrativeAPIKey, cfg.NarrativeTimeout))
	}

	// Persistence is optional; the gateway runs stateless without it
	var repo *storage.Repository
	var cache *storage.DecisionCache
	if db, err := database.GetPostgres(); err != nil {
		logger.Log.WithError(err).Warn("PostgreSQL unavailable, decisions will not be persisted")
	} else {
		repo = storage.NewRepository(db)
		if err := repo.AutoMigrate(); err != nil {
			logger.Log.WithError(err).Fatal("Failed to migrate database schema")
		}
		cache = storage.NewDecisionCache(database.GetRedis(), cfg.DecisionCacheTTL)
	}

	// OIDC authenticator
	oidcAuth, err := auth.NewOIDCAuthenticator(cfg.OIDCIssuer, cfg.OIDCClientID, cfg.OIDCClientSecret)
	if err != nil {
		logger.Log.WithError(err).Warn("OIDC authentication not configured, running without auth")
	}

	// Router
	router := mux.NewRouter()
	router.Use(middleware.Logging)
	router.Use(middleware.Recovery)
	router.Use(middleware.CORS)
	router.Use(middleware.RateLimit(cfg.GatewayRateLimit, cfg.GatewayRateBurst))
	router.Use(middleware.BodyLimit(cfg.MaxRequestBody))

	monitoringHandler := routes.NewMonitoringHandler(gw, metricsObs, perfObs, auditObs)
	monitoringHandler.Register(router)

	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	if oidcAuth != nil {
		apiRouter.Use(middleware.Authenticate(oidcAuth))
	}
	routes.NewDecisionsHandler(gw, repo, cache).Register(apiRouter)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("Gateway service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down gateway service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	database.ClosePostgres()
	database.CloseRedis()

	logger.Log.Info("Gateway service stopped")
}
