package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/synaptica-ai/clinic-console/pkg/appointments"
	"github.com/synaptica-ai/clinic-console/pkg/audit"
	"github.com/synaptica-ai/clinic-console/pkg/common/config"
	"github.com/synaptica-ai/clinic-console/pkg/common/database"
	"github.com/synaptica-ai/clinic-console/pkg/common/kafka"
	"github.com/synaptica-ai/clinic-console/pkg/common/logger"
	"github.com/synaptica-ai/clinic-console/pkg/gateway/auth"
	"github.com/synaptica-ai/clinic-console/pkg/gateway/httpclient"
	"github.com/synaptica-ai/clinic-console/pkg/gateway/middleware"
	"github.com/synaptica-ai/clinic-console/pkg/gateway/routes"
	"github.com/synaptica-ai/clinic-console/pkg/identity"
	"github.com/synaptica-ai/clinic-console/pkg/observability/metrics"
	"github.com/synaptica-ai/clinic-console/pkg/patients"
	"github.com/synaptica-ai/clinic-console/pkg/stats"
	"github.com/synaptica-ai/clinic-console/pkg/tableview"
)

func main() {
	logger.Init()
	cfg := config.Load()
	loc := cfg.Location()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer database.ClosePostgres()

	identityRepo := identity.NewRepository(db)
	patientRepo := patients.NewRepository(db)
	appointmentRepo := appointments.NewRepository(db)
	auditRepo := audit.NewRepository(db)
	for name, migrate := range map[string]func() error{
		"identity":     identityRepo.AutoMigrate,
		"appointments": appointmentRepo.AutoMigrate,
		"audit":        auditRepo.AutoMigrate,
	} {
		if err := migrate(); err != nil {
			logger.Log.WithError(err).WithField("schema", name).Fatal("Migration failed")
		}
	}

	rdb := database.GetRedis()
	defer database.CloseRedis()

	producer := kafka.NewProducer(cfg.KafkaTopic)
	defer producer.Close()

	tokens, err := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTTTL)
	if err != nil {
		logger.Log.WithError(err).Fatal("JWT_SECRET must be set to at least 16 characters")
	}

	var external identity.ExternalVerifier
	if cfg.OIDCIssuer != "" {
		verifier, err := auth.NewOIDCVerifier(cfg.OIDCIssuer, cfg.OIDCClientID, cfg.OIDCClientSecret, httpclient.New(cfg.RequestTimeout))
		if err != nil {
			logger.Log.WithError(err).Warn("OIDC login not configured, using local accounts only")
		} else {
			external = verifier
		}
	}

	presets, err := tableview.LoadPresets(cfg.ViewPresetsFile)
	if err != nil {
		logger.Log.WithError(err).Warn("Falling back to default view presets")
		presets = tableview.DefaultPresets()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	consoleMetrics := metrics.New(reg)

	patientService := patients.NewService(patientRepo, producer)
	appointmentService := appointments.NewService(appointmentRepo, patientService, producer)
	statsService := stats.NewService(patientService, appointmentRepo, rdb, cfg.StatsCacheTTL, loc, consoleMetrics)
	auditService := audit.NewService(auditRepo, consoleMetrics)

	router := mux.NewRouter()
	router.Use(middleware.Metrics(consoleMetrics))

	sqlDB, err := db.DB()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to access the Postgres pool")
	}
	routes.NewSystemHandler(
		map[string]routes.Check{"postgres": sqlDB.PingContext},
		map[string]routes.Check{"redis": func(ctx context.Context) error { return database.PingRedis(ctx, rdb) }},
		reg,
	).Register(router)

	api := router.PathPrefix("/api").Subrouter()
	routes.NewAuthHandler(identity.NewService(identityRepo, external), tokens).Register(api.PathPrefix("/auth").Subrouter())

	protected := api.NewRoute().Subrouter()
	protected.Use(middleware.Authenticate(tokens))
	patients.NewHandler(patientService, presets, consoleMetrics).Register(protected)
	appointments.NewHandler(appointmentService, presets, consoleMetrics, loc).Register(protected)
	stats.NewHandler(statsService).Register(protected)
	audit.NewHandler(auditService, presets, consoleMetrics, loc).Register(protected)

	var handler http.Handler = router
	handler = middleware.BodyLimit(cfg.MaxRequestBody)(handler)
	handler = middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst)(handler)
	handler = middleware.CORS(cfg.CORSOrigin)(handler)
	handler = middleware.Recovery(handler)
	handler = middleware.Logging(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host":     cfg.ServerHost,
			"port":     cfg.ServerPort,
			"timezone": loc.String(),
		}).Info("Console API started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Console API...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Console API stopped")
}
