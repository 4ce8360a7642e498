package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/synaptica-ai/clinic-console/pkg/audit"
	"github.com/synaptica-ai/clinic-console/pkg/common/config"
	"github.com/synaptica-ai/clinic-console/pkg/common/database"
	"github.com/synaptica-ai/clinic-console/pkg/common/kafka"
	"github.com/synaptica-ai/clinic-console/pkg/common/logger"
	"github.com/synaptica-ai/clinic-console/pkg/gateway/routes"
	"github.com/synaptica-ai/clinic-console/pkg/observability/metrics"
	"github.com/synaptica-ai/clinic-console/pkg/privacy"
	"github.com/synaptica-ai/clinic-console/pkg/stats"
)

// The worker turns lifecycle events into audit entries and drops the cached
// dashboard whenever data changes.
func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer database.ClosePostgres()

	auditRepo := audit.NewRepository(db)
	if err := auditRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("Migration failed")
	}

	rdb := database.GetRedis()
	defer database.CloseRedis()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	workerMetrics := metrics.New(reg)

	dashboardCache := stats.NewService(nil, nil, rdb, cfg.StatsCacheTTL, cfg.Location(), workerMetrics)
	rules, err := privacy.LoadRules(cfg.AuditRedactionFile)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load audit redaction rules")
	}
	redactor, err := privacy.NewRedactor(rules)
	if err != nil {
		logger.Log.WithError(err).Fatal("Invalid audit redaction rules")
	}
	recorder := audit.NewService(auditRepo, workerMetrics, dashboardCache).WithRedactor(redactor)

	consumer := kafka.NewConsumer(cfg.KafkaTopic, cfg.KafkaGroupID)
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		err := consumer.Consume(ctx, recorder.HandleEvent)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Log.WithError(err).Fatal("Consumer error")
		}
	}()

	sqlDB, err := db.DB()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to access the Postgres pool")
	}
	router := mux.NewRouter()
	routes.NewSystemHandler(
		map[string]routes.Check{"postgres": sqlDB.PingContext},
		map[string]routes.Check{"redis": func(ctx context.Context) error { return database.PingRedis(ctx, rdb) }},
		reg,
	).Register(router)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.WorkerPort),
		Handler: router,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"topic": cfg.KafkaTopic,
			"group": cfg.KafkaGroupID,
			"port":  cfg.WorkerPort,
		}).Info("Console worker started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down console worker...")
	cancel()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Console worker stopped")
}
