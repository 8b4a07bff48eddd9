// cmd/worker-manager/main.go
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

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.uber.org/zap"

	"admissions-engine/internal/admissions/identifier"
	"admissions-engine/internal/admissions/intake"
	"admissions-engine/internal/admissions/lookup"
	"admissions-engine/internal/admissions/repository"
	"admissions-engine/internal/admissions/status"
	"admissions-engine/internal/admissions/subjects"
	"admissions-engine/internal/api"
	"admissions-engine/internal/common/aws"
	"admissions-engine/internal/common/camunda"
	"admissions-engine/internal/common/config"
	"admissions-engine/internal/common/database"
	"admissions-engine/internal/common/logger"
	"admissions-engine/internal/common/observability"
	"admissions-engine/pkg/registry"

	bus "admissions-engine/internal/workers/admissions/bulk-update-application-status"
	ia "admissions-engine/internal/workers/admissions/index-application"
	rim "admissions-engine/internal/workers/admissions/record-interview-marks"
	ris "admissions-engine/internal/workers/admissions/replace-interview-subjects"
	ssn "admissions-engine/internal/workers/admissions/send-status-notification"
	uas "admissions-engine/internal/workers/admissions/update-application-status"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err,
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	bootLog := logger.New("info", "console")

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"service": cfg.App.Name,
		"version": cfg.App.Version,
	})

	if err := run(cfg, log); err != nil {
		zapLog.Fatal("worker manager stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log logger.Logger) error {
	log.Info("Starting worker manager...", nil)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	tracing, err := observability.NewTracing(cfg.App.Name, cfg.Tracing)
	if err != nil {
		return err
	}
	defer tracing.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Zeebe ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClient(cfg.Camunda)
		return err
	}, 10, 2*time.Second, log, "Zeebe client initialization")
	if err != nil {
		return err
	}
	defer zeebe.Close()
	log.Info("Zeebe client connected successfully", nil)

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(ctx, cfg.Database.Postgres)
		return err
	}, 15, 2*time.Second, log, "PostgreSQL connection")
	if err != nil {
		return err
	}
	defer pg.Close()
	log.Info("PostgreSQL connected successfully", nil)

	if cfg.Database.Postgres.MigrateOnStart {
		if err := pg.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info("Admissions schema migrated", nil)
	}

	// --- Elasticsearch ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping(ctx)
	}, 15, 2*time.Second, log, "Elasticsearch connection")
	if err != nil {
		return err
	}
	if err := esClient.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("ensure search index: %w", err)
	}
	log.Info("Elasticsearch connected successfully", map[string]interface{}{"index": esClient.Index})

	// --- Redis ---
	rdb := database.NewRedis(cfg.Database.Redis)
	defer rdb.Close()
	err = retryWithBackoff(func() error {
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, log, "Redis connection")
	if err != nil {
		return err
	}
	log.Info("Redis connected successfully", nil)

	// --- AWS notifications ---
	var (
		email ssn.EmailSender
		sms   ssn.SMSSender
	)
	if cfg.Notifications.Email.Enabled || cfg.Notifications.SMS.Enabled {
		awsCfg, err := aws.LoadConfig(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			return err
		}
		email = aws.NewSESClient(awsCfg, cfg.Notifications.Email.FromEmail)
		sms = aws.NewSNSClient(awsCfg, cfg.Notifications.SMS.SenderID)
	}

	// --- Admissions services ---
	repo := repository.New(pg.DB)

	intakeSvc := intake.NewService(repo, identifier.New(cfg.Admissions.NumberPrefix), log,
		intake.OnSubmitted(startIntakeProcess(zeebe, cfg.Camunda.IntakeProcessID, log)),
		intake.WithHookTimeout(time.Duration(cfg.Camunda.RequestTimeout)*time.Millisecond),
	)

	yearCache := lookup.NewRedisYearCache(rdb.Client, cfg.Admissions.CacheTTL(), log)
	dropCachedYears(ctx, yearCache, log)
	lookupOpts := []lookup.Option{
		lookup.WithYearCache(yearCache),
	}
	if cfg.Admissions.DisableCombinedLookup {
		lookupOpts = append(lookupOpts, lookup.WithoutCombinedLookup())
	}
	lookupSvc := lookup.NewService(repo, log, lookupOpts...)

	machine := status.NewMachine(repo, log)
	syncer := subjects.NewSynchronizer(repo, log)

	// --- Workers ---
	client := zeebe.GetClient()
	workers := []worker.JobWorker{}
	start := func(taskType string, handler camunda.HandlerFunc) {
		if jw := camunda.StartWorker(client, taskType, cfg.Workers[taskType], handler, obs, log); jw != nil {
			workers = append(workers, jw)
		}
	}

	{
		c := uas.LoadConfig()
		c.Timeout = workerTimeout(cfg, uas.TaskType, c.Timeout)
		start(uas.TaskType, uas.NewHandler(c, machine, log).Handle)
	}
	{
		c := bus.LoadConfig()
		c.Timeout = workerTimeout(cfg, bus.TaskType, c.Timeout)
		start(bus.TaskType, bus.NewHandler(c, machine, log).Handle)
	}
	{
		c := ris.LoadConfig()
		c.Timeout = workerTimeout(cfg, ris.TaskType, c.Timeout)
		start(ris.TaskType, ris.NewHandler(c, syncer, log).Handle)
	}
	{
		c := rim.LoadConfig()
		c.Timeout = workerTimeout(cfg, rim.TaskType, c.Timeout)
		start(rim.TaskType, rim.NewHandler(c, syncer, repo, log).Handle)
	}
	{
		c := ia.LoadConfig()
		c.Index = esClient.Index
		c.Timeout = workerTimeout(cfg, ia.TaskType, c.Timeout)
		start(ia.TaskType, ia.NewHandler(c, repo, esClient.Client, log).Handle)
	}
	{
		c := ssn.LoadConfig()
		c.SchoolName = cfg.Notifications.SchoolName
		c.CountryCode = cfg.Notifications.SMS.CountryCode
		c.EmailEnabled = cfg.Notifications.Email.Enabled
		c.SMSEnabled = cfg.Notifications.SMS.Enabled
		c.Timeout = workerTimeout(cfg, ssn.TaskType, c.Timeout)
		start(ssn.TaskType, ssn.NewHandler(c, email, sms, log).Handle)
	}

	checkRegistry(cfg, log)
	log.Info("Workers registered", map[string]interface{}{"count": len(workers)})

	// --- HTTP API ---
	var srv *http.Server
	if cfg.HTTP.Enabled {
		checks := map[string]api.Check{
			"postgres":      pg.Ping,
			"redis":         rdb.Ping,
			"elasticsearch": esClient.Ping,
			"zeebe":         zeebe.HealthCheck,
		}
		handler := api.NewHandler(intakeSvc, lookupSvc, checks, cfg.HTTP.MaxBodyBytes, log)
		srv = &http.Server{
			Addr:         cfg.HTTP.Address,
			Handler:      api.NewRouter(handler, obs),
			ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Millisecond,
			WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Millisecond,
		}
		go func() {
			log.Info("HTTP server listening", map[string]interface{}{"address": cfg.HTTP.Address})
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("HTTP server failed", map[string]interface{}{"error": err})
				stop()
			}
		}()
	}

	// --- Graceful Shutdown ---
	<-ctx.Done()
	log.Info("Shutdown signal received, stopping workers...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownTimeout)*time.Millisecond)
	defer cancel()

	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown failed", map[string]interface{}{"error": err})
		}
	}
	intakeSvc.Wait()
	for _, jw := range workers {
		jw.Close()
		jw.AwaitClose()
	}

	log.Info("Worker manager stopped", nil)
	return nil
}

func workerTimeout(cfg *config.Config, taskType string, fallback time.Duration) time.Duration {
	if ms := cfg.Workers[taskType].Timeout; ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}

// checkRegistry warns about enabled workers that the activity registry does
// not list as runnable. A missing registry file is only logged.
func checkRegistry(cfg *config.Config, log logger.Logger) {
	reg, err := registry.LoadRegistry(cfg.Registry.Path)
	if err != nil {
		log.Warn("Activity registry unavailable", map[string]interface{}{"path": cfg.Registry.Path, "error": err})
		return
	}
	if err := reg.Validate(); err != nil {
		log.Warn("Activity registry invalid", map[string]interface{}{"path": cfg.Registry.Path, "error": err})
	}

	var enabled []string
	for taskType, w := range cfg.Workers {
		if w.Enabled {
			enabled = append(enabled, taskType)
		}
	}
	if missing := reg.Unregistered(enabled); len(missing) > 0 {
		log.Warn("Enabled workers missing from activity registry", map[string]interface{}{"taskTypes": missing})
	}
}
