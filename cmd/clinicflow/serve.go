package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/config"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/visit"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/events"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/handler/middleware"
	v1 "github.com/dmehra2102/prod-golang-projects/clinicflow/internal/handler/v1"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/repository/memory"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/repository/postgres"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/service"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/store"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/pkg/database"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/pkg/logger"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/pkg/tracer"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serveCmd() *cobra.Command {
	var inMemory bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return runServer(cfg, inMemory)
		},
	}
	cmd.Flags().BoolVar(&inMemory, "memory", false, "Keep all data in process memory instead of PostgreSQL")
	return cmd
}

type backend struct {
	store  store.Store
	outbox events.Store
	audit  service.AuditRepository
	close  func()
}

func openBackend(cfg *config.Config, inMemory bool, log *zap.Logger) (*backend, error) {
	if inMemory {
		log.Warn("using in-memory storage; data is lost on exit")
		st := memory.New()
		return &backend{store: st, outbox: st.Events(), audit: st.Audit(), close: func() {}}, nil
	}

	db, err := database.Connect(cfg.Database, log)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}
	return &backend{
		store:  postgres.New(db),
		outbox: postgres.NewOutboxRepository(db),
		audit:  postgres.NewAuditRepository(db),
		close: func() {
			if err := sqlDB.Close(); err != nil {
				log.Warn("closing database", zap.Error(err))
			}
		},
	}, nil
}

func runServer(cfg *config.Config, inMemory bool) error {
	log, err := logger.New(cfg.Log, cfg.App)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := tracer.Init(ctx, cfg.Tracing, cfg.App)
	if err != nil {
		return err
	}

	be, err := openBackend(cfg, inMemory, log)
	if err != nil {
		return err
	}
	defer be.close()

	m := metrics.NewCollector("clinicflow", prometheus.DefaultRegisterer)

	auditSvc := service.NewAuditService(be.audit, m, log.Named("audit"))
	defer auditSvc.Shutdown()

	opts := service.Options{AllowDischargedActivity: cfg.Clinic.AllowDischargedActivity}
	registry := visit.DefaultRegistry()
	visitSvc := service.NewVisitService(be.store, registry, auditSvc, m, opts, log)
	apptSvc := service.NewAppointmentService(be.store, auditSvc, m, opts, log)
	patientSvc := service.NewPatientService(be.store, auditSvc, log)

	if publisher := startOutbox(ctx, cfg.Events, be.outbox, m, log); publisher != nil {
		defer func() {
			if err := publisher.Close(); err != nil {
				log.Warn("closing event publisher", zap.Error(err))
			}
		}()
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.BurstSize, cfg.RateLimit.ClientTTL)
	go limiter.Cleanup(ctx, time.Minute)

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		middleware.Recovery(log),
		middleware.RequestID(),
		middleware.Tracing(cfg.Tracing.ServiceName),
		middleware.Logger(log.Named("http")),
		middleware.Metrics(m),
		middleware.CORS(cfg.CORS),
		limiter.Middleware(),
	)
	router.GET("/healthz", v1.Healthz)
	router.GET("/metrics", gin.WrapH(metrics.Handler(prometheus.DefaultGatherer)))

	v1.Register(router, v1.Handlers{
		Visits:       v1.NewVisitHandler(visitSvc, registry),
		Appointments: v1.NewAppointmentHandler(apptSvc),
		Patients:     v1.NewPatientHandler(patientSvc),
	}, auth.NewJWTManager(cfg.JWT))

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", zap.Error(err))
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Warn("tracer shutdown", zap.Error(err))
	}
	return nil
}

// startOutbox runs the deliverer until ctx ends. With events disabled the
// outbox drains to the log.
func startOutbox(ctx context.Context, cfg config.EventsConfig, st events.Store, m *metrics.Collector, log *zap.Logger) *events.Publisher {
	var (
		handler   events.Handler
		publisher *events.Publisher
	)
	if cfg.Enabled {
		publisher = events.NewPublisher(events.NewKafkaWriter(cfg.Brokers, cfg.Topic, cfg.WriteTimeout))
		handler = events.NewBreaker(publisher, events.BreakerSettings{
			Name:        "kafka:" + cfg.Topic,
			MaxFailures: cfg.BreakerMaxFailures,
			OpenTimeout: cfg.BreakerOpenTimeout,
		}, log)
		log.Info("publishing events", zap.Strings("brokers", cfg.Brokers), zap.String("topic", cfg.Topic))
	} else {
		handler = events.LogHandler(log.Named("events"))
	}

	d := events.NewDeliverer(st, handler, m, log).
		WithBatchSize(cfg.BatchSize).
		WithInterval(cfg.PollInterval)
	go d.Start(ctx)
	return publisher
}
