package main

import (
	"context"
	"database/sql"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BrandonDHaskell/punchbridge/internal/db"
	"github.com/BrandonDHaskell/punchbridge/internal/grpchealth"
	"github.com/BrandonDHaskell/punchbridge/internal/httpapi"
	"github.com/BrandonDHaskell/punchbridge/internal/metrics"
	"github.com/BrandonDHaskell/punchbridge/internal/mqttsub"
	"github.com/BrandonDHaskell/punchbridge/internal/punch/service"
	"github.com/BrandonDHaskell/punchbridge/internal/punch/store"
	"github.com/BrandonDHaskell/punchbridge/internal/punch/store/memory"
	"github.com/BrandonDHaskell/punchbridge/internal/punch/store/sqlite"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Subscribe to device punches and serve the query API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(parent context.Context, opts *rootOptions) error {
	cfg, log := opts.cfg, opts.log
	if parent == nil {
		parent = context.Background()
	}

	if err := cfg.Validate(); err != nil {
		log.Error("refusing to start", zap.Error(err))
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Store
	var (
		punchStore store.PunchStore
		sqlDB      *sql.DB
		writer     *db.Worker
	)
	switch cfg.StoreKind {
	case "memory":
		log.Warn("using in-memory punch store; data is lost on exit")
		punchStore = memory.NewPunchStore()
	default:
		var err error
		sqlDB, err = db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
		if err != nil {
			log.Error("db open failed", zap.String("path", cfg.DBPath), zap.Error(err))
			return err
		}
		defer sqlDB.Close()

		writer = db.NewWorker(sqlDB, cfg.QueueDepth)
		defer writer.Close()

		punchStore = sqlite.NewPunchStore(sqlDB, writer)

		if cfg.SeedDev && cfg.Env == "dev" {
			seeded, err := db.SeedDev(ctx, sqlDB, writer, db.SeedDevOptions{})
			if err != nil {
				log.Error("dev seed failed", zap.Error(err))
				return err
			}
			if seeded {
				log.Info("dev seed inserted demo punch")
			}
		}
	}

	// Services
	reg := prometheus.DefaultRegisterer
	dispatcher := service.NewDispatcher(punchStore, log.Named("ingest"), metrics.NewIngest(reg))
	querySvc := service.NewQueryService(punchStore)

	// MQTT
	sub, err := mqttsub.New(mqttsub.Config{
		URL:      cfg.MQTTURL,
		Topic:    cfg.MQTTTopic,
		ClientID: cfg.MQTTClientID,
		Username: cfg.MQTTUsername,
		Password: cfg.MQTTPassword,
		QoS:      mqttsub.DefaultQoS,
	}, mqttsub.HandlerFunc(func(ctx context.Context, topic string, payload []byte) {
		dispatcher.Handle(ctx, topic, payload)
	}), log)
	if err != nil {
		log.Error("mqtt config invalid", zap.Error(err))
		return err
	}

	// HTTP
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:       log.Named("http"),
		Addr:         cfg.HTTPAddr,
		APIToken:     cfg.APIToken,
		DBPath:       cfg.DBPath,
		QueryService: querySvc,
		MQTT:         sub,
		Metrics:      metrics.NewHTTP(reg),
		Gatherer:     prometheus.DefaultGatherer,
	})

	// gRPC health + monitor
	probes := []service.HealthProbe{{Name: "mqtt", Check: sub.Check}}
	if sqlDB != nil {
		probes = append(probes, service.HealthProbe{Name: "sqlite", Check: sqlDB.PingContext})
	}
	var (
		grpcSrv  *grpchealth.Server
		reporter service.StatusReporter
	)
	if cfg.GRPCAddr != "" {
		grpcSrv = grpchealth.New(cfg.GRPCAddr, log.Named("grpc"))
		reporter = grpcSrv
	}
	monitor := service.NewHealthMonitor(reporter, service.MonitorConfig{
		IntervalSeconds: cfg.HealthIntervalSeconds,
	}, log.Named("health"), probes...)

	sub.Start(ctx)
	monitor.Start(ctx)

	go func() {
		log.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.Start(); err != nil {
			log.Error("http server error", zap.Error(err))
			stop()
		}
	}()
	if grpcSrv != nil {
		go func() {
			if err := grpcSrv.Start(); err != nil {
				log.Error("grpc server error", zap.Error(err))
				stop()
			}
		}()
	}

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Stop intake first.  Handlers run on a context detached from the signal,
	// so messages already delivered finish their inserts; the deferred
	// writer.Close then drains the queue before the database closes.
	sub.Stop()
	monitor.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		log.Warn("http shutdown", zap.Error(err))
	}
	if grpcSrv != nil {
		if err := grpcSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn("grpc shutdown", zap.Error(err))
		}
	}
	return nil
}
