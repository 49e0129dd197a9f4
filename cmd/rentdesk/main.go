package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/rentdesk/rentdesk/pkg/api"
	"github.com/rentdesk/rentdesk/pkg/billing"
	"github.com/rentdesk/rentdesk/pkg/config"
	"github.com/rentdesk/rentdesk/pkg/mailer"
	"github.com/rentdesk/rentdesk/pkg/observability"
	"github.com/rentdesk/rentdesk/pkg/orgs"
	"github.com/rentdesk/rentdesk/pkg/provisioning"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.WithError(err).Error("failed to open database")
		os.Exit(1)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = db.PingContext(pingCtx)
	cancel()
	if err != nil {
		logger.WithError(err).Error("failed to ping database")
		os.Exit(1)
	}

	migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = orgs.RunMigrations(migrateCtx, db)
	cancel()
	if err != nil {
		logger.WithError(err).Error("failed to run migrations")
		os.Exit(1)
	}

	store := orgs.NewStore(db)
	plans, err := orgs.NewPlanResolver(db, cfg.Database.PlanCacheSize)
	if err != nil {
		logger.WithError(err).Error("failed to create plan resolver")
		os.Exit(1)
	}

	gateway := billing.NewRestGateway(cfg.Billing.BaseURL, cfg.Billing.APIKey, cfg.Billing.Environment, cfg.Billing.Timeout, logger, metrics)

	mail := mailer.NewSMTPMailer(mailer.Config{
		Host:      cfg.Mail.Host,
		Port:      cfg.Mail.Port,
		Username:  cfg.Mail.Username,
		Password:  cfg.Mail.Password,
		FromEmail: cfg.Mail.From,
		FromName:  "RentDesk",
	}, logger)

	notifier := provisioning.NewNotifier(logger, 30*time.Second)
	notifier.Subscribe(provisioning.NewWelcomeEmailSubscriber(mail))

	orchestrator := provisioning.NewOrchestrator(store, plans, gateway, notifier, logger, metrics, cfg.Billing.Environment)
	rebiller := provisioning.NewRebiller(store, gateway, mail, logger, metrics)

	server := api.NewServer(api.Options{
		Store:            store,
		Orchestrator:     orchestrator,
		Rebiller:         rebiller,
		Logger:           logger,
		Metrics:          metrics,
		ProvisionTimeout: cfg.Server.ProvisionTimeout,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var reconcilerCron interface{ Stop() context.Context }
	if cfg.Reconciler.Enabled {
		reconciler := provisioning.NewReconciler(store, gateway, logger, metrics)
		c, err := reconciler.Schedule(cfg.Reconciler.Schedule, cfg.Reconciler.Timeout)
		if err != nil {
			logger.WithError(err).Error("failed to schedule reconciler")
			os.Exit(1)
		}
		reconcilerCron = c
		logger.WithField("schedule", cfg.Reconciler.Schedule).Info("reconciler scheduled")
	}

	appServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if metrics != nil {
		healthMux.Handle("/metrics", metrics.Handler())
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("addr", appServer.Addr).Info("api server listening")
		if err := appServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if metrics != nil {
		g.Go(func() error {
			ticker := time.NewTicker(15 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					stats := db.Stats()
					metrics.SetDBConnections(stats.InUse, stats.Idle)
				}
			}
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if reconcilerCron != nil {
			<-reconcilerCron.Stop().Done()
		}
		if err := appServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("api server shutdown failed")
		}
		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("health server shutdown failed")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("server exited with error")
		os.Exit(1)
	}
	logger.Info("stopped")
}
