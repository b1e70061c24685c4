package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/PhilippVn/ZHS-Scraper/config"
	"github.com/PhilippVn/ZHS-Scraper/internal/api"
	"github.com/PhilippVn/ZHS-Scraper/internal/db"
	"github.com/PhilippVn/ZHS-Scraper/internal/fetch"
	"github.com/PhilippVn/ZHS-Scraper/internal/notify"
	"github.com/PhilippVn/ZHS-Scraper/internal/scraper"
	"github.com/PhilippVn/ZHS-Scraper/internal/store"
)

// buildService wires the delivery channels, the optional change archive,
// and the orchestrator from the configuration.
func buildService(cfg *config.Config) (*scraper.Service, store.HistoryStore, error) {
	var history store.HistoryStore
	if cfg.Database.DSN != "" {
		gormDB, err := db.Init(&cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		history = store.NewGormHistoryStore(gormDB)
		log.Println("Change history archive enabled.")
	}

	var senders []notify.Sender
	if cfg.SMTP.Enabled {
		senders = append(senders, notify.NewSMTPSender(cfg.SMTP))
	}
	if cfg.Push.Enabled {
		if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
			return nil, nil, errors.New("push is enabled but the VAPID keys are not configured")
		}
		senders = append(senders, notify.NewWebPushSender(cfg.Push))
	}
	if len(senders) == 0 {
		log.Println("Warning: no delivery channel enabled; changes will only be logged.")
	}

	fetcher := fetch.NewHTTPFetcher(cfg.Fetch)
	svc := scraper.NewService(cfgPath, cfg, fetcher, notify.NewMultiSender(senders...), history, debug)
	return svc, history, nil
}

func runDaemon(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration from %s: %w", cfgPath, err)
	}
	log.Printf("Configuration loaded from %s (%d sources).", cfgPath, len(cfg.Sources))

	svc, history, err := buildService(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var server *http.Server
	if cfg.Server.Enabled {
		if !debug {
			gin.SetMode(gin.ReleaseMode)
		}
		server = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
			Handler: api.NewRouter(cfg.Server, svc, history),
		}
		go func() {
			log.Printf("HTTP server starting on port %d", cfg.Server.Port)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("Error: HTTP server: %v", err)
			}
		}()
	}

	runErr := svc.Run(ctx)

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error: HTTP server shutdown: %v", err)
		}
	}
	return runErr
}

// runOnce executes a single poll cycle. Useful from cron or for verifying a
// configuration change without starting the daemon.
func runOnce(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration from %s: %w", cfgPath, err)
	}

	svc, _, err := buildService(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc.RunOnce(ctx, cfg)
	return nil
}
