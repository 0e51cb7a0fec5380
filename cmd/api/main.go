package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mcclellann/pawnLedger/pkg/auth"
	"github.com/mcclellann/pawnLedger/pkg/config"
	"github.com/mcclellann/pawnLedger/pkg/ledger"
	"github.com/mcclellann/pawnLedger/pkg/logging"
	"github.com/mcclellann/pawnLedger/pkg/store"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

func openStorage(cfg config.StoreConfig) (store.Storage, error) {
	switch cfg.Driver {
	case config.StoreDriverFile:
		return store.NewFileStore(cfg.DSN)
	default:
		return store.NewSQLiteStore(cfg.DSN)
	}
}

// runReports logs the dashboard figures until ctx is cancelled.
func runReports(ctx context.Context, l *ledger.Ledger, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.LogDashboard()
		}
	}
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	hashPassword := flag.String("hash-password", "", "print the bcrypt hash of the given password and exit")
	flag.Parse()

	if *hashPassword != "" {
		hash, err := auth.HashPassword(*hashPassword)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to hash password: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logFile, err := logging.Setup(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logFile.Close()

	// Amounts go out as JSON numbers rather than quoted strings.
	decimal.MarshalJSONWithoutQuotes = true

	storage, err := openStorage(cfg.Store)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.Store.Driver, err)
	}
	defer storage.Close()

	server := NewServer(
		storage,
		auth.NewStaticCredentials(cfg.Auth.Username, cfg.Auth.PasswordHash),
		auth.NewJWTSessions(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go runReports(ctx, server.ledger, cfg.Report.Interval)

	httpServer := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{
			"addr":  cfg.Server.ListenAddr,
			"store": cfg.Store.Driver,
		}).Info("Server starting")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Errorf("Server failed: %v", err)
		}
	case <-ctx.Done():
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Errorf("Graceful shutdown failed: %v", err)
		}
	}
}
