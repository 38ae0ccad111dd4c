// Package main запускает HTTP-сервер бэк-офиса банковского ядра.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/bankcore/internal/config"
	"github.com/mmeshcher/bankcore/internal/handler"
	"github.com/mmeshcher/bankcore/internal/identity"
	"github.com/mmeshcher/bankcore/internal/middleware"
	"github.com/mmeshcher/bankcore/internal/repository"
	"github.com/mmeshcher/bankcore/internal/service"
)

const idleAccountsCheckInterval = time.Hour

func openStore(cfg *config.Config) (service.Store, error) {
	if cfg.DatabaseURI != "" {
		return repository.NewPostgresStore(cfg.DatabaseURI)
	}
	return repository.NewBoltStore(cfg.StoragePath)
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	store, err := openStore(cfg)
	if err != nil {
		sugar.Fatalw("storage initialization error", "error", err.Error())
	}

	var lookup service.IdentityLookup
	if cfg.IdentityServiceAddress != "" {
		lookup = identity.NewClient(cfg.IdentityServiceAddress, cfg.IdentityServiceToken)
	} else {
		sugar.Warn("identity registry address is not set, customers will be registered from manual data")
	}

	svc := service.NewService(store, lookup, logger, service.Options{
		DepositAuthThreshold: cfg.Threshold(),
		Location:             cfg.Location(),
	})
	defer svc.Close()

	if cfg.AuthSecret == "" {
		sugar.Warn("auth secret is not set, operator sessions will not survive a restart")
	}
	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret)
	h := handler.NewHandler(svc, logger, authMiddleware, cfg.Location())

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		watchIdleAccounts(ctx, svc, logger, idleAccountsCheckInterval)
		return nil
	})

	g.Go(func() error {
		sugar.Infow("starting bankcore server",
			"addr", cfg.RunAddress,
			"postgres", cfg.DatabaseURI != "",
			"timezone", cfg.Location().String(),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
