// Package main запускает HTTP-сервер платформы Клуб Мадуа.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/clube-madua/internal/cache"
	"github.com/mmeshcher/clube-madua/internal/config"
	"github.com/mmeshcher/clube-madua/internal/handler"
	"github.com/mmeshcher/clube-madua/internal/metrics"
	"github.com/mmeshcher/clube-madua/internal/middleware"
	"github.com/mmeshcher/clube-madua/internal/repository"
	"github.com/mmeshcher/clube-madua/internal/routine"
	"github.com/mmeshcher/clube-madua/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	loc, err := cfg.Location()
	if err != nil {
		sugar.Fatalw("timezone error", "timezone", cfg.Timezone, "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	// Без Redis права посетителя читаются из базы на каждый запрос.
	var viewerCache service.ViewerCache
	if cfg.RedisURL != "" {
		vc, err := cache.NewViewerCache(cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			sugar.Warnw("viewer cache disabled", "error", err.Error())
		} else {
			defer vc.Close()
			viewerCache = vc
		}
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	svc := service.NewService(repo, viewerCache, routine.NewSystemClock(loc), logger, m)
	defer svc.Close()

	if cfg.AuthSecret == "" {
		sugar.Warn("AUTH_SECRET is empty, sessions will not survive restart")
	}
	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret)
	h := handler.NewHandler(svc, logger, authMiddleware)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		svc.StartCatalogAudit(ctx, cfg.AuditInterval)
		return nil
	})

	g.Go(func() error {
		sugar.Infow("starting madua server", "addr", cfg.RunAddress, "timezone", loc.String())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Остановка по сигналу или по ошибке в другой горутине.
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
