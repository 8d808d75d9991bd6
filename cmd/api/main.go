package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zhouzirui/remedy-radar/backend/internal/analysis/symptom"
	"github.com/zhouzirui/remedy-radar/backend/internal/config"
	"github.com/zhouzirui/remedy-radar/backend/internal/handler"
	"github.com/zhouzirui/remedy-radar/backend/internal/notify"
	"github.com/zhouzirui/remedy-radar/backend/internal/observability"
	"github.com/zhouzirui/remedy-radar/backend/internal/service/cart"
	"github.com/zhouzirui/remedy-radar/backend/internal/service/chat"
	"github.com/zhouzirui/remedy-radar/backend/internal/service/reply"
	"github.com/zhouzirui/remedy-radar/backend/internal/service/session"
	"github.com/zhouzirui/remedy-radar/backend/internal/storage/blob"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if envErr != nil {
		logger.Info("no .env file loaded, using system environment variables only", zap.Error(envErr))
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	blobs, err := blob.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open cart storage: %w", err)
	}
	if closer, ok := blobs.(blob.Closer); ok {
		defer closer.Close()
	}
	logger.Info("cart storage ready", zap.String("backend", cfg.Storage.Backend))

	pipeline, err := reply.New(ctx, symptom.Default(), logger)
	if err != nil {
		return err
	}

	registry := session.NewRegistry(blobs, pipeline, session.Options{
		Cart: cart.Options{
			Key:            cfg.Storage.Key,
			CurrencySymbol: cfg.Cart.CurrencySymbol,
			CheckoutDelay:  cfg.Cart.CheckoutDelay,
		},
		Notify: notify.Options{
			ToastTTL:   cfg.Notify.ToastTTL,
			ReceiptTTL: cfg.Notify.ReceiptTTL,
		},
		Chat: chat.Options{
			ReplyDelayMin: cfg.Chat.ReplyDelayMin,
			ReplyDelayMax: cfg.Chat.ReplyDelayMax,
		},
		IdleTTL: cfg.Session.IdleTTL,
	}, logger)
	defer registry.Close()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler.NewRouter(registry, cfg.Server, logger),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Remedy Radar backend listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return registry.Janitor(gctx, janitorInterval(cfg.Session.IdleTTL))
	})

	return g.Wait()
}

func janitorInterval(ttl time.Duration) time.Duration {
	interval := ttl / 4
	if interval < 10*time.Second {
		interval = 10 * time.Second
	}
	if interval > 5*time.Minute {
		interval = 5 * time.Minute
	}
	return interval
}
