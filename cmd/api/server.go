package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mthangit/demo-payment/internal/config"
	"github.com/mthangit/demo-payment/pkg/container"
)

const defaultShutdownTimeout = 10 * time.Second

// Serve chạy API tới khi nhận SIGINT/SIGTERM
func Serve(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return run(ctx, cfg, nil)
}

// run trả về khi ctx bị huỷ hoặc server lỗi. ready (nếu có) nhận địa chỉ đã listen.
func run(ctx context.Context, cfg *config.Config, ready chan<- string) error {
	// ========================================
	// 1. BUILD DI CONTAINER
	// ========================================
	appContainer, err := container.NewContainer(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize container: %w", err)
	}
	// Chạy sau srv.Shutdown: huỷ popup attempt còn chờ rồi đóng redis
	defer appContainer.Cleanup()

	// ========================================
	// 2. LISTEN
	// ========================================
	srv := &http.Server{
		Handler:        SetupRouter(appContainer),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   cfg.Checkout.HTTPTimeout + 10*time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	ln, err := net.Listen("tcp", ":"+cfg.App.Port)
	if err != nil {
		return fmt.Errorf("failed to listen on :%s: %w", cfg.App.Port, err)
	}

	log.Info().Str("addr", ln.Addr().String()).Msg("🚀 Checkout API listening")
	if ready != nil {
		ready <- ln.Addr().String()
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	// ========================================
	// 3. GRACEFUL SHUTDOWN
	// ========================================
	log.Info().Msg("🛑 Shutting down server...")

	timeout := cfg.App.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("⚠️  Server forced to shutdown")
		return fmt.Errorf("forced shutdown: %w", err)
	}

	log.Info().Msg("✅ Server exited gracefully")
	return nil
}
