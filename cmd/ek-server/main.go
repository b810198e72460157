package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/ek-server/internal/appbuilder"
	appcfg "github.com/park285/ek-server/internal/config"
	"github.com/park285/ek-server/internal/obslog"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.Init(cfg.Log); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	deps, err := appbuilder.New(cfg, logger)
	if err != nil {
		logger.Fatal("init failed", zap.Error(err))
	}
	defer deps.Close()

	mux := http.NewServeMux()
	mux.Handle("/ws", deps.Transport)
	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("ws_listening", zap.String("addr", cfg.ListenAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("ws server failed", zap.Error(err))
		}
	}()

	if cfg.AdminAddr != "" {
		go func() {
			logger.Info("admin_listening", zap.String("addr", cfg.AdminAddr))
			if err := deps.Admin.ListenAndServe(cfg.AdminAddr); err != nil {
				logger.Error("admin server failed", zap.Error(err))
			}
		}()
	}

	if err := deps.Sweeper.Start(cfg.LobbySweepSpec); err != nil {
		logger.Fatal("sweeper init failed", zap.Error(err))
	}

	// Wait for termination signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting_down", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	deps.Sweeper.Stop()
	if err := deps.Transport.Close(ctx); err != nil {
		logger.Warn("transport_close", zap.Error(err))
	}
	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.Warn("ws_shutdown", zap.Error(err))
	}
	if cfg.AdminAddr != "" {
		if err := deps.Admin.Shutdown(ctx); err != nil {
			logger.Warn("admin_shutdown", zap.Error(err))
		}
	}
	deps.Engine.Wait()
}
