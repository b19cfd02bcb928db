package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Tyrowin/roomrelay/internal/server"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := server.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		return 1
	}

	logger := server.NewLogger(os.Stdout, *cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := server.NewApp(*cfg, logger)
	app.Start()

	httpServer := server.CreateServer(cfg.Port, app.Handler)
	go func() {
		if err := server.StartServer(httpServer, logger); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	code := 0
	if err := server.ShutdownServer(httpServer, cfg.ShutdownTimeout, logger); err != nil {
		code = 1
	}
	if err := app.Shutdown(cfg.ShutdownTimeout); err != nil {
		logger.Error("hub shutdown failed", slog.Any("error", err))
		code = 1
	}
	return code
}
