package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/markdave123-py/Surveya/internal/app"
	"github.com/markdave123-py/Surveya/internal/config"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle SIGINT/SIGTERM for graceful shutdown
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		<-c
		cancel()
	}()

	cfg := config.LoadConfig()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	application, err := app.NewApp(ctx, cfg, sugar)
	if err != nil {
		sugar.Fatalw("startup failed", "error", err)
	}
	defer application.Close()

	sugar.Info("Surveya is running; DB connected and bootstrapped.")
	if err := application.Run(ctx); err != nil && ctx.Err() == nil {
		sugar.Fatalw("runtime failure", "error", err)
	}
	sugar.Info("shutting down...")
}
