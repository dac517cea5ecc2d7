package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/yungbote/lessongen/internal/app"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx)
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()
	application.Start()

	errCh := make(chan error, 1)
	go func() {
		application.Log.Info("Server listening", "addr", application.Cfg.Addr)
		errCh <- application.Run(application.Cfg.Addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			application.Log.Error("server failed", "error", err)
		}
	case <-ctx.Done():
		application.Log.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := application.Shutdown(shutdownCtx); err != nil {
			application.Log.Warn("graceful shutdown failed", "error", err)
		}
	}
}
