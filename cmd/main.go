package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yungbote/biomarker-backend/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := a.Start(ctx); err != nil {
		a.Log.Error("failed to start background workers", "error", err)
		a.Close()
		os.Exit(1)
	}
	if err := a.Run(ctx); err != nil {
		a.Log.Error("server failed", "error", err)
		a.Close()
		os.Exit(1)
	}
	a.Log.Info("server stopped")
}
