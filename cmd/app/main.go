package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	logpkg "github.com/local/pagepress/internal/logger"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := rootCmd.ExecuteContext(ctx)
	logpkg.Close()
	if err != nil {
		os.Exit(1)
	}
}
