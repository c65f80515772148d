package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/fgribreau/img-optimizer/internal/command"
	"github.com/fgribreau/img-optimizer/internal/logginglevel"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = logginglevel.Level

	logger, err := zapConfig.Build()
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	zap.ReplaceGlobals(logger)

	// Run the command with signal-interruptible context
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := command.NewRootCommand().ExecuteContext(ctx); err != nil {
		zap.S().Fatal(err)
	}
}
