package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/medline/expocrawl/internal/cli"
)

func main() {
	// First signal cancels the context so the crawl finalizes a partial tree;
	// a second one kills the process.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Warn().Msg("Interrupt received, shutting down gracefully...")
		cancel()
		<-sigCh
		os.Exit(1)
	}()

	cli.Execute(ctx)
}
