package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/propscout/propscout/cmd/propscout/commands"
)

func main() {
	// SIGINT/SIGTERM cancel the context; the scrape loop treats that as a
	// cooperative stop and flushes its checkpoint before exiting.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	commands.ExecuteContext(ctx)
}
