// Command research answers a question by letting a model search the web and
// read pages until it can reply.
//
//	research "What changed in Go 1.23 iterators?"
//	research --fetcher browser --engine duckduckgo "..."
//	research search "golang channels"
//	research fetch https://go.dev/ref/spec
//
// ANTHROPIC_API_KEY must be set, in the environment or in a .env file.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(newApp()).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
