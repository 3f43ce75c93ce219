// Command entrypoint is the container entrypoint. It waits for the database
// and Redis, prepares the schema, static files and seed data, then replaces
// itself with the application server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"listings/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.RunEntrypoint(ctx, os.Stdout)
	stop()
	os.Exit(cli.Exit(os.Stderr, err))
}
