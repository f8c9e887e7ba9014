// Package main is the entry point of the docquery CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/datquest/docquery/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
