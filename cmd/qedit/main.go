// Package main is the entry point for the qedit CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"qedit/internal/backend/apiserver"
	"qedit/internal/cli"
	"qedit/internal/commands"
	"qedit/internal/config"
	"qedit/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	factory := func(ctx context.Context, cfg *config.Config) (service.Service, error) {
		return apiserver.New(ctx, cfg)
	}

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)
	code := dispatcher.Run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
