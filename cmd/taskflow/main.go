// Package main is the entry point for the taskflow CLI.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"taskflow/internal/backend/taskapi"
	"taskflow/internal/cli"
	"taskflow/internal/commands"
	"taskflow/internal/config"
	"taskflow/internal/service"
)

func main() {
	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	factory := func(ctx context.Context, cfg *config.Config, lg *log.Logger) (service.Service, error) {
		return taskapi.New(cfg, lg), nil
	}

	// Sessions live in the SQLite store under the config directory.
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory, cli.OpenLocalSession)

	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	os.Exit(code)
}
