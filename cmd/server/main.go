package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mama165/sdk-go/logs"

	"github.com/Tyrowin/gravitychat/internal/server"
	"github.com/Tyrowin/gravitychat/internal/universe"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Gravity Chat terminated with error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	cfg, err := server.LoadConfig(".env")
	if err != nil {
		return exitConfig, err
	}
	server.SetConfig(cfg)

	logger := logs.GetLoggerFromString(cfg.LogLevel)
	for _, origin := range server.InvalidOrigins(cfg) {
		logger.Warn("ignoring invalid origin in configuration", "origin", origin)
	}

	store := universe.New(universe.WithLogger(logger.With("component", "universe")))
	hub := server.NewHub(store, logger.With("component", "hub"))
	server.StartHub(hub)

	httpServer := server.CreateServer(cfg.Port, server.SetupRoutes(hub))

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.StartServer(httpServer, logger)
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	var runErr error
	select {
	case sig := <-signals:
		logger.Info("received shutdown signal", "signal", sig.String())
	case runErr = <-serveErr:
		if runErr != nil {
			logger.Error("http server stopped", "error", runErr)
		}
	}

	shutdownErr := errors.Join(
		server.ShutdownServer(httpServer, cfg.ShutdownTimeout, logger),
		hub.Shutdown(cfg.ShutdownTimeout),
	)
	if runErr != nil {
		return exitRuntime, runErr
	}
	if shutdownErr != nil {
		return exitRuntime, shutdownErr
	}
	logger.Info("server stopped", "participants", store.Len())
	return exitOK, nil
}
