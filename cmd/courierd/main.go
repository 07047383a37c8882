// Package main is the entry point for the courierd store daemon.
// courierd holds the message store and serves the wire protocol the
// courier client speaks.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/courier-im/courier/internal/config"
	"github.com/courier-im/courier/internal/courierd"
	"github.com/courier-im/courier/internal/db"
	"github.com/courier-im/courier/internal/logging"
)

// Version information (set by goreleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	listen := flag.String("listen", "", "address to listen on (host:port)")
	dbPath := flag.String("db", "", "sqlite store file path")
	configFile := flag.String("config", "", "config file (default is $HOME/.config/courier/config.yaml)")
	logLevel := flag.String("log-level", "", "override logging level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "", "override logging format (json, console)")
	flag.Parse()

	loader := config.NewLoader()
	if *configFile != "" {
		loader.SetConfigFile(*configFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if *listen != "" {
		cfg.Daemon.Listen = *listen
	}
	if *dbPath != "" {
		cfg.Daemon.DatabasePath = *dbPath
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Logging.Format = *logFormat
	}

	logging.Init(logging.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		EnableCaller: cfg.Logging.EnableCaller,
	})
	logger := logging.Component("courierd")

	if err := cfg.EnsureDirectories(); err != nil {
		logger.Warn().Err(err).Msg("failed to create directories")
	}
	if cfgUsed := loader.ConfigFileUsed(); cfgUsed != "" {
		logger.Debug().Str("config_file", cfgUsed).Msg("loaded config file")
	}

	logger.Info().
		Str("version", version).
		Str("commit", commit).
		Str("built", date).
		Msg("courierd starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DatabasePath())
	if err != nil {
		logger.Error().Err(err).Msg("failed to open store database")
		os.Exit(1)
	}
	defer database.Close()

	listener, err := net.Listen("tcp", cfg.Daemon.Listen)
	if err != nil {
		logger.Error().Err(err).Str("addr", cfg.Daemon.Listen).Msg("failed to listen")
		os.Exit(1)
	}

	server := courierd.New(database)
	go func() {
		<-ctx.Done()
		logger.Info().Msg("shutting down")
		server.Shutdown()
	}()

	if err := server.Serve(listener); err != nil && !errors.Is(err, net.ErrClosed) {
		logger.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
