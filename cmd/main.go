package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"camelot/command"
	"camelot/config"
	"camelot/database"
	"camelot/handles"
	"camelot/router"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log, err := config.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("camelot stopped")
	}
}

func run(ctx context.Context, cfg config.Config, log *logrus.Logger) error {
	db, err := database.Open(cfg.DBDriver, cfg.DBDSN, log)
	if err != nil {
		return err
	}
	defer database.Close(db)
	if err := database.Migrate(db); err != nil {
		return err
	}
	if err := database.SeedDefaultChannels(ctx, db, cfg.DefaultChannels); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	dispatcher := command.New(database.NewStore(db),
		command.WithLogger(log),
		command.WithMetrics(command.NewMetrics(registry)))

	var revocations handles.Revocations = handles.NewMemoryRevocations()
	if cfg.RedisAddr != "" {
		client := database.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		revocations = database.NewRedisRevocations(client)
		log.WithField("addr", cfg.RedisAddr).Info("token revocations in redis")
	}

	sessions := handles.NewSessions(handles.NewTokens(cfg.JWTSecret, cfg.TokenTTL), revocations, cfg.SessionKey, log)
	server := router.InitRouter(handles.NewHandler(dispatcher, sessions, log), registry, log)

	return router.Serve(ctx, server, cfg.Addr, log)
}
