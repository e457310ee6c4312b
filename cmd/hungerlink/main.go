package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-print"
	auth "github.com/hungerlink/go-auth"
	"github.com/hungerlink/go-auth/activitymap"
	"github.com/hungerlink/go-auth/broker"
	"github.com/hungerlink/go-auth/config"
	"github.com/hungerlink/go-auth/ratelimit"
	"github.com/hungerlink/go-auth/repository"
	"github.com/hungerlink/go-auth/server"
)

func main() {
	configPath := flag.String("config", "", "optional config file (json, yaml or toml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	lgr := newLogger(cfg)
	logger := lgr.GetLogger("main")

	if cfg.Auth.SigningKey == "" && cfg.IsDevelopment() {
		cfg.Auth.SigningKey = randomKey()
		logger.Warn("JWT_SECRET not set, using a random signing key. Tokens will not survive a restart.")
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if cfg.App.Debug {
		fmt.Println("============")
		fmt.Println(print.MaybePrettyJSON(cfg))
		fmt.Println("============")
	}

	if err := run(cfg, lgr); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.BaseConfig, lgr *glog.BaseLogger) error {
	logger := lgr.GetLogger("main")
	ctx := context.Background()

	repos, err := repository.Open(ctx, cfg.Persistence.Driver, cfg.Persistence.DSN, cfg.Persistence.Database)
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}
	defer repos.Close(context.Background())

	if err := repos.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.Info("database ready", "driver", cfg.Persistence.Driver)

	var storage fiber.Storage
	if cfg.Redis.URL != "" {
		rs, err := ratelimit.NewRedisStorageFromURL(ctx, cfg.Redis.URL, cfg.Redis.Prefix)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rs.Close()
		storage = rs
		logger.Info("rate limits shared through redis")
	}

	var publisher broker.Publisher = broker.LogPublisher{Logger: lgr.GetLogger("activity")}
	if cfg.Broker.URL != "" {
		p, err := broker.NewAMQPPublisher(cfg.Broker.URL, cfg.Broker.Exchange)
		if err != nil {
			return fmt.Errorf("connect broker: %w", err)
		}
		publisher = p.WithLogger(lgr.GetLogger("broker"))
		logger.Info("activity events published", "exchange", cfg.Broker.Exchange)
	}
	defer publisher.Close()

	srv := server.New(server.Options{
		Config: cfg,
		Repos:  repos,
		Logger: func(name string) auth.Logger {
			return lgr.GetLogger(name)
		},
		ActivitySink:   broker.NewSink(publisher, activitymap.WithDefaultChannel("http")),
		LimiterStorage: storage,
	})

	errc := make(chan error, 1)
	go func() {
		logger.Info("HungerLink API listening", "port", cfg.HTTP.Port, "environment", cfg.App.Environment)
		errc <- srv.App.Listen(":" + cfg.HTTP.Port)
	}()

	select {
	case err := <-errc:
		return err
	case sig := <-waitExitSignal():
		logger.Info("shutting down", "signal", sig.String())
	}

	return srv.App.ShutdownWithTimeout(10 * time.Second)
}

func newLogger(cfg *config.BaseConfig) *glog.BaseLogger {
	if cfg.App.Debug {
		return glog.NewLogger(
			glog.WithLoggerTypePretty(),
			glog.WithLevel(glog.Trace),
			glog.WithName(cfg.App.Name),
			glog.WithAddSource(true),
			glog.WithRichErrorHandler(errors.ToSlogAttributes),
		)
	}
	return glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithName(cfg.App.Name),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)
}

func waitExitSignal() <-chan os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return ch
}

func randomKey() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
