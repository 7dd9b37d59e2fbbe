package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"golang.org/x/crypto/bcrypt"

	. "github.com/jimiolaniyan/usersvc"
	"github.com/jimiolaniyan/usersvc/auth"
	"github.com/jimiolaniyan/usersvc/config"
	"github.com/jimiolaniyan/usersvc/events"
	"github.com/jimiolaniyan/usersvc/logger"
	"github.com/jimiolaniyan/usersvc/schema"
)

func main() {
	if err := run(); err != nil {
		slog.Error("service failed", "error", err)
		os.Exit(1)
	}
}

// run owns every resource it opens, so each return path releases them.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.SetDefault(logger.New(os.Stdout, logger.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: "usersvc",
		Environment: cfg.Env,
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return fmt.Errorf("connect to mongo: %w", err)
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			slog.Error("mongo disconnect", "error", err)
		}
	}()

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping mongo: %w", err)
	}
	slog.Info("database connected", "database", cfg.MongoDatabase)

	db := client.Database(cfg.MongoDatabase)
	accounts, err := NewMongoAccountRepository(ctx, db.Collection("users"))
	if err != nil {
		return err
	}
	subscriptions, err := NewMongoSubscriptionRepository(ctx, db.Collection("subscriptions"))
	if err != nil {
		return err
	}

	validator, err := schema.New()
	if err != nil {
		return fmt.Errorf("compile request schemas: %w", err)
	}

	var sink Events = NopEvents{}
	if cfg.NatsURL != "" {
		pub, err := events.Connect(ctx, cfg.NatsURL)
		if err != nil {
			return err
		}
		defer func() {
			if err := pub.Close(); err != nil {
				slog.Error("nats drain", "error", err)
			}
		}()
		sink = pub
		slog.Info("jetstream connected", "stream", events.StreamName)
	}

	tokens := auth.NewTokens([]byte(cfg.JWTSecret), auth.TokenTTL)
	svc := NewService(accounts, subscriptions, auth.NewBcryptHasher(bcrypt.DefaultCost), tokens, sink)

	ready := func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) }

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           NewRouter(svc, validator, tokens, ready),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		return fmt.Errorf("serve: %w", err)
	case sig := <-quit:
		slog.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	slog.Info("service stopped")
	return nil
}
