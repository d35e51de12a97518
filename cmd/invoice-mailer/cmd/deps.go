package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/rezonia/invoice-mailer/internal/config"
	"github.com/rezonia/invoice-mailer/internal/idempotency"
	"github.com/rezonia/invoice-mailer/internal/mail"
	"github.com/rezonia/invoice-mailer/internal/processor"
	"github.com/rezonia/invoice-mailer/internal/render"
	"github.com/rezonia/invoice-mailer/internal/store"
)

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	st, err := store.Open(ctx, store.Config{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	printVerbose("Using %s store\n", cfg.Database.Driver)
	return st, nil
}

func newSender(cfg *config.Config, logger *slog.Logger) (mail.Sender, error) {
	return mail.NewSender(mail.Config{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
		Service:  cfg.Mail.Service,
	}, logger)
}

// newGuard connects to Redis when configured. The returned close func is never nil.
func newGuard(ctx context.Context, cfg *config.Config) (idempotency.Guard, func() error, error) {
	if cfg.Redis.Addr == "" {
		return idempotency.NewMemoryGuard(), func() error { return nil }, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
	}
	printVerbose("Idempotency keys stored in redis at %s\n", cfg.Redis.Addr)
	return idempotency.NewRedisGuard(client), client.Close, nil
}

func newPipeline(st store.Store, sender mail.Sender, cfg *config.Config, logger *slog.Logger) *processor.Pipeline {
	return processor.NewPipeline(st, render.NewPDF(), sender,
		processor.WithLogger(logger),
		processor.WithArtifactDir(cfg.Storage.TempDir),
		processor.WithTimeouts(processor.Timeouts{
			Persist: cfg.Pipeline.PersistTimeout,
			Render:  cfg.Pipeline.RenderTimeout,
			Deliver: cfg.Pipeline.DeliverTimeout,
		}),
	)
}
