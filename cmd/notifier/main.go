package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/domain/user"
	"github.com/example/storefront/internal/email"
	"github.com/example/storefront/internal/infrastructure/docstore"
	"github.com/example/storefront/internal/infrastructure/kafka"
	"github.com/example/storefront/internal/logging"
	"github.com/example/storefront/internal/notification"
	"go.uber.org/zap"
)

const consumerGroup = "email-notifier"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()
	log := logging.New(cfg.Env)
	defer log.Sync()

	log.Info("email notifier starting",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("topic", cfg.KafkaTopic),
		zap.String("group", consumerGroup),
		zap.String("smtp", cfg.SMTPHost+":"+cfg.SMTPPort))

	docs, cleanup, err := openDocstore(cfg, log)
	if err != nil {
		log.Fatal("failed to open document store", zap.Error(err))
	}
	defer cleanup()

	users := user.NewService(docs, log)
	emailSvc := email.NewService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom)
	handler := notification.NewHandler(emailSvc, users, log)

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, consumerGroup, log)
	defer consumer.Close()

	go func() {
		log.Info("consuming order events")
		if err := consumer.Consume(ctx, handler.HandleEvent); err != nil && ctx.Err() == nil {
			log.Error("consumer error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	cancel()
}

// openDocstore selects the document store backend holding user records.
func openDocstore(cfg *config.Config, log *zap.Logger) (docstore.Store, func(), error) {
	switch cfg.DocstoreDriver {
	case "postgres":
		db, err := docstore.ConnectPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		log.Info("connected to postgres document store")
		return docstore.NewPostgresStore(db), func() { db.Close() }, nil
	case "dynamodb":
		client, err := docstore.ConnectDynamo(context.Background())
		if err != nil {
			return nil, nil, err
		}
		return docstore.NewDynamoStore(client, cfg.DynamoTable), func() {}, nil
	default:
		log.Warn("using in-memory document store, user lookups will be empty")
		return docstore.NewMemoryStore(), func() {}, nil
	}
}
