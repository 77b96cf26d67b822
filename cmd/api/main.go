package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace/internal/config"
	"marketplace/internal/domain/model"
	"marketplace/internal/handler"
	"marketplace/internal/infra/db"
	"marketplace/internal/infra/messaging"
	infraRepo "marketplace/internal/infra/repository"
	"marketplace/internal/server"
	"marketplace/internal/telemetry"
	"marketplace/internal/usecase"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const (
	serviceName    = "marketplace-api"
	serviceVersion = "1.0.0"
)

type eventPublisher interface {
	Publish(ctx context.Context, ev model.OrderEvent)
	Close() error
}

func main() {
	//.env は無くてもよい（本番は環境変数）
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("failed to load .env")
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	telemetry.InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.OTLPEndpoint, serviceName, serviceVersion)
	if err != nil {
		log.WithError(err).Fatal("failed to init tracer provider")
	}

	//DB接続（スキーマは cmd/migrate）
	gormDB, err := db.Connect(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to connect database")
	}

	var publisher eventPublisher = messaging.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = messaging.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaOrderTopic)
		log.WithFields(log.Fields{"brokers": cfg.KafkaBrokers, "topic": cfg.KafkaOrderTopic}).Info("order events enabled")
	}

	//Usecase生成
	txm := infraRepo.NewTxManagerGorm(gormDB)
	clock := usecase.SystemClock{}
	orderUC := usecase.NewOrderUsecase(txm, publisher, clock, usecase.RandomOrderNumbers{}, usecase.OrderSettings{
		ShippingFee: cfg.ShippingFee,
		Timeout:     cfg.CheckoutTimeout,
	})
	lifecycleUC := usecase.NewLifecycleUsecase(txm, publisher, clock, cfg.CheckoutTimeout)

	//Handler生成
	srv := server.New(cfg, server.Handlers{
		Orders:      handler.NewOrderHandler(orderUC, lifecycleUC),
		Fulfillment: handler.NewFulfillmentHandler(lifecycleUC),
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			log.WithError(err).Error("http server stopped")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http shutdown")
	}
	if err := publisher.Close(); err != nil {
		log.WithError(err).Error("close publisher")
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.WithError(err).Error("tracer shutdown")
	}
}
