package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"subscription-report-service/internal/api"
	"subscription-report-service/internal/config"
	"subscription-report-service/internal/db"
	"subscription-report-service/internal/kafka"
	"subscription-report-service/internal/logging"
	"subscription-report-service/internal/notification"
	"subscription-report-service/internal/providers"
	"subscription-report-service/internal/report"
	"subscription-report-service/internal/status"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	// Connect to database and seed the status table
	dbConn, err := db.New(cfg.DB.DSN)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	defer dbConn.Close()

	ctx := context.Background()
	if err := dbConn.EnsureStatusCodes(ctx); err != nil {
		logger.Errorf("Status seeding failed: %v", err)
		log.Fatalf("Status seeding failed: %v", err)
	}

	resolver, err := status.NewResolver(ctx, dbConn, logger)
	if err != nil {
		logger.Errorf("Status cache load failed: %v", err)
		log.Fatalf("Status cache load failed: %v", err)
	}

	// Producer channels, one per alert class
	expiredChannel := kafka.NewChannel(cfg.Kafka.Brokers, cfg.Kafka.ExpiredTopic, cfg.Kafka.ExpiredWriteAttempts, logger)
	upsellChannel := kafka.NewChannel(cfg.Kafka.Brokers, cfg.Kafka.UpsellTopic, cfg.Kafka.UpsellWriteAttempts, logger)
	defer expiredChannel.Close()
	defer upsellChannel.Close()

	// Dispatcher worker pool, separate from request handling
	dispatcher := notification.NewDispatcher(expiredChannel, upsellChannel, notification.Policy{
		MaxAttempts:  cfg.Retry.MaxAttempts,
		InitialDelay: cfg.Retry.InitialDelay,
		Multiplier:   cfg.Retry.Multiplier,
		MaxDelay:     cfg.Retry.MaxDelay,
	}, cfg.Notification.QueueSize, logger)

	hub := api.NewEventHub(logger)
	dispatcher.SetEventSink(hub)

	var wg sync.WaitGroup
	dispatcher.Start(&wg, cfg.Notification.MaxWorkers)

	// Ingestion pipeline
	engine := report.NewRuleEngine(cfg.Rules.ExpiredServicesLimit, cfg.Rules.UpsellYears)
	parser := report.NewParser(resolver, logger)
	svc := report.NewService(report.NewValidator(), parser, engine, dbConn, dispatcher, logger)

	// Consumers for the upselling topic and its dead-letter topic
	mailer := providers.NewEmailProvider(cfg, logger)
	consumer := kafka.NewUpsellConsumer(cfg, mailer, logger)
	consumer.Start(&wg)
	dltConsumer := kafka.NewDeadLetterConsumer(cfg, logger)
	dltConsumer.Start(&wg)

	// Start API server
	handler := api.NewHandler(svc, logger)
	router := api.NewRouter(handler, hub, logger, cfg)
	go func() {
		logger.Infof("API started on %s", cfg.API.Port)
		if err := router.Run(cfg.API.Port); err != nil {
			logger.Errorf("API run failed: %v", err)
		}
	}()

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	logger.Infof("Shutting down...")
	consumer.Close()
	dltConsumer.Close()
	dispatcher.Close()
	wg.Wait()
	logger.Infof("Service stopped")
}
