package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tair/produce-ledger/config"
	"github.com/tair/produce-ledger/internal/ledger"
	"github.com/tair/produce-ledger/internal/ledger/domain"
	"github.com/tair/produce-ledger/internal/ledger/partition"
	"github.com/tair/produce-ledger/internal/ledger/usecase/command"
	"github.com/tair/produce-ledger/kafka"
	"github.com/tair/produce-ledger/pkg/database"
	"github.com/tair/produce-ledger/pkg/logger"
	"github.com/tair/produce-ledger/pkg/tracing"
)

// The worker recalculates bills either once for -date, or for every
// bills.recalculate.requested event on the maintenance topic.
func main() {
	date := flag.String("date", "", `recalculate one partition and exit (YYYY-MM-DD, "today" or "legacy")`)
	flag.Parse()

	cfg := config.Load("recalc-worker")

	logger.Init(cfg.Service.Name, cfg.IsDevelopment())
	logger.SetLevel(cfg.Service.LogLevel)

	tp, err := tracing.InitTracer(tracing.Config{
		ServiceName:    cfg.Service.Name,
		ServiceVersion: "1.0.0",
		JaegerEndpoint: cfg.Tracing.JaegerEndpoint,
		Enabled:        cfg.Tracing.Enabled,
	})
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to initialize tracer")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracing.Shutdown(ctx, tp)
	}()

	db, err := database.NewGormConnection(cfg.Database)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to get database instance")
	}
	defer sqlDB.Close()

	var publisher domain.EventPublisher = domain.NopPublisher{}
	if cfg.Kafka.Enabled {
		p, err := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic)
		if err != nil {
			logger.Logger.Warn().Err(err).Msg("Kafka unavailable, ledger events disabled")
		} else {
			defer p.Close()
			publisher = p
		}
	}

	handler, err := ledger.InitializeRecalcHandler(db, cfg, publisher, domain.NopCache{})
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to initialize recalculation handler")
	}

	if *date != "" {
		runOnce(cfg, handler, *date)
		return
	}

	if !cfg.Kafka.Enabled {
		logger.Logger.Fatal().Msg("KAFKA_ENABLED=false and no -date given; nothing to do")
	}

	consumer, err := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, []string{cfg.Kafka.MaintenanceTopic})
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to create Kafka consumer")
	}
	defer consumer.Close()

	consumer.RegisterHandler(domain.EventTypeRecalcRequested, recalcOnEvent(handler))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := consumer.Start(ctx); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to start Kafka consumer")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info().Msg("Shutting down recalc worker...")
}

type recalcRunner interface {
	Handle(ctx context.Context, cmd command.RecalculateBillsCommand) (*command.RecalcReport, error)
}

// recalcOnEvent adapts the handler to the consumer. Requests that can never
// succeed are dropped; any other failure is returned so the event is redelivered.
func recalcOnEvent(handler recalcRunner) kafka.EventHandler {
	return func(ctx context.Context, event domain.LedgerEvent) error {
		_, err := handler.Handle(ctx, command.RecalculateBillsCommand{Partition: event.Partition})
		if err != nil && (domain.IsNotFound(err) || domain.IsValidation(err)) {
			logger.Warn(ctx).
				Err(err).
				Str("partition", event.Partition.String()).
				Str("event_id", event.EventID).
				Msg("Dropping recalculation request")
			return nil
		}
		return err
	}
}

func runOnce(cfg *config.Config, handler *command.RecalculateBillsHandler, date string) {
	resolver, err := partition.NewResolver(partition.DefaultLegacyDates, cfg.Location())
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Invalid legacy dates")
	}
	p, err := resolver.Parse(date)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Invalid -date")
	}

	report, err := handler.Handle(context.Background(), command.RecalculateBillsCommand{Partition: p})
	if err != nil {
		event := logger.Logger.Fatal().Err(err).Str("partition", p.String())
		if report != nil {
			event = event.Int("updated_before_failure", report.Totals.Updated)
		}
		event.Msg("Recalculation failed")
	}

	logger.Logger.Info().
		Str("partition", p.String()).
		Int("orders", report.Totals.Orders).
		Int("updated", report.Totals.Updated).
		Str("new_total", report.Totals.NewTotal.StringFixed(2)).
		Msg("Recalculation finished")
}
