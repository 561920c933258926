package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/ticketfair/ticketfair/internal/adapters/rabbit"
	"github.com/ticketfair/ticketfair/internal/config"
	"github.com/ticketfair/ticketfair/internal/observability"
)

// The notifier tails settlement notifications and fans them out to
// bidders. Delivery channels (email, push) plug in behind notify.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger("notifier")

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()

	consumer, err := rabbit.NewConsumer(conn, "notifier.q", []string{"ticket.awarded", "bid.refunded", "auction.finalized"})
	if err != nil {
		log.Fatalf("failed to create consumer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deliveries, err := consumer.Consume(ctx)
	if err != nil {
		log.Fatalf("failed to start consuming: %v", err)
	}

	go func() {
		for d := range deliveries {
			if err := notify(logger, d.RoutingKey, d.Body); err != nil {
				logger.WithField("routing_key", d.RoutingKey).Error("notification failed", err)
				d.Nack(false, true)
				continue
			}
			d.Ack(false)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown notifier")
}

func notify(logger observability.Logger, routingKey string, body []byte) error {
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return err
	}
	logger.WithField("routing_key", routingKey).WithField("payload", payload).Info("settlement notification")
	return nil
}
