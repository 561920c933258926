package outbox

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/ticketfair/ticketfair/internal/adapters/crdb"
	"github.com/ticketfair/ticketfair/internal/adapters/rabbit"
	"github.com/ticketfair/ticketfair/internal/observability"
)

type Publisher struct {
	repo      *crdb.Repository
	rabbitPub *rabbit.Publisher
	log       observability.Logger
	interval  time.Duration
	batchSize int
}

func NewPublisher(repo *crdb.Repository, rabbitPub *rabbit.Publisher, log observability.Logger) *Publisher {
	return &Publisher{
		repo:      repo,
		rabbitPub: rabbitPub,
		log:       log,
		interval:  5 * time.Second,
		batchSize: 50,
	}
}

// Run drains NEW outbox records to the broker until the context is
// cancelled. Records that fail to publish stay NEW and are retried on
// the next tick; consumers dedupe on the message id.
func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.drain(ctx)
		}
	}
}

func (p *Publisher) drain(ctx context.Context) {
	records, err := p.repo.GetUnpublishedOutbox(ctx, p.batchSize)
	if err != nil {
		p.log.WithField("error", err.Error()).Error("outbox fetch failed")
		return
	}

	now := time.Now()
	for _, rec := range records {
		msg := amqp.Publishing{
			MessageId:   rec.DedupeKey,
			ContentType: "application/json",
			Body:        rec.Payload,
		}
		if err := p.rabbitPub.Publish(ctx, rec.EventType, msg); err != nil {
			p.log.WithField("outbox_id", rec.ID.String()).WithField("error", err.Error()).Warn("outbox publish failed")
			continue
		}
		if err := p.repo.MarkPublished(ctx, rec.ID, now); err != nil {
			p.log.WithField("outbox_id", rec.ID.String()).WithField("error", err.Error()).Error("outbox mark failed")
			continue
		}
		observability.OutboxLag.Set(now.Sub(rec.CreatedAt).Seconds())
	}
}
