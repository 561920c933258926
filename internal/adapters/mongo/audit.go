package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ticketfair/ticketfair/internal/domain"
	"github.com/ticketfair/ticketfair/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// AuditLogger records every settlement action after commit. Best effort:
// an audit failure never rolls back a settled transaction.
type AuditLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditLogger(db *mongo.Database, logger observability.Logger) *AuditLogger {
	return &AuditLogger{
		coll:   db.Collection("audit_logs"),
		logger: logger,
	}
}

type AuditLog struct {
	ID        uuid.UUID `bson:"_id"`
	Action    string    `bson:"action"`
	Actor     uuid.UUID `bson:"actor"`
	Timestamp time.Time `bson:"timestamp"`
	Data      bson.M    `bson:"data"`
}

func (a *AuditLogger) LogAction(ctx context.Context, action string, actor uuid.UUID, data map[string]interface{}) error {
	log := AuditLog{
		ID:        uuid.New(),
		Action:    action,
		Actor:     actor,
		Timestamp: time.Now(),
		Data:      bson.M(data),
	}
	_, err := a.coll.InsertOne(ctx, log)
	if err != nil {
		a.logger.Error("failed to insert audit log", err)
		return err
	}
	return nil
}

func (a *AuditLogger) LogBid(ctx context.Context, bid *domain.Bid) error {
	data := map[string]interface{}{
		"bid_id":   bid.ID,
		"event_id": bid.Event,
		"amount":   bid.Amount,
		"status":   bid.Status.String(),
	}
	return a.LogAction(ctx, "bid.placed", bid.Bidder, data)
}

func (a *AuditLogger) LogAward(ctx context.Context, ticket *domain.Ticket) error {
	data := map[string]interface{}{
		"ticket_id": ticket.ID,
		"event_id":  ticket.Event,
		"asset_id":  ticket.AssetID,
	}
	return a.LogAction(ctx, "ticket.awarded", ticket.Owner, data)
}

func (a *AuditLogger) LogRefund(ctx context.Context, bid *domain.Bid, refund int64) error {
	data := map[string]interface{}{
		"bid_id":   bid.ID,
		"event_id": bid.Event,
		"amount":   bid.Amount,
		"refund":   refund,
	}
	return a.LogAction(ctx, "bid.refunded", bid.Bidder, data)
}
