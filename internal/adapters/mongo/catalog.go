package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ticketfair/ticketfair/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// CatalogRepository stores the descriptive event document that the
// on-ledger metadata_url points at. The settlement core never reads it;
// it backs the human-facing event listing.
type CatalogRepository struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewCatalogRepository(db *mongo.Database, logger observability.Logger) *CatalogRepository {
	return &CatalogRepository{
		coll:   db.Collection("events"),
		logger: logger,
	}
}

type EventDoc struct {
	ID          uuid.UUID `bson:"_id"`
	Organizer   uuid.UUID `bson:"organizer"`
	Name        string    `bson:"name"`
	Description string    `bson:"description"`
	Venue       string    `bson:"venue"`
	MetadataURL string    `bson:"metadata_url"`
	Date        time.Time `bson:"date"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func (c *CatalogRepository) GetEvent(ctx context.Context, id uuid.UUID) (*EventDoc, error) {
	var event EventDoc
	err := c.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&event)
	if err != nil {
		c.logger.Error("failed to get event doc", err)
		return nil, err
	}
	return &event, nil
}

func (c *CatalogRepository) CreateEvent(ctx context.Context, event EventDoc) error {
	event.CreatedAt = time.Now()
	event.UpdatedAt = time.Now()
	_, err := c.coll.InsertOne(ctx, event)
	if err != nil {
		c.logger.Error("failed to create event doc", err)
		return err
	}
	return nil
}
