package auditRepo

import (
	"context"
	"fmt"
	"time"

	"astrobook/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "booking_events"

// AuditRepository is the append-only trail of booking status transitions.
type AuditRepository interface {
	Record(ctx context.Context, event models.BookingEvent) error
	ListByBooking(ctx context.Context, bookingID string) ([]models.BookingEvent, error)
}

// MongoAuditRepo implements AuditRepository using MongoDB.
type MongoAuditRepo struct {
	coll *mongo.Collection
}

func NewMongoAuditRepo(db *mongo.Database) *MongoAuditRepo {
	return &MongoAuditRepo{coll: db.Collection(collectionName)}
}

// EnsureIndexes creates the lookup index used by ListByBooking.
func (r *MongoAuditRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "bookingId", Value: 1}, {Key: "at", Value: 1}}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create audit indexes: %w", err)
	}
	return nil
}

func (r *MongoAuditRepo) Record(ctx context.Context, event models.BookingEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	if _, err := r.coll.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("error recording event for booking %s: %w", event.BookingID, err)
	}
	return nil
}

func (r *MongoAuditRepo) ListByBooking(ctx context.Context, bookingID string) ([]models.BookingEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "at", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.M{"bookingId": bookingID}, opts)
	if err != nil {
		return nil, fmt.Errorf("error fetching events for booking %s: %w", bookingID, err)
	}
	defer cursor.Close(ctx)

	events := []models.BookingEvent{}
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("error decoding booking events: %w", err)
	}
	return events, nil
}
