package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/bookshelf/catalog-api/internal/core/domain"
)

const bookEventsCollection = "book_events"

// AuditRepository implements ports.AuditRepository on the book_events collection.
type AuditRepository struct {
	col *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{col: db.Collection(bookEventsCollection)}
}

// InsertEvent appends a catalog write to the audit trail.
func (r *AuditRepository) InsertEvent(ctx context.Context, event *domain.BookEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := bson.M{
		"book_id":     event.BookID,
		"action":      string(event.Action),
		"actor_id":    event.ActorID,
		"occurred_at": event.OccurredAt.UTC(),
		"recorded_at": time.Now().UTC(),
	}

	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert book event: %w", err)
	}
	return nil
}
