package ports

import (
	"context"

	"github.com/bookshelf/catalog-api/internal/core/domain"
)

// AuditRepository persists catalog audit records.
type AuditRepository interface {
	InsertEvent(ctx context.Context, event *domain.BookEvent) error
}

// AuditService records a single catalog write.
type AuditService interface {
	Record(ctx context.Context, event domain.BookEvent) error
}

// EventPublisher hands catalog events off for asynchronous recording.
type EventPublisher interface {
	Enqueue(event domain.BookEvent)
}
