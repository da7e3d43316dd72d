package ports

import (
	"context"

	"github.com/bookshelf/catalog-api/internal/core/domain"
)

// BookRepository defines persistence operations for catalog entries.
type BookRepository interface {
	FindAll(ctx context.Context) ([]*domain.Book, error)
	// FindByID returns domain.ErrBookNotFound for unknown or malformed ids.
	FindByID(ctx context.Context, id string) (*domain.Book, error)
	Create(ctx context.Context, book *domain.Book) (*domain.Book, error)
	// UpdateByID applies only the non-nil fields of patch and returns the stored result.
	UpdateByID(ctx context.Context, id string, patch domain.BookPatch) (*domain.Book, error)
	// DeleteByID removes the book if it exists. Deleting a missing id is not an error.
	DeleteByID(ctx context.Context, id string) error
}
