package ports

import (
	"context"

	"github.com/bookshelf/catalog-api/internal/core/domain"
)

// CreateBookInput carries the fields of a new catalog entry.
type CreateBookInput struct {
	Title       string
	Author      string
	Description string
	Price       float64
}

// BookService defines the catalog use cases. Writes require an admin identity.
type BookService interface {
	List(ctx context.Context) ([]*domain.Book, error)
	Get(ctx context.Context, id string) (*domain.Book, error)
	Create(ctx context.Context, identity domain.Identity, input CreateBookInput) (*domain.Book, error)
	Update(ctx context.Context, id string, identity domain.Identity, patch domain.BookPatch) (*domain.Book, error)
	Delete(ctx context.Context, id string, identity domain.Identity) error
}
