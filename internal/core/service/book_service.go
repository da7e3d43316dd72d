package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/bookshelf/catalog-api/internal/core/domain"
	"github.com/bookshelf/catalog-api/internal/core/ports"
	"github.com/bookshelf/catalog-api/internal/infrastructure/metrics"
)

// BookService implements the catalog use cases. Reads are public; every
// write requires an admin identity.
type BookService struct {
	repo   ports.BookRepository
	events ports.EventPublisher
	logger zerolog.Logger
}

// NewBookService returns a BookService. events may be nil to disable the audit trail.
func NewBookService(repo ports.BookRepository, events ports.EventPublisher, logger zerolog.Logger) *BookService {
	return &BookService{repo: repo, events: events, logger: logger}
}

func (s *BookService) List(ctx context.Context) ([]*domain.Book, error) {
	books, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

func (s *BookService) Get(ctx context.Context, id string) (*domain.Book, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *BookService) Create(ctx context.Context, identity domain.Identity, input ports.CreateBookInput) (*domain.Book, error) {
	if !identity.IsAdmin() {
		return nil, domain.ErrForbidden
	}

	now := time.Now().UTC()
	book, err := s.repo.Create(ctx, &domain.Book{
		Title:       input.Title,
		Author:      input.Author,
		Description: input.Description,
		Price:       input.Price,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to create book")
		return nil, fmt.Errorf("create book: %w", err)
	}

	s.written(identity, book.ID, domain.BookCreated)
	return book, nil
}

// Update applies patch to the book. An empty patch returns the stored book unchanged.
func (s *BookService) Update(ctx context.Context, id string, identity domain.Identity, patch domain.BookPatch) (*domain.Book, error) {
	if !identity.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	if patch.IsEmpty() {
		return s.repo.FindByID(ctx, id)
	}

	book, err := s.repo.UpdateByID(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	s.written(identity, book.ID, domain.BookUpdated)
	return book, nil
}

// Delete removes the book without checking that it exists first.
func (s *BookService) Delete(ctx context.Context, id string, identity domain.Identity) error {
	if !identity.IsAdmin() {
		return domain.ErrForbidden
	}
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("delete book: %w", err)
	}

	s.written(identity, id, domain.BookDeleted)
	return nil
}

func (s *BookService) written(identity domain.Identity, bookID string, action domain.BookAction) {
	metrics.BookWritesTotal.WithLabelValues(string(action)).Inc()
	s.logger.Info().
		Str("book_id", bookID).
		Str("action", string(action)).
		Str("actor_id", identity.UserID).
		Msg("catalog write")

	if s.events != nil {
		s.events.Enqueue(domain.BookEvent{
			BookID:     bookID,
			Action:     action,
			ActorID:    identity.UserID,
			OccurredAt: time.Now().UTC(),
		})
	}
}
