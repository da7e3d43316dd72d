package handler

import (
	"time"

	"github.com/bookshelf/catalog-api/internal/core/domain"
	"github.com/bookshelf/catalog-api/internal/core/ports"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

type createBookRequest struct {
	Title       string   `json:"title"       validate:"required" example:"Node.js Design Patterns"`
	Author      string   `json:"author"      validate:"required" example:"Mario Casciaro"`
	Description string   `json:"description" validate:"required" example:"A comprehensive guide to Node.js design patterns"`
	Price       *float64 `json:"price"       validate:"required,gte=0" example:"29.99"`
}

// updateBookRequest uses pointers so absent fields can be told apart from zero values.
type updateBookRequest struct {
	Title       *string  `json:"title"       validate:"omitnil,min=1"`
	Author      *string  `json:"author"      validate:"omitnil,min=1"`
	Description *string  `json:"description" validate:"omitnil,min=1"`
	Price       *float64 `json:"price"       validate:"omitnil,gte=0"`
}

type bookResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (r createBookRequest) toInput() ports.CreateBookInput {
	in := ports.CreateBookInput{
		Title:       r.Title,
		Author:      r.Author,
		Description: r.Description,
	}
	if r.Price != nil {
		in.Price = *r.Price
	}
	return in
}

func (r updateBookRequest) toPatch() domain.BookPatch {
	return domain.BookPatch{
		Title:       r.Title,
		Author:      r.Author,
		Description: r.Description,
		Price:       r.Price,
	}
}

func toBookResponse(b *domain.Book) bookResponse {
	return bookResponse{
		ID:          b.ID,
		Title:       b.Title,
		Author:      b.Author,
		Description: b.Description,
		Price:       b.Price,
		CreatedAt:   b.CreatedAt.UTC(),
		UpdatedAt:   b.UpdatedAt.UTC(),
	}
}

func toBookResponses(books []*domain.Book) []bookResponse {
	out := make([]bookResponse, len(books))
	for i, b := range books {
		out[i] = toBookResponse(b)
	}
	return out
}
