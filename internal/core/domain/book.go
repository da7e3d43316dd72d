package domain

import (
	"errors"
	"time"
)

var ErrBookNotFound = errors.New("book not found")

// Book is a single catalog entry.
type Book struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BookPatch holds the fields of a partial update. Nil means "leave unchanged".
type BookPatch struct {
	Title       *string
	Author      *string
	Description *string
	Price       *float64
}

func (p BookPatch) IsEmpty() bool {
	return p.Title == nil && p.Author == nil && p.Description == nil && p.Price == nil
}
