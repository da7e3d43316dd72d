package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bookshelf/catalog-api/internal/core/domain"
	"github.com/bookshelf/catalog-api/internal/core/ports"
)

// BookHandler handles HTTP requests for catalog operations.
type BookHandler struct {
	service ports.BookService
}

func NewBookHandler(service ports.BookService) *BookHandler {
	return &BookHandler{service: service}
}

// List handles GET /books.
//
// @Summary      Get all books
// @Tags         books
// @Produce      json
// @Success      200  {array}   bookResponse
// @Failure      500  {object}  errorResponse
// @Router       /books [get]
func (h *BookHandler) List(c echo.Context) error {
	books, err := h.service.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBookResponses(books))
}

// Get handles GET /books/:id.
//
// @Summary      Get a single book by ID
// @Tags         books
// @Produce      json
// @Param        id   path      string  true  "Book ID"
// @Success      200  {object}  bookResponse
// @Failure      404  {object}  errorResponse
// @Router       /books/{id} [get]
func (h *BookHandler) Get(c echo.Context) error {
	book, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBookResponse(book))
}

// Create handles POST /books.
//
// @Summary      Add a new book (admin only)
// @Tags         books
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createBookRequest  true  "Book"
// @Success      201   {object}  bookResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /books [post]
func (h *BookHandler) Create(c echo.Context) error {
	identity, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	// Non-admins get 403 whatever the body holds.
	if !identity.IsAdmin() {
		return domain.ErrForbidden
	}

	var req createBookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	book, err := h.service.Create(c.Request().Context(), identity, req.toInput())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toBookResponse(book))
}

// Update handles PUT /books/:id. Only the fields present in the body change.
//
// @Summary      Update a book by ID (admin only)
// @Tags         books
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "Book ID"
// @Param        body  body      updateBookRequest  true  "Fields to change"
// @Success      200   {object}  bookResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /books/{id} [put]
func (h *BookHandler) Update(c echo.Context) error {
	identity, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	// Non-admins get 403 whatever the body holds.
	if !identity.IsAdmin() {
		return domain.ErrForbidden
	}

	var req updateBookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	book, err := h.service.Update(c.Request().Context(), c.Param("id"), identity, req.toPatch())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBookResponse(book))
}

// Delete handles DELETE /books/:id. Unknown ids still yield 204.
//
// @Summary      Delete a book by ID (admin only)
// @Tags         books
// @Security     BearerAuth
// @Param        id   path  string  true  "Book ID"
// @Success      204
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /books/{id} [delete]
func (h *BookHandler) Delete(c echo.Context) error {
	identity, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Request().Context(), c.Param("id"), identity); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
