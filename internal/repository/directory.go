package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/d-karpukhin/event-board/internal/apperr"
	"github.com/d-karpukhin/event-board/internal/model"
)

// Directory resolves user and category references. Account and category
// management belong to other services; this side only needs existence
// lookups before acting on behalf of a user or binding an event to a
// category.
type Directory struct {
	db *pgxpool.Pool
}

// NewDirectory constructs a Directory.
func NewDirectory(db *pgxpool.Pool) *Directory {
	return &Directory{db: db}
}

// GetUserByID returns the user or NotFound.
func (d *Directory) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := d.db.QueryRow(ctx,
		`SELECT id, name, email FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Name, &u.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("user with id=%s was not found", id)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// GetCategoryByID returns the category or NotFound.
func (d *Directory) GetCategoryByID(ctx context.Context, id string) (*model.Category, error) {
	var c model.Category
	err := d.db.QueryRow(ctx,
		`SELECT id, name FROM categories WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("category with id=%s was not found", id)
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &c, nil
}
