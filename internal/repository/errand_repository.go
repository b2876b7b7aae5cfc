package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pasabuyph/backend/internal/models"
)

var ErrErrandNotFound = errors.New("errand not found")

// ErrandRepository reads errand assignments for the settlement core. Errand
// lifecycle mutations belong to the posting/matching side of the platform.
type ErrandRepository struct {
	db *sqlx.DB
}

func NewErrandRepository(db *sqlx.DB) *ErrandRepository {
	return &ErrandRepository{db: db}
}

// GetByID returns the errand with its current assignment and status.
func (r *ErrandRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Errand, error) {
	var errand models.Errand
	if err := r.db.GetContext(ctx, &errand, `SELECT * FROM errands WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrErrandNotFound
		}
		return nil, fmt.Errorf("errand repository: get by id %w", err)
	}
	return &errand, nil
}
