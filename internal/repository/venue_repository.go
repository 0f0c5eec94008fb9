package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/unisched/presentation-api/internal/models"
)

// VenueRepository manages venue records.
type VenueRepository struct {
	db *sqlx.DB
}

// NewVenueRepository constructs a VenueRepository.
func NewVenueRepository(db *sqlx.DB) *VenueRepository {
	return &VenueRepository{db: db}
}

// Create inserts a venue.
func (r *VenueRepository) Create(ctx context.Context, v *models.Venue) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO venues (id, venue_id, capacity, created_at) VALUES (:id, :venue_id, :capacity, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, v); err != nil {
		return fmt.Errorf("create venue: %w", err)
	}
	return nil
}

// FindByID fetches one venue.
func (r *VenueRepository) FindByID(ctx context.Context, id string) (*models.Venue, error) {
	const query = `SELECT id, venue_id, capacity, created_at FROM venues WHERE id = $1`
	var v models.Venue
	if err := r.db.GetContext(ctx, &v, query, id); err != nil {
		return nil, err
	}
	return &v, nil
}

// List returns every venue ordered by identifier.
func (r *VenueRepository) List(ctx context.Context) ([]models.Venue, error) {
	const query = `SELECT id, venue_id, capacity, created_at FROM venues ORDER BY venue_id ASC`
	var venues []models.Venue
	if err := r.db.SelectContext(ctx, &venues, query); err != nil {
		return nil, fmt.Errorf("list venues: %w", err)
	}
	return venues, nil
}
