package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/plicometria/agenda/libs/db"
	"github.com/plicometria/agenda/services/agenda-service/internal/model"
)

// ServiceRepository reads the externally-owned services catalog. The
// scheduling core never writes to it.
type ServiceRepository struct {
	pool *db.Pool
}

func NewServiceRepository(pool *db.Pool) *ServiceRepository {
	return &ServiceRepository{pool: pool}
}

func (r *ServiceRepository) GetService(ctx context.Context, id string) (model.Service, error) {
	var s model.Service
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, name, price::float8, vat_percent::float8, withholding_percent::float8,
			other_percent::float8, COALESCE(duration_minutes, 0), COALESCE(description, '')
		FROM services
		WHERE id = $1
	`, id).Scan(&s.ID, &s.Name, &s.Price, &s.VATPercent, &s.WithholdingPercent,
		&s.OtherPercent, &s.DurationMinutes, &s.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Service{}, fmt.Errorf("service %s: %w", id, model.ErrNotFound)
		}
		return model.Service{}, err
	}
	return s, nil
}
