// Package inbox deduplicates consumed events. Every (event id, group id)
// pair is recorded exactly once; redelivery and replays become no-ops.
// Scoping by group matters because the cache-invalidation consumers run one
// group per instance against a shared table: each instance must get to apply
// every event, while redeliveries within one group stay suppressed.
package inbox

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/plicometria/agenda/libs/db"
)

const uniqueViolation = "23505"

type Repository struct {
	pool    *db.Pool
	groupID string
}

func NewRepository(pool *db.Pool, groupID string) *Repository {
	return &Repository{pool: pool, groupID: groupID}
}

// Record claims an event id for this repository's group. Returns false when
// another delivery in the same group already claimed it.
func (r *Repository) Record(ctx context.Context, eventID string, eventType string) (bool, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO inbox_events (event_id, group_id, event_type)
		VALUES ($1, $2, $3)
	`, eventID, r.groupID, eventType)
	if err == nil {
		return true, nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return false, nil
	}
	return false, err
}
