package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/plicometria/agenda/libs/db"
	"github.com/plicometria/agenda/services/agenda-service/internal/model"
	"github.com/plicometria/agenda/services/agenda-service/internal/outbox"
)

type BillRepository struct {
	pool       *db.Pool
	outboxRepo *outbox.Repository
}

func NewBillRepository(pool *db.Pool, outboxRepo *outbox.Repository) *BillRepository {
	return &BillRepository{pool: pool, outboxRepo: outboxRepo}
}

// Insert persists a fully-formed bill together with its outbox event.
// Bills are immutable snapshots; there is no update path here.
func (r *BillRepository) Insert(ctx context.Context, bill model.Bill, evt outbox.Event) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO bills
			(id, number, issue_date, client_id, client_name, description,
			 base, vat_percent, withholding_percent, other_percent, total, status)
		VALUES ($1, $2, $3, NULLIF($4, '')::uuid, $5, $6, $7, $8, $9, $10, $11, $12)
	`, bill.ID, bill.Number, bill.IssueDate, bill.ClientID, bill.ClientName, bill.Description,
		bill.Base, bill.VATPercent, bill.WithholdingPercent, bill.OtherPercent, bill.Total, bill.Status)
	if err != nil {
		return fmt.Errorf("insert bill: %w", err)
	}

	if err := r.outboxRepo.Insert(ctx, tx, evt); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return tx.Commit(ctx)
}

// List returns bills newest first, optionally narrowed by a free-text search
// over number, client name and description.
func (r *BillRepository) List(ctx context.Context, query string, limit int) ([]model.Bill, error) {
	if limit <= 0 {
		limit = 100
	}

	sql := `
		SELECT id::text, number, to_char(issue_date, 'YYYY-MM-DD'), COALESCE(client_id::text, ''),
			client_name, description, base::float8, vat_percent::float8, withholding_percent::float8,
			other_percent::float8, total::float8, status, created_at
		FROM bills`
	args := []any{}
	if q := strings.TrimSpace(query); q != "" {
		sql += `
		WHERE number ILIKE $1 OR client_name ILIKE $1 OR description ILIKE $1`
		args = append(args, "%"+q+"%")
	}
	sql += fmt.Sprintf(`
		ORDER BY created_at DESC, id DESC
		LIMIT %d`, limit)

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bills []model.Bill
	for rows.Next() {
		var b model.Bill
		if err := rows.Scan(
			&b.ID,
			&b.Number,
			&b.IssueDate,
			&b.ClientID,
			&b.ClientName,
			&b.Description,
			&b.Base,
			&b.VATPercent,
			&b.WithholdingPercent,
			&b.OtherPercent,
			&b.Total,
			&b.Status,
			&b.CreatedAt,
		); err != nil {
			return nil, err
		}
		bills = append(bills, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return bills, nil
}
