package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/plicometria/agenda/libs/db"
	"github.com/plicometria/agenda/services/agenda-service/internal/criteria"
	"github.com/plicometria/agenda/services/agenda-service/internal/model"
	"github.com/plicometria/agenda/services/agenda-service/internal/outbox"
)

const appointmentColumns = `id::text, to_char(date, 'YYYY-MM-DD'), to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'),
		patient_name, professional, session_type, COALESCE(service_id::text, ''), note, status, created_at`

type AppointmentRepository struct {
	pool       *db.Pool
	outboxRepo *outbox.Repository
}

func NewAppointmentRepository(pool *db.Pool, outboxRepo *outbox.Repository) *AppointmentRepository {
	return &AppointmentRepository{pool: pool, outboxRepo: outboxRepo}
}

// Create validates the time range, assigns an identity when absent and
// persists the appointment together with its outbox event in one transaction.
func (r *AppointmentRepository) Create(ctx context.Context, appt *model.Appointment, evt outbox.Event) error {
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	if appt.Status == "" {
		appt.Status = model.StatusPending
	}
	if err := appt.ValidateRange(); err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO appointments
			(id, date, start_time, end_time, patient_name, professional, session_type, service_id, note, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, '')::uuid, $9, $10)
		RETURNING created_at
	`, appt.ID, appt.Date, appt.Start, appt.End, appt.PatientName, appt.Professional,
		appt.SessionType, appt.ServiceID, appt.Note, appt.Status).Scan(&appt.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}

	if err := r.outboxRepo.Insert(ctx, tx, evt); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return tx.Commit(ctx)
}

// List returns every appointment matching the criteria, ordered by start
// instant ascending. No matches is an empty result, never an error.
func (r *AppointmentRepository) List(ctx context.Context, c criteria.Criteria) ([]model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	where, args := c.Where(0)
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY date ASC, start_time ASC, id ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

// ListAppointments returns the full appointment set. This is the cache
// hydration path.
func (r *AppointmentRepository) ListAppointments(ctx context.Context) ([]model.Appointment, error) {
	return r.List(ctx, criteria.Criteria{})
}

// Mutation is a partial appointment update. Nil fields are left untouched.
type Mutation struct {
	Status *model.Status
	Date   *string
	Start  *string
	End    *string
	Note   *string
}

// Update applies a partial mutation under a row lock and returns the updated
// record. Absent ids fail with model.ErrNotFound; a mutation that would leave
// start >= end fails with model.ErrInvalidRange and changes nothing.
func (r *AppointmentRepository) Update(ctx context.Context, id string, mut Mutation) (model.Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := r.getForUpdate(ctx, tx, id)
	if err != nil {
		return model.Appointment{}, err
	}

	if mut.Status != nil {
		appt.Status = *mut.Status
	}
	if mut.Date != nil {
		appt.Date = *mut.Date
	}
	if mut.Start != nil {
		appt.Start = *mut.Start
	}
	if mut.End != nil {
		appt.End = *mut.End
	}
	if mut.Note != nil {
		appt.Note = *mut.Note
	}
	if err := appt.ValidateRange(); err != nil {
		return model.Appointment{}, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE appointments
		SET date = $2, start_time = $3, end_time = $4, note = $5, status = $6
		WHERE id = $1
	`, appt.ID, appt.Date, appt.Start, appt.End, appt.Note, appt.Status)
	if err != nil {
		return model.Appointment{}, fmt.Errorf("update appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

func (r *AppointmentRepository) getForUpdate(ctx context.Context, tx pgx.Tx, id string) (model.Appointment, error) {
	row := tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`, id)
	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Appointment{}, model.ErrNotFound
		}
		return model.Appointment{}, err
	}
	return appt, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (model.Appointment, error) {
	var a model.Appointment
	err := row.Scan(
		&a.ID,
		&a.Date,
		&a.Start,
		&a.End,
		&a.PatientName,
		&a.Professional,
		&a.SessionType,
		&a.ServiceID,
		&a.Note,
		&a.Status,
		&a.CreatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	return a, nil
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, model.ErrNotFound)
}
