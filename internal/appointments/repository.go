package appointments

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgxpool.Pool the repository needs; pgxmock
// satisfies it in tests.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository defines appointment storage.
type Repository interface {
	Create(ctx context.Context, req *CreateRequest, serviceID int64) (*Appointment, error)
	GetByID(ctx context.Context, id int64) (*Appointment, error)
	ListByEmail(ctx context.Context, email string) ([]*Appointment, error)
	ListAll(ctx context.Context) ([]*Appointment, error)
	// UpdateStatus moves the row to the target status only while its
	// current status is in allowedFrom, and reports whether a row moved.
	UpdateStatus(ctx context.Context, id int64, to Status, allowedFrom []Status) (bool, error)
	UpdateSchedule(ctx context.Context, id int64, upd ScheduleUpdate) error
}

// PostgresRepository stores appointments in the relational database.
type PostgresRepository struct {
	db Querier
}

// NewPostgresRepository initializes a repo backed by pgx.
func NewPostgresRepository(db Querier) *PostgresRepository {
	if db == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresRepository{db: db}
}

const appointmentColumns = `id, name, email, phone, message, status, service_id, doctor_id,
		       scheduled_date, scheduled_time, notes, location, created_at`

// Create inserts a new request. Status is forced to pending here, not in
// the caller, so no code path can insert anything else.
func (r *PostgresRepository) Create(ctx context.Context, req *CreateRequest, serviceID int64) (*Appointment, error) {
	query := `
		INSERT INTO appointments (name, email, phone, message, service_id, status)
		VALUES ($1, $2, $3, $4, $5, 'pending')
		RETURNING id, created_at
	`
	appt := &Appointment{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Message:   req.Message,
		Status:    StatusPending,
		ServiceID: &serviceID,
	}
	if err := r.db.QueryRow(ctx, query,
		req.Name, req.Email, req.Phone, req.Message, serviceID,
	).Scan(&appt.ID, &appt.CreatedAt); err != nil {
		return nil, fmt.Errorf("appointments: insert failed: %w", err)
	}
	return appt, nil
}

// GetByID fetches a single appointment.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE id = $1
	`
	appt, err := scanAppointment(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: select failed: %w", err)
	}
	return appt, nil
}

// ListByEmail returns the caller's appointments, newest first. Ownership
// is an equality filter on the stored email, nothing stronger.
func (r *PostgresRepository) ListByEmail(ctx context.Context, email string) ([]*Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE email = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("appointments: list failed: %w", err)
	}
	defer rows.Close()
	return collectAppointments(rows)
}

// ListAll returns every appointment with requester profile fields joined
// on the stored email.
func (r *PostgresRepository) ListAll(ctx context.Context) ([]*Appointment, error) {
	query := `
		SELECT a.id, a.name, a.email, a.phone, a.message, a.status, a.service_id, a.doctor_id,
		       a.scheduled_date, a.scheduled_time, a.notes, a.location, a.created_at,
		       p.first_name, p.last_name, p.phone
		FROM appointments a
		LEFT JOIN profiles p ON p.email = a.email
		ORDER BY a.created_at DESC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("appointments: list all failed: %w", err)
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		appt := &Appointment{}
		var firstName, lastName, profilePhone *string
		if err := rows.Scan(
			&appt.ID, &appt.Name, &appt.Email, &appt.Phone, &appt.Message, &appt.Status,
			&appt.ServiceID, &appt.DoctorID, &appt.ScheduledDate, &appt.ScheduledTime,
			&appt.Notes, &appt.Location, &appt.CreatedAt,
			&firstName, &lastName, &profilePhone,
		); err != nil {
			return nil, fmt.Errorf("appointments: scan failed: %w", err)
		}
		if firstName != nil || lastName != nil {
			req := &Requester{Email: appt.Email}
			req.FullName = joinName(firstName, lastName)
			if profilePhone != nil {
				req.Phone = *profilePhone
			}
			appt.Requester = req
		}
		out = append(out, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: rows failed: %w", err)
	}
	return out, nil
}

// UpdateStatus performs the guarded transition. The allowedFrom guard in
// the WHERE clause keeps terminal states terminal even under concurrent
// writers; last-write-wins applies within the allowed set.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id int64, to Status, allowedFrom []Status) (bool, error) {
	from := make([]string, len(allowedFrom))
	for i, s := range allowedFrom {
		from[i] = string(s)
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE appointments SET status = $1 WHERE id = $2 AND status = ANY($3)`,
		string(to), id, from,
	)
	if err != nil {
		return false, fmt.Errorf("appointments: update status failed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// UpdateSchedule sets admin-editable scheduling fields, leaving absent
// fields untouched.
func (r *PostgresRepository) UpdateSchedule(ctx context.Context, id int64, upd ScheduleUpdate) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE appointments SET
			doctor_id      = COALESCE($1, doctor_id),
			scheduled_date = COALESCE($2, scheduled_date),
			scheduled_time = COALESCE($3, scheduled_time),
			notes          = COALESCE($4, notes),
			location       = COALESCE($5, location)
		WHERE id = $6
	`, upd.DoctorID, upd.ScheduledDate, upd.ScheduledTime, upd.Notes, upd.Location, id)
	if err != nil {
		return fmt.Errorf("appointments: update schedule failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	appt := &Appointment{}
	if err := row.Scan(
		&appt.ID, &appt.Name, &appt.Email, &appt.Phone, &appt.Message, &appt.Status,
		&appt.ServiceID, &appt.DoctorID, &appt.ScheduledDate, &appt.ScheduledTime,
		&appt.Notes, &appt.Location, &appt.CreatedAt,
	); err != nil {
		return nil, err
	}
	return appt, nil
}

func collectAppointments(rows pgx.Rows) ([]*Appointment, error) {
	var out []*Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan failed: %w", err)
		}
		out = append(out, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: rows failed: %w", err)
	}
	return out, nil
}

func joinName(first, last *string) string {
	var name string
	if first != nil {
		name = *first
	}
	if last != nil {
		if name != "" {
			name += " "
		}
		name += *last
	}
	return name
}

// InMemoryRepository is a map-backed Repository used in tests and local
// development without a database.
type InMemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]*Appointment
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{nextID: 1, items: make(map[int64]*Appointment)}
}

func (r *InMemoryRepository) Create(ctx context.Context, req *CreateRequest, serviceID int64) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	appt := &Appointment{
		ID:        r.nextID,
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Message:   req.Message,
		Status:    StatusPending,
		ServiceID: &serviceID,
		CreatedAt: time.Now().UTC(),
	}
	r.nextID++
	r.items[appt.ID] = appt
	return cloneAppointment(appt), nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id int64) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	appt, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneAppointment(appt), nil
}

func (r *InMemoryRepository) ListByEmail(ctx context.Context, email string) ([]*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Appointment
	for _, appt := range r.items {
		if appt.Email == email {
			out = append(out, cloneAppointment(appt))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (r *InMemoryRepository) ListAll(ctx context.Context) ([]*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Appointment, 0, len(r.items))
	for _, appt := range r.items {
		out = append(out, cloneAppointment(appt))
	}
	sortNewestFirst(out)
	return out, nil
}

func (r *InMemoryRepository) UpdateStatus(ctx context.Context, id int64, to Status, allowedFrom []Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	appt, ok := r.items[id]
	if !ok {
		return false, nil
	}
	for _, from := range allowedFrom {
		if appt.Status == from {
			appt.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (r *InMemoryRepository) UpdateSchedule(ctx context.Context, id int64, upd ScheduleUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	appt, ok := r.items[id]
	if !ok {
		return ErrNotFound
	}
	if upd.DoctorID != nil {
		appt.DoctorID = upd.DoctorID
	}
	if upd.ScheduledDate != nil {
		appt.ScheduledDate = upd.ScheduledDate
	}
	if upd.ScheduledTime != nil {
		appt.ScheduledTime = upd.ScheduledTime
	}
	if upd.Notes != nil {
		appt.Notes = upd.Notes
	}
	if upd.Location != nil {
		appt.Location = upd.Location
	}
	return nil
}

func cloneAppointment(a *Appointment) *Appointment {
	c := *a
	return &c
}

func sortNewestFirst(items []*Appointment) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID > items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}
