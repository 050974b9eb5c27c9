package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgxpool.Pool the repository needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository defines catalog storage for doctors and services.
type Repository interface {
	ListDoctors(ctx context.Context) ([]*Doctor, error)
	GetDoctor(ctx context.Context, id int64) (*Doctor, error)
	CreateDoctor(ctx context.Context, in *DoctorInput) (*Doctor, error)
	UpdateDoctor(ctx context.Context, id int64, in *DoctorInput) (*Doctor, error)
	DeleteDoctor(ctx context.Context, id int64) error

	ListServices(ctx context.Context) ([]*Service, error)
	GetService(ctx context.Context, id int64) (*Service, error)
	CreateService(ctx context.Context, in *ServiceInput) (*Service, error)
	UpdateService(ctx context.Context, id int64, in *ServiceInput) (*Service, error)
	DeleteService(ctx context.Context, id int64) error
}

// PostgresRepository stores the catalog in the relational database.
type PostgresRepository struct {
	db Querier
}

// NewPostgresRepository initializes a repo backed by pgx.
func NewPostgresRepository(db Querier) *PostgresRepository {
	if db == nil {
		panic("catalog: pgx pool required")
	}
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) ListDoctors(ctx context.Context) ([]*Doctor, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, specialty, bio, image_url, created_at
		FROM doctors
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list doctors: %w", err)
	}
	defer rows.Close()

	var out []*Doctor
	for rows.Next() {
		d := &Doctor{}
		if err := rows.Scan(&d.ID, &d.Name, &d.Specialty, &d.Bio, &d.ImageURL, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("catalog: scan doctor: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) GetDoctor(ctx context.Context, id int64) (*Doctor, error) {
	d := &Doctor{}
	err := r.db.QueryRow(ctx, `
		SELECT id, name, specialty, bio, image_url, created_at
		FROM doctors
		WHERE id = $1
	`, id).Scan(&d.ID, &d.Name, &d.Specialty, &d.Bio, &d.ImageURL, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("catalog: get doctor: %w", err)
	}
	return d, nil
}

func (r *PostgresRepository) CreateDoctor(ctx context.Context, in *DoctorInput) (*Doctor, error) {
	d := &Doctor{Name: in.Name, Specialty: in.Specialty, Bio: in.Bio, ImageURL: in.ImageURL}
	err := r.db.QueryRow(ctx, `
		INSERT INTO doctors (name, specialty, bio, image_url)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, in.Name, in.Specialty, in.Bio, in.ImageURL).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("catalog: insert doctor: %w", err)
	}
	return d, nil
}

func (r *PostgresRepository) UpdateDoctor(ctx context.Context, id int64, in *DoctorInput) (*Doctor, error) {
	d := &Doctor{ID: id, Name: in.Name, Specialty: in.Specialty, Bio: in.Bio, ImageURL: in.ImageURL}
	err := r.db.QueryRow(ctx, `
		UPDATE doctors
		SET name = $1, specialty = $2, bio = $3, image_url = $4
		WHERE id = $5
		RETURNING created_at
	`, in.Name, in.Specialty, in.Bio, in.ImageURL, id).Scan(&d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("catalog: update doctor: %w", err)
	}
	return d, nil
}

func (r *PostgresRepository) DeleteDoctor(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM doctors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("catalog: delete doctor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) ListServices(ctx context.Context) ([]*Service, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, description, price, created_at
		FROM services
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list services: %w", err)
	}
	defer rows.Close()

	var out []*Service
	for rows.Next() {
		s := &Service{}
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.Price, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("catalog: scan service: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) GetService(ctx context.Context, id int64) (*Service, error) {
	s := &Service{}
	err := r.db.QueryRow(ctx, `
		SELECT id, name, description, price, created_at
		FROM services
		WHERE id = $1
	`, id).Scan(&s.ID, &s.Name, &s.Description, &s.Price, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("catalog: get service: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) CreateService(ctx context.Context, in *ServiceInput) (*Service, error) {
	s := &Service{Name: in.Name, Description: in.Description, Price: in.Price}
	err := r.db.QueryRow(ctx, `
		INSERT INTO services (name, description, price)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, in.Name, in.Description, in.Price).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("catalog: insert service: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) UpdateService(ctx context.Context, id int64, in *ServiceInput) (*Service, error) {
	s := &Service{ID: id, Name: in.Name, Description: in.Description, Price: in.Price}
	err := r.db.QueryRow(ctx, `
		UPDATE services
		SET name = $1, description = $2, price = $3
		WHERE id = $4
		RETURNING created_at
	`, in.Name, in.Description, in.Price, id).Scan(&s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("catalog: update service: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) DeleteService(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("catalog: delete service: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
