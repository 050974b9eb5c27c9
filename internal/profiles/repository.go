package profiles

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when no profile row exists for a user.
var ErrNotFound = errors.New("profiles: not found")

// Querier is the subset of pgxpool.Pool the repository needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository defines profile storage.
type Repository interface {
	Get(ctx context.Context, id string) (*Profile, error)
	Upsert(ctx context.Context, p *Profile) (*Profile, error)
}

// PostgresRepository stores profiles keyed by the identity user id.
type PostgresRepository struct {
	db Querier
}

// NewPostgresRepository initializes a repo backed by pgx.
func NewPostgresRepository(db Querier) *PostgresRepository {
	if db == nil {
		panic("profiles: pgx pool required")
	}
	return &PostgresRepository{db: db}
}

const profileColumns = `id, email, first_name, last_name, phone, date_of_birth, address, city,
		       state, zip_code, emergency_contact, allergies, medical_conditions,
		       created_at, updated_at`

// Get fetches a profile by user id.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Profile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM profiles
		WHERE id = $1
	`
	p := &Profile{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Email, &p.FirstName, &p.LastName, &p.Phone, &p.DateOfBirth,
		&p.Address, &p.City, &p.State, &p.ZipCode, &p.EmergencyContact,
		&p.Allergies, &p.MedicalConditions, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("profiles: select failed: %w", err)
	}
	return p, nil
}

// Upsert writes the profile, inserting on first save and replacing the
// editable fields on conflict. Same-id writes are last-write-wins.
func (r *PostgresRepository) Upsert(ctx context.Context, p *Profile) (*Profile, error) {
	query := `
		INSERT INTO profiles (id, email, first_name, last_name, phone, date_of_birth,
		                      address, city, state, zip_code, emergency_contact,
		                      allergies, medical_conditions, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			phone = EXCLUDED.phone,
			date_of_birth = EXCLUDED.date_of_birth,
			address = EXCLUDED.address,
			city = EXCLUDED.city,
			state = EXCLUDED.state,
			zip_code = EXCLUDED.zip_code,
			emergency_contact = EXCLUDED.emergency_contact,
			allergies = EXCLUDED.allergies,
			medical_conditions = EXCLUDED.medical_conditions,
			updated_at = NOW()
		RETURNING created_at, updated_at
	`
	out := *p
	err := r.db.QueryRow(ctx, query,
		p.ID, p.Email, p.FirstName, p.LastName, p.Phone, p.DateOfBirth,
		p.Address, p.City, p.State, p.ZipCode, p.EmergencyContact,
		p.Allergies, p.MedicalConditions,
	).Scan(&out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("profiles: upsert failed: %w", err)
	}
	return &out, nil
}

// InMemoryRepository is a map-backed Repository for tests.
type InMemoryRepository struct {
	mu    sync.RWMutex
	items map[string]*Profile
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{items: make(map[string]*Profile)}
}

func (r *InMemoryRepository) Get(ctx context.Context, id string) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *p
	return &c, nil
}

func (r *InMemoryRepository) Upsert(ctx context.Context, p *Profile) (*Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	c := *p
	if existing, ok := r.items[p.ID]; ok {
		c.CreatedAt = existing.CreatedAt
	} else {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	r.items[p.ID] = &c
	out := c
	return &out, nil
}
