package profiles

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
)

func TestPostgresGetNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	repo := NewPostgresRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM profiles").
		WithArgs("u-404").
		WillReturnError(pgx.ErrNoRows)

	if _, err := repo.Get(context.Background(), "u-404"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPostgresUpsertReturnsTimestamps(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	repo := NewPostgresRepository(mock)

	created := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	updated := time.Date(2026, 2, 2, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO profiles").
		WithArgs("u-123", "jane@example.com", "Jane", "Rivera", "555-0101", "",
			"", "", "", "", "", "penicillin", "").
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(created, updated))

	p, err := repo.Upsert(context.Background(), &Profile{
		ID: "u-123", Email: "jane@example.com",
		FirstName: "Jane", LastName: "Rivera", Phone: "555-0101",
		Allergies: "penicillin",
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !p.CreatedAt.Equal(created) || !p.UpdatedAt.Equal(updated) {
		t.Fatalf("timestamps = %v / %v", p.CreatedAt, p.UpdatedAt)
	}
	if p.FirstName != "Jane" {
		t.Fatalf("fields lost: %+v", p)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
