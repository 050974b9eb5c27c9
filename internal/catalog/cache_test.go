package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/medicarehealth/practice-platform/pkg/logging"
)

type countingRepo struct {
	Repository
	doctors      []*Doctor
	services     []*Service
	doctorLists  int
	serviceLists int
}

func (r *countingRepo) ListDoctors(context.Context) ([]*Doctor, error) {
	r.doctorLists++
	return r.doctors, nil
}

func (r *countingRepo) ListServices(context.Context) ([]*Service, error) {
	r.serviceLists++
	return r.services, nil
}

func (r *countingRepo) CreateService(context.Context, *ServiceInput) (*Service, error) {
	return &Service{ID: 9, Name: "New"}, nil
}

func newTestCache(t *testing.T, repo Repository) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(repo, client, time.Minute, logging.Default())
}

func TestCacheServesSecondListFromRedis(t *testing.T) {
	repo := &countingRepo{services: []*Service{{ID: 3, Name: "Physical Therapy"}}}
	cache := newTestCache(t, repo)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		services, err := cache.ListServices(ctx)
		if err != nil {
			t.Fatalf("list %d: %v", i, err)
		}
		if len(services) != 1 || services[0].Name != "Physical Therapy" {
			t.Fatalf("list %d: %+v", i, services)
		}
	}
	if repo.serviceLists != 1 {
		t.Fatalf("repo queried %d times, want 1", repo.serviceLists)
	}
}

func TestCacheInvalidatedOnWrite(t *testing.T) {
	repo := &countingRepo{services: []*Service{{ID: 3, Name: "Physical Therapy"}}}
	cache := newTestCache(t, repo)
	ctx := context.Background()

	if _, err := cache.ListServices(ctx); err != nil {
		t.Fatalf("warm: %v", err)
	}
	if _, err := cache.CreateService(ctx, &ServiceInput{Name: "New"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := cache.ListServices(ctx); err != nil {
		t.Fatalf("relist: %v", err)
	}
	if repo.serviceLists != 2 {
		t.Fatalf("repo queried %d times, want 2 after invalidation", repo.serviceLists)
	}
}

func TestCacheNilClientPassesThrough(t *testing.T) {
	repo := &countingRepo{doctors: []*Doctor{{ID: 1, Name: "Dr. Lee", Specialty: "Cardiology"}}}
	cache := NewCache(repo, nil, time.Minute, logging.Default())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := cache.ListDoctors(ctx); err != nil {
			t.Fatalf("list %d: %v", i, err)
		}
	}
	if repo.doctorLists != 2 {
		t.Fatalf("repo queried %d times, want 2 without redis", repo.doctorLists)
	}
}

func TestCacheLookupHelpers(t *testing.T) {
	repo := &countingRepo{
		doctors:  []*Doctor{{ID: 4, Name: "Dr. Lee", Specialty: "Cardiology"}},
		services: []*Service{{ID: 3, Name: "Physical Therapy"}},
	}
	cache := newTestCache(t, repo)
	ctx := context.Background()

	name, err := cache.ServiceName(ctx, 3)
	if err != nil || name != "Physical Therapy" {
		t.Fatalf("service name = %q, err %v", name, err)
	}
	// Unknown services produce an empty name, not an error, so the
	// caller can substitute its default label.
	name, err = cache.ServiceName(ctx, 99)
	if err != nil || name != "" {
		t.Fatalf("missing service name = %q, err %v", name, err)
	}

	docName, specialty, err := cache.DoctorRef(ctx, 4)
	if err != nil || docName != "Dr. Lee" || specialty != "Cardiology" {
		t.Fatalf("doctor ref = %q/%q, err %v", docName, specialty, err)
	}
	if _, _, err := cache.DoctorRef(ctx, 99); err == nil {
		t.Fatal("expected error for unknown doctor")
	}
}

func TestCacheExpiresWithTTL(t *testing.T) {
	repo := &countingRepo{services: []*Service{{ID: 3, Name: "Physical Therapy"}}}
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewCache(repo, client, time.Minute, logging.Default())
	ctx := context.Background()

	if _, err := cache.ListServices(ctx); err != nil {
		t.Fatalf("warm: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := cache.ListServices(ctx); err != nil {
		t.Fatalf("relist: %v", err)
	}
	if repo.serviceLists != 2 {
		t.Fatalf("repo queried %d times, want 2 after expiry", repo.serviceLists)
	}
}
