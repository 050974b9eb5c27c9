package catalog

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryRepository keeps the catalog in process memory. Used by tests
// and local development without Postgres.
type InMemoryRepository struct {
	mu       sync.RWMutex
	doctors  map[int64]*Doctor
	services map[int64]*Service
	nextID   int64
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		doctors:  make(map[int64]*Doctor),
		services: make(map[int64]*Service),
		nextID:   1,
	}
}

var _ Repository = (*InMemoryRepository)(nil)

func (r *InMemoryRepository) ListDoctors(_ context.Context) ([]*Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Doctor, 0, len(r.doctors))
	for _, d := range r.doctors {
		copied := *d
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *InMemoryRepository) GetDoctor(_ context.Context, id int64) (*Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.doctors[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *d
	return &copied, nil
}

func (r *InMemoryRepository) CreateDoctor(_ context.Context, in *DoctorInput) (*Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := &Doctor{
		ID:        r.nextID,
		Name:      in.Name,
		Specialty: in.Specialty,
		Bio:       in.Bio,
		ImageURL:  in.ImageURL,
		CreatedAt: time.Now().UTC(),
	}
	r.nextID++
	r.doctors[d.ID] = d
	copied := *d
	return &copied, nil
}

func (r *InMemoryRepository) UpdateDoctor(_ context.Context, id int64, in *DoctorInput) (*Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.doctors[id]
	if !ok {
		return nil, ErrNotFound
	}
	d.Name = in.Name
	d.Specialty = in.Specialty
	d.Bio = in.Bio
	d.ImageURL = in.ImageURL
	copied := *d
	return &copied, nil
}

func (r *InMemoryRepository) DeleteDoctor(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.doctors[id]; !ok {
		return ErrNotFound
	}
	delete(r.doctors, id)
	return nil
}

func (r *InMemoryRepository) ListServices(_ context.Context) ([]*Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Service, 0, len(r.services))
	for _, s := range r.services {
		copied := *s
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *InMemoryRepository) GetService(_ context.Context, id int64) (*Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.services[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (r *InMemoryRepository) CreateService(_ context.Context, in *ServiceInput) (*Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &Service{
		ID:          r.nextID,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		CreatedAt:   time.Now().UTC(),
	}
	r.nextID++
	r.services[s.ID] = s
	copied := *s
	return &copied, nil
}

func (r *InMemoryRepository) UpdateService(_ context.Context, id int64, in *ServiceInput) (*Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.services[id]
	if !ok {
		return nil, ErrNotFound
	}
	s.Name = in.Name
	s.Description = in.Description
	s.Price = in.Price
	copied := *s
	return &copied, nil
}

func (r *InMemoryRepository) DeleteService(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.services[id]; !ok {
		return ErrNotFound
	}
	delete(r.services, id)
	return nil
}
