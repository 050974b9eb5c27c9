package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/medicarehealth/practice-platform/pkg/logging"
)

const (
	doctorsCacheKey  = "catalog:doctors"
	servicesCacheKey = "catalog:services"
)

// Cache is a read-through wrapper over a Repository. Public list
// traffic dwarfs admin writes, so the two list queries are cached in
// Redis and dropped whenever a write lands. All other calls pass
// through.
type Cache struct {
	repo   Repository
	redis  *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewCache wraps repo with Redis caching. A nil client disables
// caching and delegates everything to repo.
func NewCache(repo Repository, client *redis.Client, ttl time.Duration, logger *logging.Logger) *Cache {
	if logger == nil {
		logger = logging.Default()
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache{repo: repo, redis: client, ttl: ttl, logger: logger}
}

func (c *Cache) ListDoctors(ctx context.Context) ([]*Doctor, error) {
	var cached []*Doctor
	if c.readCache(ctx, doctorsCacheKey, &cached) {
		return cached, nil
	}
	doctors, err := c.repo.ListDoctors(ctx)
	if err != nil {
		return nil, err
	}
	c.writeCache(ctx, doctorsCacheKey, doctors)
	return doctors, nil
}

func (c *Cache) ListServices(ctx context.Context) ([]*Service, error) {
	var cached []*Service
	if c.readCache(ctx, servicesCacheKey, &cached) {
		return cached, nil
	}
	services, err := c.repo.ListServices(ctx)
	if err != nil {
		return nil, err
	}
	c.writeCache(ctx, servicesCacheKey, services)
	return services, nil
}

func (c *Cache) GetDoctor(ctx context.Context, id int64) (*Doctor, error) {
	return c.repo.GetDoctor(ctx, id)
}

func (c *Cache) GetService(ctx context.Context, id int64) (*Service, error) {
	return c.repo.GetService(ctx, id)
}

func (c *Cache) CreateDoctor(ctx context.Context, in *DoctorInput) (*Doctor, error) {
	d, err := c.repo.CreateDoctor(ctx, in)
	if err == nil {
		c.invalidate(ctx, doctorsCacheKey)
	}
	return d, err
}

func (c *Cache) UpdateDoctor(ctx context.Context, id int64, in *DoctorInput) (*Doctor, error) {
	d, err := c.repo.UpdateDoctor(ctx, id, in)
	if err == nil {
		c.invalidate(ctx, doctorsCacheKey)
	}
	return d, err
}

func (c *Cache) DeleteDoctor(ctx context.Context, id int64) error {
	err := c.repo.DeleteDoctor(ctx, id)
	if err == nil {
		c.invalidate(ctx, doctorsCacheKey)
	}
	return err
}

func (c *Cache) CreateService(ctx context.Context, in *ServiceInput) (*Service, error) {
	s, err := c.repo.CreateService(ctx, in)
	if err == nil {
		c.invalidate(ctx, servicesCacheKey)
	}
	return s, err
}

func (c *Cache) UpdateService(ctx context.Context, id int64, in *ServiceInput) (*Service, error) {
	s, err := c.repo.UpdateService(ctx, id, in)
	if err == nil {
		c.invalidate(ctx, servicesCacheKey)
	}
	return s, err
}

func (c *Cache) DeleteService(ctx context.Context, id int64) error {
	err := c.repo.DeleteService(ctx, id)
	if err == nil {
		c.invalidate(ctx, servicesCacheKey)
	}
	return err
}

// ServiceName resolves a service id to its display name via the cached
// service list, matching how listings merge references client side.
func (c *Cache) ServiceName(ctx context.Context, id int64) (string, error) {
	services, err := c.ListServices(ctx)
	if err != nil {
		return "", err
	}
	for _, s := range services {
		if s.ID == id {
			return s.Name, nil
		}
	}
	return "", nil
}

// DoctorRef resolves a doctor id to its display name and specialty.
func (c *Cache) DoctorRef(ctx context.Context, id int64) (string, string, error) {
	doctors, err := c.ListDoctors(ctx)
	if err != nil {
		return "", "", err
	}
	for _, d := range doctors {
		if d.ID == id {
			return d.Name, d.Specialty, nil
		}
	}
	return "", "", fmt.Errorf("catalog: doctor %d: %w", id, ErrNotFound)
}

// readCache reports whether the key was present and decoded. Redis
// failures log and fall through to the repository.
func (c *Cache) readCache(ctx context.Context, key string, dest any) bool {
	if c.redis == nil {
		return false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("catalog cache read failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Warn("catalog cache decode failed", "key", key, "error", err)
		return false
	}
	return true
}

func (c *Cache) writeCache(ctx context.Context, key string, value any) {
	if c.redis == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("catalog cache write failed", "key", key, "error", err)
	}
}

func (c *Cache) invalidate(ctx context.Context, key string) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Del(ctx, key).Err(); err != nil {
		c.logger.Warn("catalog cache invalidation failed", "key", key, "error", err)
	}
}
