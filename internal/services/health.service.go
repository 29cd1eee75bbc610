package services

import (
	"context"

	"github.com/nimasrn/xpensemate/pkg/redis"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthStatus struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// HealthService checks the database and, when configured, Redis.
type HealthService struct {
	db    Pinger
	redis redis.RedisAdapter
}

func NewHealthService(db Pinger, r redis.RedisAdapter) *HealthService {
	return &HealthService{db: db, redis: r}
}

func (s *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{Status: "healthy", Services: map[string]string{}}

	if err := s.db.Ping(ctx); err != nil {
		status.Status = "unhealthy"
		status.Services["database"] = "unhealthy: " + err.Error()
	} else {
		status.Services["database"] = "healthy"
	}

	if s.redis != nil {
		if err := s.redis.Ping(ctx); err != nil {
			status.Status = "unhealthy"
			status.Services["redis"] = "unhealthy: " + err.Error()
		} else {
			status.Services["redis"] = "healthy"
		}
	}
	return status
}
