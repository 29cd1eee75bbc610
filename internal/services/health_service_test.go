package services

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/nimasrn/xpensemate/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthService_DatabaseOnly(t *testing.T) {
	l := setupLedger(t)

	status := NewHealthService(l.db, nil).Check(context.Background())

	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, map[string]string{"database": "healthy"}, status.Services)
}

func TestHealthService_WithRedis(t *testing.T) {
	l := setupLedger(t)
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	svc := NewHealthService(l.db, redis.NewFromClient(client, "xm:"))

	status := svc.Check(context.Background())
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "healthy", status.Services["redis"])

	mr.Close()
	status = svc.Check(context.Background())
	assert.Equal(t, "unhealthy", status.Status)
	assert.Contains(t, status.Services["redis"], "unhealthy")
}

func TestHealthService_DatabaseDown(t *testing.T) {
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	status := NewHealthService(down, nil).Check(context.Background())

	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, "unhealthy: connection refused", status.Services["database"])
}
