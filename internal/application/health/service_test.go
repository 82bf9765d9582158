package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"classifieds-backend/internal/infrastructure/database/dbtest"
	"classifieds-backend/internal/middleware"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenDB struct{}

func (brokenDB) PingContext(context.Context) error { return errors.New("connection refused") }

type queue struct{ pending, capacity int }

func (q queue) Pending() int  { return q.pending }
func (q queue) Capacity() int { return q.capacity }

func newRedis(t *testing.T) *redis.Client {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return rdb
}

func TestCollect_NothingConfigured(t *testing.T) {
	result := (&Collector{}).Collect(context.Background())
	assert.Equal(t, "issue", result.Status)
	assert.Equal(t, "disconnected", result.Dependencies["database"].Status)
	assert.Equal(t, "disconnected", result.Dependencies["redis"].Status)
	assert.Equal(t, 0, result.Traffic.TotalRequests)
	assert.Nil(t, result.Events)
}

func TestCollect_HealthyWithTraffic(t *testing.T) {
	rdb := newRedis(t)
	ctx := context.Background()
	now := time.UnixMilli(1_000_000 + 90_000)

	require.NoError(t, rdb.Set(ctx, middleware.KeyReqTotal, "10", 0).Err())
	require.NoError(t, rdb.Set(ctx, middleware.KeyReqErrors, "2", 0).Err())
	require.NoError(t, rdb.Set(ctx, middleware.KeyResTime, "150.5", 0).Err())
	require.NoError(t, rdb.Set(ctx, middleware.KeyResCount, "10", 0).Err())
	require.NoError(t, rdb.Set(ctx, middleware.KeyStartTime, "1000000", 0).Err())
	require.NoError(t, rdb.Set(ctx, middleware.KeyLastReq, `{"path":"/api/v1/listings"}`, 0).Err())

	c := &Collector{
		Redis:  rdb,
		DB:     GormPinger{DB: dbtest.Open(t)},
		Events: queue{pending: 3, capacity: 256},
		Now:    func() time.Time { return now },
	}
	result := c.Collect(ctx)

	assert.Equal(t, "ok", result.Status)
	assert.Equal(t, "connected", result.Dependencies["database"].Status)
	assert.NotNil(t, result.Dependencies["database"].PingMs)
	assert.Equal(t, 10, result.Traffic.TotalRequests)
	assert.Equal(t, 2, result.Traffic.FailedCount)
	assert.Equal(t, 8, result.Traffic.SuccessCount)
	assert.Equal(t, "80.0", result.Traffic.SuccessRate)
	assert.Equal(t, "15.05", result.Traffic.AvgResponseTime)
	assert.Equal(t, map[string]interface{}{"path": "/api/v1/listings"}, result.Traffic.LastRequest)
	assert.Equal(t, int64(90), result.Runtime.UptimeSeconds)
	require.NotNil(t, result.Events)
	assert.Equal(t, 3, result.Events.Pending)
}

func TestCollect_DatabaseDown(t *testing.T) {
	result := (&Collector{Redis: newRedis(t), DB: brokenDB{}}).Collect(context.Background())
	assert.Equal(t, "issue", result.Status)
	assert.Equal(t, "error", result.Dependencies["database"].Status)
	assert.Nil(t, result.Dependencies["database"].PingMs)
}

func TestReset_ClearsCountersAndRestartsClock(t *testing.T) {
	rdb := newRedis(t)
	ctx := context.Background()
	require.NoError(t, rdb.Set(ctx, middleware.KeyReqTotal, "5", 0).Err())
	require.NoError(t, rdb.LPush(ctx, middleware.KeyErrorLog, `{"status":500}`).Err())

	c := &Collector{Redis: rdb, Now: func() time.Time { return time.UnixMilli(42_000) }}
	require.NoError(t, c.Reset(ctx))

	assert.ErrorIs(t, rdb.Get(ctx, middleware.KeyReqTotal).Err(), redis.Nil)
	start, err := rdb.Get(ctx, middleware.KeyStartTime).Result()
	require.NoError(t, err)
	assert.Equal(t, "42000", start)
	errs, err := c.RecentErrors(ctx, 50)
	require.NoError(t, err)
	assert.Empty(t, errs)
}

func TestRecentErrors_NewestFirstAndLimited(t *testing.T) {
	rdb := newRedis(t)
	ctx := context.Background()
	for _, e := range []string{`{"n":1}`, `{"n":2}`, "garbage", `{"n":3}`} {
		require.NoError(t, rdb.LPush(ctx, middleware.KeyErrorLog, e).Err())
	}
	c := &Collector{Redis: rdb}

	errs, err := c.RecentErrors(ctx, 2)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, float64(3), errs[0]["n"])

	errs, err = c.RecentErrors(ctx, 50)
	require.NoError(t, err)
	assert.Len(t, errs, 3)
}
