package health

import (
	"context"
	"encoding/json"
	"runtime"
	"strconv"
	"time"

	"classifieds-backend/internal/middleware"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const pingTimeout = 2 * time.Second

// DBPinger is optional for health check. If nil, database is reported as disconnected.
type DBPinger interface {
	PingContext(ctx context.Context) error
}

// GormPinger pings the connection pool behind a gorm handle.
type GormPinger struct {
	DB *gorm.DB
}

func (p GormPinger) PingContext(ctx context.Context) error {
	sqlDB, err := p.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// QueueReporter exposes outbound event queue depth.
type QueueReporter interface {
	Pending() int
	Capacity() int
}

// CollectResult is the /health/json body minus the service name.
type CollectResult struct {
	Status       string               `json:"status"`
	Runtime      RuntimeInfo          `json:"runtime"`
	Traffic      TrafficInfo          `json:"traffic"`
	Dependencies map[string]DepStatus `json:"dependencies"`
	Events       *QueueInfo           `json:"events,omitempty"`
}

type RuntimeInfo struct {
	UptimeSeconds int64      `json:"uptimeSeconds"`
	Memory        MemoryInfo `json:"memory"`
	Goroutines    int        `json:"goroutines"`
	Platform      string     `json:"platform"`
	GoVersion     string     `json:"goVersion"`
}

type MemoryInfo struct {
	AllocMB  int `json:"allocMb"`
	HeapInMB int `json:"heapInUseMb"`
}

type TrafficInfo struct {
	TotalRequests   int         `json:"totalRequests"`
	SuccessCount    int         `json:"successCount"`
	FailedCount     int         `json:"failedCount"`
	SuccessRate     string      `json:"successRate"`
	AvgResponseTime interface{} `json:"avgResponseTime"`
	LastRequest     interface{} `json:"lastRequest"`
}

type DepStatus struct {
	Status string `json:"status"`
	PingMs *int64 `json:"pingMs"`
}

type QueueInfo struct {
	Pending  int `json:"pending"`
	Capacity int `json:"capacity"`
}

// Collector gathers health from the database, Redis traffic counters and the event queue.
type Collector struct {
	Redis  *redis.Client
	DB     DBPinger
	Events QueueReporter
	Now    func() time.Time
}

func (c *Collector) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func ping(ctx context.Context, fn func(context.Context) error) DepStatus {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	start := time.Now()
	if err := fn(ctx); err != nil {
		return DepStatus{Status: "error"}
	}
	ms := time.Since(start).Milliseconds()
	return DepStatus{Status: "connected", PingMs: &ms}
}

// Collect reports "ok" only when both the database and Redis answer.
func (c *Collector) Collect(ctx context.Context) CollectResult {
	result := CollectResult{Dependencies: make(map[string]DepStatus)}
	nowMs := c.now().UnixMilli()
	startTimeMs := nowMs

	db := DepStatus{Status: "disconnected"}
	if c.DB != nil {
		db = ping(ctx, c.DB.PingContext)
	}
	result.Dependencies["database"] = db

	rds := DepStatus{Status: "disconnected"}
	traffic := TrafficInfo{AvgResponseTime: 0, SuccessRate: "100"}
	if c.Redis != nil {
		rds = ping(ctx, func(ctx context.Context) error { return c.Redis.Ping(ctx).Err() })
		if rds.Status == "connected" {
			startTimeMs = c.readTraffic(ctx, &traffic, nowMs)
		}
	}
	result.Dependencies["redis"] = rds
	result.Traffic = traffic

	if c.Events != nil {
		result.Events = &QueueInfo{Pending: c.Events.Pending(), Capacity: c.Events.Capacity()}
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	uptimeSec := (nowMs - startTimeMs) / 1000
	if uptimeSec < 0 {
		uptimeSec = 0
	}
	result.Runtime = RuntimeInfo{
		UptimeSeconds: uptimeSec,
		Memory:        MemoryInfo{AllocMB: int(m.Alloc / 1024 / 1024), HeapInMB: int(m.HeapInuse / 1024 / 1024)},
		Goroutines:    runtime.NumGoroutine(),
		Platform:      runtime.GOOS + " (" + runtime.GOARCH + ")",
		GoVersion:     runtime.Version(),
	}

	if db.Status == "connected" && rds.Status == "connected" {
		result.Status = "ok"
	} else {
		result.Status = "issue"
	}
	return result
}

// readTraffic fills stats from the HealthMarker counters and returns the recorded start time.
func (c *Collector) readTraffic(ctx context.Context, stats *TrafficInfo, nowMs int64) int64 {
	vals, err := c.Redis.MGet(ctx,
		middleware.KeyReqTotal, middleware.KeyReqErrors, middleware.KeyResTime,
		middleware.KeyResCount, middleware.KeyStartTime, middleware.KeyLastReq,
	).Result()
	if err != nil || len(vals) != 6 {
		return nowMs
	}
	str := func(i int) string {
		s, _ := vals[i].(string)
		return s
	}

	startTimeMs := nowMs
	if t, err := strconv.ParseInt(str(4), 10, 64); err == nil {
		startTimeMs = t
	} else {
		c.Redis.SetNX(ctx, middleware.KeyStartTime, nowMs, 0)
	}

	stats.TotalRequests, _ = strconv.Atoi(str(0))
	stats.FailedCount, _ = strconv.Atoi(str(1))
	stats.SuccessCount = stats.TotalRequests - stats.FailedCount
	if stats.TotalRequests > 0 {
		stats.SuccessRate = strconv.FormatFloat(float64(stats.SuccessCount)/float64(stats.TotalRequests)*100, 'f', 1, 64)
	}
	timeSum, _ := strconv.ParseFloat(str(2), 64)
	countSum, _ := strconv.Atoi(str(3))
	if countSum > 0 {
		stats.AvgResponseTime = strconv.FormatFloat(timeSum/float64(countSum), 'f', 2, 64)
	}
	if raw := str(5); raw != "" {
		var lastReq map[string]interface{}
		if json.Unmarshal([]byte(raw), &lastReq) == nil {
			stats.LastRequest = lastReq
		}
	}
	return startTimeMs
}

// Reset clears the traffic counters and restarts the uptime clock.
func (c *Collector) Reset(ctx context.Context) error {
	if err := c.Redis.Del(ctx, middleware.HealthKeys...).Err(); err != nil {
		return err
	}
	return c.Redis.Set(ctx, middleware.KeyStartTime, strconv.FormatInt(c.now().UnixMilli(), 10), 0).Err()
}

// RecentErrors returns up to limit 5xx entries, newest first.
func (c *Collector) RecentErrors(ctx context.Context, limit int) ([]map[string]interface{}, error) {
	entries, err := c.Redis.LRange(ctx, middleware.KeyErrorLog, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]map[string]interface{}, 0, len(entries))
	for _, s := range entries {
		var m map[string]interface{}
		if json.Unmarshal([]byte(s), &m) == nil {
			out = append(out, m)
		}
	}
	return out, nil
}
