package middleware

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Redis keys for request traffic counters. Exported for the health service and reset handler.
const (
	KeyReqTotal  = "health:classifieds:req_total"
	KeyReqErrors = "health:classifieds:req_errors"
	KeyResTime   = "health:classifieds:res_time_total"
	KeyResCount  = "health:classifieds:res_count"
	KeyStartTime = "health:classifieds:start_time"
	KeyLastReq   = "health:classifieds:last_request"
	KeyErrorLog  = "health:classifieds:error_log"
)

// ErrorLogSize is how many 5xx entries the error log keeps.
const ErrorLogSize = 100

// HealthKeys lists every counter key, for resets.
var HealthKeys = []string{KeyReqTotal, KeyReqErrors, KeyResTime, KeyResCount, KeyStartTime, KeyLastReq, KeyErrorLog}

func skipHealthMarker(path string) bool {
	return path == "/" || path == "/metrics" || strings.HasPrefix(path, "/health") || strings.HasPrefix(path, "/favicon")
}

// HealthMarker records request stats in Redis (skips /, /health*, /metrics, favicon).
// Redis failures never fail the request.
func HealthMarker(rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rdb == nil || skipHealthMarker(c.Path()) {
			return c.Next()
		}

		start := time.Now()
		lastReq, _ := json.Marshal(map[string]interface{}{
			"time":   start.UTC(),
			"ip":     c.IP(),
			"path":   c.OriginalURL(),
			"method": c.Method(),
		})
		// Detached from the request so a client disconnect still counts.
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		pipe := rdb.Pipeline()
		pipe.Set(ctx, KeyLastReq, lastReq, 0)
		pipe.Incr(ctx, KeyReqTotal)
		if _, err := pipe.Exec(ctx); err != nil {
			log.Debug().Err(err).Msg("health marker: redis unavailable")
		}

		err := c.Next()

		status := statusOf(c, err)
		ms := time.Since(start).Milliseconds()
		pipe = rdb.Pipeline()
		pipe.Incr(ctx, KeyResCount)
		pipe.IncrByFloat(ctx, KeyResTime, float64(ms))
		if status >= 500 {
			entry, _ := json.Marshal(map[string]interface{}{
				"time":     time.Now().UTC(),
				"trace_id": GetTraceID(c),
				"method":   c.Method(),
				"path":     c.OriginalURL(),
				"status":   status,
			})
			pipe.Incr(ctx, KeyReqErrors)
			pipe.LPush(ctx, KeyErrorLog, entry)
			pipe.LTrim(ctx, KeyErrorLog, 0, ErrorLogSize-1)
		}
		if _, perr := pipe.Exec(ctx); perr != nil {
			log.Debug().Err(perr).Msg("health marker: redis unavailable")
		}
		return err
	}
}
