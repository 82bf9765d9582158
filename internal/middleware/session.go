package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	SessionCookieName  = "classifieds.sid"
	SessionRedisPrefix = "session:"
	sessionLookupLimit = 2 * time.Second
	userLocal          = "user"
)

// SessionUser is the shape stored in the session under "user".
type SessionUser struct {
	AccountID string `json:"account_id"`
	Role      string `json:"role"`
	City      string `json:"city"`
	Email     string `json:"email"`
}

// ID parses AccountID; uuid.Nil when malformed.
func (u *SessionUser) ID() uuid.UUID {
	id, err := uuid.Parse(u.AccountID)
	if err != nil {
		return uuid.Nil
	}
	return id
}

type sessionData struct {
	User *SessionUser `json:"user"`
}

// SessionStore loads the session written by the auth service from Redis. Cookie "classifieds.sid",
// key prefix "session:". Sessions are read-only here; login and logout happen in the auth service.
func SessionStore(rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(userLocal, nil)
		if u := loadSessionUser(c, rdb); u != nil {
			c.Locals(userLocal, u)
		}
		return c.Next()
	}
}

func loadSessionUser(c *fiber.Ctx, rdb *redis.Client) *SessionUser {
	sessionID := c.Cookies(SessionCookieName)
	// connect-redis cookies look like "s:id.signature"
	if strings.HasPrefix(sessionID, "s:") {
		parts := strings.SplitN(sessionID[2:], ".", 2)
		sessionID = parts[0]
	}
	if sessionID == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), sessionLookupLimit)
	defer cancel()
	b, err := rdb.Get(ctx, SessionRedisPrefix+sessionID).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			Logger(c).Warn().Err(err).Msg("session lookup failed")
		}
		return nil
	}
	var data sessionData
	if err := json.Unmarshal(b, &data); err != nil {
		Logger(c).Warn().Err(err).Msg("malformed session")
		return nil
	}
	if data.User == nil || data.User.ID() == uuid.Nil {
		return nil
	}
	return data.User
}

// GetUser returns the session user from Locals (nil if not logged in).
func GetUser(c *fiber.Ctx) *SessionUser {
	u, _ := c.Locals(userLocal).(*SessionUser)
	return u
}

// SetUser stores u as the session user for the rest of the request.
func SetUser(c *fiber.Ctx, u *SessionUser) {
	c.Locals(userLocal, u)
}
