package middleware

import (
	"context"
	"strings"

	"idlezoo/pkg/errutil"

	"github.com/gin-gonic/gin"
)

const PlayerIDHeader = "X-PLAYER-ID"

type playerKey struct{}

var PlayerContextKey = playerKey{}

// Player resolves the caller from the X-PLAYER-ID header and aborts with 401
// when it is missing.
func Player() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(PlayerIDHeader))
		if id == "" {
			_ = c.Error(errutil.Unauthorized("missing "+PlayerIDHeader+" header", nil))
			c.Abort()
			return
		}

		c.Set(PlayerIDHeader, id)
		c.Request = c.Request.WithContext(WithPlayerID(c.Request.Context(), id))
		c.Next()
	}
}

func WithPlayerID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, PlayerContextKey, id)
}

// PlayerID returns the player resolved by Player, or "".
func PlayerID(ctx context.Context) string {
	id, _ := ctx.Value(PlayerContextKey).(string)
	return id
}
