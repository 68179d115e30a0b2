package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/middlewares/server/recovery"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// CORS answers preflight with 204 for every route and echoes allowed origins.
func CORS(allowedOrigins []string) app.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	wildcard := false
	for _, o := range allowedOrigins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			wildcard = true
			continue
		}
		if o != "" {
			allowed[o] = struct{}{}
		}
	}
	return func(ctx context.Context, c *app.RequestContext) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			_, ok := allowed[origin]
			if ok || wildcard {
				c.Response.Header.Set("Access-Control-Allow-Origin", origin)
				c.Response.Header.Set("Access-Control-Allow-Credentials", "true")
				c.Response.Header.Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
				c.Response.Header.Set("Access-Control-Allow-Headers", "Content-Type,"+requestIDHeader)
				c.Response.Header.Set("Access-Control-Expose-Headers", requestIDHeader)
			}
			c.Response.Header.Add("Vary", "Origin")
		}
		if string(c.Method()) == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next(ctx)
	}
}

// RequestID tags the request and response with a correlation id.
func RequestID() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		id := strings.TrimSpace(c.Request.Header.Get(requestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Response.Header.Set(requestIDHeader, id)
		c.Next(ctx)
	}
}

// Recovery turns a handler panic into the 500 error envelope.
func Recovery() app.HandlerFunc {
	return recovery.Recovery(recovery.WithRecoveryHandler(
		func(ctx context.Context, c *app.RequestContext, err interface{}, stack []byte) {
			log.Error().
				Str("request_id", c.GetString(requestIDKey)).
				Str("path", string(c.Path())).
				Interface("panic", err).
				Bytes("stack", stack).
				Msg("handler panic")
			c.JSON(http.StatusInternalServerError, map[string]any{
				"success": false,
				"error":   fmt.Sprintf("panic: %v", err),
			})
			c.Abort()
		},
	))
}
