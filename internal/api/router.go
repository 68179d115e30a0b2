package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/rs/zerolog/log"

	"market-data-proxy/internal/market"
	"market-data-proxy/internal/store"
)

var routes = []string{
	"/health",
	"/api/test-connection",
	"/api/historical-data",
	"/api/search-symbol",
	"/api/fetch-log",
}

// RegisterRoutes wires every endpoint. Middleware is installed first so it
// also covers the OPTIONS routes.
func RegisterRoutes(h *server.Hertz, svc *market.Service, conn *market.ConnectionTester, resolver *market.Resolver, st *store.Store, allowedOrigins []string) {
	h.Use(Recovery(), RequestID(), CORS(allowedOrigins))

	for _, path := range routes {
		h.OPTIONS(path, func(_ context.Context, c *app.RequestContext) {
			c.AbortWithStatus(http.StatusNoContent)
		})
	}

	h.GET("/health", func(_ context.Context, c *app.RequestContext) {
		c.JSON(http.StatusOK, map[string]any{
			"status":    "ok",
			"message":   "Market data proxy is running",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	h.POST("/api/test-connection", func(ctx context.Context, c *app.RequestContext) {
		if conn == nil {
			c.JSON(http.StatusInternalServerError, map[string]any{
				"success": false,
				"error":   "connection tester not configured",
			})
			return
		}
		var req market.ConnectionRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   "invalid json body",
			})
			return
		}
		limits, err := conn.Test(ctx, req)
		if err != nil {
			var verr *market.ValidationError
			var aerr *market.UpstreamAuthError
			switch {
			case errors.As(err, &verr):
				c.JSON(http.StatusBadRequest, map[string]any{"success": false, "error": verr.Error()})
			case errors.As(err, &aerr):
				c.JSON(http.StatusUnauthorized, map[string]any{"success": false, "error": aerr.Error()})
			default:
				log.Error().Err(err).Str("request_id", c.GetString(requestIDKey)).Msg("test connection")
				c.JSON(http.StatusInternalServerError, map[string]any{"success": false, "error": err.Error()})
			}
			return
		}
		c.JSON(http.StatusOK, map[string]any{
			"success": true,
			"message": "Connection successful",
			"data": map[string]any{
				"availableBalance": limits.AvailableBalance,
				"sodLimit":         limits.SODLimit,
			},
		})
	})

	h.POST("/api/historical-data", func(ctx context.Context, c *app.RequestContext) {
		if svc == nil {
			c.JSON(http.StatusInternalServerError, map[string]any{
				"success": false,
				"error":   "historical service not configured",
			})
			return
		}
		var req market.FetchRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   "invalid json body",
			})
			return
		}
		req.RequestID = c.GetString(requestIDKey)

		res, err := svc.FetchHistorical(ctx, req)
		if err != nil {
			var verr *market.ValidationError
			if errors.As(err, &verr) {
				c.JSON(http.StatusBadRequest, map[string]any{"success": false, "error": verr.Error()})
				return
			}
			log.Error().Err(err).Str("request_id", req.RequestID).Msg("historical data")
			c.JSON(http.StatusInternalServerError, map[string]any{
				"success": false,
				"error":   fmt.Sprintf("%s: %v", market.ErrorKind(err), err),
			})
			return
		}
		if !res.Success {
			c.JSON(http.StatusNotFound, res)
			return
		}
		c.JSON(http.StatusOK, res)
	})

	h.POST("/api/search-symbol", func(ctx context.Context, c *app.RequestContext) {
		var req market.SearchRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   "invalid json body",
			})
			return
		}
		res, err := resolver.Resolve(ctx, req)
		if err != nil {
			var verr *market.ValidationError
			if errors.As(err, &verr) {
				c.JSON(http.StatusBadRequest, map[string]any{"success": false, "error": verr.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, map[string]any{
				"success": false,
				"error":   fmt.Sprintf("%s: %v", market.ErrorKind(err), err),
			})
			return
		}
		c.JSON(http.StatusOK, res)
	})

	h.GET("/api/fetch-log", func(ctx context.Context, c *app.RequestContext) {
		if st == nil {
			c.JSON(http.StatusInternalServerError, map[string]any{
				"success": false,
				"error":   "store not configured",
			})
			return
		}
		limit, err := parseLimit(c.Query("limit"))
		if err != nil {
			c.JSON(http.StatusBadRequest, map[string]any{"success": false, "error": err.Error()})
			return
		}
		offset, err := parseOffset(c.Query("offset"))
		if err != nil {
			c.JSON(http.StatusBadRequest, map[string]any{"success": false, "error": err.Error()})
			return
		}
		items, err := st.QueryFetchLog(ctx, c.Query("symbol"), limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, map[string]any{"success": false, "error": err.Error()})
			return
		}
		if items == nil {
			items = []store.FetchLogRecord{}
		}
		c.JSON(http.StatusOK, map[string]any{
			"success": true,
			"items":   items,
		})
	})
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 200, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid limit")
	}
	if v > 1000 {
		return 1000, nil
	}
	return v, nil
}

func parseOffset(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid offset")
	}
	return v, nil
}
