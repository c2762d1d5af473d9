package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// Health reports that the process is up.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// ReadyHandler checks the backing services.  A nil DB (memory store) or
// nil Redis client is skipped.
type ReadyHandler struct {
	DB    Pinger
	Redis redis.UniversalClient
}

// Ready returns 200 when every configured dependency answers a ping and
// 503 with the failing component otherwise.
func (h *ReadyHandler) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	checks := echo.Map{}
	ready := true
	if h.DB != nil {
		checks["database"] = "ok"
		if err := h.DB.PingContext(ctx); err != nil {
			checks["database"] = err.Error()
			ready = false
		}
	}
	if h.Redis != nil {
		checks["redis"] = "ok"
		if err := h.Redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = err.Error()
			ready = false
		}
	}
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, echo.Map{"ready": ready, "checks": checks})
}
