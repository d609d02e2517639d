package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PoolStats represents database connection pool statistics.
type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
}

// GetPoolStats returns connection pool statistics.
func GetPoolStats(pool *pgxpool.Pool) *PoolStats {
	stat := pool.Stat()
	return &PoolStats{
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration().String(),
	}
}

// Check is one dependency probed by the health endpoint.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
	// Details, when set, is reported alongside the probe result.
	Details func() any
}

// PoolCheck probes a pgx pool.
func PoolCheck(pool *pgxpool.Pool) Check {
	return Check{
		Name:    "database",
		Probe:   pool.Ping,
		Details: func() any { return GetPoolStats(pool) },
	}
}

// HealthHandler runs every check with a shared timeout. Any failing check
// turns the response into a 503.
func HealthHandler(checks ...Check) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		status := http.StatusOK
		results := map[string]any{}
		for _, check := range checks {
			result := map[string]any{"status": "healthy"}
			if err := check.Probe(ctx); err != nil {
				status = http.StatusServiceUnavailable
				result["status"] = "unhealthy"
				result["error"] = err.Error()
			}
			if check.Details != nil {
				result["details"] = check.Details()
			}
			results[check.Name] = result
		}

		overall := "healthy"
		if status != http.StatusOK {
			overall = "unhealthy"
		}
		return c.JSON(status, map[string]any{
			"status": overall,
			"checks": results,
		})
	}
}
