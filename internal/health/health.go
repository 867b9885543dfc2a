package health

import (
	"context"
	"time"
)

// Pinger is satisfied by *pgxpool.Pool
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthChecker struct {
	db Pinger
	// redis reports whether the optional cache is reachable; nil when Redis is not configured
	redis func() bool
}

type HealthStatus struct {
	Status   string           `json:"status"`
	Database ComponentHealth  `json:"database"`
	Redis    *ComponentHealth `json:"redis,omitempty"`
}

type ComponentHealth struct {
	Status       string `json:"status"`
	ResponseTime int64  `json:"response_time_ms"`
}

func NewHealthChecker(db Pinger, redis func() bool) *HealthChecker {
	return &HealthChecker{db: db, redis: redis}
}

// CheckBasic pings Postgres and, if configured, Redis. Only the database decides readiness:
// without Redis the service falls back to in-process locks and no cache.
func (h *HealthChecker) CheckBasic() HealthStatus {
	dbHealth := h.checkDatabase()

	status := "healthy"
	if dbHealth.Status != "healthy" {
		status = "unhealthy"
	}

	out := HealthStatus{
		Status:   status,
		Database: dbHealth,
	}
	if h.redis != nil {
		start := time.Now()
		rh := ComponentHealth{Status: "healthy"}
		if !h.redis() {
			rh.Status = "degraded"
		}
		rh.ResponseTime = time.Since(start).Milliseconds()
		out.Redis = &rh
	}
	return out
}

func (h *HealthChecker) checkDatabase() ComponentHealth {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	err := h.db.Ping(ctx)
	responseTime := time.Since(start).Milliseconds()

	if err != nil {
		return ComponentHealth{
			Status:       "unhealthy",
			ResponseTime: responseTime,
		}
	}

	return ComponentHealth{
		Status:       "healthy",
		ResponseTime: responseTime,
	}
}
