package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"mita-backend/internal/errors"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

const healthPingTimeout = 2 * time.Second

// Dependency is one backing service checked by GET /health
type Dependency struct {
	Name  string
	Check func(ctx context.Context) error
}

// DatabaseDependency pings the connection pool behind db
func DatabaseDependency(db *gorm.DB) Dependency {
	return Dependency{Name: "database", Check: func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}}
}

type HealthResponse struct {
	Status     string            `json:"status"`
	Time       string            `json:"time"`
	Components map[string]string `json:"components"`
}

// HealthCheckHandler reports whether every registered dependency answers
type HealthCheckHandler struct {
	deps []Dependency
}

func NewHealthCheckHandler(deps ...Dependency) *HealthCheckHandler {
	return &HealthCheckHandler{deps: deps}
}

// HealthCheck checks the dependencies in order under one shared deadline
// GET /health
func (h *HealthCheckHandler) HealthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthPingTimeout)
	defer cancel()

	components := make(map[string]string, len(h.deps))
	var failures []string
	for _, p := range h.deps {
		if err := p.Check(ctx); err != nil {
			components[p.Name] = "down"
			failures = append(failures, fmt.Sprintf("%s unavailable", p.Name))
			continue
		}
		components[p.Name] = "up"
	}

	if len(failures) > 0 {
		return SendError(c, errors.SystemServiceUnavailable, errors.WithDetails(failures...))
	}
	return c.JSON(http.StatusOK, HealthResponse{
		Status:     "healthy",
		Time:       time.Now().UTC().Format(time.RFC3339),
		Components: components,
	})
}
