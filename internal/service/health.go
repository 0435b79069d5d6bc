package service

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/Habibullahdevv/ai-native-book/internal/domain"
)

const healthCheckTimeout = 5 * time.Second

// Health probes every registered dependency. The overall status is healthy
// only when all of them answer.
func (s *Service) Health(ctx context.Context) *domain.HealthResponse {
	resp := &domain.HealthResponse{
		Status:       "healthy",
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Dependencies: make(map[string]string, len(s.checks)),
	}

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		err := s.checks[name](checkCtx)
		cancel()
		if err != nil {
			slog.WarnContext(ctx, "health check failed", "dependency", name, "error", err)
			resp.Dependencies[name] = "unhealthy"
			resp.Status = "degraded"
			continue
		}
		resp.Dependencies[name] = "healthy"
	}

	if s.connections != nil {
		resp.Connections = s.connections()
	}
	return resp
}
