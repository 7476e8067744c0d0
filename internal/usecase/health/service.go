// Package health aggregates readiness of the service's dependencies.
package health

import (
	"context"

	"github.com/docsage/docsage/internal/domain"
)

// Status values reported per component.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusDown     = "down"
)

// pinger checks storage connectivity.
type pinger interface {
	Ping(ctx context.Context) error
}

// Report is the aggregate health of the service.
type Report struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Strategy  string            `json:"embedding_strategy"`
	Degraded  bool              `json:"-"`
	StoreDown bool              `json:"-"`
}

// Service checks the store and the embedding provider.
type Service struct {
	store    pinger
	embedder domain.HealthChecker
	strategy string
}

// New creates a health service. A nil embedder means the synthetic strategy
// is active and embedding health is unconditionally ok.
func New(store pinger, embedder domain.HealthChecker, strategy string) *Service {
	return &Service{store: store, embedder: embedder, strategy: strategy}
}

// Check pings every dependency. Storage failure makes the service down;
// an unhealthy embedding provider only degrades it, since the synthetic
// fallback keeps requests flowing.
func (s *Service) Check(ctx context.Context) Report {
	r := Report{
		Status:   StatusOK,
		Checks:   map[string]string{"storage": StatusOK, "embedding": StatusOK},
		Strategy: s.strategy,
	}

	if err := s.store.Ping(ctx); err != nil {
		r.Checks["storage"] = StatusDown
		r.Status = StatusDown
		r.StoreDown = true
	}

	if s.embedder != nil {
		if err := s.embedder.HealthCheck(ctx); err != nil {
			r.Checks["embedding"] = StatusDegraded
			r.Degraded = true
			if r.Status == StatusOK {
				r.Status = StatusDegraded
			}
		}
	}
	return r
}
