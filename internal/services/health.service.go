package services

import (
	"context"
	"time"

	"github.com/nimasrn/dues-ledger/internal/model"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthService struct {
	checks map[string]Pinger
}

func NewHealthService(checks map[string]Pinger) *HealthService {
	return &HealthService{checks: checks}
}

func (s *HealthService) Check(ctx context.Context) *model.HealthStatus {
	status := &model.HealthStatus{
		Status:    "ok",
		Checks:    make(map[string]string, len(s.checks)),
		CheckedAt: time.Now().UTC(),
	}
	for name, p := range s.checks {
		if err := p.Ping(ctx); err != nil {
			status.Status = "degraded"
			status.Checks[name] = err.Error()
			continue
		}
		status.Checks[name] = "ok"
	}
	return status
}
