package handlers

import (
	"context"

	"github.com/fasthttp/router"

	"github.com/nimasrn/dues-ledger/internal/model"
	xhttp "github.com/nimasrn/dues-ledger/pkg/http"
)

type HealthService interface {
	Check(ctx context.Context) *model.HealthStatus
}

type HealthHandler struct {
	svc HealthService
}

func RegisterHealthRoutes(e *router.Group, h *HealthHandler) {
	e.GET("/health", h.GetHealth)
}

func NewHealthHandler(svc HealthService) *HealthHandler {
	return &HealthHandler{svc: svc}
}

func (h *HealthHandler) GetHealth(ctx *xhttp.RequestCtx) {
	status := h.svc.Check(ctx)
	code := xhttp.StatusOK
	if status.Status != "ok" {
		code = xhttp.StatusServiceUnavailable
	}
	writeJSON(ctx, code, status)
}
