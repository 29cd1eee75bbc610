package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/nimasrn/xpensemate/internal/services"
	xhttp "github.com/nimasrn/xpensemate/pkg/http"
)

type HealthService interface {
	Check(ctx context.Context) services.HealthStatus
}

type HealthHandler struct {
	svc HealthService
}

func RegisterHealthRoutes(r *router.Router, h *HealthHandler) {
	r.GET("/health", h.GetHealth)
}

func NewHealthHandler(svc HealthService) *HealthHandler {
	return &HealthHandler{
		svc: svc,
	}
}

func (h *HealthHandler) GetHealth(ctx *xhttp.RequestCtx) {
	status := h.svc.Check(ctx)
	code := xhttp.StatusOK
	if status.Status != "healthy" {
		code = xhttp.StatusServiceUnavailable
	}
	writeJSON(ctx, code, status)
}
