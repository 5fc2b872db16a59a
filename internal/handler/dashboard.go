package handler

import (
	"context"
	"net/http"

	"github.com/josh-kwaku/obras-ledger/internal/service"
)

type summaryService interface {
	Summary(ctx context.Context) (*service.Summary, error)
}

type DashboardHandler struct {
	dashboard summaryService
}

func NewDashboardHandler(dashboard summaryService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.dashboard.Summary(r.Context())
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toSummaryDTO(sum))
}
