package payments

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/signcraft-erp/signcraft-erp/internal/platform/httpx"
	"github.com/signcraft-erp/signcraft-erp/internal/shared"
)

// Handler exposes a read-only payments listing. Writes go through the
// synchronizer; manual payment entry is out of scope for this surface.
type Handler struct {
	logger *slog.Logger
	repo   Repository
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, repo Repository) *Handler {
	return &Handler{logger: logger, repo: repo}
}

// Routes mounts the payment endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/orders/{orderID}/payments", h.ListByOrder)
}

func (h *Handler) ListByOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil || orderID <= 0 {
		httpx.RespondError(w, fmt.Errorf("%w: invalid orderID", shared.ErrValidation))
		return
	}
	list, err := h.repo.ListByOrder(r.Context(), orderID)
	if err != nil {
		h.logger.Error("list payments failed", slog.Int64("order_id", orderID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"payments": list})
}
