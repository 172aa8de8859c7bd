package invoices

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/signcraft-erp/signcraft-erp/internal/platform/httpx"
	"github.com/signcraft-erp/signcraft-erp/internal/shared"
)

// Handler exposes the invoice lifecycle as JSON endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
	}
}

// Routes mounts the invoice endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/orders/{orderID}/invoices", h.ListByOrder)
	r.Post("/orders/{orderID}/invoices", h.EnsureDraft)
	r.Post("/invoices/{invoiceID}/confirm", h.Confirm)
	r.Post("/invoices/{invoiceID}/revert", h.Revert)
	r.Put("/invoices/{invoiceID}/date", h.SetDate)
}

func (h *Handler) ListByOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := h.pathID(r, "orderID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	invs, previews, err := h.service.ListByOrder(r.Context(), orderID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ListResponse{Invoices: BuildViews(invs, previews)})
}

func (h *Handler) EnsureDraft(w http.ResponseWriter, r *http.Request) {
	orderID, err := h.pathID(r, "orderID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, err := h.decodeActor(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.EnsureDraft(r.Context(), orderID, actor)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	invoiceID, err := h.pathID(r, "invoiceID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, err := h.decodeActor(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.Confirm(r.Context(), invoiceID, actor)
	if err != nil {
		h.logger.Error("confirm invoice failed",
			slog.Int64("invoice_id", invoiceID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) Revert(w http.ResponseWriter, r *http.Request) {
	invoiceID, err := h.pathID(r, "invoiceID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, err := h.decodeActor(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.Revert(r.Context(), invoiceID, actor)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) SetDate(w http.ResponseWriter, r *http.Request) {
	invoiceID, err := h.pathID(r, "invoiceID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req SetDateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", shared.ErrValidation, err))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", shared.ErrValidation, err))
		return
	}
	inv, err := h.service.SetDate(r.Context(), invoiceID, req.InvoiceDate, req.SortOrder)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) decodeActor(r *http.Request) (shared.Actor, error) {
	var req ActorRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		return shared.Actor{}, fmt.Errorf("%w: %s", shared.ErrValidation, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return shared.Actor{}, fmt.Errorf("%w: %s", shared.ErrValidation, err)
	}
	return shared.Actor{ID: req.ActorID, Name: req.ActorName}, nil
}

func (h *Handler) pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", shared.ErrValidation, name)
	}
	return id, nil
}
