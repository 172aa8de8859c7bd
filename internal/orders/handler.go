package orders

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

// Handler exposes the order costing surface as JSON endpoints.
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

// Routes mounts the order endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/orders", h.Create)
	r.Get("/orders/{orderID}", h.Get)
	r.Get("/orders/{orderID}/costing", h.Costing)
	r.Put("/orders/{orderID}/billing", h.SetBilling)
	r.Put("/orders/{orderID}/discount", h.SetDiscount)
	r.Post("/orders/{orderID}/items", h.AddItem)
	r.Put("/items/{itemID}", h.UpdateItem)
	r.Delete("/items/{itemID}", h.DeleteItem)
	r.Post("/items/{itemID}/lines", h.AddLine)
	r.Put("/items/{itemID}/lines/{lineID}", h.UpdateLine)
	r.Delete("/items/{itemID}/lines/{lineID}", h.DeleteLine)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	order, err := h.service.CreateOrder(r.Context(), req.CustomerName, req.CustomerGSTIN, req.Discount)
	if err != nil {
		h.logger.Error("create order failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, order)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r, "orderID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) Costing(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r, "orderID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	costed, err := h.service.Costing(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, costed)
}

func (h *Handler) SetBilling(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r, "orderID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req SetBillingRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if (req.Percent == nil) == (req.Amount == nil) {
		httpx.RespondError(w, fmt.Errorf("%w: exactly one of percent or amount is required", shared.ErrValidation))
		return
	}

	var costed *CostedOrder
	if req.Percent != nil {
		costed, err = h.service.SetBillingPercent(r.Context(), id, *req.Percent)
	} else {
		costed, err = h.service.SetBillingAmount(r.Context(), id, *req.Amount)
	}
	if err != nil {
		h.logger.Error("update billing failed", slog.Int64("order_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, costed)
}

func (h *Handler) SetDiscount(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r, "orderID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req SetDiscountRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	costed, err := h.service.SetDiscount(r.Context(), id, req.Discount)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, costed)
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	orderID, err := h.pathID(r, "orderID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req ItemRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	costed, err := h.service.AddItem(r.Context(), SignageItem{
		OrderID:       orderID,
		Name:          req.Name,
		Quantity:      req.Quantity,
		MarginPercent: req.MarginPercent,
		GSTPercent:    req.GSTPercent,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, costed)
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := h.pathID(r, "itemID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req ItemRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	costed, err := h.service.UpdateItem(r.Context(), SignageItem{
		ID:            itemID,
		Name:          req.Name,
		Quantity:      req.Quantity,
		MarginPercent: req.MarginPercent,
		GSTPercent:    req.GSTPercent,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, costed)
}

func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := h.pathID(r, "itemID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	costed, err := h.service.DeleteItem(r.Context(), itemID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, costed)
}

func (h *Handler) AddLine(w http.ResponseWriter, r *http.Request) {
	itemID, err := h.pathID(r, "itemID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req LineRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	costed, err := h.service.AddLine(r.Context(), BOQLine{
		ItemID:      itemID,
		Material:    req.Material,
		Unit:        req.Unit,
		Quantity:    req.Quantity,
		CostPerUnit: req.CostPerUnit,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, costed)
}

func (h *Handler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	itemID, err := h.pathID(r, "itemID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	lineID, err := h.pathID(r, "lineID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req LineRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	costed, err := h.service.UpdateLine(r.Context(), itemID, BOQLine{
		ID:          lineID,
		Material:    req.Material,
		Unit:        req.Unit,
		Quantity:    req.Quantity,
		CostPerUnit: req.CostPerUnit,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, costed)
}

func (h *Handler) DeleteLine(w http.ResponseWriter, r *http.Request) {
	itemID, err := h.pathID(r, "itemID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	lineID, err := h.pathID(r, "lineID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	costed, err := h.service.DeleteLine(r.Context(), itemID, lineID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, costed)
}

func (h *Handler) decode(r *http.Request, target any) error {
	if err := httpx.DecodeJSON(r, target); err != nil {
		return fmt.Errorf("%w: %s", shared.ErrValidation, err)
	}
	if err := h.validate.Struct(target); err != nil {
		return fmt.Errorf("%w: %s", shared.ErrValidation, err)
	}
	return nil
}

func (h *Handler) pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", shared.ErrValidation, name)
	}
	return id, nil
}
