package orders

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/signcraft-erp/signcraft-erp/internal/costing"
	"github.com/signcraft-erp/signcraft-erp/internal/shared"
	"github.com/signcraft-erp/signcraft-erp/internal/tax"
)

// PaymentSync keeps the auto-managed compensating payment consistent with the
// billing configuration. Implemented by the payments synchronizer.
type PaymentSync interface {
	Sync(ctx context.Context, orderID int64, billingPercent, signageValue float64) error
}

// CostedOrder is the priced output consumed by listing UIs and PDF export.
type CostedOrder struct {
	Order      Order                `json:"order"`
	Totals     costing.Totals       `json:"totals"`
	TaxSplit   map[string]tax.Split `json:"tax_split"`
	OrderTax   tax.Split            `json:"order_tax"`
	InterState bool                 `json:"inter_state"`
}

// Service coordinates costing recomputes and billing configuration edits.
type Service struct {
	repo      Repository
	sync      PaymentSync
	logger    *slog.Logger
	homeState string
}

// NewService builds a Service instance.
func NewService(repo Repository, sync PaymentSync, logger *slog.Logger, homeState string) *Service {
	if homeState == "" {
		homeState = tax.DefaultHomeState
	}
	return &Service{repo: repo, sync: sync, logger: logger, homeState: homeState}
}

// CreateOrder registers a new order with full GST billing.
func (s *Service) CreateOrder(ctx context.Context, customerName, customerGSTIN string, discount float64) (*Order, error) {
	if discount < 0 {
		return nil, fmt.Errorf("%w: discount must not be negative", shared.ErrValidation)
	}
	id, err := s.repo.CreateOrder(ctx, Order{
		CustomerName:  customerName,
		CustomerGSTIN: customerGSTIN,
		Discount:      discount,
		BillingScale:  FullBilling,
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetOrder(ctx, id)
}

// Get returns the order aggregate.
func (s *Service) Get(ctx context.Context, orderID int64) (*Order, error) {
	return s.repo.GetOrder(ctx, orderID)
}

// Costing runs the calculator over the order's current items and lines without
// persisting anything.
func (s *Service) Costing(ctx context.Context, orderID int64) (*CostedOrder, error) {
	order, input, err := s.costingInput(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.cost(order, input), nil
}

// Recompute runs the calculator and refreshes the per-item total caches.
func (s *Service) Recompute(ctx context.Context, orderID int64) (*CostedOrder, error) {
	order, input, err := s.costingInput(ctx, orderID)
	if err != nil {
		return nil, err
	}
	costed := s.cost(order, input)
	for _, it := range costed.Totals.Items {
		if err := s.repo.UpdateItemTotal(ctx, it.ItemID, it.TotalWithMargin); err != nil {
			return nil, fmt.Errorf("refresh item total: %w", err)
		}
	}
	return costed, nil
}

// SetBillingPercent makes the percent representation authoritative and keeps
// the compensating payment in step.
func (s *Service) SetBillingPercent(ctx context.Context, orderID int64, percent float64) (*CostedOrder, error) {
	if percent < 0 || percent > 100 {
		return nil, fmt.Errorf("%w: billing percent must be within [0,100]", shared.ErrValidation)
	}
	return s.applyBilling(ctx, orderID, func(costing.Totals) BillingScale {
		return ScaleFromPercent(percent)
	})
}

// SetBillingAmount makes the absolute amount authoritative; the percent view
// is re-derived from the unscaled order total.
func (s *Service) SetBillingAmount(ctx context.Context, orderID int64, amount float64) (*CostedOrder, error) {
	if amount < 0 {
		return nil, fmt.Errorf("%w: billing amount must not be negative", shared.ErrValidation)
	}
	return s.applyBilling(ctx, orderID, func(t costing.Totals) BillingScale {
		return ScaleFromAmount(amount, t.UnscaledTotal)
	})
}

func (s *Service) applyBilling(ctx context.Context, orderID int64, derive func(costing.Totals) BillingScale) (*CostedOrder, error) {
	order, input, err := s.costingInput(ctx, orderID)
	if err != nil {
		return nil, err
	}

	// Derive the factor against the unscaled totals, then store it.
	input.BillingPercent = nil
	input.BillingAmount = nil
	unscaled := costing.Compute(input)
	scale := derive(unscaled)
	if err := s.repo.UpdateOrderBilling(ctx, orderID, scale); err != nil {
		return nil, err
	}
	order.BillingScale = scale

	costed := s.cost(order, input)
	for _, it := range costed.Totals.Items {
		if err := s.repo.UpdateItemTotal(ctx, it.ItemID, it.TotalWithMargin); err != nil {
			return nil, fmt.Errorf("refresh item total: %w", err)
		}
	}

	if s.sync != nil {
		if err := s.sync.Sync(ctx, orderID, scale.Percent(), unscaled.Total); err != nil {
			return nil, fmt.Errorf("sync compensating payment: %w", err)
		}
	}
	if s.logger != nil {
		s.logger.Info("billing configuration updated",
			slog.Int64("order_id", orderID),
			slog.Float64("billing_percent", scale.Percent()))
	}
	return costed, nil
}

// ReconcileBilling re-runs the compensating-payment sync from the stored
// billing scale. Used by the background sweep to repair drift left by a crash
// between the billing write and the payment write.
func (s *Service) ReconcileBilling(ctx context.Context, orderID int64) error {
	if s.sync == nil {
		return nil
	}
	order, input, err := s.costingInput(ctx, orderID)
	if err != nil {
		return err
	}
	input.BillingPercent = nil
	input.BillingAmount = nil
	unscaled := costing.Compute(input)
	return s.sync.Sync(ctx, orderID, order.BillingScale.Percent(), unscaled.Total)
}

// SetDiscount updates the absolute discount.
func (s *Service) SetDiscount(ctx context.Context, orderID int64, discount float64) (*CostedOrder, error) {
	if discount < 0 {
		return nil, fmt.Errorf("%w: discount must not be negative", shared.ErrValidation)
	}
	if err := s.repo.UpdateOrderDiscount(ctx, orderID, discount); err != nil {
		return nil, err
	}
	return s.Recompute(ctx, orderID)
}

// AddItem creates a signage item and reprices the order.
func (s *Service) AddItem(ctx context.Context, item SignageItem) (*CostedOrder, error) {
	if _, err := s.repo.GetOrder(ctx, item.OrderID); err != nil {
		return nil, err
	}
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	if _, err := s.repo.CreateItem(ctx, item); err != nil {
		return nil, err
	}
	return s.Recompute(ctx, item.OrderID)
}

// UpdateItem rewrites a signage item and reprices the order.
func (s *Service) UpdateItem(ctx context.Context, item SignageItem) (*CostedOrder, error) {
	existing, err := s.repo.GetItem(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	if err := s.repo.UpdateItem(ctx, item); err != nil {
		return nil, err
	}
	return s.Recompute(ctx, existing.OrderID)
}

// DeleteItem removes a signage item. Its BOQ lines are never cascaded; the
// caller must delete or reassign them first.
func (s *Service) DeleteItem(ctx context.Context, itemID int64) (*CostedOrder, error) {
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	lines, err := s.repo.ListLines(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if len(lines) > 0 {
		return nil, fmt.Errorf("%w: item %d still has %d BOQ lines", shared.ErrValidation, itemID, len(lines))
	}
	if err := s.repo.DeleteItem(ctx, itemID); err != nil {
		return nil, err
	}
	return s.Recompute(ctx, item.OrderID)
}

// AddLine creates a BOQ line and reprices the order.
func (s *Service) AddLine(ctx context.Context, line BOQLine) (*CostedOrder, error) {
	item, err := s.repo.GetItem(ctx, line.ItemID)
	if err != nil {
		return nil, err
	}
	if line.Quantity*line.CostPerUnit < 0 {
		return nil, fmt.Errorf("%w: line value must not be negative", shared.ErrValidation)
	}
	if _, err := s.repo.CreateLine(ctx, line); err != nil {
		return nil, err
	}
	return s.Recompute(ctx, item.OrderID)
}

// UpdateLine rewrites a BOQ line and reprices the order.
func (s *Service) UpdateLine(ctx context.Context, itemID int64, line BOQLine) (*CostedOrder, error) {
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if line.Quantity*line.CostPerUnit < 0 {
		return nil, fmt.Errorf("%w: line value must not be negative", shared.ErrValidation)
	}
	line.ItemID = itemID
	if err := s.repo.UpdateLine(ctx, line); err != nil {
		return nil, err
	}
	return s.Recompute(ctx, item.OrderID)
}

// DeleteLine removes a BOQ line and reprices the order.
func (s *Service) DeleteLine(ctx context.Context, itemID, lineID int64) (*CostedOrder, error) {
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteLine(ctx, lineID); err != nil {
		return nil, err
	}
	return s.Recompute(ctx, item.OrderID)
}

// OrderTotals supplies frozen totals for invoice confirmation snapshots.
func (s *Service) OrderTotals(ctx context.Context, orderID int64) (costing.Totals, string, error) {
	order, input, err := s.costingInput(ctx, orderID)
	if err != nil {
		return costing.Totals{}, "", err
	}
	return s.cost(order, input).Totals, order.CustomerGSTIN, nil
}

func (s *Service) costingInput(ctx context.Context, orderID int64) (*Order, costing.Input, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, costing.Input{}, err
	}
	items, err := s.repo.ListItems(ctx, orderID)
	if err != nil {
		return nil, costing.Input{}, err
	}

	in := costing.Input{Discount: order.Discount}
	for _, it := range items {
		lines, err := s.repo.ListLines(ctx, it.ID)
		if err != nil {
			return nil, costing.Input{}, err
		}
		ci := costing.Item{
			ID:            it.ID,
			Name:          it.Name,
			Quantity:      it.Quantity,
			MarginPercent: it.MarginPercent,
			GSTPercent:    it.GSTPercent,
		}
		for _, l := range lines {
			ci.Lines = append(ci.Lines, costing.BOQLine{
				Material:    l.Material,
				Unit:        l.Unit,
				Quantity:    l.Quantity,
				CostPerUnit: l.CostPerUnit,
			})
		}
		in.Items = append(in.Items, ci)
	}
	return order, in, nil
}

func (s *Service) cost(order *Order, input costing.Input) *CostedOrder {
	percent := order.BillingScale.Percent()
	input.BillingPercent = &percent
	input.BillingAmount = nil
	totals := costing.Compute(input)

	orderTax := tax.SplitGST(totals.GST, order.CustomerGSTIN, s.homeState)
	return &CostedOrder{
		Order:      *order,
		Totals:     totals,
		TaxSplit:   tax.SplitSummary(totals.GSTSummary, order.CustomerGSTIN, s.homeState),
		OrderTax:   orderTax,
		InterState: orderTax.IGST != 0,
	}
}
