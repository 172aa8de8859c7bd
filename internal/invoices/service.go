package invoices

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/signcraft-erp/signcraft-erp/internal/costing"
	"github.com/signcraft-erp/signcraft-erp/internal/shared"
	"github.com/signcraft-erp/signcraft-erp/internal/tax"
)

// TotalsProvider supplies the live costing output frozen into a snapshot at
// confirmation. Implemented by the orders service.
type TotalsProvider interface {
	OrderTotals(ctx context.Context, orderID int64) (costing.Totals, string, error)
}

// Auditor records lifecycle operations with their explicit actor.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service governs the Draft/Confirmed lifecycle.
type Service struct {
	repo      Repository
	totals    TotalsProvider
	audit     Auditor
	locker    shared.OrderLocker
	logger    *slog.Logger
	homeState string
	now       func() time.Time
}

// NewService builds a Service instance. The locker serializes draft creation
// per order; a nil locker skips serialization.
func NewService(repo Repository, totals TotalsProvider, audit Auditor, locker shared.OrderLocker, logger *slog.Logger, homeState string) *Service {
	if homeState == "" {
		homeState = tax.DefaultHomeState
	}
	return &Service{
		repo:      repo,
		totals:    totals,
		audit:     audit,
		locker:    locker,
		logger:    logger,
		homeState: homeState,
		now:       time.Now,
	}
}

// Get returns one invoice.
func (s *Service) Get(ctx context.Context, id int64) (*Invoice, error) {
	return s.repo.Get(ctx, id)
}

// EnsureDraft returns the order's draft invoice, creating one when absent.
// The engine never creates a second concurrent draft for an order: the
// find-then-create pair runs under the per-order advisory lock.
func (s *Service) EnsureDraft(ctx context.Context, orderID int64, actor shared.Actor) (*Invoice, error) {
	var inv *Invoice
	op := func(ctx context.Context) error {
		var err error
		inv, err = s.ensureDraft(ctx, orderID, actor)
		return err
	}
	if s.locker == nil {
		if err := op(ctx); err != nil {
			return nil, err
		}
		return inv, nil
	}
	if err := s.locker.WithOrderLock(ctx, orderID, op); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Service) ensureDraft(ctx context.Context, orderID int64, actor shared.Actor) (*Invoice, error) {
	existing, err := s.repo.FindDraftByOrder(ctx, orderID)
	if err == nil {
		return existing, nil
	}
	if !isNotFound(err) {
		return nil, err
	}

	inv, err := s.repo.Create(ctx, Invoice{
		OrderID:     orderID,
		InvoiceDate: s.now(),
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, actor, "invoice.draft", inv.ID, map[string]any{"order_id": orderID})
	return inv, nil
}

// Confirm transitions a draft to Confirmed: a fresh read of the current
// maximum confirmed number, the +1 assignment and the totals snapshot commit
// atomically. A lost race returns shared.ErrConflict; retrying is the
// caller's decision.
func (s *Service) Confirm(ctx context.Context, invoiceID int64, actor shared.Actor) (*Invoice, error) {
	inv, err := s.repo.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status != StatusDraft {
		return nil, fmt.Errorf("%w: only draft invoices can be confirmed", shared.ErrValidation)
	}

	totals, gstin, err := s.totals.OrderTotals(ctx, inv.OrderID)
	if err != nil {
		return nil, fmt.Errorf("freeze totals: %w", err)
	}
	snapshot, err := json.Marshal(buildSnapshot(totals, gstin, actor, s.homeState, s.now()))
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	date := inv.InvoiceDate
	if date.IsZero() {
		date = s.now()
	}
	confirmed, err := s.repo.Confirm(ctx, invoiceID, snapshot, date)
	if err != nil {
		return nil, err
	}

	s.record(ctx, actor, "invoice.confirm", confirmed.ID, map[string]any{
		"order_id":    confirmed.OrderID,
		"number":      derefNumber(confirmed.Number),
		"grand_total": totals.GrandTotal,
	})
	if s.logger != nil {
		s.logger.Info("invoice confirmed",
			slog.Int64("invoice_id", confirmed.ID),
			slog.Int64("number", derefNumber(confirmed.Number)))
	}
	return confirmed, nil
}

// Revert returns a confirmed invoice to Draft. The number is released, the
// snapshot cleared, and the old number kept only as a preview label; a later
// confirm issues a fresh number.
func (s *Service) Revert(ctx context.Context, invoiceID int64, actor shared.Actor) (*Invoice, error) {
	inv, err := s.repo.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status != StatusConfirmed {
		return nil, fmt.Errorf("%w: only confirmed invoices can be reverted", shared.ErrValidation)
	}

	label := ""
	if inv.Number != nil {
		label = strconv.FormatInt(*inv.Number, 10)
	}
	reverted, err := s.repo.Revert(ctx, invoiceID, label)
	if err != nil {
		return nil, err
	}

	s.record(ctx, actor, "invoice.revert", reverted.ID, map[string]any{
		"order_id":        reverted.OrderID,
		"released_number": label,
	})
	return reverted, nil
}

// SetDate moves a draft's invoice date and advisory sort position. Per the
// confirm-time-assignment rule this never persists a numeric label; previews
// are recomputed from scratch on every listing.
func (s *Service) SetDate(ctx context.Context, invoiceID int64, date time.Time, sortOrder int) (*Invoice, error) {
	inv, err := s.repo.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status != StatusDraft {
		return nil, fmt.Errorf("%w: only draft invoices can be re-dated", shared.ErrValidation)
	}
	if err := s.repo.UpdateDate(ctx, invoiceID, date, sortOrder); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, invoiceID)
}

// ListByOrder returns the order's invoices together with display-only preview
// numbers for its drafts.
func (s *Service) ListByOrder(ctx context.Context, orderID int64) ([]Invoice, []DraftPreview, error) {
	invs, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	confirmed, err := s.repo.ListConfirmedNumbers(ctx)
	if err != nil {
		return nil, nil, err
	}
	var drafts []Invoice
	for _, inv := range invs {
		if inv.Status == StatusDraft {
			drafts = append(drafts, inv)
		}
	}
	return invs, PreviewDraftNumbers(drafts, confirmed), nil
}

func buildSnapshot(totals costing.Totals, gstin string, actor shared.Actor, homeState string, takenAt time.Time) Snapshot {
	return Snapshot{
		Totals:        totals,
		TaxSplit:      tax.SplitSummary(totals.GSTSummary, gstin, homeState),
		OrderTax:      tax.SplitGST(totals.GST, gstin, homeState),
		CustomerGSTIN: gstin,
		ConfirmedBy:   actor.Name,
		TakenAt:       takenAt,
	}
}

func (s *Service) record(ctx context.Context, actor shared.Actor, action string, invoiceID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		Actor:    actor,
		Action:   action,
		Entity:   "invoice",
		EntityID: strconv.FormatInt(invoiceID, 10),
		Meta:     meta,
		At:       s.now(),
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, shared.ErrNotFound)
}

func derefNumber(n *int64) int64 {
	if n == nil {
		return 0
	}
	return *n
}
