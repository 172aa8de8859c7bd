package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/signcraft-erp/signcraft-erp/internal/shared"
)

// Synchronizer keeps each order's compensating payment in step with its
// billing percentage. When part of an order is billed outside GST, the
// unbilled remainder is represented as a single auto-managed payment so the
// order's receivable position stays truthful.
type Synchronizer struct {
	repo   Repository
	locker shared.OrderLocker
	logger *slog.Logger
	now    func() time.Time
}

// NewSynchronizer constructs a synchronizer.
func NewSynchronizer(repo Repository, locker shared.OrderLocker, logger *slog.Logger) *Synchronizer {
	return &Synchronizer{repo: repo, locker: locker, logger: logger, now: time.Now}
}

// Sync reconciles the compensating payment for one order. signageValue is the
// order's unscaled grand total and billingPercent the share billed under GST.
// Concurrent calls for the same order are serialized through the locker so
// the marker row is upserted or deleted exactly once per settled state.
func (s *Synchronizer) Sync(ctx context.Context, orderID int64, billingPercent, signageValue float64) error {
	return s.locker.WithOrderLock(ctx, orderID, func(ctx context.Context) error {
		return s.apply(ctx, orderID, billingPercent, signageValue)
	})
}

func (s *Synchronizer) apply(ctx context.Context, orderID int64, billingPercent, signageValue float64) error {
	nonGST := signageValue * (1 - billingPercent/100)

	existing, err := s.repo.FindByMarker(ctx, orderID, CompensationMarker)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("payments: sync order %d: %w", orderID, err)
	}

	if billingPercent >= 100 || nonGST <= 0 {
		if existing == nil {
			return nil
		}
		if err := s.repo.Delete(ctx, existing.ID); err != nil {
			return fmt.Errorf("payments: sync order %d: %w", orderID, err)
		}
		s.logger.Info("compensating payment removed", "order_id", orderID, "payment_id", existing.ID)
		return nil
	}

	if existing == nil {
		created, err := s.repo.Create(ctx, Payment{
			OrderID: orderID,
			Number:  "PAY-" + uuid.NewString(),
			Amount:  nonGST,
			Method:  "adjustment",
			Note:    "Non-GST billed portion",
			Marker:  CompensationMarker,
			PaidAt:  s.now(),
		})
		if err != nil {
			return fmt.Errorf("payments: sync order %d: %w", orderID, err)
		}
		s.logger.Info("compensating payment created",
			"order_id", orderID, "payment_id", created.ID, "amount", nonGST)
		return nil
	}

	if existing.Amount == nonGST {
		return nil
	}
	if err := s.repo.UpdateAmount(ctx, existing.ID, nonGST); err != nil {
		return fmt.Errorf("payments: sync order %d: %w", orderID, err)
	}
	s.logger.Info("compensating payment adjusted",
		"order_id", orderID, "payment_id", existing.ID, "amount", nonGST)
	return nil
}
