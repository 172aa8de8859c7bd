package invoices

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/signcraft-erp/signcraft-erp/internal/costing"
	"github.com/signcraft-erp/signcraft-erp/internal/shared"
)

type memoryInvoiceRepo struct {
	mu       sync.Mutex
	invoices map[int64]*Invoice
	nextID   int64
	// failConfirmWrite simulates a persistence failure after the max read:
	// the whole transition must roll back.
	failConfirmWrite bool
}

func newMemoryInvoiceRepo() *memoryInvoiceRepo {
	return &memoryInvoiceRepo{invoices: make(map[int64]*Invoice)}
}

func (r *memoryInvoiceRepo) Get(ctx context.Context, id int64) (*Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (r *memoryInvoiceRepo) ListByOrder(ctx context.Context, orderID int64) ([]Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Invoice
	for id := int64(1); id <= r.nextID; id++ {
		if inv, ok := r.invoices[id]; ok && inv.OrderID == orderID {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (r *memoryInvoiceRepo) ListConfirmedNumbers(ctx context.Context) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []int64
	for _, inv := range r.invoices {
		if inv.Status == StatusConfirmed && inv.Number != nil {
			out = append(out, *inv.Number)
		}
	}
	return out, nil
}

func (r *memoryInvoiceRepo) FindDraftByOrder(ctx context.Context, orderID int64) (*Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := int64(1); id <= r.nextID; id++ {
		if inv, ok := r.invoices[id]; ok && inv.OrderID == orderID && inv.Status == StatusDraft {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memoryInvoiceRepo) Create(ctx context.Context, inv Invoice) (*Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	inv.ID = r.nextID
	inv.Status = StatusDraft
	inv.CreatedAt = time.Now()
	inv.UpdatedAt = inv.CreatedAt
	r.invoices[inv.ID] = &inv
	cp := inv
	return &cp, nil
}

func (r *memoryInvoiceRepo) UpdateDate(ctx context.Context, id int64, date time.Time, sortOrder int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok || inv.Status != StatusDraft {
		return shared.ErrNotFound
	}
	inv.InvoiceDate = date
	inv.SortOrder = sortOrder
	return nil
}

func (r *memoryInvoiceRepo) Confirm(ctx context.Context, id int64, snapshot json.RawMessage, date time.Time) (*Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok || inv.Status != StatusDraft {
		return nil, shared.ErrNotFound
	}
	var max int64
	for _, other := range r.invoices {
		if other.Status == StatusConfirmed && other.Number != nil && *other.Number > max {
			max = *other.Number
		}
	}
	if r.failConfirmWrite {
		// Nothing committed: both fields or neither.
		return nil, errors.New("write failed")
	}
	number := NextNumber(max)
	inv.Status = StatusConfirmed
	inv.Number = &number
	inv.Snapshot = snapshot
	inv.InvoiceDate = date
	cp := *inv
	return &cp, nil
}

func (r *memoryInvoiceRepo) Revert(ctx context.Context, id int64, draftLabel string) (*Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok || inv.Status != StatusConfirmed {
		return nil, shared.ErrNotFound
	}
	inv.Status = StatusDraft
	inv.Number = nil
	inv.Snapshot = nil
	inv.DraftLabel = draftLabel
	cp := *inv
	return &cp, nil
}

// conflictOnceRepo makes the first confirm lose the numbering race, the way a
// serialization failure surfaces from the database.
type conflictOnceRepo struct {
	*memoryInvoiceRepo
	mu        sync.Mutex
	conflicts int
}

func (r *conflictOnceRepo) Confirm(ctx context.Context, id int64, snapshot json.RawMessage, date time.Time) (*Invoice, error) {
	r.mu.Lock()
	if r.conflicts > 0 {
		r.conflicts--
		r.mu.Unlock()
		return nil, shared.ErrConflict
	}
	r.mu.Unlock()
	return r.memoryInvoiceRepo.Confirm(ctx, id, snapshot, date)
}

type fixedTotals struct {
	totals costing.Totals
	gstin  string
}

func (f fixedTotals) OrderTotals(ctx context.Context, orderID int64) (costing.Totals, string, error) {
	return f.totals, f.gstin, nil
}

type memoryAuditor struct {
	mu   sync.Mutex
	logs []shared.AuditLog
}

func (a *memoryAuditor) Record(ctx context.Context, log shared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, log)
	return nil
}

func sampleTotals() costing.Totals {
	return costing.Totals{
		Total:          220,
		NetTotal:       200,
		GST:            39.6,
		GrandTotal:     239.6,
		UnscaledTotal:  220,
		BillingPercent: 100,
		BillingAmount:  220,
		GSTSummary:     map[string]float64{"18": 39.6},
	}
}

func newTestService(repo Repository) (*Service, *memoryAuditor) {
	audit := &memoryAuditor{}
	svc := NewService(repo, fixedTotals{totals: sampleTotals(), gstin: "29ABCDE1234F1Z5"}, audit, nil, nil, "29")
	return svc, audit
}

func TestEnsureDraftSinglePerOrder(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryInvoiceRepo()
	svc, _ := newTestService(repo)

	a, err := svc.EnsureDraft(ctx, 1, shared.Actor{ID: 1, Name: "asha"})
	require.NoError(t, err)
	b, err := svc.EnsureDraft(ctx, 1, shared.Actor{ID: 1, Name: "asha"})
	require.NoError(t, err)
	require.Equal(t, a.ID, b.ID)

	other, err := svc.EnsureDraft(ctx, 2, shared.Actor{ID: 1, Name: "asha"})
	require.NoError(t, err)
	require.NotEqual(t, a.ID, other.ID)
}

// slowFindRepo widens the gap between the draft lookup and the insert.
type slowFindRepo struct {
	*memoryInvoiceRepo
}

func (r *slowFindRepo) FindDraftByOrder(ctx context.Context, orderID int64) (*Invoice, error) {
	inv, err := r.memoryInvoiceRepo.FindDraftByOrder(ctx, orderID)
	time.Sleep(5 * time.Millisecond)
	return inv, err
}

func TestConcurrentEnsureDraftCreatesOneDraft(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	locker := shared.NewRedisOrderLocker(client, 2*time.Second)

	repo := &slowFindRepo{memoryInvoiceRepo: newMemoryInvoiceRepo()}
	audit := &memoryAuditor{}
	svc := NewService(repo, fixedTotals{totals: sampleTotals(), gstin: "29ABCDE1234F1Z5"}, audit, locker, nil, "29")
	actor := shared.Actor{ID: 1, Name: "asha"}

	const n = 8
	ids := make(chan int64, n)
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inv, err := svc.EnsureDraft(ctx, 1, actor)
			if err != nil {
				errs <- err
				return
			}
			ids <- inv.ID
		}()
	}
	wg.Wait()
	close(errs)
	close(ids)
	for err := range errs {
		require.NoError(t, err)
	}

	var first int64
	for id := range ids {
		if first == 0 {
			first = id
		}
		require.Equal(t, first, id)
	}

	invs, _, err := svc.ListByOrder(ctx, 1)
	require.NoError(t, err)
	require.Len(t, invs, 1)
}

func TestConfirmAssignsSequentialNumbersAndSnapshot(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryInvoiceRepo()
	svc, audit := newTestService(repo)
	actor := shared.Actor{ID: 7, Name: "ravi"}

	for i := int64(1); i <= 3; i++ {
		draft, err := svc.EnsureDraft(ctx, i, actor)
		require.NoError(t, err)
		confirmed, err := svc.Confirm(ctx, draft.ID, actor)
		require.NoError(t, err)
		require.Equal(t, StatusConfirmed, confirmed.Status)
		require.NotNil(t, confirmed.Number)
		require.Equal(t, i, *confirmed.Number)

		var snap Snapshot
		require.NoError(t, json.Unmarshal(confirmed.Snapshot, &snap))
		require.InDelta(t, 239.6, snap.Totals.GrandTotal, 1e-9)
		require.Equal(t, "ravi", snap.ConfirmedBy)
		require.InDelta(t, 19.8, snap.OrderTax.CGST, 1e-9)
		require.InDelta(t, 19.8, snap.TaxSplit["18"].SGST, 1e-9)
	}

	var confirms int
	for _, l := range audit.logs {
		if l.Action == "invoice.confirm" {
			confirms++
			require.Equal(t, actor, l.Actor)
		}
	}
	require.Equal(t, 3, confirms)
}

func TestConfirmRequiresDraft(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryInvoiceRepo()
	svc, _ := newTestService(repo)
	actor := shared.Actor{ID: 1, Name: "asha"}

	draft, _ := svc.EnsureDraft(ctx, 1, actor)
	_, err := svc.Confirm(ctx, draft.ID, actor)
	require.NoError(t, err)

	_, err = svc.Confirm(ctx, draft.ID, actor)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestRevertReleasesNumberNeverReused(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryInvoiceRepo()
	svc, _ := newTestService(repo)
	actor := shared.Actor{ID: 1, Name: "asha"}

	draft, _ := svc.EnsureDraft(ctx, 1, actor)
	confirmed, err := svc.Confirm(ctx, draft.ID, actor)
	require.NoError(t, err)
	first := *confirmed.Number

	reverted, err := svc.Revert(ctx, confirmed.ID, actor)
	require.NoError(t, err)
	require.Equal(t, StatusDraft, reverted.Status)
	require.Nil(t, reverted.Number)
	require.Nil(t, reverted.Snapshot)
	require.Equal(t, "1", reverted.DraftLabel)

	// A later confirm issues a fresh number even though 1 is free again.
	other, _ := svc.EnsureDraft(ctx, 2, actor)
	otherConfirmed, err := svc.Confirm(ctx, other.ID, actor)
	require.NoError(t, err)
	require.Equal(t, first+1, *otherConfirmed.Number)

	again, err := svc.Confirm(ctx, reverted.ID, actor)
	require.NoError(t, err)
	require.Equal(t, first+2, *again.Number)
}

func TestRevertRequiresConfirmed(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryInvoiceRepo()
	svc, _ := newTestService(repo)
	actor := shared.Actor{ID: 1, Name: "asha"}

	draft, _ := svc.EnsureDraft(ctx, 1, actor)
	_, err := svc.Revert(ctx, draft.ID, actor)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestConfirmAtomicOnWriteFailure(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryInvoiceRepo()
	svc, _ := newTestService(repo)
	actor := shared.Actor{ID: 1, Name: "asha"}

	draft, _ := svc.EnsureDraft(ctx, 1, actor)
	repo.failConfirmWrite = true
	_, err := svc.Confirm(ctx, draft.ID, actor)
	require.Error(t, err)

	// No partial state: still a numberless draft without a snapshot.
	inv, err := svc.Get(ctx, draft.ID)
	require.NoError(t, err)
	require.Equal(t, StatusDraft, inv.Status)
	require.Nil(t, inv.Number)
	require.Nil(t, inv.Snapshot)
}

func TestConfirmConflictRetriedByCaller(t *testing.T) {
	ctx := context.Background()
	repo := &conflictOnceRepo{memoryInvoiceRepo: newMemoryInvoiceRepo(), conflicts: 1}
	svc, _ := newTestService(repo)
	actor := shared.Actor{ID: 1, Name: "asha"}

	// Five invoices already confirmed; current max is 5.
	for i := int64(1); i <= 5; i++ {
		draft, _ := svc.EnsureDraft(ctx, i, actor)
		_, err := repo.memoryInvoiceRepo.Confirm(ctx, draft.ID, nil, time.Now())
		require.NoError(t, err)
	}

	draft, _ := svc.EnsureDraft(ctx, 6, actor)
	_, err := svc.Confirm(ctx, draft.ID, actor)
	require.ErrorIs(t, err, shared.ErrConflict)

	// The engine never retried on its own; the caller re-invokes confirm.
	confirmed, err := svc.Confirm(ctx, draft.ID, actor)
	require.NoError(t, err)
	require.Equal(t, int64(6), *confirmed.Number)
}

func TestConcurrentConfirmsAllocateDistinctNumbers(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryInvoiceRepo()
	svc, _ := newTestService(repo)
	actor := shared.Actor{ID: 1, Name: "asha"}

	const n = 10
	ids := make([]int64, n)
	for i := 0; i < n; i++ {
		draft, err := svc.EnsureDraft(ctx, int64(i+1), actor)
		require.NoError(t, err)
		ids[i] = draft.ID
	}

	errs := make(chan error, n)
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(invoiceID int64) {
			defer wg.Done()
			for {
				_, err := svc.Confirm(ctx, invoiceID, actor)
				if errors.Is(err, shared.ErrConflict) {
					continue
				}
				errs <- err
				return
			}
		}(id)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	numbers, err := repo.ListConfirmedNumbers(ctx)
	require.NoError(t, err)
	require.Len(t, numbers, n)
	seen := make(map[int64]bool)
	for _, num := range numbers {
		require.False(t, seen[num], "number %d allocated twice", num)
		require.Positive(t, num)
		require.LessOrEqual(t, num, int64(n))
		seen[num] = true
	}
}

func TestSetDateDraftOnly(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryInvoiceRepo()
	svc, _ := newTestService(repo)
	actor := shared.Actor{ID: 1, Name: "asha"}

	draft, _ := svc.EnsureDraft(ctx, 1, actor)
	moved, err := svc.SetDate(ctx, draft.ID, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), 3)
	require.NoError(t, err)
	require.Equal(t, 3, moved.SortOrder)
	// Re-dating a draft never persists a numeric label.
	require.Empty(t, moved.DraftLabel)
	require.Nil(t, moved.Number)

	_, err = svc.Confirm(ctx, draft.ID, actor)
	require.NoError(t, err)
	_, err = svc.SetDate(ctx, draft.ID, time.Now(), 0)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestListByOrderIncludesPreviews(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryInvoiceRepo()
	svc, _ := newTestService(repo)
	actor := shared.Actor{ID: 1, Name: "asha"}

	confirmedDraft, _ := svc.EnsureDraft(ctx, 1, actor)
	_, err := svc.Confirm(ctx, confirmedDraft.ID, actor)
	require.NoError(t, err)

	// A second draft on the same order (amendment).
	amendment, err := repo.Create(ctx, Invoice{OrderID: 1, InvoiceDate: time.Now()})
	require.NoError(t, err)

	invs, previews, err := svc.ListByOrder(ctx, 1)
	require.NoError(t, err)
	require.Len(t, invs, 2)
	require.Len(t, previews, 1)
	require.Equal(t, amendment.ID, previews[0].InvoiceID)
	require.Equal(t, int64(2), previews[0].Number) // 1 is held by the confirmed invoice

	// Preview is read-only: listing twice yields the same numbers.
	_, again, err := svc.ListByOrder(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, previews, again)
}
