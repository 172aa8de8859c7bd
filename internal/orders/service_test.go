package orders

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/signcraft-erp/signcraft-erp/internal/shared"
)

type memoryOrderRepo struct {
	orders     map[int64]*Order
	items      map[int64]*SignageItem
	lines      map[int64]*BOQLine
	nextOrder  int64
	nextItem   int64
	nextLine   int64
	itemTotals map[int64]float64
}

func newMemoryOrderRepo() *memoryOrderRepo {
	return &memoryOrderRepo{
		orders:     make(map[int64]*Order),
		items:      make(map[int64]*SignageItem),
		lines:      make(map[int64]*BOQLine),
		itemTotals: make(map[int64]float64),
	}
}

func (r *memoryOrderRepo) CreateOrder(ctx context.Context, o Order) (int64, error) {
	r.nextOrder++
	o.ID = r.nextOrder
	r.orders[o.ID] = &o
	return o.ID, nil
}

func (r *memoryOrderRepo) GetOrder(ctx context.Context, id int64) (*Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *memoryOrderRepo) UpdateOrderBilling(ctx context.Context, id int64, scale BillingScale) error {
	o, ok := r.orders[id]
	if !ok {
		return shared.ErrNotFound
	}
	o.BillingScale = scale
	return nil
}

func (r *memoryOrderRepo) UpdateOrderDiscount(ctx context.Context, id int64, discount float64) error {
	o, ok := r.orders[id]
	if !ok {
		return shared.ErrNotFound
	}
	o.Discount = discount
	return nil
}

func (r *memoryOrderRepo) ListItems(ctx context.Context, orderID int64) ([]SignageItem, error) {
	var out []SignageItem
	for id := int64(1); id <= r.nextItem; id++ {
		if it, ok := r.items[id]; ok && it.OrderID == orderID {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (r *memoryOrderRepo) GetItem(ctx context.Context, id int64) (*SignageItem, error) {
	it, ok := r.items[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *it
	return &cp, nil
}

func (r *memoryOrderRepo) CreateItem(ctx context.Context, item SignageItem) (int64, error) {
	r.nextItem++
	item.ID = r.nextItem
	r.items[item.ID] = &item
	return item.ID, nil
}

func (r *memoryOrderRepo) UpdateItem(ctx context.Context, item SignageItem) error {
	existing, ok := r.items[item.ID]
	if !ok {
		return shared.ErrNotFound
	}
	item.OrderID = existing.OrderID
	r.items[item.ID] = &item
	return nil
}

func (r *memoryOrderRepo) UpdateItemTotal(ctx context.Context, itemID int64, totalWithMargin float64) error {
	if it, ok := r.items[itemID]; ok {
		v := totalWithMargin
		it.TotalWithMargin = &v
	}
	r.itemTotals[itemID] = totalWithMargin
	return nil
}

func (r *memoryOrderRepo) DeleteItem(ctx context.Context, id int64) error {
	if _, ok := r.items[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *memoryOrderRepo) ListLines(ctx context.Context, itemID int64) ([]BOQLine, error) {
	var out []BOQLine
	for id := int64(1); id <= r.nextLine; id++ {
		if l, ok := r.lines[id]; ok && l.ItemID == itemID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (r *memoryOrderRepo) CreateLine(ctx context.Context, line BOQLine) (int64, error) {
	r.nextLine++
	line.ID = r.nextLine
	r.lines[line.ID] = &line
	return line.ID, nil
}

func (r *memoryOrderRepo) UpdateLine(ctx context.Context, line BOQLine) error {
	existing, ok := r.lines[line.ID]
	if !ok {
		return shared.ErrNotFound
	}
	line.ItemID = existing.ItemID
	r.lines[line.ID] = &line
	return nil
}

func (r *memoryOrderRepo) DeleteLine(ctx context.Context, id int64) error {
	if _, ok := r.lines[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.lines, id)
	return nil
}

type recordingSync struct {
	calls []syncCall
}

type syncCall struct {
	orderID      int64
	percent      float64
	signageValue float64
}

func (s *recordingSync) Sync(ctx context.Context, orderID int64, billingPercent, signageValue float64) error {
	s.calls = append(s.calls, syncCall{orderID, billingPercent, signageValue})
	return nil
}

func seedOrder(t *testing.T, svc *Service) *Order {
	t.Helper()
	order, err := svc.CreateOrder(context.Background(), "Prestige Signage", "29ABCDE1234F1Z5", 0)
	require.NoError(t, err)
	return order
}

func TestCreateOrderDefaultsToFullBilling(t *testing.T) {
	svc := NewService(newMemoryOrderRepo(), nil, nil, "")
	order := seedOrder(t, svc)
	require.Equal(t, FullBilling, order.BillingScale)
	require.Equal(t, 100.0, order.BillingScale.Percent())
}

func TestCreateOrderRejectsNegativeDiscount(t *testing.T) {
	svc := NewService(newMemoryOrderRepo(), nil, nil, "")
	_, err := svc.CreateOrder(context.Background(), "X", "", -5)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestRecomputeRefreshesItemCaches(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryOrderRepo()
	svc := NewService(repo, nil, nil, "29")
	order := seedOrder(t, svc)

	margin := 10.0
	costed, err := svc.AddItem(ctx, SignageItem{OrderID: order.ID, Name: "Glow Sign", Quantity: 2, MarginPercent: &margin})
	require.NoError(t, err)
	itemID := costed.Totals.Items[0].ItemID

	_, err = svc.AddLine(ctx, BOQLine{ItemID: itemID, Material: "Acrylic", Unit: "sqft", Quantity: 2, CostPerUnit: 100})
	require.NoError(t, err)

	require.InDelta(t, 220.0, repo.itemTotals[itemID], 1e-9)
	item, err := repo.GetItem(ctx, itemID)
	require.NoError(t, err)
	require.NotNil(t, item.TotalWithMargin)
	require.InDelta(t, 220.0, *item.TotalWithMargin, 1e-9)
}

func TestCostingAppliesTaxSplit(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryOrderRepo()
	svc := NewService(repo, nil, nil, "29")

	interState, err := svc.CreateOrder(ctx, "Out Of State", "27ABCDE1234F1Z5", 0)
	require.NoError(t, err)
	costed, err := svc.AddItem(ctx, SignageItem{OrderID: interState.ID, Name: "Board", Quantity: 1})
	require.NoError(t, err)
	itemID := costed.Totals.Items[0].ItemID
	costed, err = svc.AddLine(ctx, BOQLine{ItemID: itemID, Material: "MS Frame", Quantity: 1, CostPerUnit: 100})
	require.NoError(t, err)

	require.True(t, costed.InterState)
	require.InDelta(t, costed.Totals.GST, costed.OrderTax.IGST, 1e-9)
	require.Zero(t, costed.OrderTax.CGST)
}

func TestCostedOrderMarshalsToJSON(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryOrderRepo()
	svc := NewService(repo, nil, nil, "29")

	order, err := svc.CreateOrder(ctx, "Prestige Mall", "29AABCP1234F1Z5", 0)
	require.NoError(t, err)
	gst := 12.0
	costed, err := svc.AddItem(ctx, SignageItem{OrderID: order.ID, Name: "Board", Quantity: 1, GSTPercent: &gst})
	require.NoError(t, err)
	itemID := costed.Totals.Items[0].ItemID
	costed, err = svc.AddLine(ctx, BOQLine{ItemID: itemID, Material: "ACP", Quantity: 2, CostPerUnit: 100})
	require.NoError(t, err)

	// The costed shape goes straight into response bodies and invoice
	// snapshots, so the per-rate maps must survive encoding.
	data, err := json.Marshal(costed)
	require.NoError(t, err)

	var round CostedOrder
	require.NoError(t, json.Unmarshal(data, &round))
	require.InDelta(t, costed.Totals.GSTSummary["12"], round.Totals.GSTSummary["12"], 1e-9)
	require.InDelta(t, costed.TaxSplit["12"].CGST, round.TaxSplit["12"].CGST, 1e-9)
}

func TestSetBillingPercentTriggersSync(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryOrderRepo()
	sync := &recordingSync{}
	svc := NewService(repo, sync, nil, "29")
	order := seedOrder(t, svc)

	costed, err := svc.AddItem(ctx, SignageItem{OrderID: order.ID, Name: "Board", Quantity: 2})
	require.NoError(t, err)
	itemID := costed.Totals.Items[0].ItemID
	_, err = svc.AddLine(ctx, BOQLine{ItemID: itemID, Material: "ACP", Quantity: 2, CostPerUnit: 100})
	require.NoError(t, err)

	costed, err = svc.SetBillingPercent(ctx, order.ID, 60)
	require.NoError(t, err)
	require.InDelta(t, 60.0, costed.Totals.BillingPercent, 1e-9)
	require.InDelta(t, 120.0, costed.Totals.Total, 1e-9)
	require.Equal(t, 200.0, costed.Totals.UnscaledTotal)

	require.Len(t, sync.calls, 1)
	call := sync.calls[0]
	require.Equal(t, order.ID, call.orderID)
	require.InDelta(t, 60.0, call.percent, 1e-9)
	require.InDelta(t, 200.0, call.signageValue, 1e-9)
}

func TestSetBillingAmountDerivesPercent(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryOrderRepo()
	sync := &recordingSync{}
	svc := NewService(repo, sync, nil, "29")
	order := seedOrder(t, svc)

	costed, err := svc.AddItem(ctx, SignageItem{OrderID: order.ID, Name: "Board", Quantity: 2})
	require.NoError(t, err)
	itemID := costed.Totals.Items[0].ItemID
	_, err = svc.AddLine(ctx, BOQLine{ItemID: itemID, Material: "ACP", Quantity: 2, CostPerUnit: 100})
	require.NoError(t, err)

	costed, err = svc.SetBillingAmount(ctx, order.ID, 50)
	require.NoError(t, err)
	require.InDelta(t, 25.0, costed.Totals.BillingPercent, 1e-9)
	require.InDelta(t, 50.0, costed.Totals.BillingAmount, 1e-9)

	// Both representations project from the same stored factor.
	stored, err := repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.InDelta(t, 25.0, stored.BillingScale.Percent(), 1e-9)
	require.InDelta(t, 50.0, stored.BillingScale.Amount(200), 1e-9)
}

func TestSetBillingPercentRange(t *testing.T) {
	svc := NewService(newMemoryOrderRepo(), nil, nil, "")
	order := seedOrder(t, svc)
	_, err := svc.SetBillingPercent(context.Background(), order.ID, 140)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestDeleteItemRequiresLinesRemovedFirst(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryOrderRepo()
	svc := NewService(repo, nil, nil, "")
	order := seedOrder(t, svc)

	costed, err := svc.AddItem(ctx, SignageItem{OrderID: order.ID, Name: "Board", Quantity: 1})
	require.NoError(t, err)
	itemID := costed.Totals.Items[0].ItemID
	costed, err = svc.AddLine(ctx, BOQLine{ItemID: itemID, Material: "Vinyl", Quantity: 1, CostPerUnit: 10})
	require.NoError(t, err)
	lineID := int64(1)

	_, err = svc.DeleteItem(ctx, itemID)
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.DeleteLine(ctx, itemID, lineID)
	require.NoError(t, err)
	costed, err = svc.DeleteItem(ctx, itemID)
	require.NoError(t, err)
	require.Empty(t, costed.Totals.Items)
}

func TestGetUnknownOrder(t *testing.T) {
	svc := NewService(newMemoryOrderRepo(), nil, nil, "")
	_, err := svc.Get(context.Background(), 99)
	require.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestScaleProjectionsRoundTrip(t *testing.T) {
	s := ScaleFromPercent(40)
	require.InDelta(t, 40.0, s.Percent(), 1e-9)
	require.InDelta(t, 80.0, s.Amount(200), 1e-9)

	s = ScaleFromAmount(80, 200)
	require.InDelta(t, 40.0, s.Percent(), 1e-9)

	require.Equal(t, FullBilling, ScaleFromAmount(500, 0))
}
