package invoices

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNextNumber(t *testing.T) {
	require.Equal(t, int64(1), NextNumber(0))
	require.Equal(t, int64(6), NextNumber(5))
	require.Equal(t, int64(1), NextNumber(-3))
}

func TestPreviewDraftNumbersFillsGaps(t *testing.T) {
	drafts := []Invoice{
		{ID: 10, SortOrder: 1},
		{ID: 11, SortOrder: 2},
		{ID: 12, SortOrder: 3},
	}
	confirmed := []int64{1, 3, 4}

	previews := PreviewDraftNumbers(drafts, confirmed)
	require.Len(t, previews, 3)
	require.Equal(t, DraftPreview{InvoiceID: 10, Number: 2}, previews[0])
	require.Equal(t, DraftPreview{InvoiceID: 11, Number: 5}, previews[1])
	require.Equal(t, DraftPreview{InvoiceID: 12, Number: 6}, previews[2])
}

func TestPreviewDraftNumbersLabeledFirst(t *testing.T) {
	drafts := []Invoice{
		{ID: 1, SortOrder: 1},               // plain draft
		{ID: 2, DraftLabel: "7"},            // reverted, old number 7
		{ID: 3, DraftLabel: "2"},            // reverted, old number 2
		{ID: 4, SortOrder: 0},               // plain draft, earlier sort
		{ID: 5, DraftLabel: "not-a-number"}, // treated as unlabeled
	}

	previews := PreviewDraftNumbers(drafts, nil)
	require.Len(t, previews, 5)
	// Labeled drafts ascending by label, then the rest by sort order.
	require.Equal(t, int64(3), previews[0].InvoiceID)
	require.Equal(t, int64(2), previews[1].InvoiceID)
	require.Equal(t, int64(4), previews[2].InvoiceID)
	require.Equal(t, int64(1), previews[3].InvoiceID)
	require.Equal(t, int64(5), previews[4].InvoiceID)

	for i, p := range previews {
		require.Equal(t, int64(i+1), p.Number)
	}
}

func TestPreviewDraftNumbersPure(t *testing.T) {
	drafts := []Invoice{{ID: 1}, {ID: 2, DraftLabel: "9"}}
	confirmed := []int64{1, 2}

	a := PreviewDraftNumbers(drafts, confirmed)
	b := PreviewDraftNumbers(drafts, confirmed)
	require.Equal(t, a, b)

	// Inputs are untouched.
	require.Equal(t, "", drafts[0].DraftLabel)
	require.Equal(t, "9", drafts[1].DraftLabel)
	require.Equal(t, []int64{1, 2}, confirmed)
}

func TestPreviewDraftNumbersEmpty(t *testing.T) {
	require.Nil(t, PreviewDraftNumbers(nil, []int64{1, 2}))
}
