package invoices

import (
	"sort"
	"strconv"
)

// NextNumber yields the number a confirming invoice receives given the current
// maximum held by confirmed invoices. Allocation is monotonic: gaps left by
// reverts are not refilled.
func NextNumber(maxConfirmed int64) int64 {
	if maxConfirmed < 0 {
		maxConfirmed = 0
	}
	return maxConfirmed + 1
}

// DraftPreview pairs a draft invoice with its display-only number.
type DraftPreview struct {
	InvoiceID int64 `json:"invoice_id"`
	Number    int64 `json:"number"`
}

// PreviewDraftNumbers computes, for display only, the N smallest positive
// integers not held by any confirmed invoice and assigns them to the drafts.
// Drafts carrying a leftover numeric label from a previous revert come first
// in ascending label order, then the rest in stored sort order. The function
// is pure; nothing is reserved or persisted, and it must be re-run whenever
// the confirmed set may have changed.
func PreviewDraftNumbers(drafts []Invoice, confirmedNumbers []int64) []DraftPreview {
	if len(drafts) == 0 {
		return nil
	}

	taken := make(map[int64]struct{}, len(confirmedNumbers))
	for _, n := range confirmedNumbers {
		taken[n] = struct{}{}
	}

	ordered := orderDrafts(drafts)
	out := make([]DraftPreview, 0, len(ordered))
	next := int64(1)
	for _, inv := range ordered {
		for {
			if _, held := taken[next]; !held {
				break
			}
			next++
		}
		out = append(out, DraftPreview{InvoiceID: inv.ID, Number: next})
		next++
	}
	return out
}

func orderDrafts(drafts []Invoice) []Invoice {
	type labeled struct {
		inv   Invoice
		label int64
	}
	var withLabel []labeled
	var rest []Invoice
	for _, inv := range drafts {
		if n, err := strconv.ParseInt(inv.DraftLabel, 10, 64); err == nil && n > 0 {
			withLabel = append(withLabel, labeled{inv: inv, label: n})
			continue
		}
		rest = append(rest, inv)
	}

	sort.SliceStable(withLabel, func(i, j int) bool {
		if withLabel[i].label != withLabel[j].label {
			return withLabel[i].label < withLabel[j].label
		}
		return withLabel[i].inv.ID < withLabel[j].inv.ID
	})
	sort.SliceStable(rest, func(i, j int) bool {
		if rest[i].SortOrder != rest[j].SortOrder {
			return rest[i].SortOrder < rest[j].SortOrder
		}
		return rest[i].ID < rest[j].ID
	})

	out := make([]Invoice, 0, len(drafts))
	for _, l := range withLabel {
		out = append(out, l.inv)
	}
	return append(out, rest...)
}
