// Package tax derives the CGST/SGST vs IGST split from the customer's
// GST registration prefix.
package tax

// DefaultHomeState is the seller's state code (Karnataka) used when
// configuration supplies nothing else.
const DefaultHomeState = "29"

// Split carries the jurisdictional breakdown of a GST amount.
type Split struct {
	CGST float64 `json:"cgst"`
	SGST float64 `json:"sgst"`
	IGST float64 `json:"igst"`
}

// Total returns the GST amount the split was derived from.
func (s Split) Total() float64 {
	return s.CGST + s.SGST + s.IGST
}

// SplitGST classifies the supply as intra- or inter-state. A blank GSTIN or a
// prefix matching the home state bills CGST+SGST in equal halves; anything
// else bills IGST in full.
func SplitGST(gst float64, gstin, homeState string) Split {
	if homeState == "" {
		homeState = DefaultHomeState
	}
	if intraState(gstin, homeState) {
		half := gst / 2
		return Split{CGST: half, SGST: half}
	}
	return Split{IGST: gst}
}

// SplitSummary applies the split to every GST-rate bucket so the per-rate
// table stays consistent with the line-item detail. Buckets are keyed by the
// formatted rate string the costing summary uses.
func SplitSummary(summary map[string]float64, gstin, homeState string) map[string]Split {
	out := make(map[string]Split, len(summary))
	for rate, gst := range summary {
		out[rate] = SplitGST(gst, gstin, homeState)
	}
	return out
}

func intraState(gstin, homeState string) bool {
	if gstin == "" {
		return true
	}
	runes := []rune(gstin)
	if len(runes) < 2 {
		return true
	}
	return string(runes[:2]) == homeState
}
