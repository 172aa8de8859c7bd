package orders

// BillingScale is the stored GST-billable fraction of an order's value.
// Exactly one representation (percent or amount) is authoritative per edit;
// both views project from this factor so they can never disagree.
type BillingScale float64

// FullBilling bills the whole order value under GST.
const FullBilling BillingScale = 1

// ScaleFromPercent converts a billing percent into the stored factor.
func ScaleFromPercent(percent float64) BillingScale {
	if percent < 0 {
		percent = 0
	}
	return BillingScale(percent / 100)
}

// ScaleFromAmount converts an absolute billing amount into the stored factor,
// measured against the order's unscaled total. A zero total yields full billing.
func ScaleFromAmount(amount, unscaledTotal float64) BillingScale {
	if unscaledTotal == 0 {
		return FullBilling
	}
	if amount < 0 {
		amount = 0
	}
	return BillingScale(amount / unscaledTotal)
}

// Percent projects the factor back to a percentage.
func (s BillingScale) Percent() float64 {
	return float64(s) * 100
}

// Amount projects the factor to an absolute amount of the given unscaled total.
func (s BillingScale) Amount(unscaledTotal float64) float64 {
	return float64(s) * unscaledTotal
}
