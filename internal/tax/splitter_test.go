package tax

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitGSTIntraState(t *testing.T) {
	s := SplitGST(100, "29ABCDE1234F1Z5", "29")
	require.Equal(t, 50.0, s.CGST)
	require.Equal(t, 50.0, s.SGST)
	require.Equal(t, 0.0, s.IGST)
}

func TestSplitGSTInterState(t *testing.T) {
	s := SplitGST(100, "27ABCDE1234F1Z5", "29")
	require.Equal(t, 0.0, s.CGST)
	require.Equal(t, 0.0, s.SGST)
	require.Equal(t, 100.0, s.IGST)
}

func TestSplitGSTBlankGSTINIsIntraState(t *testing.T) {
	s := SplitGST(36, "", "29")
	require.Equal(t, 18.0, s.CGST)
	require.Equal(t, 18.0, s.SGST)
	require.Equal(t, 0.0, s.IGST)
}

func TestSplitGSTDefaultHomeState(t *testing.T) {
	s := SplitGST(10, "29AAAAA0000A1Z1", "")
	require.Equal(t, 5.0, s.CGST)
	require.Equal(t, 5.0, s.SGST)
}

func TestSplitSummaryConsistentPerBucket(t *testing.T) {
	summary := map[string]float64{"18": 54, "12": 12, "5": 2.5}

	for _, gstin := range []string{"29ABCDE1234F1Z5", "27ABCDE1234F1Z5", ""} {
		split := SplitSummary(summary, gstin, "29")
		require.Len(t, split, len(summary))
		for rate, gst := range summary {
			s := split[rate]
			require.InDelta(t, gst, s.Total(), 1e-9, "gstin %q rate %v", gstin, rate)
			if s.IGST != 0 {
				require.Zero(t, s.CGST)
				require.Zero(t, s.SGST)
			} else if gst != 0 {
				require.Zero(t, s.IGST)
				require.Equal(t, s.CGST, s.SGST)
			}
		}
	}
}
