package domain

import "testing"

func TestRefundSplit(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		total    int64
		refund   int64
		retained int64
	}{
		{"even split", 30000, 24000, 6000},
		{"rounds half up", 55, 44, 11},
		{"single cent", 1, 1, 0},
		{"zero", 0, 0, 0},
		{"large total", 12345678, 9876542, 2469136},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			refund, retained := RefundSplit(tc.total)
			if refund != tc.refund {
				t.Fatalf("refund: expected %d, got %d", tc.refund, refund)
			}
			if retained != tc.retained {
				t.Fatalf("retained: expected %d, got %d", tc.retained, retained)
			}
			if refund+retained != tc.total {
				t.Fatalf("split does not sum to total: %d + %d != %d", refund, retained, tc.total)
			}
		})
	}
}

func TestFormatCents(t *testing.T) {
	t.Parallel()

	cases := []struct {
		cents int64
		want  string
	}{
		{82025, "820.25"},
		{5, "0.05"},
		{0, "0.00"},
		{-150, "-1.50"},
	}
	for _, tc := range cases {
		if got := FormatCents(tc.cents); got != tc.want {
			t.Fatalf("FormatCents(%d): expected %s, got %s", tc.cents, tc.want, got)
		}
	}
}
