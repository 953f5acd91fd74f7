package mongo

import "testing"

func TestFormatCustomerID(t *testing.T) {
	cases := map[int64]string{
		1:       "CUST-000001",
		42:      "CUST-000042",
		999999:  "CUST-999999",
		1000000: "CUST-1000000",
	}
	for seq, want := range cases {
		if got := FormatCustomerID(seq); got != want {
			t.Fatalf("FormatCustomerID(%d) = %q, want %q", seq, got, want)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := normalizeEmail("  Ana@Example.COM "); got != "ana@example.com" {
		t.Fatalf("normalizeEmail = %q", got)
	}
}
