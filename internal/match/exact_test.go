package match

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"invmatch/internal"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMatchStringFieldCaseInsensitive(t *testing.T) {
	r := MatchStringField("invoice_number", "INV-001", "inv-001", DefaultExactOptions())
	if !r.Matches || r.Confidence != 1.0 {
		t.Fatalf("got matches=%v confidence=%f", r.Matches, r.Confidence)
	}
}

func TestMatchStringFieldWhitespaceCollapse(t *testing.T) {
	r := MatchStringField("vendor_name", "Acme   Supply  Co", "Acme Supply Co", DefaultExactOptions())
	if !r.Matches {
		t.Fatalf("whitespace runs should collapse before comparison")
	}

	opts := DefaultExactOptions()
	opts.NormalizeWhitespace = false
	r = MatchStringField("vendor_name", "Acme   Supply  Co", "Acme Supply Co", opts)
	if r.Matches {
		t.Fatalf("collapse disabled, expected mismatch")
	}
}

func TestMatchStringFieldEmptyNeverMatches(t *testing.T) {
	if r := MatchStringField("invoice_number", "", "", DefaultExactOptions()); r.Matches {
		t.Fatalf("two empty values must not match")
	}
}

func TestMatchDateFieldTolerance(t *testing.T) {
	expected := date(2024, time.January, 15)

	r := MatchDateField("invoice_date", expected, date(2024, time.January, 15), 0)
	if !r.Matches || r.Confidence != 1.0 {
		t.Fatalf("same date: matches=%v confidence=%f", r.Matches, r.Confidence)
	}

	r = MatchDateField("invoice_date", expected, date(2024, time.January, 18), 5)
	if !r.Matches {
		t.Fatalf("3-day gap within 5-day tolerance should match")
	}
	if r.Confidence <= 0.5 || r.Confidence >= 1.0 {
		t.Fatalf("tolerant match confidence=%f want strictly between 0.5 and 1.0", r.Confidence)
	}

	r = MatchDateField("invoice_date", expected, date(2024, time.January, 18), 2)
	if r.Matches {
		t.Fatalf("3-day gap should fail a 2-day tolerance")
	}
}

func TestMatchAmountFieldFormatting(t *testing.T) {
	r := MatchAmountField("total_amount", "$1,500.00", "1500.00", 2)
	if !r.Matches || r.Confidence != 1.0 {
		t.Fatalf("formatted amounts should match: matches=%v confidence=%f", r.Matches, r.Confidence)
	}
}

func TestMatchAmountFieldPrecision(t *testing.T) {
	if r := MatchAmountField("total_amount", "1500.004", "1500.006", 2); !r.Matches {
		t.Fatalf("both read as 1500.00 at precision 2")
	}
	if r := MatchAmountField("total_amount", "1500.004", "1500.006", 3); r.Matches {
		t.Fatalf("amounts differ at precision 3")
	}
}

func TestMatchAmountFieldUnparsable(t *testing.T) {
	r := MatchAmountField("total_amount", "not-a-number", "1500.00", 2)
	if r.Matches || r.Confidence != 0.0 {
		t.Fatalf("unparsable amount: matches=%v confidence=%f", r.Matches, r.Confidence)
	}
}

func TestMatchFieldDispatch(t *testing.T) {
	opts := DefaultExactOptions()
	opts.DateToleranceDays = 5

	if r := MatchField("total_amount", "1,500.00", 1500.0, opts); !r.Matches {
		t.Fatalf("amount dispatch failed: %+v", r)
	}
	if r := MatchField("invoice_date", date(2024, time.March, 1), "2024-03-03", opts); !r.Matches {
		t.Fatalf("date dispatch failed: %+v", r)
	}
	if r := MatchField("po_number", "PO-77", "po-77", opts); !r.Matches {
		t.Fatalf("generic dispatch failed: %+v", r)
	}
}

func TestMatchInvoiceData(t *testing.T) {
	inv := internal.InvoiceData{
		InvoiceNumber: "INV-1001",
		VendorName:    "Acme Supply",
		CustomerName:  "Globex",
		InvoiceDate:   date(2024, time.February, 10),
		TotalAmount:   decimal.RequireFromString("250.50"),
		Currency:      strPtr("USD"),
	}
	record := map[string]any{
		"invoice_number": "INV-1001",
		"vendor_name":    "ACME SUPPLY",
		"customer_name":  "Initech",
		"invoice_date":   "2024-02-10",
		"total_amount":   "250.50",
		"currency":       "usd",
	}

	results := MatchInvoiceData(inv, record, DefaultExactOptions())

	byField := map[string]ExactResult{}
	for _, r := range results {
		byField[r.FieldName] = r
	}
	for _, required := range []string{"invoice_number", "vendor_name", "customer_name", "invoice_date", "total_amount"} {
		if _, ok := byField[required]; !ok {
			t.Fatalf("required field %s not evaluated", required)
		}
	}
	if !byField["invoice_number"].Matches || !byField["vendor_name"].Matches {
		t.Fatalf("expected invoice_number and vendor_name to match")
	}
	if byField["customer_name"].Matches {
		t.Fatalf("customer_name should mismatch")
	}
	if !byField["currency"].Matches {
		t.Fatalf("currency present on both sides should be evaluated and match")
	}
	if _, ok := byField["po_number"]; ok {
		t.Fatalf("po_number absent on the invoice must not be evaluated")
	}
}

func strPtr(s string) *string { return &s }
