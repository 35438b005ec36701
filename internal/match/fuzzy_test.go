package match

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"invmatch/internal"
)

func TestMatchNameSuffixInsensitive(t *testing.T) {
	r, err := MatchName("vendor_name", "Acme Corp.", "ACME Corporation", DefaultFuzzyOptions())
	if err != nil {
		t.Fatal(err)
	}
	if !r.Matches || r.Confidence != r.Similarity {
		t.Fatalf("matches=%v similarity=%f confidence=%f", r.Matches, r.Similarity, r.Confidence)
	}
	if r.NormalizedExpected != "acme" || r.NormalizedActual != "acme" {
		t.Fatalf("normalized forms %q / %q", r.NormalizedExpected, r.NormalizedActual)
	}
}

func TestMatchNameNearMissConfidenceHalved(t *testing.T) {
	opts := DefaultFuzzyOptions()
	opts.Threshold = 0.99
	r, err := MatchName("vendor_name", "Acme Supply", "Acme Shipping", opts)
	if err != nil {
		t.Fatal(err)
	}
	if r.Matches {
		t.Fatalf("similarity %f should fail threshold 0.99", r.Similarity)
	}
	if r.Confidence != r.Similarity/2.0 {
		t.Fatalf("near-miss confidence=%f want half of %f", r.Confidence, r.Similarity)
	}
}

func TestMatchNameUnsupportedAlgorithm(t *testing.T) {
	_, err := MatchName("vendor_name", "a", "b", FuzzyOptions{Threshold: 0.8, Algorithm: "soundex"})
	var matchErr *internal.MatchError
	if !errors.As(err, &matchErr) {
		t.Fatalf("want MatchError, got %v", err)
	}
}

func TestMatchInvoiceNames(t *testing.T) {
	inv := internal.InvoiceData{
		InvoiceNumber: "INV-7",
		VendorName:    "Globex Corporation",
		CustomerName:  "Initech LLC",
		TotalAmount:   decimal.Zero,
	}
	record := map[string]any{
		"vendor_name":   "Globex Corp",
		"customer_name": "Initech",
	}

	results, err := MatchInvoiceNames(inv, record, DefaultFuzzyOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results", len(results))
	}
	for _, r := range results {
		if !r.Matches {
			t.Fatalf("%s should match after normalization: %+v", r.FieldName, r)
		}
	}
}

func TestBestMatches(t *testing.T) {
	results := []FuzzyResult{
		{FieldName: "a", Confidence: 0.4},
		{FieldName: "b", Confidence: 0.95},
		{FieldName: "c", Confidence: 0.8},
	}
	best := BestMatches(results, 0.7)
	if len(best) != 2 {
		t.Fatalf("got %d above threshold", len(best))
	}
	if best[0].FieldName != "b" || best[1].FieldName != "c" {
		t.Fatalf("not sorted by descending confidence: %+v", best)
	}
}
