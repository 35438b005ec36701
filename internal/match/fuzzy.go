package match

import (
	"sort"
	"strings"

	"invmatch/internal"
)

// Algorithm selects the similarity primitive used by the fuzzy matcher.
type Algorithm string

const (
	AlgorithmJaroWinkler Algorithm = "jaro_winkler"
	AlgorithmJaro        Algorithm = "jaro"
	AlgorithmLevenshtein Algorithm = "levenshtein"
)

type FuzzyOptions struct {
	Threshold float64
	Algorithm Algorithm
}

func DefaultFuzzyOptions() FuzzyOptions {
	return FuzzyOptions{Threshold: 0.8, Algorithm: AlgorithmJaroWinkler}
}

// FuzzyResult is one fuzzy string comparison. Confidence equals the
// similarity score on a match, or half the score otherwise, keeping a
// bounded signal for near-misses.
type FuzzyResult struct {
	FieldName          string  `json:"field_name"`
	Expected           string  `json:"expected"`
	Actual             string  `json:"actual"`
	NormalizedExpected string  `json:"normalized_expected"`
	NormalizedActual   string  `json:"normalized_actual"`
	Similarity         float64 `json:"similarity"`
	Matches            bool    `json:"matches"`
	Confidence         float64 `json:"confidence"`
}

func similarityFunc(alg Algorithm) (func(string, string) float64, error) {
	switch alg {
	case AlgorithmJaroWinkler, "":
		return JaroWinklerSimilarity, nil
	case AlgorithmJaro:
		return JaroSimilarity, nil
	case AlgorithmLevenshtein:
		return LevenshteinSimilarity, nil
	default:
		return nil, &internal.MatchError{Msg: "unsupported similarity algorithm: " + string(alg)}
	}
}

// MatchName compares two company-style names after normalization.
func MatchName(fieldName, expected, actual string, opts FuzzyOptions) (FuzzyResult, error) {
	sim, err := similarityFunc(opts.Algorithm)
	if err != nil {
		return FuzzyResult{}, err
	}
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = 0.8
	}

	result := FuzzyResult{
		FieldName:          fieldName,
		Expected:           expected,
		Actual:             actual,
		NormalizedExpected: NormalizeCompanyName(expected),
		NormalizedActual:   NormalizeCompanyName(actual),
	}

	result.Similarity = sim(result.NormalizedExpected, result.NormalizedActual)
	if result.Similarity >= threshold {
		result.Matches = true
		result.Confidence = result.Similarity
	} else {
		result.Confidence = result.Similarity / 2.0
	}
	return result, nil
}

// MatchInvoiceNames fuzzy-matches vendor and customer names, plus the
// facility name when both sides carry one.
func MatchInvoiceNames(inv internal.InvoiceData, record map[string]any, opts FuzzyOptions) ([]FuzzyResult, error) {
	results := make([]FuzzyResult, 0, 3)

	vendor, _ := RecordString(record, "vendor_name", "vendor", "supplier_name")
	if inv.VendorName != "" && vendor != "" {
		r, err := MatchName("vendor_name", inv.VendorName, vendor, opts)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}

	customer, _ := RecordString(record, "customer_name", "customer", "bill_to")
	if inv.CustomerName != "" && customer != "" {
		r, err := MatchName("customer_name", inv.CustomerName, customer, opts)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}

	if inv.FacilityName != nil && strings.TrimSpace(*inv.FacilityName) != "" {
		if facility, ok := RecordString(record, "facility_name", "facility"); ok {
			r, err := MatchName("facility_name", *inv.FacilityName, facility, opts)
			if err != nil {
				return nil, err
			}
			results = append(results, r)
		}
	}

	return results, nil
}

// BestMatches filters results at or above minConfidence, ordered by
// descending confidence.
func BestMatches(results []FuzzyResult, minConfidence float64) []FuzzyResult {
	out := make([]FuzzyResult, 0, len(results))
	for _, r := range results {
		if r.Confidence >= minConfidence {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	return out
}
