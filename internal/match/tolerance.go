package match

import (
	"time"

	"github.com/shopspring/decimal"
)

// ToleranceType tags which reconciliation rule produced a result.
type ToleranceType string

const (
	ToleranceDate       ToleranceType = "date_tolerance"
	TolerancePercentage ToleranceType = "percentage_tolerance"
	ToleranceAbsolute   ToleranceType = "absolute_tolerance"
)

// ToleranceResult is one tolerance comparison. Confidence decays linearly
// from 1.0 at zero variance to 0.5 at the tolerance edge when matched, and
// from 0.5 toward 0.0 between one and two tolerances when not matched.
type ToleranceResult struct {
	FieldName   string          `json:"field_name"`
	Type        ToleranceType   `json:"tolerance_type"`
	Matches     bool            `json:"matches"`
	Confidence  float64         `json:"confidence"`
	Variance    decimal.Decimal `json:"variance"`
	VariancePct decimal.Decimal `json:"variance_percentage"`
}

// decayConfidence maps a variance/tolerance ratio onto the shared decay
// shape: [0,1] ⇒ 1.0→0.5 and (1,2] ⇒ 0.5→0.0, zero beyond twice the bound.
func decayConfidence(ratio float64) (bool, float64) {
	switch {
	case ratio <= 1.0:
		return true, 1.0 - ratio*0.5
	case ratio <= 2.0:
		return false, 0.5 * (2.0 - ratio)
	default:
		return false, 0.0
	}
}

// MatchDateWithTolerance reconciles dates an acceptable number of days apart.
func MatchDateWithTolerance(fieldName string, expected, actual time.Time, toleranceDays int) ToleranceResult {
	result := ToleranceResult{FieldName: fieldName, Type: ToleranceDate}

	gap := DayGap(expected, actual)
	result.Variance = decimal.NewFromInt(int64(gap))

	if toleranceDays <= 0 {
		result.Matches = gap == 0
		if result.Matches {
			result.Confidence = 1.0
		}
		return result
	}

	result.Matches, result.Confidence = decayConfidence(float64(gap) / float64(toleranceDays))
	return result
}

// MatchAmountWithPercentageTolerance reconciles amounts whose percentage
// variance from the expected value stays within the threshold.
func MatchAmountWithPercentageTolerance(fieldName string, expected, actual decimal.Decimal, tolerancePct float64) ToleranceResult {
	result := ToleranceResult{FieldName: fieldName, Type: TolerancePercentage}

	diff := expected.Sub(actual).Abs()
	result.Variance = diff

	if expected.IsZero() {
		if actual.IsZero() {
			result.Matches = true
			result.Confidence = 1.0
			return result
		}
		// No base to compute a percentage against; any difference from a
		// zero expectation is out of tolerance.
		result.VariancePct = decimal.NewFromInt(100)
		return result
	}

	pct := diff.Div(expected.Abs()).Mul(decimal.NewFromInt(100))
	result.VariancePct = pct

	if tolerancePct <= 0 {
		result.Matches = diff.IsZero()
		if result.Matches {
			result.Confidence = 1.0
		}
		return result
	}

	ratio, _ := pct.Float64()
	result.Matches, result.Confidence = decayConfidence(ratio / tolerancePct)
	return result
}

// MatchAmountWithAbsoluteTolerance reconciles amounts within an absolute
// currency tolerance.
func MatchAmountWithAbsoluteTolerance(fieldName string, expected, actual, tolerance decimal.Decimal) ToleranceResult {
	result := ToleranceResult{FieldName: fieldName, Type: ToleranceAbsolute}

	diff := expected.Sub(actual).Abs()
	result.Variance = diff
	if !expected.IsZero() {
		result.VariancePct = diff.Div(expected.Abs()).Mul(decimal.NewFromInt(100))
	}

	if tolerance.Sign() <= 0 {
		result.Matches = diff.IsZero()
		if result.Matches {
			result.Confidence = 1.0
		}
		return result
	}

	ratio, _ := diff.Div(tolerance).Float64()
	result.Matches, result.Confidence = decayConfidence(ratio)
	return result
}

// WeightedConfidence computes a per-field weighted average confidence over a
// set of tolerance results. Fields without a weight get equal weight 1.
func WeightedConfidence(results []ToleranceResult, fieldWeights map[string]float64) float64 {
	if len(results) == 0 {
		return 0.0
	}

	var weighted, total float64
	for _, r := range results {
		weight := 1.0
		if w, ok := fieldWeights[r.FieldName]; ok && w > 0 {
			weight = w
		}
		weighted += r.Confidence * weight
		total += weight
	}
	if total == 0 {
		return 0.0
	}
	return weighted / total
}

// ToleranceSummary aggregates a batch of tolerance results.
type ToleranceSummary struct {
	Total         int             `json:"total"`
	Matched       int             `json:"matched"`
	MatchRate     float64         `json:"match_rate"`
	AvgConfidence float64         `json:"average_confidence"`
	TypesUsed     []ToleranceType `json:"tolerance_types_used"`
}

// Summarize reports match rate, average confidence, and the distinct
// tolerance types used. Pure function, no side effects.
func Summarize(results []ToleranceResult) ToleranceSummary {
	summary := ToleranceSummary{Total: len(results), TypesUsed: []ToleranceType{}}
	if len(results) == 0 {
		return summary
	}

	seen := map[ToleranceType]struct{}{}
	var confidenceSum float64
	for _, r := range results {
		if r.Matches {
			summary.Matched++
		}
		confidenceSum += r.Confidence
		if _, ok := seen[r.Type]; !ok {
			seen[r.Type] = struct{}{}
			summary.TypesUsed = append(summary.TypesUsed, r.Type)
		}
	}
	summary.MatchRate = float64(summary.Matched) / float64(summary.Total)
	summary.AvgConfidence = confidenceSum / float64(summary.Total)
	return summary
}
