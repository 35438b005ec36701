package match

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"invmatch/internal"
)

// FieldKind routes exact matching to the comparison rules for a known field.
// Unknown field names fall back to the generic string comparison.
type FieldKind int

const (
	FieldGeneric FieldKind = iota
	FieldInvoiceNumber
	FieldVendorName
	FieldCustomerName
	FieldDate
	FieldAmount
)

var fieldKinds = map[string]FieldKind{
	"invoice_number": FieldInvoiceNumber,
	"vendor_name":    FieldVendorName,
	"customer_name":  FieldCustomerName,
	"facility_name":  FieldGeneric,
	"facility_code":  FieldGeneric,
	"po_number":      FieldGeneric,
	"currency":       FieldGeneric,
	"invoice_date":   FieldDate,
	"total_amount":   FieldAmount,
}

func KindOf(fieldName string) FieldKind {
	if kind, ok := fieldKinds[fieldName]; ok {
		return kind
	}
	return FieldGeneric
}

type ExactOptions struct {
	CaseSensitive       bool
	NormalizeWhitespace bool
	DateToleranceDays   int
	AmountPrecision     int32
}

func DefaultExactOptions() ExactOptions {
	return ExactOptions{NormalizeWhitespace: true, AmountPrecision: 2}
}

// ExactResult is the outcome of one exact field comparison. Confidence is
// binary except for tolerant date matches, which decay from 1.0 toward 0.5.
type ExactResult struct {
	FieldName  string  `json:"field_name"`
	Matches    bool    `json:"matches"`
	Confidence float64 `json:"confidence"`
	Expected   string  `json:"expected"`
	Actual     string  `json:"actual"`
}

// MatchStringField compares two strings under the rules for the named field:
// case-insensitive unless configured otherwise, with vendor/customer names
// additionally collapsing internal whitespace runs.
func MatchStringField(fieldName, expected, actual string, opts ExactOptions) ExactResult {
	result := ExactResult{FieldName: fieldName, Expected: expected, Actual: actual}

	e, a := expected, actual
	switch KindOf(fieldName) {
	case FieldVendorName, FieldCustomerName:
		if opts.NormalizeWhitespace {
			e = CollapseWhitespace(e)
			a = CollapseWhitespace(a)
		}
	default:
		e = strings.TrimSpace(e)
		a = strings.TrimSpace(a)
	}
	if !opts.CaseSensitive {
		e = strings.ToLower(e)
		a = strings.ToLower(a)
	}

	if e == a && e != "" {
		result.Matches = true
		result.Confidence = 1.0
	}
	return result
}

// MatchDateField compares calendar dates, optionally within a day tolerance.
// A zero-gap match scores 1.0; tolerant matches decay linearly to 0.5 as the
// gap approaches the tolerance.
func MatchDateField(fieldName string, expected, actual time.Time, toleranceDays int) ExactResult {
	result := ExactResult{
		FieldName: fieldName,
		Expected:  expected.Format("2006-01-02"),
		Actual:    actual.Format("2006-01-02"),
	}

	gap := DayGap(expected, actual)
	if gap == 0 {
		result.Matches = true
		result.Confidence = 1.0
		return result
	}
	if toleranceDays > 0 && gap <= toleranceDays {
		result.Matches = true
		result.Confidence = 1.0 - (float64(gap)/float64(toleranceDays))*0.5
	}
	return result
}

// MatchAmountField parses both operands as exact decimals (stripping currency
// formatting), truncates both to the configured precision, and compares for
// equality. Truncation keeps excess fractional digits from splitting amounts
// that agree at the compared precision (1500.004 and 1500.006 both read as
// 1500.00 at two digits). Unparsable input is a non-match with confidence 0,
// never an error.
func MatchAmountField(fieldName, expected, actual string, precision int32) ExactResult {
	result := ExactResult{FieldName: fieldName, Expected: expected, Actual: actual}

	e, okE := ParseAmount(expected)
	a, okA := ParseAmount(actual)
	if !okE || !okA {
		return result
	}

	if e.Truncate(precision).Equal(a.Truncate(precision)) {
		result.Matches = true
		result.Confidence = 1.0
	}
	return result
}

// MatchField dispatches on the field kind, coercing the operand types the
// candidate record actually carries.
func MatchField(fieldName string, expected, actual any, opts ExactOptions) ExactResult {
	switch KindOf(fieldName) {
	case FieldDate:
		e, okE := CoerceDate(expected)
		a, okA := CoerceDate(actual)
		if !okE || !okA {
			return ExactResult{FieldName: fieldName, Expected: coerceString(expected), Actual: coerceString(actual)}
		}
		return MatchDateField(fieldName, e, a, opts.DateToleranceDays)
	case FieldAmount:
		return MatchAmountField(fieldName, coerceString(expected), coerceString(actual), opts.AmountPrecision)
	default:
		return MatchStringField(fieldName, coerceString(expected), coerceString(actual), opts)
	}
}

// MatchInvoiceData runs the exact matcher over every required invoice field
// and over the optional ones present on both sides.
func MatchInvoiceData(inv internal.InvoiceData, record map[string]any, opts ExactOptions) []ExactResult {
	results := make([]ExactResult, 0, 8)

	num, _ := RecordString(record, "invoice_number", "invoice_no", "number")
	results = append(results, MatchStringField("invoice_number", inv.InvoiceNumber, num, opts))

	vendor, _ := RecordString(record, "vendor_name", "vendor", "supplier_name")
	results = append(results, MatchStringField("vendor_name", inv.VendorName, vendor, opts))

	customer, _ := RecordString(record, "customer_name", "customer", "bill_to")
	results = append(results, MatchStringField("customer_name", inv.CustomerName, customer, opts))

	if date, ok := RecordDate(record, "invoice_date", "date", "issued_at"); ok {
		results = append(results, MatchDateField("invoice_date", inv.InvoiceDate, date, opts.DateToleranceDays))
	} else {
		results = append(results, ExactResult{FieldName: "invoice_date", Expected: inv.InvoiceDate.Format("2006-01-02")})
	}

	amount, _ := RecordAmountString(record, "total_amount", "amount", "total")
	results = append(results, MatchAmountField("total_amount", inv.TotalAmount.String(), amount, opts.AmountPrecision))

	optional := []struct {
		name  string
		value *string
		keys  []string
	}{
		{"facility_name", inv.FacilityName, []string{"facility_name", "facility"}},
		{"po_number", inv.PONumber, []string{"po_number", "purchase_order"}},
		{"currency", inv.Currency, []string{"currency", "currency_code"}},
	}
	for _, opt := range optional {
		if opt.value == nil || strings.TrimSpace(*opt.value) == "" {
			continue
		}
		actual, ok := RecordString(record, opt.keys...)
		if !ok || strings.TrimSpace(actual) == "" {
			continue
		}
		results = append(results, MatchStringField(opt.name, *opt.value, actual, opts))
	}

	return results
}

// ParseAmount strips currency formatting ("$", ",", spaces) and parses the
// remainder as an exact decimal.
func ParseAmount(s string) (decimal.Decimal, bool) {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// DayGap is the absolute difference between two calendar dates in whole days,
// ignoring the time-of-day component.
func DayGap(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	gap := int(da.Sub(db).Hours() / 24)
	if gap < 0 {
		gap = -gap
	}
	return gap
}
