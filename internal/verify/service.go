package verify

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"invmatch/internal"
	"invmatch/internal/config"
	"invmatch/internal/connector"
	"invmatch/internal/connstore"
	"invmatch/internal/match"
)

const defaultSearchLimit = 50

// Service runs one verification end to end: load the connection config,
// search the external system, score every candidate with the exact, fuzzy,
// and tolerance matchers, and fold the outcome into a MatchResult. Failures
// of any stage come back as a not_found result with ErrorMessage set, never
// as a panic or a raised error.
type Service struct {
	store     *connstore.Manager
	precision int32
	log       *logrus.Logger

	// build is swappable for tests.
	build func(ctx context.Context, cfg internal.ConnectionConfig) (connector.Connector, error)
}

func NewService(store *connstore.Manager, app config.Config) *Service {
	precision := int32(app.AmountPrecision)
	if precision <= 0 {
		precision = 2
	}
	return &Service{
		store:     store,
		precision: precision,
		log:       config.GetLogger(),
		build: func(ctx context.Context, cfg internal.ConnectionConfig) (connector.Connector, error) {
			return connector.Build(ctx, app, cfg)
		},
	}
}

func (s *Service) Verify(ctx context.Context, inv internal.InvoiceData, connectionID string, criteria *internal.SearchCriteria) internal.MatchResult {
	started := time.Now()
	correlationID := uuid.NewString()

	settings, err := s.store.LoadSettings()
	if err != nil {
		settings = internal.DefaultMatchingSettings()
	}

	result := internal.MatchResult{
		Invoice:        inv,
		Classification: internal.MatchNotFound,
		Matches:        []internal.Match{},
		ConnectionID:   connectionID,
	}
	if criteria == nil {
		criteria = defaultCriteria(inv, settings)
	}
	result.SearchCriteria = *criteria

	log := s.log.WithFields(logrus.Fields{
		"module":         "verify",
		"correlation_id": correlationID,
		"connection_id":  connectionID,
		"invoice_number": inv.InvoiceNumber,
	})

	records, err := s.search(ctx, connectionID, *criteria)
	if err != nil {
		result.ErrorMessage = err.Error()
		result.ProcessingTime = time.Since(started)
		log.WithError(err).Error("verification failed")
		return result
	}

	for _, record := range records {
		candidate, err := scoreCandidate(inv, record, settings, s.precision)
		if err != nil {
			result.ErrorMessage = err.Error()
			result.ProcessingTime = time.Since(started)
			log.WithError(err).Error("candidate scoring failed")
			return result
		}
		result.Matches = append(result.Matches, candidate)
	}

	sort.SliceStable(result.Matches, func(i, j int) bool {
		return result.Matches[i].Confidence > result.Matches[j].Confidence
	})

	result.Classification = internal.Classify(result.Matches)
	if len(result.Matches) > 0 {
		result.Confidence = result.Matches[0].Confidence
	}
	result.ProcessingTime = time.Since(started)

	log.WithFields(logrus.Fields{
		"classification": result.Classification,
		"candidates":     len(result.Matches),
		"confidence":     result.Confidence,
		"duration_ms":    result.ProcessingTime.Milliseconds(),
	}).Info("verification completed")
	return result
}

func (s *Service) search(ctx context.Context, connectionID string, criteria internal.SearchCriteria) ([]map[string]any, error) {
	cfg, err := s.store.LoadConnection(connectionID)
	if err != nil {
		return nil, fmt.Errorf("load connection %q: %w", connectionID, err)
	}

	conn, err := s.build(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("build connector %q: %w", connectionID, err)
	}
	defer conn.Close()

	return conn.SearchInvoices(ctx, criteria)
}

func defaultCriteria(inv internal.InvoiceData, settings internal.MatchingSettings) *internal.SearchCriteria {
	criteria := &internal.SearchCriteria{
		InvoiceNumber: inv.InvoiceNumber,
		VendorName:    inv.VendorName,
		Limit:         defaultSearchLimit,
	}
	if !inv.InvoiceDate.IsZero() {
		margin := time.Duration(settings.DateToleranceDays) * 24 * time.Hour
		from := inv.InvoiceDate.Add(-margin)
		to := inv.InvoiceDate.Add(margin)
		criteria.DateFrom = &from
		criteria.DateTo = &to
	}
	return criteria
}

// scoreCandidate composes the three matchers over one candidate record and
// reduces their per-field outcomes to a single Match.
func scoreCandidate(inv internal.InvoiceData, record map[string]any, settings internal.MatchingSettings, precision int32) (internal.Match, error) {
	exactOpts := match.ExactOptions{
		NormalizeWhitespace: true,
		DateToleranceDays:   settings.DateToleranceDays,
		AmountPrecision:     precision,
	}
	exact := match.MatchInvoiceData(inv, record, exactOpts)

	fuzzyByField := map[string]match.FuzzyResult{}
	if settings.FuzzyVendor || settings.FuzzyCustomer {
		fuzzy, err := match.MatchInvoiceNames(inv, record, match.FuzzyOptions{Threshold: settings.FuzzyThreshold})
		if err != nil {
			return internal.Match{}, err
		}
		for _, r := range fuzzy {
			switch r.FieldName {
			case "vendor_name":
				if settings.FuzzyVendor {
					fuzzyByField[r.FieldName] = r
				}
			case "customer_name":
				if settings.FuzzyCustomer {
					fuzzyByField[r.FieldName] = r
				}
			default:
				fuzzyByField[r.FieldName] = r
			}
		}
	}

	candidate := internal.Match{
		Record:        record,
		MatchedFields: []string{},
		Discrepancies: []internal.Discrepancy{},
	}

	weights := settings.FieldWeights
	if len(weights) == 0 {
		weights = internal.DefaultMatchingSettings().FieldWeights
	}

	var weightedSum, totalWeight float64
	invoiceNumberMatched := false

	for _, field := range exact {
		matched, confidence := field.Matches, field.Confidence

		// Names get a second chance through the fuzzy matcher; amounts get
		// one through the percentage tolerance.
		if !matched {
			switch match.KindOf(field.FieldName) {
			case match.FieldVendorName, match.FieldCustomerName:
				if fuzzy, ok := fuzzyByField[field.FieldName]; ok {
					matched = fuzzy.Matches
					confidence = fuzzy.Confidence
				}
			case match.FieldAmount:
				if tol, ok := amountTolerance(inv, field.Actual, settings); ok {
					matched = tol.Matches
					confidence = tol.Confidence
				}
			}
		}

		weight := 0.05
		if w, ok := weights[field.FieldName]; ok && w > 0 {
			weight = w
		}
		weightedSum += confidence * weight
		totalWeight += weight

		if matched {
			candidate.MatchedFields = append(candidate.MatchedFields, field.FieldName)
			if field.FieldName == "invoice_number" {
				invoiceNumberMatched = true
			}
			continue
		}
		candidate.Discrepancies = append(candidate.Discrepancies, discrepancyFor(inv, field))
	}

	if totalWeight > 0 {
		candidate.Confidence = weightedSum / totalWeight
	}
	candidate.MatchType = classifyCandidate(candidate.Confidence, invoiceNumberMatched, len(candidate.Discrepancies), settings)
	return candidate, nil
}

func classifyCandidate(confidence float64, invoiceNumberMatched bool, discrepancies int, settings internal.MatchingSettings) internal.MatchType {
	threshold := settings.FuzzyThreshold
	if threshold <= 0 {
		threshold = 0.8
	}
	switch {
	case discrepancies == 0 && confidence >= threshold:
		return internal.MatchFound
	case invoiceNumberMatched || confidence >= 0.5:
		return internal.MatchPartial
	default:
		return internal.MatchNotFound
	}
}

// amountTolerance retries a failed exact amount comparison under the
// configured percentage tolerance.
func amountTolerance(inv internal.InvoiceData, actual string, settings internal.MatchingSettings) (match.ToleranceResult, bool) {
	parsed, ok := match.ParseAmount(actual)
	if !ok {
		return match.ToleranceResult{}, false
	}
	return match.MatchAmountWithPercentageTolerance("total_amount", inv.TotalAmount, parsed, settings.AmountTolerancePct), true
}

func discrepancyFor(inv internal.InvoiceData, field match.ExactResult) internal.Discrepancy {
	d := internal.Discrepancy{
		FieldName: field.FieldName,
		Expected:  field.Expected,
		Actual:    field.Actual,
	}

	if strings.TrimSpace(field.Actual) == "" {
		d.Type = internal.VarianceMissing
		return d
	}

	switch match.KindOf(field.FieldName) {
	case match.FieldAmount:
		d.Type = internal.VarianceAmount
		if actual, ok := match.ParseAmount(field.Actual); ok {
			variance := inv.TotalAmount.Sub(actual).Abs()
			d.Variance = &variance
			if !inv.TotalAmount.IsZero() {
				pct := variance.Div(inv.TotalAmount.Abs()).Mul(decimal.NewFromInt(100))
				d.VariancePct = &pct
			}
		}
	case match.FieldDate:
		d.Type = internal.VarianceDate
		if actual, ok := match.CoerceDate(field.Actual); ok {
			gap := decimal.NewFromInt(int64(match.DayGap(inv.InvoiceDate, actual)))
			d.Variance = &gap
		}
	case match.FieldVendorName, match.FieldCustomerName:
		d.Type = internal.VarianceName
	default:
		d.Type = internal.VarianceName
	}
	return d
}
