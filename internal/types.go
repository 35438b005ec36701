package internal

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceData is the extracted invoice record under verification. It is
// produced upstream by the extraction pipeline and treated as immutable here.
type InvoiceData struct {
	InvoiceNumber string          `json:"invoice_number"`
	VendorName    string          `json:"vendor_name"`
	CustomerName  string          `json:"customer_name"`
	InvoiceDate   time.Time       `json:"invoice_date"`
	TotalAmount   decimal.Decimal `json:"total_amount"`

	FacilityName *string `json:"facility_name,omitempty"`
	FacilityCode *string `json:"facility_code,omitempty"`
	PONumber     *string `json:"po_number,omitempty"`
	Currency     *string `json:"currency,omitempty"`
}

type MatchType string

const (
	MatchFound    MatchType = "found"
	MatchNotFound MatchType = "not_found"
	MatchPartial  MatchType = "partial_match"
)

type VarianceType string

const (
	VarianceAmount  VarianceType = "amount_variance"
	VarianceDate    VarianceType = "date_variance"
	VarianceName    VarianceType = "name_mismatch"
	VarianceMissing VarianceType = "field_missing"
)

// Discrepancy is one field-level mismatch between the invoice and a candidate.
type Discrepancy struct {
	FieldName   string           `json:"field_name"`
	Expected    string           `json:"expected_value"`
	Actual      string           `json:"actual_value"`
	Type        VarianceType     `json:"variance_type"`
	Variance    *decimal.Decimal `json:"variance,omitempty"`
	VariancePct *decimal.Decimal `json:"variance_percentage,omitempty"`
}

// Match is one candidate record evaluated against an InvoiceData.
type Match struct {
	Record        map[string]any `json:"record"`
	Confidence    float64        `json:"confidence_score"`
	MatchedFields []string       `json:"matched_fields"`
	Discrepancies []Discrepancy  `json:"discrepancies"`
	MatchType     MatchType      `json:"match_type"`
}

// MatchResult is the terminal output of one verification attempt.
type MatchResult struct {
	Invoice        InvoiceData    `json:"invoice"`
	Classification MatchType      `json:"classification"`
	Matches        []Match        `json:"matches"`
	Confidence     float64        `json:"overall_confidence"`
	ProcessingTime time.Duration  `json:"processing_time"`
	SearchCriteria SearchCriteria `json:"search_criteria"`
	ConnectionID   string         `json:"connection_id"`
	ErrorMessage   string         `json:"error_message,omitempty"`
}

// Classify derives the result classification from the best candidate, or
// not_found when no candidates were considered.
func Classify(matches []Match) MatchType {
	best := MatchNotFound
	for _, m := range matches {
		switch m.MatchType {
		case MatchFound:
			return MatchFound
		case MatchPartial:
			best = MatchPartial
		}
	}
	return best
}

// SearchCriteria is the JSON body sent to the external system's search
// operation; zero-valued fields are omitted on the wire.
type SearchCriteria struct {
	InvoiceNumber string     `json:"invoice_number,omitempty"`
	VendorName    string     `json:"vendor_name,omitempty"`
	CustomerName  string     `json:"customer_name,omitempty"`
	DateFrom      *time.Time `json:"date_from,omitempty"`
	DateTo        *time.Time `json:"date_to,omitempty"`
	Limit         int        `json:"limit,omitempty"`
}

type AuthenticationType string

const (
	AuthAPIKey       AuthenticationType = "api_key"
	AuthBearerToken  AuthenticationType = "bearer_token"
	AuthBasic        AuthenticationType = "basic_auth"
	AuthAWSSignature AuthenticationType = "aws_signature"
)

// SQLConnectionConfig describes a database-backed system of record.
// For the sqlite driver, Database is a file path and Host/Port are unused.
type SQLConnectionConfig struct {
	ConnectionID   string `json:"connection_id"`
	Driver         string `json:"driver"`
	Host           string `json:"host"`
	Port           int    `json:"port"`
	Database       string `json:"database"`
	Username       string `json:"username"`
	Password       string `json:"password,omitempty"`
	MaxOpenConns   int    `json:"max_open_conns,omitempty"`
	ConnTimeoutSec int    `json:"connect_timeout_sec,omitempty"`
	AWSRegion      string `json:"aws_region,omitempty"`
	UseIAMAuth     bool   `json:"use_iam_auth,omitempty"`
}

// APIConnectionConfig describes a REST-backed system of record. APIKey holds
// the raw credential string whose shape depends on AuthType.
type APIConnectionConfig struct {
	ConnectionID    string             `json:"connection_id"`
	BaseURL         string             `json:"base_url"`
	APIKey          string             `json:"api_key,omitempty"`
	AuthType        AuthenticationType `json:"authentication_type"`
	TimeoutSec      int                `json:"timeout_sec,omitempty"`
	RateLimitPerMin int                `json:"rate_limit_per_min,omitempty"`
	RetryCount      int                `json:"retry_count,omitempty"`
	Region          string             `json:"region,omitempty"`
	ExtraHeaders    map[string]string  `json:"extra_headers,omitempty"`
}

const (
	ConfigTypeSQL = "sql"
	ConfigTypeAPI = "api"
)

// ConnectionConfig is the sum of the two config kinds: exactly one of SQL and
// API is non-nil. The flat config_type discriminator exists only in the
// persisted JSON form.
type ConnectionConfig struct {
	SQL *SQLConnectionConfig
	API *APIConnectionConfig
}

func (c ConnectionConfig) ID() string {
	if c.SQL != nil {
		return c.SQL.ConnectionID
	}
	if c.API != nil {
		return c.API.ConnectionID
	}
	return ""
}

func (c ConnectionConfig) Type() string {
	if c.SQL != nil {
		return ConfigTypeSQL
	}
	if c.API != nil {
		return ConfigTypeAPI
	}
	return ""
}

// MatchingSettings are the persisted matcher knobs applied per verification.
type MatchingSettings struct {
	FuzzyThreshold     float64            `json:"fuzzy_threshold"`
	DateToleranceDays  int                `json:"date_tolerance_days"`
	AmountTolerancePct float64            `json:"amount_variance_percentage"`
	FieldWeights       map[string]float64 `json:"field_weights,omitempty"`
	FuzzyVendor        bool               `json:"fuzzy_vendor_enabled"`
	FuzzyCustomer      bool               `json:"fuzzy_customer_enabled"`
	UpdatedAt          int64              `json:"updated_at,omitempty"`
}

func DefaultMatchingSettings() MatchingSettings {
	return MatchingSettings{
		FuzzyThreshold:     0.8,
		DateToleranceDays:  5,
		AmountTolerancePct: 2.0,
		FieldWeights: map[string]float64{
			"invoice_number": 0.30,
			"vendor_name":    0.20,
			"customer_name":  0.15,
			"invoice_date":   0.15,
			"total_amount":   0.20,
		},
		FuzzyVendor:   true,
		FuzzyCustomer: true,
	}
}

// ValidationResult collects structural and semantic findings about a config.
// Only errors flip validity; warnings and suggestions never do.
type ValidationResult struct {
	IsValid     bool     `json:"is_valid"`
	Errors      []string `json:"errors"`
	Warnings    []string `json:"warnings"`
	Suggestions []string `json:"suggestions"`
}

func NewValidationResult() *ValidationResult {
	return &ValidationResult{IsValid: true, Errors: []string{}, Warnings: []string{}, Suggestions: []string{}}
}

func (r *ValidationResult) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.IsValid = false
}

func (r *ValidationResult) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

func (r *ValidationResult) AddSuggestion(msg string) {
	r.Suggestions = append(r.Suggestions, msg)
}

// ConnectionTestResult reports a connectivity diagnostic. ProbeOnly is set
// when only TCP reachability was established, not a protocol-level exchange.
type ConnectionTestResult struct {
	Success   bool           `json:"success"`
	LatencyMs int64          `json:"latency_ms"`
	Message   string         `json:"message"`
	ProbeOnly bool           `json:"probe_only,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}
