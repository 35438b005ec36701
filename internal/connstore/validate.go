package connstore

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"invmatch/internal"
)

var connectionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Well-known server ports used for mismatch warnings.
var standardPorts = map[string]int{
	"mysql":    3306,
	"postgres": 5432,
}

// Validator runs structural checks (via go-playground/validator) and
// semantic heuristics over connection configs, folding both into a
// ValidationResult. Errors flip validity; warnings and suggestions never do.
type Validator struct {
	checks *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{checks: validator.New()}
}

func (v *Validator) ValidateConnection(cfg internal.ConnectionConfig) *internal.ValidationResult {
	switch {
	case cfg.SQL != nil:
		return v.ValidateSQL(*cfg.SQL)
	case cfg.API != nil:
		return v.ValidateAPI(*cfg.API)
	default:
		result := internal.NewValidationResult()
		result.AddError("connection config has no variant set")
		return result
	}
}

func (v *Validator) ValidateSQL(cfg internal.SQLConnectionConfig) *internal.ValidationResult {
	result := internal.NewValidationResult()

	v.checkConnectionID(cfg.ConnectionID, result)

	if err := v.checks.Var(cfg.Driver, "required,oneof=sqlite mysql postgres"); err != nil {
		result.AddError(fmt.Sprintf("driver %q is not one of sqlite, mysql, postgres", cfg.Driver))
		return result
	}

	if cfg.Driver == "sqlite" {
		if err := v.checks.Var(cfg.Database, "required"); err != nil {
			result.AddError("sqlite connections need a database file path")
		}
		return result
	}

	if err := v.checks.Var(cfg.Host, "required,hostname|ip"); err != nil {
		result.AddError("host is required and must be a hostname or IP address")
	}
	if err := v.checks.Var(cfg.Port, "required,min=1,max=65535"); err != nil {
		result.AddError(fmt.Sprintf("port %d is outside 1-65535", cfg.Port))
	}
	if err := v.checks.Var(cfg.Database, "required"); err != nil {
		result.AddError("database name is required")
	}
	if err := v.checks.Var(cfg.Username, "required"); err != nil {
		result.AddError("username is required")
	}

	if cfg.UseIAMAuth {
		if cfg.AWSRegion == "" {
			result.AddError("IAM authentication requires aws_region")
		}
		if cfg.Password != "" {
			result.AddWarning("password is ignored when IAM authentication is enabled")
		}
	} else {
		if cfg.Password == "" {
			result.AddError("password is required unless IAM authentication is enabled")
		} else if len(cfg.Password) < 8 {
			result.AddWarning("password is shorter than 8 characters")
		}
	}

	if standard, ok := standardPorts[cfg.Driver]; ok && cfg.Port != 0 && cfg.Port != standard {
		result.AddWarning(fmt.Sprintf("port %d is not the standard %s port %d", cfg.Port, cfg.Driver, standard))
	}

	if strings.Contains(cfg.Host, ".rds.amazonaws.com") {
		result.AddSuggestion("host looks like AWS RDS: ensure SSL is enforced on the server")
		if !cfg.UseIAMAuth {
			result.AddSuggestion("consider IAM authentication instead of a static password for RDS")
		}
		if region := regionFromRDSHost(cfg.Host); region != "" && cfg.AWSRegion == "" {
			result.AddSuggestion("set aws_region to " + region + " (derived from the RDS hostname)")
		}
	}

	return result
}

func (v *Validator) ValidateAPI(cfg internal.APIConnectionConfig) *internal.ValidationResult {
	result := internal.NewValidationResult()

	v.checkConnectionID(cfg.ConnectionID, result)

	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil || parsed.Host == "" {
		result.AddError("base_url must be an absolute URL")
	} else if parsed.Scheme != "http" && parsed.Scheme != "https" {
		result.AddError(fmt.Sprintf("base_url scheme %q is not http or https", parsed.Scheme))
	} else if parsed.Scheme == "http" {
		result.AddWarning("base_url uses plain http; credentials travel unencrypted")
	}

	v.checkAPICredential(cfg, result)

	if cfg.TimeoutSec < 0 {
		result.AddError("timeout_sec cannot be negative")
	} else if cfg.TimeoutSec > 300 {
		result.AddWarning(fmt.Sprintf("timeout_sec %d is unusually high", cfg.TimeoutSec))
	}
	if cfg.RateLimitPerMin < 0 {
		result.AddError("rate_limit_per_min cannot be negative")
	} else if cfg.RateLimitPerMin > 6000 {
		result.AddWarning(fmt.Sprintf("rate_limit_per_min %d is unusually high", cfg.RateLimitPerMin))
	}
	if cfg.RetryCount < 0 {
		result.AddError("retry_count cannot be negative")
	} else if cfg.RetryCount > 10 {
		result.AddWarning(fmt.Sprintf("retry_count %d is unusually high", cfg.RetryCount))
	}

	if parsed != nil && strings.Contains(parsed.Host, ".execute-api.") {
		result.AddSuggestion("base_url looks like AWS API Gateway: aws_signature authentication is usually required")
		if cfg.Region == "" {
			if region := regionFromGatewayHost(parsed.Host); region != "" {
				result.AddSuggestion("set region to " + region + " (derived from the API Gateway hostname)")
			}
		}
	}

	return result
}

func (v *Validator) checkConnectionID(id string, result *internal.ValidationResult) {
	if id == "" {
		result.AddError("connection_id is required")
		return
	}
	if !connectionIDPattern.MatchString(id) {
		result.AddError("connection_id may only contain letters, digits, hyphens, and underscores (max 64)")
	}
}

func (v *Validator) checkAPICredential(cfg internal.APIConnectionConfig, result *internal.ValidationResult) {
	credential := strings.TrimSpace(cfg.APIKey)

	switch cfg.AuthType {
	case internal.AuthAPIKey:
		if credential == "" {
			result.AddError("api_key credential is required")
		} else if len(credential) < 16 {
			result.AddWarning("api_key credential is shorter than 16 characters")
		}
	case internal.AuthBasic:
		if !strings.Contains(credential, ":") {
			result.AddError("basic_auth credential must be in username:password format")
		}
	case internal.AuthAWSSignature:
		parts := strings.SplitN(credential, ":", 3)
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			result.AddError("aws_signature credential must be in access_key:secret_key format")
		}
		if cfg.Region == "" {
			result.AddWarning("aws_signature without a region defaults to us-east-1")
		}
	case internal.AuthBearerToken:
		if credential == "" {
			result.AddError("bearer_token credential is required")
		} else if !strings.HasPrefix(credential, "{") && len(credential) < 10 {
			result.AddError("bearer_token credential is shorter than 10 characters")
		}
	default:
		result.AddError(fmt.Sprintf("authentication_type %q is not supported", cfg.AuthType))
	}
}

// regionFromRDSHost pulls the region segment out of hostnames shaped like
// name.identifier.us-east-1.rds.amazonaws.com.
func regionFromRDSHost(host string) string {
	parts := strings.Split(host, ".")
	for i, part := range parts {
		if part == "rds" && i > 0 {
			return parts[i-1]
		}
	}
	return ""
}

// regionFromGatewayHost pulls the region out of hostnames shaped like
// id.execute-api.us-east-1.amazonaws.com.
func regionFromGatewayHost(host string) string {
	parts := strings.Split(host, ".")
	for i, part := range parts {
		if part == "execute-api" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return ""
}
