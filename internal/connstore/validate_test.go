package connstore

import (
	"strings"
	"testing"

	"invmatch/internal"
)

func validSQL() internal.SQLConnectionConfig {
	return internal.SQLConnectionConfig{
		ConnectionID: "prod-db",
		Driver:       "postgres",
		Host:         "db.example.com",
		Port:         5432,
		Database:     "erp",
		Username:     "invoices",
		Password:     "long-enough-pass",
	}
}

func validAPI() internal.APIConnectionConfig {
	return internal.APIConnectionConfig{
		ConnectionID: "erp-api",
		BaseURL:      "https://erp.example.com/api",
		APIKey:       "an-api-key-of-decent-length",
		AuthType:     internal.AuthAPIKey,
		TimeoutSec:   30,
	}
}

func hasMessage(msgs []string, fragment string) bool {
	for _, m := range msgs {
		if strings.Contains(m, fragment) {
			return true
		}
	}
	return false
}

func TestValidateSQLHappyPath(t *testing.T) {
	result := NewValidator().ValidateSQL(validSQL())
	if !result.IsValid {
		t.Fatalf("errors: %v", result.Errors)
	}
	if len(result.Warnings) != 0 {
		t.Fatalf("warnings: %v", result.Warnings)
	}
}

func TestValidateSQLRequiredFields(t *testing.T) {
	cfg := validSQL()
	cfg.Host = ""
	cfg.Database = ""
	cfg.Username = ""

	result := NewValidator().ValidateSQL(cfg)
	if result.IsValid {
		t.Fatalf("missing fields must invalidate")
	}
	if len(result.Errors) < 3 {
		t.Fatalf("errors: %v", result.Errors)
	}
}

func TestValidateSQLBadConnectionID(t *testing.T) {
	cfg := validSQL()
	cfg.ConnectionID = "has spaces!"
	if result := NewValidator().ValidateSQL(cfg); result.IsValid {
		t.Fatalf("bad id must invalidate")
	}
}

func TestValidateSQLPasswordRules(t *testing.T) {
	cfg := validSQL()
	cfg.Password = ""
	result := NewValidator().ValidateSQL(cfg)
	if result.IsValid {
		t.Fatalf("no password and no IAM must invalidate")
	}

	cfg.Password = "short"
	result = NewValidator().ValidateSQL(cfg)
	if !result.IsValid {
		t.Fatalf("short password is a warning, not an error: %v", result.Errors)
	}
	if !hasMessage(result.Warnings, "shorter than 8") {
		t.Fatalf("warnings: %v", result.Warnings)
	}
}

func TestValidateSQLIAMConsistency(t *testing.T) {
	cfg := validSQL()
	cfg.UseIAMAuth = true
	cfg.AWSRegion = ""

	result := NewValidator().ValidateSQL(cfg)
	if result.IsValid {
		t.Fatalf("IAM without region must invalidate")
	}
	if !hasMessage(result.Warnings, "password is ignored") {
		t.Fatalf("warnings: %v", result.Warnings)
	}
}

func TestValidateSQLNonStandardPortWarning(t *testing.T) {
	cfg := validSQL()
	cfg.Port = 5433

	result := NewValidator().ValidateSQL(cfg)
	if !result.IsValid {
		t.Fatalf("non-standard port is only a warning")
	}
	if !hasMessage(result.Warnings, "standard postgres port") {
		t.Fatalf("warnings: %v", result.Warnings)
	}
}

func TestValidateSQLRDSHeuristics(t *testing.T) {
	cfg := validSQL()
	cfg.Host = "erp.abc123xyz.eu-central-1.rds.amazonaws.com"
	cfg.AWSRegion = ""

	result := NewValidator().ValidateSQL(cfg)
	if !result.IsValid {
		t.Fatalf("errors: %v", result.Errors)
	}
	if !hasMessage(result.Suggestions, "IAM authentication") {
		t.Fatalf("suggestions: %v", result.Suggestions)
	}
	if !hasMessage(result.Suggestions, "eu-central-1") {
		t.Fatalf("region suggestion missing: %v", result.Suggestions)
	}
}

func TestValidateSQLiteNeedsOnlyPath(t *testing.T) {
	cfg := internal.SQLConnectionConfig{ConnectionID: "local", Driver: "sqlite", Database: "/tmp/invoices.db"}
	if result := NewValidator().ValidateSQL(cfg); !result.IsValid {
		t.Fatalf("errors: %v", result.Errors)
	}

	cfg.Database = ""
	if result := NewValidator().ValidateSQL(cfg); result.IsValid {
		t.Fatalf("sqlite without a path must invalidate")
	}
}

func TestValidateAPIHappyPath(t *testing.T) {
	result := NewValidator().ValidateAPI(validAPI())
	if !result.IsValid {
		t.Fatalf("errors: %v", result.Errors)
	}
}

func TestValidateAPIBadURL(t *testing.T) {
	cfg := validAPI()
	cfg.BaseURL = "ftp://erp.example.com"
	if result := NewValidator().ValidateAPI(cfg); result.IsValid {
		t.Fatalf("ftp scheme must invalidate")
	}

	cfg.BaseURL = "not a url"
	if result := NewValidator().ValidateAPI(cfg); result.IsValid {
		t.Fatalf("relative url must invalidate")
	}
}

func TestValidateAPIBasicAuthCredentialShape(t *testing.T) {
	cfg := validAPI()
	cfg.AuthType = internal.AuthBasic
	cfg.APIKey = "nodelimiter"

	result := NewValidator().ValidateAPI(cfg)
	if result.IsValid {
		t.Fatalf("basic credential without separator must invalidate")
	}
	if !hasMessage(result.Errors, "username:password") {
		t.Fatalf("error should name the username:password format: %v", result.Errors)
	}
}

func TestValidateAPIAWSCredentialShape(t *testing.T) {
	cfg := validAPI()
	cfg.AuthType = internal.AuthAWSSignature
	cfg.APIKey = "onlyaccess"

	if result := NewValidator().ValidateAPI(cfg); result.IsValid {
		t.Fatalf("aws credential without secret must invalidate")
	}

	cfg.APIKey = "AKID:secret"
	result := NewValidator().ValidateAPI(cfg)
	if !result.IsValid {
		t.Fatalf("errors: %v", result.Errors)
	}
	if !hasMessage(result.Warnings, "us-east-1") {
		t.Fatalf("missing-region warning expected: %v", result.Warnings)
	}
}

func TestValidateAPISanityBounds(t *testing.T) {
	cfg := validAPI()
	cfg.TimeoutSec = -1
	if result := NewValidator().ValidateAPI(cfg); result.IsValid {
		t.Fatalf("negative timeout must invalidate")
	}

	cfg = validAPI()
	cfg.TimeoutSec = 900
	cfg.RateLimitPerMin = 100000
	result := NewValidator().ValidateAPI(cfg)
	if !result.IsValid {
		t.Fatalf("high bounds are warnings: %v", result.Errors)
	}
	if len(result.Warnings) < 2 {
		t.Fatalf("warnings: %v", result.Warnings)
	}
}

func TestValidateAPIGatewayHeuristic(t *testing.T) {
	cfg := validAPI()
	cfg.BaseURL = "https://abc123.execute-api.ap-southeast-2.amazonaws.com/prod"

	result := NewValidator().ValidateAPI(cfg)
	if !hasMessage(result.Suggestions, "aws_signature") {
		t.Fatalf("suggestions: %v", result.Suggestions)
	}
	if !hasMessage(result.Suggestions, "ap-southeast-2") {
		t.Fatalf("region suggestion missing: %v", result.Suggestions)
	}
}
