package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	ConnectionsPath string
	SettingsPath    string
	BackupDir       string

	MasterKey      string
	EncryptionSalt string

	HTTPTimeoutMs     int
	RateLimitPerMin   int
	TCPProbeTimeoutMs int

	FuzzyThreshold     float64
	DateToleranceDays  int
	AmountTolerancePct float64
	AmountPrecision    int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		ConnectionsPath: getEnv("CONNECTIONS_PATH", filepath.Join(cwd, "data", "connections.json")),
		SettingsPath:    getEnv("SETTINGS_PATH", filepath.Join(cwd, "data", "settings.json")),
		BackupDir:       getEnv("BACKUP_DIR", filepath.Join(cwd, "data", "backups")),

		MasterKey:      getEnv("INVMATCH_MASTER_KEY", ""),
		EncryptionSalt: getEnv("INVMATCH_ENCRYPTION_SALT", "invmatch.credential.store"),

		HTTPTimeoutMs:     getEnvInt("HTTP_TIMEOUT_MS", 30000),
		RateLimitPerMin:   getEnvInt("RATE_LIMIT_PER_MIN", 60),
		TCPProbeTimeoutMs: getEnvInt("TCP_PROBE_TIMEOUT_MS", 5000),

		FuzzyThreshold:     getEnvFloat("FUZZY_MATCH_THRESHOLD", 0.8),
		DateToleranceDays:  getEnvInt("DATE_TOLERANCE_DAYS", 5),
		AmountTolerancePct: getEnvFloat("AMOUNT_TOLERANCE_PCT", 2.0),
		AmountPrecision:    getEnvInt("AMOUNT_PRECISION", 2),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
