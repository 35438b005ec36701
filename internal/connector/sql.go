package connector

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	rdsauth "github.com/aws/aws-sdk-go-v2/feature/rds/auth"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"invmatch/internal"
	"invmatch/internal/config"
)

// SQLConnector searches an invoices table through database/sql. The driver
// comes from the connection config: sqlite, mysql, or postgres.
type SQLConnector struct {
	cfg internal.SQLConnectionConfig
	db  *sql.DB
	log *logrus.Logger
}

func NewSQLConnector(ctx context.Context, cfg internal.SQLConnectionConfig) (*SQLConnector, error) {
	driver, dsn, err := buildDSN(ctx, cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, &internal.ConnectorError{Op: "open", Err: err}
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	return &SQLConnector{cfg: cfg, db: db, log: config.GetLogger()}, nil
}

func buildDSN(ctx context.Context, cfg internal.SQLConnectionConfig) (string, string, error) {
	password := cfg.Password
	if cfg.UseIAMAuth {
		token, err := buildIAMToken(ctx, cfg)
		if err != nil {
			return "", "", &internal.ConfigError{Msg: "building RDS IAM auth token", Err: err}
		}
		password = token
	}

	switch cfg.Driver {
	case "sqlite":
		return "sqlite", cfg.Database, nil
	case "mysql":
		timeout := cfg.ConnTimeoutSec
		if timeout <= 0 {
			timeout = 10
		}
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&timeout=%ds",
			cfg.Username, password, cfg.Host, cfg.Port, cfg.Database, timeout)
		if cfg.UseIAMAuth {
			dsn += "&tls=true&allowCleartextPasswords=true"
		}
		return "mysql", dsn, nil
	case "postgres":
		parts := []string{
			fmt.Sprintf("host=%s", cfg.Host),
			fmt.Sprintf("port=%d", cfg.Port),
			fmt.Sprintf("dbname=%s", cfg.Database),
			fmt.Sprintf("user=%s", cfg.Username),
			fmt.Sprintf("password=%s", password),
		}
		if cfg.ConnTimeoutSec > 0 {
			parts = append(parts, fmt.Sprintf("connect_timeout=%d", cfg.ConnTimeoutSec))
		}
		if cfg.UseIAMAuth {
			parts = append(parts, "sslmode=require")
		}
		return "postgres", strings.Join(parts, " "), nil
	default:
		return "", "", &internal.ConfigError{Msg: "unsupported sql driver: " + cfg.Driver}
	}
}

func buildIAMToken(ctx context.Context, cfg internal.SQLConnectionConfig) (string, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return "", err
	}
	endpoint := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	return rdsauth.BuildAuthToken(ctx, endpoint, cfg.AWSRegion, cfg.Username, awsCfg.Credentials)
}

// TestConnection pings the database and reports latency.
func (c *SQLConnector) TestConnection(ctx context.Context) internal.ConnectionTestResult {
	started := time.Now()

	timeout := time.Duration(c.cfg.ConnTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := c.db.PingContext(pingCtx)
	latency := time.Since(started).Milliseconds()
	config.LogOp(c.log, "connector.sql", "test_connection", started, err)

	if err != nil {
		return internal.ConnectionTestResult{
			Success:   false,
			LatencyMs: latency,
			Message:   err.Error(),
			Details:   map[string]any{"connection_id": c.cfg.ConnectionID, "driver": c.cfg.Driver},
		}
	}
	return internal.ConnectionTestResult{
		Success:   true,
		LatencyMs: latency,
		Message:   "database ping succeeded",
		Details:   map[string]any{"connection_id": c.cfg.ConnectionID, "driver": c.cfg.Driver},
	}
}

// SearchInvoices queries the invoices table with the populated criteria
// fields; string matches are case-insensitive.
func (c *SQLConnector) SearchInvoices(ctx context.Context, criteria internal.SearchCriteria) ([]map[string]any, error) {
	started := time.Now()

	where := make([]string, 0, 4)
	args := make([]any, 0, 4)
	if criteria.InvoiceNumber != "" {
		where = append(where, "lower(invoice_number) = lower(?)")
		args = append(args, criteria.InvoiceNumber)
	}
	if criteria.VendorName != "" {
		where = append(where, "lower(vendor_name) LIKE lower(?)")
		args = append(args, "%"+criteria.VendorName+"%")
	}
	if criteria.CustomerName != "" {
		where = append(where, "lower(customer_name) LIKE lower(?)")
		args = append(args, "%"+criteria.CustomerName+"%")
	}
	if criteria.DateFrom != nil {
		where = append(where, "invoice_date >= ?")
		args = append(args, criteria.DateFrom.Format("2006-01-02"))
	}
	if criteria.DateTo != nil {
		where = append(where, "invoice_date <= ?")
		args = append(args, criteria.DateTo.Format("2006-01-02"))
	}

	query := "SELECT * FROM invoices"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	limit := criteria.Limit
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(" LIMIT %d", limit)

	if c.cfg.Driver == "postgres" {
		query = rebindPositional(query)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	config.LogOp(c.log, "connector.sql", "search_invoices", started, err)
	if err != nil {
		return nil, &internal.ConnectorError{Op: "search_invoices", Err: err}
	}
	defer rows.Close()

	records, err := rowsToRecords(rows)
	if err != nil {
		return nil, &internal.ConnectorError{Op: "search_invoices", Err: err}
	}
	return records, nil
}

func (c *SQLConnector) Close() error { return c.db.Close() }

// rebindPositional rewrites ? placeholders to postgres $1..$n form.
func rebindPositional(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func rowsToRecords(rows *sql.Rows) ([]map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	records := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		record := make(map[string]any, len(columns))
		for i, col := range columns {
			v := values[i]
			if raw, ok := v.([]byte); ok {
				v = string(raw)
			}
			record[col] = v
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
