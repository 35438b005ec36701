package connector

import (
	"context"

	"invmatch/internal"
)

// Connector abstracts the "search invoices" operation over a configured
// system of record, either a REST API or a SQL database.
type Connector interface {
	TestConnection(ctx context.Context) internal.ConnectionTestResult
	SearchInvoices(ctx context.Context, criteria internal.SearchCriteria) ([]map[string]any, error)
	Close() error
}
