package connector

import (
	"context"

	"invmatch/internal"
	"invmatch/internal/auth"
	"invmatch/internal/config"
)

// Build constructs the connector matching the config variant. The app config
// supplies fallback timeout and rate-limit defaults.
func Build(ctx context.Context, app config.Config, cfg internal.ConnectionConfig) (Connector, error) {
	switch {
	case cfg.API != nil:
		authn, err := auth.New(cfg.API.AuthType, cfg.API.APIKey, auth.Options{Region: cfg.API.Region})
		if err != nil {
			return nil, err
		}
		return NewAPIConnector(*cfg.API, authn, app), nil
	case cfg.SQL != nil:
		return NewSQLConnector(ctx, *cfg.SQL)
	default:
		return nil, &internal.ConfigError{Msg: "connection config has no variant set"}
	}
}
