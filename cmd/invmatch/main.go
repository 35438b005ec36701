package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"invmatch/internal"
	"invmatch/internal/config"
	"invmatch/internal/connstore"
	"invmatch/internal/verify"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	store, err := connstore.NewManager(cfg)
	must(err)

	cmd := os.Args[1]
	switch cmd {
	case "config-save":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		kind := fs.String("type", "", "sql|api")
		id := fs.String("id", "", "connection id")
		driver := fs.String("driver", "postgres", "sqlite|mysql|postgres")
		host := fs.String("host", "", "database host")
		port := fs.Int("port", 0, "database port")
		database := fs.String("db", "", "database name or sqlite file path")
		user := fs.String("user", "", "database username")
		password := fs.String("password", "", "database password")
		iam := fs.Bool("iam", false, "use AWS IAM authentication")
		url := fs.String("url", "", "API base url")
		credential := fs.String("credential", "", "API credential string")
		auth := fs.String("auth", "api_key", "api_key|bearer_token|basic_auth|aws_signature")
		timeout := fs.Int("timeout", 30, "API timeout seconds")
		rate := fs.Int("rate-limit", 60, "API requests per minute")
		region := fs.String("region", "", "AWS region")
		_ = fs.Parse(os.Args[2:])

		conn, err := buildConfig(*kind, *id, connFlags{
			driver: *driver, host: *host, port: *port, database: *database,
			user: *user, password: *password, iam: *iam,
			url: *url, credential: *credential, auth: *auth,
			timeout: *timeout, rate: *rate, region: *region,
		})
		must(err)

		validation := connstore.NewValidator().ValidateConnection(conn)
		if !validation.IsValid {
			printJSON(validation)
			os.Exit(1)
		}
		must(store.SaveConnection(conn))
		for _, w := range validation.Warnings {
			fmt.Fprintf(os.Stderr, "warning: %s\n", w)
		}
		for _, s := range validation.Suggestions {
			fmt.Fprintf(os.Stderr, "suggestion: %s\n", s)
		}
		fmt.Printf("saved connection %s\n", conn.ID())
	case "config-list":
		summaries, err := store.ListConnections()
		must(err)
		printJSON(summaries)
	case "config-delete":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.String("id", "", "connection id")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*id) == "" {
			must(fmt.Errorf("--id is required"))
		}
		must(store.DeleteConnection(*id))
		fmt.Printf("deleted connection %s (backup taken)\n", *id)
	case "config-test":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.String("id", "", "connection id")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*id) == "" {
			must(fmt.Errorf("--id is required"))
		}
		conn, err := store.LoadConnection(*id)
		must(err)
		tester := connstore.NewTester(cfg)
		result := tester.TestConnection(context.Background(), conn)
		printJSON(result)
		if !result.Success {
			os.Exit(1)
		}
	case "verify":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.String("connection", "", "connection id")
		invoicePath := fs.String("invoice", "", "invoice JSON file path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*id) == "" || strings.TrimSpace(*invoicePath) == "" {
			must(fmt.Errorf("--connection and --invoice are required"))
		}
		raw, err := os.ReadFile(*invoicePath)
		must(err)
		var invoice internal.InvoiceData
		must(json.Unmarshal(raw, &invoice))

		svc := verify.NewService(store, cfg)
		result := svc.Verify(context.Background(), invoice, *id, nil)
		printJSON(result)
	case "backup":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		label := fs.String("label", "manual", "backup label")
		_ = fs.Parse(os.Args[2:])
		path, err := store.CreateBackup(*label)
		must(err)
		fmt.Printf("backup written to %s\n", path)
	case "restore":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		file := fs.String("file", "", "backup file path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*file) == "" {
			must(fmt.Errorf("--file is required"))
		}
		must(store.RestoreBackup(*file))
		fmt.Printf("restored from %s (pre-restore backup taken)\n", *file)
	case "settings":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		threshold := fs.Float64("fuzzy-threshold", -1, "fuzzy match threshold")
		dateTol := fs.Int("date-tolerance", -1, "date tolerance in days")
		amountTol := fs.Float64("amount-tolerance", -1, "amount variance percentage")
		_ = fs.Parse(os.Args[2:])

		settings, err := store.LoadSettings()
		must(err)
		changed := false
		if *threshold >= 0 {
			settings.FuzzyThreshold = *threshold
			changed = true
		}
		if *dateTol >= 0 {
			settings.DateToleranceDays = *dateTol
			changed = true
		}
		if *amountTol >= 0 {
			settings.AmountTolerancePct = *amountTol
			changed = true
		}
		if changed {
			must(store.SaveSettings(settings))
			settings, err = store.LoadSettings()
			must(err)
		}
		printJSON(settings)
	default:
		usage()
		os.Exit(1)
	}
}

type connFlags struct {
	driver, host, database, user, password string
	port                                   int
	iam                                    bool
	url, credential, auth, region          string
	timeout, rate                          int
}

func buildConfig(kind, id string, f connFlags) (internal.ConnectionConfig, error) {
	if strings.TrimSpace(id) == "" {
		return internal.ConnectionConfig{}, fmt.Errorf("--id is required")
	}
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case internal.ConfigTypeSQL:
		return internal.ConnectionConfig{SQL: &internal.SQLConnectionConfig{
			ConnectionID: id,
			Driver:       f.driver,
			Host:         f.host,
			Port:         f.port,
			Database:     f.database,
			Username:     f.user,
			Password:     f.password,
			AWSRegion:    f.region,
			UseIAMAuth:   f.iam,
		}}, nil
	case internal.ConfigTypeAPI:
		return internal.ConnectionConfig{API: &internal.APIConnectionConfig{
			ConnectionID:    id,
			BaseURL:         f.url,
			APIKey:          f.credential,
			AuthType:        internal.AuthenticationType(f.auth),
			TimeoutSec:      f.timeout,
			RateLimitPerMin: f.rate,
			Region:          f.region,
		}}, nil
	default:
		return internal.ConnectionConfig{}, fmt.Errorf("--type must be sql or api")
	}
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	must(err)
	fmt.Println(string(out))
}

func usage() {
	fmt.Println("usage: invmatch <command>")
	fmt.Println("commands:")
	fmt.Println("  config-save --type=sql --id=... --driver=postgres --host=... --port=5432 --db=... --user=... --password=... [--iam --region=...]")
	fmt.Println("  config-save --type=api --id=... --url=https://... --credential=... --auth=api_key|bearer_token|basic_auth|aws_signature [--region=...]")
	fmt.Println("  config-list")
	fmt.Println("  config-delete --id=...")
	fmt.Println("  config-test --id=...")
	fmt.Println("  verify --connection=... --invoice=./invoice.json")
	fmt.Println("  backup [--label=manual]")
	fmt.Println("  restore --file=./backups/....json")
	fmt.Println("  settings [--fuzzy-threshold=0.8] [--date-tolerance=5] [--amount-tolerance=2.0]")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
