package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"expense-ledger/internal/config"
	"expense-ledger/internal/legacy"
	"expense-ledger/internal/services"
	"expense-ledger/internal/storage"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("importlegacy", flag.ContinueOnError)
	fs.SetOutput(stderr)

	username := fs.String("user", "", "Owner of the imported expenses")
	file := fs.String("file", "expenses.txt", "Legacy ledger file")
	driver := fs.String("driver", storage.DriverSQLite, "Database driver: sqlite or postgres")
	dsn := fs.String("db", config.DefaultDBPath, "Path to sqlite database file, or postgres connection URL")
	lenient := fs.Bool("skip-invalid", false, "Import valid lines even if some lines are malformed")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*username) == "" {
		fmt.Fprintln(stdout, "Usage: importlegacy -user <username> [-file expenses.txt] [-driver sqlite|postgres] [-db <path or url>]")
		fs.PrintDefaults()
		return fmt.Errorf("missing required flags: user")
	}

	f, err := os.Open(*file)
	if err != nil {
		return fmt.Errorf("failed to open ledger file: %w", err)
	}
	defer f.Close()

	entries, parseErr := legacy.Parse(f)
	if parseErr != nil {
		var lineErr *legacy.LineError
		if !errors.As(parseErr, &lineErr) || !*lenient {
			return fmt.Errorf("invalid ledger file:\n%w", parseErr)
		}
		fmt.Fprintf(stderr, "Skipping malformed lines:\n%v\n", parseErr)
	}

	dbDriver, dbDSN := config.ResolveDatabase(*driver, *dsn)
	ctx := context.Background()
	db, err := storage.Open(ctx, storage.Options{Driver: dbDriver, DSN: dbDSN})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	owner, err := db.GetUserByUsername(ctx, *username)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("user %s does not exist", *username)
	}
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}

	// All or nothing: a failure part way leaves the ledger untouched.
	err = db.ExecTx(ctx, func(tx *storage.DB) error {
		ledger := services.NewLedger(tx, tx, tx)
		for _, e := range entries {
			if _, err := ledger.AddExpense(ctx, owner.ID, e.Description, e.Amount, nil); err != nil {
				return fmt.Errorf("line %d: %w", e.Line, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Fprintf(stdout, "Imported %d expenses for %s\n", len(entries), owner.Username)
	return nil
}
