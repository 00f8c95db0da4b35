// Package main provides a CLI for applying schema migrations.
// Usage: migrate [--dir migrations] [up|status]
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

const migrationsTable = `
	CREATE TABLE IF NOT EXISTS sys_schema_migrations (
		version    TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)
`

func main() {
	_ = godotenv.Load()

	dir := "migrations"
	command := "up"

	for i := 1; i < len(os.Args); i++ {
		switch os.Args[i] {
		case "--dir":
			if i+1 < len(os.Args) {
				dir = os.Args[i+1]
				i++
			}
		case "up", "status":
			command = os.Args[i]
		case "help", "--help", "-h":
			printUsage()
			return
		default:
			fmt.Printf("Unknown argument: %s\n", os.Args[i])
			printUsage()
			os.Exit(1)
		}
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		fmt.Println("Error: DATABASE_URL environment variable is required")
		os.Exit(1)
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		fmt.Printf("Error connecting to database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, migrationsTable); err != nil {
		fmt.Printf("Error preparing migrations table: %v\n", err)
		os.Exit(1)
	}

	applied, err := appliedVersions(ctx, pool)
	if err != nil {
		fmt.Printf("Error reading applied migrations: %v\n", err)
		os.Exit(1)
	}

	files, err := migrationFiles(dir)
	if err != nil {
		fmt.Printf("Error reading migrations directory: %v\n", err)
		os.Exit(1)
	}

	switch command {
	case "status":
		printStatus(files, applied)
	case "up":
		runUp(ctx, pool, dir, files, applied)
	}
}

func printUsage() {
	fmt.Println(`Clinika Migration CLI

Usage:
  migrate [--dir <path>] [command]

Commands:
  up      Apply all pending migrations (default)
  status  Show which migrations are applied

Environment Variables:
  DATABASE_URL    Connection string (required)`)
}

func appliedVersions(ctx context.Context, pool *pgxpool.Pool) (map[string]bool, error) {
	rows, err := pool.Query(ctx, "SELECT version FROM sys_schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func migrationFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	return files, nil
}

func printStatus(files []string, applied map[string]bool) {
	if len(files) == 0 {
		fmt.Println("No migration files found")
		return
	}

	fmt.Printf("%-40s %s\n", "VERSION", "STATUS")
	for _, f := range files {
		status := "pending"
		if applied[f] {
			status = "applied"
		}
		fmt.Printf("%-40s %s\n", f, status)
	}
}

func runUp(ctx context.Context, pool *pgxpool.Pool, dir string, files []string, applied map[string]bool) {
	pending := 0
	for _, f := range files {
		if applied[f] {
			continue
		}
		pending++

		fmt.Printf("Applying %s...\n", f)

		sql, err := os.ReadFile(filepath.Join(dir, f))
		if err != nil {
			fmt.Printf("  Error reading file: %v\n", err)
			os.Exit(1)
		}

		if err := applyMigration(ctx, pool, f, string(sql)); err != nil {
			fmt.Printf("  Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Println("  Done")
	}

	if pending == 0 {
		fmt.Println("Nothing to apply, schema is up to date")
	} else {
		fmt.Printf("Applied %d migration(s)\n", pending)
	}
}

// applyMigration runs a single migration file and records its version in
// the same transaction, so a failed migration leaves no trace.
func applyMigration(ctx context.Context, pool *pgxpool.Pool, version, sql string) error {
	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, sql); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			"INSERT INTO sys_schema_migrations (version) VALUES ($1)", version)
		return err
	})
}
