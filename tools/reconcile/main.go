package main

import (
	"database/sql"
	"errors"
	"log"
	"os"

	"github.com/spf13/cobra"

	"gridbill/internal/observability/metrics"
	reconapp "gridbill/internal/reconciliation/application"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var (
	dbURL  string
	db     *sql.DB
	cfg    reconapp.Config
	logger *log.Logger
)

var rootCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Site reconciliation and billing cost tool",
	Long: `Runs metering reconciliation for a site: aggregates meter readings,
rolls totals up the connection hierarchy, prices consumption against the
applicable tariff versions, and writes the supply/recovery report. Also
exposes admin data cleanup.`,
	PersistentPreRunE: persistentPreRun,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")), "Postgres DSN")
}

func persistentPreRun(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "help" || cmd.Name() == "completion" {
		return nil
	}

	logger = log.New(os.Stderr, "", log.LstdFlags)
	metrics.Init(logger)

	var err error
	cfg, err = reconapp.LoadConfig()
	if err != nil {
		return err
	}

	if dbURL == "" {
		return errors.New("missing --db or DATABASE_URL/PG_DSN")
	}
	db, err = sql.Open("pgx", dbURL)
	if err != nil {
		return err
	}
	if err := db.Ping(); err != nil {
		return err
	}
	return nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func main() {
	defer func() {
		if db != nil {
			db.Close()
		}
	}()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
