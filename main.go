package main

import (
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	apihttp "gridbill/internal/api/http"
	"gridbill/internal/audit"
	"gridbill/internal/auth"
	hierarchyrepo "gridbill/internal/hierarchy/infrastructure/postgres"
	"gridbill/internal/maintenance"
	maintenancerepo "gridbill/internal/maintenance/infrastructure/postgres"
	meteringrepo "gridbill/internal/metering/infrastructure/postgres"
	"gridbill/internal/observability/metrics"
	reconapp "gridbill/internal/reconciliation/application"
	"gridbill/internal/tariff/calculator"
	tariffrepo "gridbill/internal/tariff/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(logger)

	reconConfig, err := reconapp.LoadConfig()
	if err != nil {
		logger.Fatalf("reconciliation config error: %v", err)
	}

	meterRepo := meteringrepo.NewMeterRepository(db)
	readingRepo := meteringrepo.NewReadingRepository(db)
	tariffRepo := tariffrepo.NewTariffRepository(db)
	connectionRepo := hierarchyrepo.NewConnectionRepository(db)

	splitter, err := calculator.NewSplitter(tariffRepo, tariffRepo, readingRepo)
	if err != nil {
		logger.Fatalf("cost splitter error: %v", err)
	}

	reconService, err := reconapp.NewService(
		meterRepo,
		readingRepo,
		connectionRepo,
		splitter,
		logger,
		reconapp.WithConcurrency(cfg.Concurrency),
	)
	if err != nil {
		logger.Fatalf("reconciliation service error: %v", err)
	}

	auditRepo := audit.NewRepository(db)
	maintenanceService, err := maintenance.NewService(maintenancerepo.NewStore(db), auditRepo, logger)
	if err != nil {
		logger.Fatalf("maintenance service error: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/api/v1/costs", apihttp.NewCostHandler(splitter))
	reconHandler := apihttp.NewReconciliationHandler(reconService, reconConfig)
	mux.Handle("/api/v1/reconciliations", reconHandler)
	mux.Handle("/api/v1/reconciliations/", reconHandler)
	mux.Handle("/api/v1/maintenance/cleanup", apihttp.NewMaintenanceHandler(maintenanceService, reconConfig))

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	handler := auth.NewMiddleware([]byte(cfg.JWTSecret), policy).Wrap(mux)
	handler = loggingMiddleware(handler, logger)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Printf("listening on %s", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil {
		logger.Fatalf("http server error: %v", err)
	}
}

type config struct {
	DatabaseURL string
	HTTPAddr    string
	JWTSecret   string
	Concurrency int
}

func loadConfig() config {
	cfg := config{
		DatabaseURL: getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:    getenvDefault("HTTP_ADDR", ":8080"),
		JWTSecret:   getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		Concurrency: getenvIntDefault("RECONCILE_CONCURRENCY", 4),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
