package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gridbill/internal/auth"
	"gridbill/internal/maintenance"
	"gridbill/internal/observability/metrics"
	"gridbill/internal/reconciliation/application"
	reconinterfaces "gridbill/internal/reconciliation/interfaces"
	tariff "gridbill/internal/tariff/domain"
)

const timeLayout = time.RFC3339

// CostCalculator prices a meter's consumption across tariff versions.
type CostCalculator interface {
	CalculateAcrossPeriods(ctx context.Context, meterID, supplyAuthorityID, tariffName string, from, to time.Time, totalKWh, maxKVA *float64) tariff.CostResult
}

// CostHandler serves tariff cost calculations.
type CostHandler struct {
	costs CostCalculator
}

// NewCostHandler constructs a CostHandler.
func NewCostHandler(costs CostCalculator) *CostHandler {
	return &CostHandler{costs: costs}
}

// ServeHTTP handles GET /api/v1/costs.
func (h *CostHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.costs == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	meterID := r.URL.Query().Get("meter_id")
	supplyAuthorityID := r.URL.Query().Get("supply_authority_id")
	tariffName := r.URL.Query().Get("tariff_name")
	if meterID == "" || supplyAuthorityID == "" || tariffName == "" {
		http.Error(w, "meter_id, supply_authority_id and tariff_name are required", http.StatusBadRequest)
		return
	}

	from, err := parseTimeQuery(r, "from")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	to, err := parseTimeQuery(r, "to")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !to.After(from) {
		http.Error(w, "to must be after from", http.StatusBadRequest)
		return
	}

	totalKWh, err := parseFloatQuery(r, "total_kwh")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	maxKVA, err := parseFloatQuery(r, "max_kva")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	started := time.Now()
	result := h.costs.CalculateAcrossPeriods(r.Context(), meterID, supplyAuthorityID, tariffName, from, to, totalKWh, maxKVA)
	outcome := "success"
	if result.HasError {
		outcome = "error"
	}
	metrics.ObserveCostCalculation(outcome, time.Since(started))

	writeJSON(w, http.StatusOK, result)
}

// ReconciliationRunner executes site reconciliation runs.
type ReconciliationRunner interface {
	Run(ctx context.Context, params application.RunParams) (*application.Report, error)
}

// ReconciliationHandler serves reconciliation runs and report exports.
type ReconciliationHandler struct {
	runner ReconciliationRunner
	config application.Config
}

// NewReconciliationHandler constructs a ReconciliationHandler.
func NewReconciliationHandler(runner ReconciliationRunner, config application.Config) *ReconciliationHandler {
	return &ReconciliationHandler{runner: runner, config: config}
}

// ServeHTTP handles POST /api/v1/reconciliations and
// GET /api/v1/reconciliations/export.{xlsx,pdf}.
func (h *ReconciliationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.runner == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/v1/reconciliations":
		h.run(w, r)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/api/v1/reconciliations/export."):
		h.export(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type runRequest struct {
	SiteID string `json:"site_id"`
	From   string `json:"from"`
	To     string `json:"to"`
}

func (h *ReconciliationHandler) run(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	report, status, err := h.execute(r.Context(), req.SiteID, req.From, req.To)
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *ReconciliationHandler) export(w http.ResponseWriter, r *http.Request) {
	report, status, err := h.execute(r.Context(), r.URL.Query().Get("site_id"), r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}

	format := strings.TrimPrefix(r.URL.Path, "/api/v1/reconciliations/export.")
	started := time.Now()
	switch format {
	case "xlsx":
		data, err := reconinterfaces.BuildReconciliationXLSX(report)
		if err != nil {
			metrics.ObserveExport(format, "error", time.Since(started))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		metrics.ObserveExport(format, "success", time.Since(started))
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="reconciliation.xlsx"`)
		_, _ = w.Write(data)
	case "pdf":
		data, err := reconinterfaces.BuildReconciliationPDF(report)
		if err != nil {
			metrics.ObserveExport(format, "error", time.Since(started))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		metrics.ObserveExport(format, "success", time.Since(started))
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="reconciliation.pdf"`)
		_, _ = w.Write(data)
	default:
		http.Error(w, "unsupported format", http.StatusBadRequest)
	}
}

func (h *ReconciliationHandler) execute(ctx context.Context, siteID, fromRaw, toRaw string) (*application.Report, int, error) {
	if siteID == "" {
		return nil, http.StatusBadRequest, errors.New("site_id is required")
	}
	from, err := time.Parse(timeLayout, fromRaw)
	if err != nil {
		return nil, http.StatusBadRequest, errors.New("from must be RFC3339")
	}
	to, err := time.Parse(timeLayout, toRaw)
	if err != nil {
		return nil, http.StatusBadRequest, errors.New("to must be RFC3339")
	}

	siteConfig := h.config.ForSite(siteID)
	report, err := h.runner.Run(ctx, application.RunParams{
		SiteID:       siteID,
		From:         from,
		To:           to,
		Settings:     siteConfig.Settings(),
		Thresholds:   siteConfig.Thresholds,
		IndentLevels: siteConfig.IndentLevels,
	})
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	return report, http.StatusOK, nil
}

// MaintenanceHandler serves the admin cleanup command.
type MaintenanceHandler struct {
	service *maintenance.Service
	config  application.Config
}

// NewMaintenanceHandler constructs a MaintenanceHandler.
func NewMaintenanceHandler(service *maintenance.Service, config application.Config) *MaintenanceHandler {
	return &MaintenanceHandler{service: service, config: config}
}

type cleanupRequest struct {
	SiteID string `json:"site_id"`
}

// ServeHTTP handles POST /api/v1/maintenance/cleanup.
func (h *MaintenanceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.service == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	var req cleanupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.SiteID == "" {
		http.Error(w, "site_id is required", http.StatusBadRequest)
		return
	}

	siteConfig := h.config.ForSite(req.SiteID)
	report, err := h.service.Cleanup(
		r.Context(),
		req.SiteID,
		auth.SubjectFromContext(r.Context()),
		string(auth.RoleFromContext(r.Context())),
		siteConfig.Thresholds,
	)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func parseTimeQuery(r *http.Request, key string) (time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return time.Time{}, errors.New(key + " is required")
	}
	parsed, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}, errors.New(key + " must be RFC3339")
	}
	return parsed, nil
}

func parseFloatQuery(r *http.Request, key string) (*float64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, errors.New(key + " must be numeric")
	}
	return &parsed, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
