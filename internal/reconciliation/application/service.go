package application

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"gridbill/internal/aggregation"
	"gridbill/internal/hierarchy"
	metering "gridbill/internal/metering/domain"
	"gridbill/internal/observability/metrics"
	reconciliation "gridbill/internal/reconciliation/domain"
	tariff "gridbill/internal/tariff/domain"
	"gridbill/internal/validation"
)

// MeterLister lists the meters of a site.
type MeterLister interface {
	ListBySite(ctx context.Context, siteID string) ([]metering.Meter, error)
}

// ReadingLister fetches readings for a meter within [from, to].
type ReadingLister interface {
	ListRange(ctx context.Context, meterID string, from, to time.Time) ([]metering.Reading, error)
}

// EdgeLister lists explicit parent/child meter connections of a site.
type EdgeLister interface {
	ListBySite(ctx context.Context, siteID string) ([]hierarchy.Edge, error)
}

// CostCalculator prices a meter's consumption over a date range, splitting
// across effective tariff versions.
type CostCalculator interface {
	CalculateAcrossPeriods(ctx context.Context, meterID, supplyAuthorityID, tariffName string, from, to time.Time, totalKWh, maxKVA *float64) tariff.CostResult
}

// MeterRow is one meter's line in a reconciliation run. Own holds the
// meter's processed column values; Rollup holds the bottom-up aggregate of
// its children (equal to Own for leaves). ErrorMessage records a per-meter
// cost failure without aborting the run.
type MeterRow struct {
	Meter           metering.Meter
	Depth           int
	RowCount        int
	Own             aggregation.Result
	Rollup          aggregation.Result
	Cost            *tariff.CostResult
	CorruptReadings []string
	ErrorMessage    string
}

// Report is the outcome of a site reconciliation run.
type Report struct {
	SiteID        string
	From          time.Time
	To            time.Time
	Rows          []MeterRow
	Totals        reconciliation.Totals
	CycleWarnings []string
	GeneratedAt   time.Time
}

// Service runs site reconciliations: it validates and aggregates readings
// per meter, rolls totals up the connection hierarchy leaves-first, prices
// metered consumption, and produces the supply/recovery summary.
type Service struct {
	meters      MeterLister
	readings    ReadingLister
	edges       EdgeLister
	costs       CostCalculator
	logger      *log.Logger
	concurrency int
}

// Option configures the service.
type Option func(*Service)

// WithConcurrency bounds how many meters are processed in parallel.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewService constructs a reconciliation service.
func NewService(meters MeterLister, readings ReadingLister, edges EdgeLister, costs CostCalculator, logger *log.Logger, opts ...Option) (*Service, error) {
	if meters == nil {
		return nil, errors.New("reconciliation: nil meter lister")
	}
	if readings == nil {
		return nil, errors.New("reconciliation: nil reading lister")
	}
	if edges == nil {
		return nil, errors.New("reconciliation: nil edge lister")
	}
	if costs == nil {
		return nil, errors.New("reconciliation: nil cost calculator")
	}
	if logger == nil {
		logger = log.Default()
	}
	s := &Service{
		meters:      meters,
		readings:    readings,
		edges:       edges,
		costs:       costs,
		logger:      logger,
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RunParams are the caller-supplied inputs for one reconciliation run.
// IndentLevels is the positional fallback used to infer the hierarchy when
// the site has no explicit connection edges.
type RunParams struct {
	SiteID       string
	From         time.Time
	To           time.Time
	Settings     aggregation.Settings
	Thresholds   validation.Thresholds
	IndentLevels map[string]int
}

// Run executes a full reconciliation for a site. One meter's failure (bad
// tariff, fetch error) is recorded on its row; it never aborts the batch.
func (s *Service) Run(ctx context.Context, params RunParams) (*Report, error) {
	started := time.Now()
	if params.SiteID == "" {
		return nil, errors.New("reconciliation: empty site id")
	}
	if params.To.Before(params.From) {
		return nil, errors.New("reconciliation: to before from")
	}
	settings := params.Settings.Clone()
	thresholds := params.Thresholds
	if thresholds == (validation.Thresholds{}) {
		thresholds = validation.DefaultThresholds()
	}

	meters, err := s.meters.ListBySite(ctx, params.SiteID)
	if err != nil {
		metrics.ObserveReconciliationRun("error", time.Since(started))
		return nil, err
	}

	resolver, err := s.buildResolver(ctx, params, meters)
	if err != nil {
		metrics.ObserveReconciliationRun("error", time.Since(started))
		return nil, err
	}

	rows, err := s.computeOwnTotals(ctx, meters, params, settings, thresholds)
	if err != nil {
		metrics.ObserveReconciliationRun("error", time.Since(started))
		return nil, err
	}

	s.rollup(resolver, rows)
	s.priceMeters(ctx, params, rows)

	report := &Report{
		SiteID:        params.SiteID,
		From:          params.From,
		To:            params.To,
		Totals:        siteTotals(rows),
		CycleWarnings: resolver.CycleWarnings(),
		GeneratedAt:   time.Now().UTC(),
	}
	ordered := resolver.SortByDepth(meters)
	for _, meter := range ordered {
		report.Rows = append(report.Rows, *rows[meter.ID])
	}
	for _, id := range report.CycleWarnings {
		metrics.IncCycleWarning()
		s.logger.Printf("reconciliation site=%s cycle detected at meter %s", params.SiteID, id)
	}

	metrics.ObserveReconciliationRun("success", time.Since(started))
	return report, nil
}

func (s *Service) buildResolver(ctx context.Context, params RunParams, meters []metering.Meter) (*hierarchy.Resolver, error) {
	edges, err := s.edges.ListBySite(ctx, params.SiteID)
	if err != nil {
		return nil, err
	}
	if len(edges) == 0 && len(params.IndentLevels) > 0 {
		edges = hierarchy.DeriveConnectionsFromIndents(meters, params.IndentLevels)
	}
	return hierarchy.NewResolver(edges), nil
}

// computeOwnTotals fetches, validates, and reduces each meter's readings.
// Meters are independent here, so they run concurrently.
func (s *Service) computeOwnTotals(ctx context.Context, meters []metering.Meter, params RunParams, settings aggregation.Settings, thresholds validation.Thresholds) (map[string]*MeterRow, error) {
	rows := make(map[string]*MeterRow, len(meters))
	for i := range meters {
		rows[meters[i].ID] = &MeterRow{Meter: meters[i]}
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.concurrency)
	for _, meter := range meters {
		row := rows[meter.ID]
		group.Go(func() error {
			readings, err := s.readings.ListRange(groupCtx, row.Meter.ID, params.From, params.To)
			if err != nil {
				row.ErrorMessage = "reading fetch failed: " + err.Error()
				metrics.IncMeterError("fetch")
				return nil
			}
			rawTotals, rawMax, corrupt := reduceReadings(readings, thresholds)
			row.RowCount = len(readings)
			row.CorruptReadings = corrupt
			row.Own = aggregation.Apply(rawTotals, rawMax, len(readings), settings)
			metrics.AddCorruptReadings(len(corrupt))
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return rows, nil
}

// reduceReadings folds raw readings into per-column sums and peaks, flagging
// values that trip the corruption thresholds. Flagged values still
// aggregate; correction policy belongs to the caller.
func reduceReadings(readings []metering.Reading, thresholds validation.Thresholds) (map[string]float64, map[string]float64, []string) {
	totals := make(map[string]float64)
	maxima := make(map[string]float64)
	var corrupt []string

	observe := func(column string, value float64, at time.Time) {
		if check := validation.IsValueCorrupt(value, column, thresholds); check.IsCorrupt {
			corrupt = append(corrupt, at.Format(time.RFC3339)+": "+check.Reason)
		}
		totals[column] += value
		if current, ok := maxima[column]; !ok || value > current {
			maxima[column] = value
		}
	}

	for _, r := range readings {
		observe("kwh", r.KWh, r.Timestamp)
		if r.KVA != nil {
			observe("kva", *r.KVA, r.Timestamp)
		}
		columns := make([]string, 0, len(r.Metadata))
		for column := range r.Metadata {
			columns = append(columns, column)
		}
		sort.Strings(columns)
		for _, column := range columns {
			observe(column, r.Metadata[column], r.Timestamp)
		}
	}
	return totals, maxima, corrupt
}

// rollup aggregates child totals into parents in ascending depth order.
// Parents strictly follow their children; meters sharing a depth are
// independent. Parents with children report the children's aggregate, so
// check meters can be compared against what flows below them.
func (s *Service) rollup(resolver *hierarchy.Resolver, rows map[string]*MeterRow) {
	var ordered []*MeterRow
	for _, row := range rows {
		row.Depth = resolver.Depth(row.Meter.ID)
		ordered = append(ordered, row)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Depth != ordered[j].Depth {
			return ordered[i].Depth < ordered[j].Depth
		}
		return ordered[i].Meter.Number > ordered[j].Meter.Number
	})

	for _, row := range ordered {
		children := resolver.Children(row.Meter.ID)
		if len(children) == 0 {
			row.Rollup = row.Own
			continue
		}
		var childTotals, childMaxima []map[string]float64
		var energy aggregation.Result
		for _, childID := range children {
			child, ok := rows[childID]
			if !ok {
				continue
			}
			childTotals = append(childTotals, child.Rollup.Totals)
			childMaxima = append(childMaxima, child.Rollup.MaxValues)
			energy.TotalKWh += child.Rollup.TotalKWh
			energy.TotalKWhPositive += child.Rollup.TotalKWhPositive
			energy.TotalKWhNegative += child.Rollup.TotalKWhNegative
		}
		row.Rollup = aggregation.Result{
			Totals:           aggregation.SumColumnTotals(childTotals),
			MaxValues:        aggregation.MaxColumnValues(childMaxima),
			TotalKWh:         energy.TotalKWh,
			TotalKWhPositive: energy.TotalKWhPositive,
			TotalKWhNegative: energy.TotalKWhNegative,
		}
	}
}

// priceMeters computes cost per tariff-bearing meter. Meters are priced
// independently and concurrently; failures stay on the row.
func (s *Service) priceMeters(ctx context.Context, params RunParams, rows map[string]*MeterRow) {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.concurrency)
	for _, row := range rows {
		if row.Meter.TariffName == "" || row.ErrorMessage != "" {
			continue
		}
		row := row
		group.Go(func() error {
			kwh := row.Own.TotalKWh
			result := s.costs.CalculateAcrossPeriods(
				groupCtx,
				row.Meter.ID,
				row.Meter.SupplyAuthorityID,
				row.Meter.TariffName,
				params.From,
				params.To,
				&kwh,
				nil,
			)
			row.Cost = &result
			if result.HasError {
				row.ErrorMessage = result.ErrorMessage
				metrics.IncMeterError("cost")
			}
			if result.UnmatchedReadings > 0 {
				metrics.AddUnmatchedTOUReadings(result.UnmatchedReadings)
			}
			return nil
		})
	}
	_ = group.Wait()
}

func siteTotals(rows map[string]*MeterRow) reconciliation.Totals {
	var grid, solar, tenant []reconciliation.MeterEnergy
	for _, row := range rows {
		energy := reconciliation.MeterEnergy{
			MeterID:          row.Meter.ID,
			TotalKWh:         row.Own.TotalKWh,
			TotalKWhPositive: row.Own.TotalKWhPositive,
			TotalKWhNegative: row.Own.TotalKWhNegative,
			SplitComputed:    row.RowCount > 0,
		}
		switch row.Meter.Type {
		case metering.MeterTypeCouncilBulk:
			grid = append(grid, energy)
		case metering.MeterTypeSolar:
			solar = append(solar, energy)
		case metering.MeterTypeTenant:
			tenant = append(tenant, energy)
		}
	}
	return reconciliation.CalculateTotals(grid, solar, tenant)
}
