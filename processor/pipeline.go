package processor

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	appconfig "treasuryflow/config"
	"treasuryflow/logger"
	"treasuryflow/models"
)

// Inputs bundles the reference tables and observations a run consumes.
// Both reference tables are loaded once and treated as immutable for the
// duration of the run.
type Inputs struct {
	Observations []models.ContractObservation
	Curve        models.RateCurve
	MonthEnds    models.MonthEndLookup
}

// Stats summarizes one run for the audit report.
type Stats struct {
	RowsIn         int64
	RecordsBuilt   int64
	ParseFailures  int64
	LookupMisses   int64
	CurveGaps      int64
	OutliersNulled int64
	DroppedVolume  int64
	OutputRows     int64
}

// Result is the outcome of a completed run: the cleaned long-format
// records, the terminal wide table and the audit stats.
type Result struct {
	RunID   string
	Records []models.SpreadRecord
	Wide    *models.WideTable
	Stats   Stats
}

// Pipeline wires the spread-construction stages together. Each stage
// fully materializes its output before the next begins; a run either
// completes deterministically or fails with a structural error.
type Pipeline struct {
	config   *appconfig.Config
	detector *OutlierDetector
	log      *logger.Log
}

func NewPipeline(cfg *appconfig.Config) *Pipeline {
	return &Pipeline{
		config:   cfg,
		detector: NewOutlierDetector(cfg.Pipeline.WindowDays, cfg.Pipeline.Threshold, cfg.Processor.MaxWorkers),
		log:      logger.GetLogger(),
	}
}

// Run executes the full transform over one batch of inputs.
func (p *Pipeline) Run(ctx context.Context, in Inputs) (*Result, error) {
	runID := uuid.New().String()
	log := p.log.WithComponent("pipeline").WithFields(logger.Fields{"run_id": runID})

	log.WithFields(logger.Fields{
		"observations": len(in.Observations),
		"curve_dates":  len(in.Curve),
		"month_ends":   len(in.MonthEnds),
		"cutoff":       p.config.Pipeline.Cutoff().Format("2006-01-02"),
	}).Info("starting run")

	if len(in.MonthEnds) == 0 {
		return nil, fmt.Errorf("month-end lookup table is empty")
	}
	if len(in.Curve) == 0 {
		return nil, fmt.Errorf("rate curve table is empty")
	}

	resolver := NewMaturityResolver(in.MonthEnds, p.config.Pipeline.MaturityOverrides)

	records, spreadStats, err := BuildSpreadRecords(in.Observations, in.Curve, resolver, p.config.Pipeline.Cutoff())
	if err != nil {
		return nil, fmt.Errorf("spread construction failed: %w", err)
	}
	logger.AddParseFailures(spreadStats.ParseFailures)
	logger.AddLookupMisses(spreadStats.LookupMisses)
	logger.AddCurveGaps(spreadStats.CurveGaps)
	logger.LogDataFlowEntry(log, "observations", "spread_records", len(records), "rows")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	flagged := p.detector.Apply(records)
	logger.AddOutliersNulled(flagged)

	// Rows without traded volume in the deferred contract carry no signal
	// and are excluded entirely from the output.
	kept := records[:0]
	var dropped int64
	for _, rec := range records {
		if rec.Deferred.Volume == nil {
			dropped++
			continue
		}
		kept = append(kept, rec)
	}
	records = kept
	logger.AddDroppedVolume(dropped)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	wide, err := Pivot(records, p.config.Pipeline.Tenors)
	if err != nil {
		return nil, fmt.Errorf("pivot failed: %w", err)
	}
	logger.LogDataFlowEntry(log, "spread_records", "wide_table", len(wide.Rows), "rows")

	stats := Stats{
		RowsIn:         spreadStats.RowsIn,
		RecordsBuilt:   spreadStats.RowsKept,
		ParseFailures:  spreadStats.ParseFailures,
		LookupMisses:   spreadStats.LookupMisses,
		CurveGaps:      spreadStats.CurveGaps,
		OutliersNulled: flagged,
		DroppedVolume:  dropped,
		OutputRows:     int64(len(wide.Rows)),
	}

	log.WithFields(logger.Fields{
		"records_built":   stats.RecordsBuilt,
		"outliers_nulled": stats.OutliersNulled,
		"dropped_volume":  stats.DroppedVolume,
		"output_rows":     stats.OutputRows,
	}).Info("run completed")

	return &Result{RunID: runID, Records: records, Wide: wide, Stats: stats}, nil
}
