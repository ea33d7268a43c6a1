package logger

import (
	"context"
	"runtime"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Pipeline-wide counters, incremented by the stages as rows flow through.
// They make data loss auditable: a completed run reports how many rows
// were read and written, how many were dropped for missing volume, and
// how many spread values were nulled by outlier flagging.
var (
	warnCount      int64
	errorCount     int64
	rowsRead       int64
	rowsWritten    int64
	parseFailures  int64
	lookupMisses   int64
	curveGaps      int64
	droppedVolume  int64
	outliersNulled int64
)

func recordWarn()  { atomic.AddInt64(&warnCount, 1) }
func recordError() { atomic.AddInt64(&errorCount, 1) }

func AddRowsRead(n int64)       { atomic.AddInt64(&rowsRead, n) }
func AddRowsWritten(n int64)    { atomic.AddInt64(&rowsWritten, n) }
func AddParseFailures(n int64)  { atomic.AddInt64(&parseFailures, n) }
func AddLookupMisses(n int64)   { atomic.AddInt64(&lookupMisses, n) }
func AddCurveGaps(n int64)      { atomic.AddInt64(&curveGaps, n) }
func AddDroppedVolume(n int64)  { atomic.AddInt64(&droppedVolume, n) }
func AddOutliersNulled(n int64) { atomic.AddInt64(&outliersNulled, n) }

// ReportRun logs the end-of-run summary together with process statistics
// and, when CloudWatch is configured, publishes the counters as metrics.
func ReportRun(ctx context.Context, log *Log, extra Fields) {
	cpuPercent, _ := cpu.Percent(0, false)
	memStats, _ := mem.VirtualMemory()

	cpuPct := 0.0
	if len(cpuPercent) > 0 {
		cpuPct = cpuPercent[0]
	}
	memMB := int64(0)
	if memStats != nil {
		memMB = int64(memStats.Used) / 1024 / 1024
	}

	fields := Fields{
		"rows_read":       atomic.LoadInt64(&rowsRead),
		"rows_written":    atomic.LoadInt64(&rowsWritten),
		"parse_failures":  atomic.LoadInt64(&parseFailures),
		"lookup_misses":   atomic.LoadInt64(&lookupMisses),
		"curve_gaps":      atomic.LoadInt64(&curveGaps),
		"dropped_volume":  atomic.LoadInt64(&droppedVolume),
		"outliers_nulled": atomic.LoadInt64(&outliersNulled),
		"warns":           atomic.LoadInt64(&warnCount),
		"errors":          atomic.LoadInt64(&errorCount),
		"goroutines":      runtime.NumGoroutine(),
		"cpu_percent":     cpuPct,
		"memory_mb":       memMB,
	}
	for k, v := range extra {
		fields[k] = v
	}

	log.WithComponent("report").WithFields(fields).Info("run report")

	data := []cwtypes.MetricDatum{
		counterDatum("TSF-RowsRead", &rowsRead),
		counterDatum("TSF-RowsWritten", &rowsWritten),
		counterDatum("TSF-ParseFailures", &parseFailures),
		counterDatum("TSF-LookupMisses", &lookupMisses),
		counterDatum("TSF-CurveGaps", &curveGaps),
		counterDatum("TSF-DroppedVolume", &droppedVolume),
		counterDatum("TSF-OutliersNulled", &outliersNulled),
		counterDatum("TSF-Errors", &errorCount),
		{MetricName: aws.String("TSF-CPUPercent"), Unit: cwtypes.StandardUnitPercent, Value: aws.Float64(cpuPct)},
		{MetricName: aws.String("TSF-MemoryMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(memMB))},
	}
	publishMetrics(ctx, data)
}

func counterDatum(name string, counter *int64) cwtypes.MetricDatum {
	return cwtypes.MetricDatum{
		MetricName: aws.String(name),
		Unit:       cwtypes.StandardUnitCount,
		Value:      aws.Float64(float64(atomic.LoadInt64(counter))),
	}
}

// ResetCounters zeroes the pipeline counters. Used by tests and when the
// process runs more than one batch.
func ResetCounters() {
	for _, c := range []*int64{
		&warnCount, &errorCount, &rowsRead, &rowsWritten,
		&parseFailures, &lookupMisses, &curveGaps, &droppedVolume, &outliersNulled,
	} {
		atomic.StoreInt64(c, 0)
	}
}
