package processor

import (
	"math"
	"strings"
	"testing"
	"time"

	"treasuryflow/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testResolverForSpread() *MaturityResolver {
	lookup := make(models.MonthEndLookup)
	lookup.Set(time.December, 2021, 30)
	lookup.Set(time.March, 2022, 31)
	return NewMaturityResolver(lookup, nil)
}

func testCurve(dates ...time.Time) models.RateCurve {
	curve := make(models.RateCurve)
	for _, d := range dates {
		curve.Add(models.RateCurveSnapshot{
			Date:  d,
			OIS1W: models.Float(0.01),
			OIS1M: models.Float(0.02),
			OIS3M: models.Float(0.04),
			OIS6M: models.Float(0.05),
			OIS1Y: models.Float(0.06),
		})
	}
	return curve
}

func pairObs(date time.Time, tenor int, nearLabel, defLabel string, nearRepo, defRepo float64) []models.ContractObservation {
	return []models.ContractObservation{
		{Date: date, Tenor: tenor, Slot: models.SlotNear, Label: nearLabel, ImpliedRepo: models.Float(nearRepo), Volume: models.Float(100)},
		{Date: date, Tenor: tenor, Slot: models.SlotDeferred, Label: defLabel, ImpliedRepo: models.Float(defRepo), Volume: models.Float(50)},
	}
}

func TestBuildSpreadRecordsBasic(t *testing.T) {
	trade := day(2021, time.November, 15)
	obs := pairObs(trade, 10, "DEC 21", "MAR 22", 0.025, 0.031)
	curve := testCurve(trade)

	records, stats, err := BuildSpreadRecords(obs, curve, testResolverForSpread(), day(2004, time.June, 22))
	if err != nil {
		t.Fatalf("BuildSpreadRecords: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]

	// DEC 21 matures 2021-12-30 per lookup: ttm 45 days.
	if rec.Near.TTM == nil || *rec.Near.TTM != 45 {
		t.Errorf("near ttm = %v, want 45", rec.Near.TTM)
	}
	// MAR 22 matures 2022-03-31: ttm 136 days.
	if rec.Deferred.TTM == nil || *rec.Deferred.TTM != 136 {
		t.Errorf("deferred ttm = %v, want 136", rec.Deferred.TTM)
	}

	// Near rate sits mid 1M-3M segment:
	// ((90-45)/60)*0.02 + ((45-30)/60)*0.04 = 0.025.
	if rec.Near.Rate == nil || math.Abs(*rec.Near.Rate-0.025) > 1e-12 {
		t.Errorf("near rate = %v, want 0.025", rec.Near.Rate)
	}
	// Repo equals the interpolated rate here, so the spread is an
	// explicit zero, not a null.
	if rec.Near.Spread == nil || math.Abs(*rec.Near.Spread) > 1e-9 {
		t.Errorf("near spread = %v, want 0", rec.Near.Spread)
	}

	// Deferred rate sits mid 3M-6M segment at ttm 136.
	wantDefRate := (180-136.0)/90*0.04 + (136.0-90)/90*0.05
	wantDefSpread := (0.031 - wantDefRate) * 100
	if rec.Deferred.Spread == nil || math.Abs(*rec.Deferred.Spread-wantDefSpread) > 1e-9 {
		t.Errorf("deferred spread = %v, want %v", rec.Deferred.Spread, wantDefSpread)
	}

	// Published signal is the deferred slot's spread.
	if rec.Spread == nil || rec.Deferred.Spread == nil || *rec.Spread != *rec.Deferred.Spread {
		t.Errorf("published spread %v should equal deferred spread %v", rec.Spread, rec.Deferred.Spread)
	}
	if stats.ParseFailures != 0 || stats.LookupMisses != 0 || stats.CurveGaps != 0 {
		t.Errorf("unexpected anomaly counts: %+v", stats)
	}
}

func TestBuildSpreadRecordsCutoff(t *testing.T) {
	cutoff := day(2004, time.June, 22)
	obs := append(
		pairObs(day(2004, time.June, 22), 5, "SEP 04", "DEC 04", 0.02, 0.02),
		pairObs(day(2004, time.June, 23), 5, "SEP 04", "DEC 04", 0.02, 0.02)...,
	)
	curve := testCurve(day(2004, time.June, 22), day(2004, time.June, 23))

	records, _, err := BuildSpreadRecords(obs, curve, testResolverForSpread(), cutoff)
	if err != nil {
		t.Fatalf("BuildSpreadRecords: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected only the post-cutoff record, got %d", len(records))
	}
	if !records[0].Date.Equal(day(2004, time.June, 23)) {
		t.Errorf("kept record has date %s", records[0].Date)
	}
}

func TestBuildSpreadRecordsNoForwardFill(t *testing.T) {
	trade := day(2021, time.November, 15)
	obs := pairObs(trade, 10, "DEC 21", "MAR 22", 0.025, 0.031)
	// Curve only quoted the day before: exact-date join must not fill.
	curve := testCurve(day(2021, time.November, 14))

	records, stats, err := BuildSpreadRecords(obs, curve, testResolverForSpread(), day(2004, time.June, 22))
	if err != nil {
		t.Fatalf("BuildSpreadRecords: %v", err)
	}
	rec := records[0]
	if rec.Near.Rate != nil || rec.Deferred.Rate != nil || rec.Spread != nil {
		t.Errorf("expected nil rates without an exact curve date match, got %+v", rec)
	}
	if stats.CurveGaps != 2 {
		t.Errorf("curve gaps = %d, want 2", stats.CurveGaps)
	}
}

func TestBuildSpreadRecordsAnomalyCounts(t *testing.T) {
	trade := day(2021, time.November, 15)
	obs := []models.ContractObservation{
		// Unparseable label.
		{Date: trade, Tenor: 2, Slot: models.SlotNear, Label: "FEB 22", ImpliedRepo: models.Float(0.02)},
		// Valid label, no lookup entry.
		{Date: trade, Tenor: 2, Slot: models.SlotDeferred, Label: "JUN 30", ImpliedRepo: models.Float(0.02), Volume: models.Float(1)},
	}
	curve := testCurve(trade)

	records, stats, err := BuildSpreadRecords(obs, curve, testResolverForSpread(), day(2004, time.June, 22))
	if err != nil {
		t.Fatalf("BuildSpreadRecords: %v", err)
	}
	if stats.ParseFailures != 1 {
		t.Errorf("parse failures = %d, want 1", stats.ParseFailures)
	}
	if stats.LookupMisses != 1 {
		t.Errorf("lookup misses = %d, want 1", stats.LookupMisses)
	}
	rec := records[0]
	if rec.Near.Maturity != nil || rec.Near.TTM != nil || rec.Near.Spread != nil {
		t.Errorf("near slot should carry only missing derived values: %+v", rec.Near)
	}
	if rec.Deferred.Maturity != nil {
		t.Errorf("deferred maturity should be nil on lookup miss, got %s", rec.Deferred.Maturity)
	}
}

func TestBuildSpreadRecordsNegativeTTMIsMissing(t *testing.T) {
	// Trading after the resolved maturity: ttm would be negative.
	trade := day(2022, time.January, 10)
	obs := pairObs(trade, 10, "DEC 21", "MAR 22", 0.025, 0.031)
	curve := testCurve(trade)

	records, _, err := BuildSpreadRecords(obs, curve, testResolverForSpread(), day(2004, time.June, 22))
	if err != nil {
		t.Fatalf("BuildSpreadRecords: %v", err)
	}
	rec := records[0]
	if rec.Near.TTM != nil {
		t.Errorf("near ttm = %d, want missing for post-maturity trade", *rec.Near.TTM)
	}
	if rec.Near.Spread != nil {
		t.Errorf("near spread should be missing, got %v", *rec.Near.Spread)
	}
}

func TestBuildSpreadRecordsDuplicateSlot(t *testing.T) {
	trade := day(2021, time.November, 15)
	obs := pairObs(trade, 10, "DEC 21", "MAR 22", 0.025, 0.031)
	obs = append(obs, obs[0])
	curve := testCurve(trade)

	_, _, err := BuildSpreadRecords(obs, curve, testResolverForSpread(), day(2004, time.June, 22))
	if err == nil {
		t.Fatal("expected duplicate observation error")
	}
	if !strings.Contains(err.Error(), "2021-11-15") || !strings.Contains(err.Error(), "10") {
		t.Errorf("error should identify the offending key: %v", err)
	}
}
