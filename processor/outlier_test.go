package processor

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"treasuryflow/models"
)

func spreadSeries(tenor int, start time.Time, stepDays int, values []float64) []models.SpreadRecord {
	records := make([]models.SpreadRecord, len(values))
	for i, v := range values {
		records[i] = models.SpreadRecord{
			Date:   start.AddDate(0, 0, i*stepDays),
			Tenor:  tenor,
			Spread: models.Float(v),
		}
	}
	return records
}

// naiveApply is the reference definition: for every observation, compare
// against every other observation of the same tenor within the window.
func naiveApply(records []models.SpreadRecord, windowDays int, threshold float64) map[int]bool {
	flagged := make(map[int]bool)
	for i := range records {
		if records[i].Spread == nil {
			continue
		}
		var values []float64
		for j := range records {
			if j == i || records[j].Tenor != records[i].Tenor || records[j].Spread == nil {
				continue
			}
			diff := records[j].Date.Sub(records[i].Date).Hours() / 24
			if diff >= -float64(windowDays) && diff <= float64(windowDays) {
				values = append(values, *records[j].Spread)
			}
		}
		if len(values) == 0 {
			continue
		}
		med := median(append([]float64(nil), values...))
		mad := meanAbsDeviation(values, med)
		if mad > 0 && math.Abs(*records[i].Spread-med)/mad >= threshold {
			flagged[i] = true
		}
	}
	return flagged
}

func TestOutlierSpikeFlagged(t *testing.T) {
	start := day(2020, time.January, 1)
	values := []float64{1, 1.1, 0.9, 500, 1.05, 0.95, 1}
	records := spreadSeries(10, start, 7, values)

	d := NewOutlierDetector(45, 10, 1)
	flagged := d.Apply(records)

	if flagged != 1 {
		t.Fatalf("flagged = %d, want 1", flagged)
	}
	if !records[3].Outlier || records[3].Spread != nil {
		t.Errorf("spike record not nulled: %+v", records[3])
	}
	for i, rec := range records {
		if i != 3 && (rec.Outlier || rec.Spread == nil) {
			t.Errorf("record %d wrongly flagged", i)
		}
	}
}

func TestOutlierSubThresholdNotFlagged(t *testing.T) {
	start := day(2020, time.January, 1)
	values := []float64{1, 1.2, 0.8, 1.6, 1.1, 0.9, 1}
	records := spreadSeries(10, start, 7, values)

	d := NewOutlierDetector(45, 10, 1)
	if flagged := d.Apply(records); flagged != 0 {
		t.Errorf("flagged = %d, want 0", flagged)
	}
}

func TestOutlierSinglePointNeverFlagged(t *testing.T) {
	records := spreadSeries(10, day(2020, time.January, 1), 1, []float64{1e9})

	d := NewOutlierDetector(45, 10, 1)
	if flagged := d.Apply(records); flagged != 0 {
		t.Errorf("single observation flagged against itself: %d", flagged)
	}
	if records[0].Outlier || records[0].Spread == nil {
		t.Errorf("record mutated: %+v", records[0])
	}
}

func TestOutlierWindowBoundaryInclusive(t *testing.T) {
	start := day(2020, time.January, 1)
	// Neighbors exactly 45 days away on both sides; self-exclusion means
	// they are the whole comparison set.
	records := []models.SpreadRecord{
		{Date: start, Tenor: 10, Spread: models.Float(1.0)},
		{Date: start.AddDate(0, 0, 45), Tenor: 10, Spread: models.Float(500)},
		{Date: start.AddDate(0, 0, 90), Tenor: 10, Spread: models.Float(1.2)},
	}

	d := NewOutlierDetector(45, 10, 1)
	flagged := d.Apply(records)
	if flagged != 1 {
		t.Fatalf("flagged = %d, want 1 (boundary neighbors must count)", flagged)
	}
	if !records[1].Outlier {
		t.Error("middle spike not flagged")
	}

	// One day wider and the neighbors fall outside: never flagged.
	records = []models.SpreadRecord{
		{Date: start, Tenor: 10, Spread: models.Float(1.0)},
		{Date: start.AddDate(0, 0, 46), Tenor: 10, Spread: models.Float(500)},
		{Date: start.AddDate(0, 0, 92), Tenor: 10, Spread: models.Float(1.2)},
	}
	if flagged := d.Apply(records); flagged != 0 {
		t.Errorf("flagged = %d, want 0 with empty comparison sets", flagged)
	}
}

func TestOutlierGroupsIsolated(t *testing.T) {
	start := day(2020, time.January, 1)
	// The tenor-5 spike has no same-group neighbors; tenor-10 values are
	// close together and must not be used for comparison.
	records := spreadSeries(10, start, 7, []float64{1, 1.1, 0.9, 1.05})
	records = append(records, models.SpreadRecord{
		Date: start, Tenor: 5, Spread: models.Float(1e6),
	})

	d := NewOutlierDetector(45, 10, 2)
	if flagged := d.Apply(records); flagged != 0 {
		t.Errorf("flagged = %d, cross-group comparison leaked", flagged)
	}
}

func TestOutlierNilSpreadSkipped(t *testing.T) {
	start := day(2020, time.January, 1)
	records := spreadSeries(10, start, 7, []float64{1, 1.1, 0.9, 1.05})
	records[2].Spread = nil

	d := NewOutlierDetector(45, 10, 1)
	if flagged := d.Apply(records); flagged != 0 {
		t.Errorf("flagged = %d, want 0", flagged)
	}
	if records[2].Outlier {
		t.Error("record without a spread value must never be flagged")
	}
}

func TestOutlierMatchesNaiveDefinition(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	start := day(2019, time.March, 1)

	var records []models.SpreadRecord
	for _, tenor := range []int{2, 5, 10} {
		date := start
		for i := 0; i < 120; i++ {
			// Irregular gaps so windows straddle boundaries unevenly.
			date = date.AddDate(0, 0, 1+rng.Intn(9))
			v := rng.NormFloat64()
			if rng.Intn(25) == 0 {
				v *= 400
			}
			records = append(records, models.SpreadRecord{
				Date: date, Tenor: tenor, Spread: models.Float(v),
			})
		}
	}

	want := naiveApply(records, 45, 10)

	got := make([]models.SpreadRecord, len(records))
	copy(got, records)
	for i := range got {
		if records[i].Spread != nil {
			got[i].Spread = models.Float(*records[i].Spread)
		}
	}
	d := NewOutlierDetector(45, 10, 3)
	d.Apply(got)

	for i := range got {
		if got[i].Outlier != want[i] {
			t.Fatalf("record %d (%s tenor %d): flagged=%v, naive=%v",
				i, records[i].Date.Format("2006-01-02"), records[i].Tenor, got[i].Outlier, want[i])
		}
	}
}

func TestOutlierDeterministicAcrossWorkerCounts(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	start := day(2020, time.June, 1)

	build := func() []models.SpreadRecord {
		var records []models.SpreadRecord
		rng = rand.New(rand.NewSource(11))
		for _, tenor := range []int{2, 5, 10, 20, 30} {
			for i := 0; i < 60; i++ {
				v := rng.NormFloat64()
				if i%17 == 0 {
					v += 1000
				}
				records = append(records, models.SpreadRecord{
					Date: start.AddDate(0, 0, i*3), Tenor: tenor, Spread: models.Float(v),
				})
			}
		}
		return records
	}

	serial := build()
	NewOutlierDetector(45, 10, 1).Apply(serial)

	parallel := build()
	NewOutlierDetector(45, 10, 8).Apply(parallel)

	for i := range serial {
		if serial[i].Outlier != parallel[i].Outlier {
			t.Fatalf("record %d: worker count changed flagging", i)
		}
		a, b := serial[i].Spread, parallel[i].Spread
		if (a == nil) != (b == nil) || (a != nil && *a != *b) {
			t.Fatalf("record %d: worker count changed spread value", i)
		}
	}
}
