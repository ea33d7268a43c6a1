package processor

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"treasuryflow/logger"
	"treasuryflow/models"
)

// OutlierDetector flags spread observations whose deviation from a local
// robust-dispersion measure exceeds a threshold. For each observation the
// comparison set is every other observation in the same tenor group whose
// date lies within the symmetric window, inclusive on both bounds and
// always excluding the observation itself. Dispersion is the mean absolute
// deviation around the comparison median.
type OutlierDetector struct {
	WindowDays int
	Threshold  float64
	Workers    int

	log *logger.Log
}

// NewOutlierDetector returns a detector with the given window half-width
// in calendar days and flagging threshold.
func NewOutlierDetector(windowDays int, threshold float64, workers int) *OutlierDetector {
	if workers < 1 {
		workers = 1
	}
	return &OutlierDetector{
		WindowDays: windowDays,
		Threshold:  threshold,
		Workers:    workers,
		log:        logger.GetLogger(),
	}
}

// Apply scans every tenor group and nulls the published spread of flagged
// records in place, keeping the flag as a diagnostic attribute. Groups are
// shared-nothing, so they are scanned by a small worker pool; within a
// group the scan is deterministic regardless of scheduling. It returns the
// number of spread values nulled.
func (d *OutlierDetector) Apply(records []models.SpreadRecord) int64 {
	groups := make(map[int][]int)
	for i := range records {
		groups[records[i].Tenor] = append(groups[records[i].Tenor], i)
	}

	groupCh := make(chan []int)
	var flagged int64
	var wg sync.WaitGroup

	for w := 0; w < d.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range groupCh {
				atomic.AddInt64(&flagged, d.scanGroup(records, idx))
			}
		}()
	}

	// Deterministic group submission order; irrelevant for results but
	// keeps logs stable.
	tenors := make([]int, 0, len(groups))
	for t := range groups {
		tenors = append(tenors, t)
	}
	sort.Ints(tenors)
	for _, t := range tenors {
		groupCh <- groups[t]
	}
	close(groupCh)
	wg.Wait()

	if flagged > 0 {
		d.log.WithComponent("outlier_detector").WithFields(logger.Fields{
			"flagged":     flagged,
			"window_days": d.WindowDays,
			"threshold":   d.Threshold,
		}).Info("nulled outlier spread values")
	}
	return flagged
}

// scanGroup runs the windowed scan over one tenor group, identified by the
// indices of its records. Records are visited in date order with a
// two-pointer window over the sorted dates, which preserves the inclusive
// boundary and self-exclusion semantics of the naive pairwise definition
// while staying near-linear per group.
func (d *OutlierDetector) scanGroup(records []models.SpreadRecord, idx []int) int64 {
	sort.Slice(idx, func(a, b int) bool {
		return records[idx[a]].Date.Before(records[idx[b]].Date)
	})

	// Snapshot the spread values so every observation is judged against
	// the original series; nulling happens only after the whole group has
	// been scanned.
	days := make([]int64, len(idx))
	spreads := make([]*float64, len(idx))
	for i, ri := range idx {
		days[i] = records[ri].Date.Unix() / 86400
		spreads[i] = records[ri].Spread
	}

	window := int64(d.WindowDays)
	lo, hi := 0, 0
	values := make([]float64, 0, 64)
	var toFlag []int

	for i := range idx {
		for days[lo] < days[i]-window {
			lo++
		}
		for hi < len(idx) && days[hi] <= days[i]+window {
			hi++
		}

		if spreads[i] == nil {
			continue
		}

		values = values[:0]
		for j := lo; j < hi; j++ {
			if j == i {
				continue
			}
			if spreads[j] != nil {
				values = append(values, *spreads[j])
			}
		}
		// An observation with no comparison neighbors is never flagged.
		if len(values) == 0 {
			continue
		}

		med := median(values)
		mad := meanAbsDeviation(values, med)
		if mad > 0 && math.Abs(*spreads[i]-med)/mad >= d.Threshold {
			toFlag = append(toFlag, idx[i])
		}
	}

	for _, ri := range toFlag {
		records[ri].Outlier = true
		records[ri].Spread = nil
	}
	return int64(len(toFlag))
}

// median sorts values in place.
func median(values []float64) float64 {
	sort.Float64s(values)
	n := len(values)
	if n%2 == 1 {
		return values[n/2]
	}
	return (values[n/2-1] + values[n/2]) / 2
}

func meanAbsDeviation(values []float64, center float64) float64 {
	var sum float64
	for _, v := range values {
		sum += math.Abs(v - center)
	}
	return sum / float64(len(values))
}
