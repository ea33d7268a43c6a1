package processor

import (
	"fmt"
	"sort"
	"time"

	"treasuryflow/models"
)

// SpreadStats counts per-row anomalies observed while building spread
// records. They are carried through to the run report so data loss stays
// auditable.
type SpreadStats struct {
	RowsIn        int64
	RowsKept      int64
	ParseFailures int64
	LookupMisses  int64
	CurveGaps     int64
}

type slotPairKey struct {
	date  time.Time
	tenor int
}

// BuildSpreadRecords combines per-slot contract observations with the
// reference curve into one spread record per (trade date, tenor) pair.
// Observations on or before the cutoff date are excluded. A duplicate
// (date, tenor, slot) observation is a data-integrity error and aborts
// the run; every per-row anomaly instead propagates as a nil field.
func BuildSpreadRecords(obs []models.ContractObservation, curve models.RateCurve, resolver *MaturityResolver, cutoff time.Time) ([]models.SpreadRecord, SpreadStats, error) {
	stats := SpreadStats{RowsIn: int64(len(obs))}

	pairs := make(map[slotPairKey]*models.SpreadRecord)
	seen := make(map[slotPairKey]map[models.ContractSlot]struct{})
	order := make([]slotPairKey, 0, len(obs)/2)

	for _, o := range obs {
		date := models.DateKey(o.Date)
		if !date.After(models.DateKey(cutoff)) {
			continue
		}
		if o.Slot != models.SlotNear && o.Slot != models.SlotDeferred {
			return nil, stats, fmt.Errorf("unknown contract slot %q for date %s tenor %d", o.Slot, date.Format("2006-01-02"), o.Tenor)
		}

		key := slotPairKey{date: date, tenor: o.Tenor}
		if _, ok := seen[key]; !ok {
			seen[key] = make(map[models.ContractSlot]struct{}, 2)
			pairs[key] = &models.SpreadRecord{Date: date, Tenor: o.Tenor}
			order = append(order, key)
		}
		if _, dup := seen[key][o.Slot]; dup {
			return nil, stats, fmt.Errorf("duplicate %s observation for date %s tenor %d", o.Slot, date.Format("2006-01-02"), o.Tenor)
		}
		seen[key][o.Slot] = struct{}{}

		rec := pairs[key]
		quote := buildSlotQuote(o, curve, resolver, &stats)
		if o.Slot == models.SlotNear {
			rec.Near = quote
		} else {
			rec.Deferred = quote
		}
	}

	sort.Slice(order, func(i, j int) bool {
		if !order[i].date.Equal(order[j].date) {
			return order[i].date.Before(order[j].date)
		}
		return order[i].tenor < order[j].tenor
	})

	records := make([]models.SpreadRecord, 0, len(order))
	for _, key := range order {
		rec := pairs[key]
		// The published signal is the deferred-contract spread; the near
		// contract is contaminated by delivery-option effects near expiry.
		rec.Spread = copyRate(rec.Deferred.Spread)
		records = append(records, *rec)
	}
	stats.RowsKept = int64(len(records))
	return records, stats, nil
}

func buildSlotQuote(o models.ContractObservation, curve models.RateCurve, resolver *MaturityResolver, stats *SpreadStats) models.SlotQuote {
	q := models.SlotQuote{
		Label:       o.Label,
		ImpliedRepo: o.ImpliedRepo,
		Volume:      o.Volume,
		Price:       o.Price,
	}

	cm := ParseContractLabel(o.Label)
	if !cm.Valid() {
		if o.Label != "" {
			stats.ParseFailures++
		}
	} else if q.Maturity = resolver.Resolve(o.Label); q.Maturity == nil {
		stats.LookupMisses++
	}

	if q.Maturity != nil {
		days := int(q.Maturity.Sub(models.DateKey(o.Date)).Hours() / 24)
		// Negative time-to-maturity signals an upstream failure and is
		// carried as missing, never clamped to zero.
		if days >= 0 {
			q.TTM = models.Int(days)
		}
	}

	if q.TTM != nil {
		if snap, ok := curve.Snapshot(o.Date); ok {
			q.Rate = InterpolateRate(*q.TTM, snap)
		}
		if q.Rate == nil {
			stats.CurveGaps++
		}
	}

	if q.ImpliedRepo != nil && q.Rate != nil {
		q.Spread = models.Float((*q.ImpliedRepo - *q.Rate) * 100)
	}
	return q
}
