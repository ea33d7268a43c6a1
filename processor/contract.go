package processor

import (
	"strconv"
	"strings"
	"time"

	"treasuryflow/models"
)

// quarterlyMonths maps the recognized 3-letter abbreviations of the
// quarterly futures cycle. Other months are not valid delivery months.
var quarterlyMonths = map[string]time.Month{
	"MAR": time.March,
	"JUN": time.June,
	"SEP": time.September,
	"DEC": time.December,
}

// ParseContractLabel extracts the delivery month and year from a raw
// futures label such as "DEC 21". It is total: any malformed input, an
// unrecognized month or a non-numeric year suffix returns the zero
// ContractMonth sentinel rather than an error, so a bad label propagates
// as a missing maturity instead of aborting the batch.
func ParseContractLabel(label string) models.ContractMonth {
	if len(label) < 6 {
		return models.ContractMonth{}
	}
	month, ok := quarterlyMonths[strings.ToUpper(label[:3])]
	if !ok {
		return models.ContractMonth{}
	}
	yy, err := strconv.Atoi(label[4:6])
	if err != nil || yy < 0 {
		return models.ContractMonth{}
	}
	return models.ContractMonth{Month: month, Year: 2000 + yy}
}

// MaturityResolver turns contract labels into exact maturity dates using
// the month-end lookup table. Labels listed in the override set expire on
// the last calendar day of the delivery month instead of the last
// business day, regardless of lookup contents.
type MaturityResolver struct {
	lookup    models.MonthEndLookup
	overrides map[string]struct{}
}

// NewMaturityResolver builds a resolver over the given lookup table.
// Overrides are literal contract labels tied to known historical
// contracts; they are supplied as data so new exceptions can be added
// without touching resolution logic.
func NewMaturityResolver(lookup models.MonthEndLookup, overrides []string) *MaturityResolver {
	set := make(map[string]struct{}, len(overrides))
	for _, o := range overrides {
		set[strings.ToUpper(strings.TrimSpace(o))] = struct{}{}
	}
	return &MaturityResolver{lookup: lookup, overrides: set}
}

// Resolve maps a raw contract label to its maturity date. Nil is returned
// for unparseable labels, delivery months absent from the lookup and
// invalid calendar dates; the row survives with a missing maturity.
func (r *MaturityResolver) Resolve(label string) *time.Time {
	cm := ParseContractLabel(label)
	if !cm.Valid() {
		return nil
	}

	var day int
	if _, ok := r.overrides[strings.ToUpper(strings.TrimSpace(label))]; ok {
		// Last calendar day of the delivery month.
		day = time.Date(cm.Year, cm.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	} else {
		d, ok := r.lookup.Day(cm.Month, cm.Year)
		if !ok {
			return nil
		}
		day = d
	}

	mat := time.Date(cm.Year, cm.Month, day, 0, 0, 0, 0, time.UTC)
	if mat.Month() != cm.Month {
		// time.Date normalized an impossible day-of-month.
		return nil
	}
	return &mat
}
