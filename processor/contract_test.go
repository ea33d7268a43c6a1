package processor

import (
	"testing"
	"time"

	"treasuryflow/models"
)

func TestParseContractLabel(t *testing.T) {
	cases := []struct {
		label string
		month time.Month
		year  int
	}{
		{"DEC 21", time.December, 2021},
		{"MAR 22", time.March, 2022},
		{"JUN 09", time.June, 2009},
		{"SEP 15", time.September, 2015},
		{"sep 15", time.September, 2015},
		{"JAN 21", 0, 0},
		{"FEB 22", 0, 0},
		{"DEC", 0, 0},
		{"DEC 2", 0, 0},
		{"DEC xy", 0, 0},
		{"", 0, 0},
		{"   ", 0, 0},
		{"21 DEC", 0, 0},
	}

	for _, c := range cases {
		got := ParseContractLabel(c.label)
		if c.year == 0 {
			if got.Valid() {
				t.Errorf("ParseContractLabel(%q) = %+v, want unparseable sentinel", c.label, got)
			}
			if got != (models.ContractMonth{}) {
				t.Errorf("ParseContractLabel(%q) returned partially valid pair %+v", c.label, got)
			}
			continue
		}
		if !got.Valid() || got.Month != c.month || got.Year != c.year {
			t.Errorf("ParseContractLabel(%q) = %+v, want (%v, %d)", c.label, got, c.month, c.year)
		}
	}
}

func TestResolveUsesLookup(t *testing.T) {
	lookup := make(models.MonthEndLookup)
	lookup.Set(time.June, 2009, 30)
	r := NewMaturityResolver(lookup, nil)

	mat := r.Resolve("JUN 09")
	if mat == nil {
		t.Fatal("expected maturity, got nil")
	}
	want := time.Date(2009, time.June, 30, 0, 0, 0, 0, time.UTC)
	if !mat.Equal(want) {
		t.Errorf("maturity = %s, want %s", mat, want)
	}
}

func TestResolveLookupMiss(t *testing.T) {
	r := NewMaturityResolver(make(models.MonthEndLookup), nil)
	if mat := r.Resolve("JUN 09"); mat != nil {
		t.Errorf("expected nil maturity for missing lookup entry, got %s", mat)
	}
}

func TestResolveOverrideIgnoresLookup(t *testing.T) {
	// The override wins even when the lookup has no entry at all.
	r := NewMaturityResolver(make(models.MonthEndLookup), []string{"DEC 21", "MAR 22"})

	mat := r.Resolve("DEC 21")
	if mat == nil {
		t.Fatal("expected maturity for override contract, got nil")
	}
	want := time.Date(2021, time.December, 31, 0, 0, 0, 0, time.UTC)
	if !mat.Equal(want) {
		t.Errorf("maturity = %s, want %s", mat, want)
	}

	mat = r.Resolve("MAR 22")
	want = time.Date(2022, time.March, 31, 0, 0, 0, 0, time.UTC)
	if mat == nil || !mat.Equal(want) {
		t.Errorf("maturity = %v, want %s", mat, want)
	}
}

func TestResolveOverrideBeatsLookupEntry(t *testing.T) {
	lookup := make(models.MonthEndLookup)
	lookup.Set(time.December, 2021, 30)
	r := NewMaturityResolver(lookup, []string{"DEC 21"})

	mat := r.Resolve("DEC 21")
	if mat == nil || mat.Day() != 31 {
		t.Errorf("maturity = %v, want calendar day 31", mat)
	}
}

func TestResolveInvalidCalendarDay(t *testing.T) {
	lookup := make(models.MonthEndLookup)
	lookup.Set(time.June, 2009, 31)
	r := NewMaturityResolver(lookup, nil)

	if mat := r.Resolve("JUN 09"); mat != nil {
		t.Errorf("expected nil maturity for June 31, got %s", mat)
	}
}

func TestResolveUnparseable(t *testing.T) {
	lookup := make(models.MonthEndLookup)
	lookup.Set(time.December, 2021, 31)
	r := NewMaturityResolver(lookup, []string{"DEC 21"})

	for _, label := range []string{"", "FEB 22", "DEC 2x"} {
		if mat := r.Resolve(label); mat != nil {
			t.Errorf("Resolve(%q) = %s, want nil", label, mat)
		}
	}
}
