// Package metrics derives per-project financial aggregates and civil-date
// arithmetic shared by the feed and the story.
package metrics

import (
	"time"

	"github.com/shopspring/decimal"

	"sitefeed/internal/domain"
)

// Metrics holds lookups keyed by project id. It is built once per pass and
// treated as read-only afterwards.
type Metrics struct {
	Revenue map[string]float64
	Costs   map[string]float64
	Profit  map[string]float64
	LastLog map[string]time.Time

	// Balance totals across every open record, with or without a due date.
	OutstandingReceivables float64
	OutstandingPayables    float64
}

type Input struct {
	Invoices []domain.Invoice
	Bills    []domain.Bill
	Costs    []domain.ProjectCost
	Logs     []domain.DailyLog
}

// Compute builds the lookup maps from the full record set.
func Compute(in Input) Metrics {
	revenue := map[string]decimal.Decimal{}
	for _, inv := range in.Invoices {
		if inv.ProjectID == nil || *inv.ProjectID == "" {
			continue
		}
		revenue[*inv.ProjectID] = revenue[*inv.ProjectID].Add(decimal.NewFromFloat(inv.Amount))
	}
	costs := map[string]decimal.Decimal{}
	for _, c := range in.Costs {
		if c.ProjectID == "" {
			continue
		}
		costs[c.ProjectID] = costs[c.ProjectID].Add(decimal.NewFromFloat(c.Amount))
	}

	m := Metrics{
		Revenue: make(map[string]float64, len(revenue)),
		Costs:   make(map[string]float64, len(costs)),
		Profit:  make(map[string]float64, len(revenue)+len(costs)),
		LastLog: map[string]time.Time{},
	}
	for id, v := range revenue {
		m.Revenue[id] = v.InexactFloat64()
		m.Profit[id] = v.Sub(costs[id]).InexactFloat64()
	}
	for id, v := range costs {
		m.Costs[id] = v.InexactFloat64()
		if _, ok := revenue[id]; !ok {
			m.Profit[id] = v.Neg().InexactFloat64()
		}
	}
	for _, log := range in.Logs {
		if log.ProjectID == "" || log.LogDate.IsZero() {
			continue
		}
		if last, ok := m.LastLog[log.ProjectID]; !ok || log.LogDate.After(last) {
			m.LastLog[log.ProjectID] = log.LogDate
		}
	}

	receivable := decimal.Zero
	for _, inv := range in.Invoices {
		if inv.Balance > 0 {
			receivable = receivable.Add(decimal.NewFromFloat(inv.Balance))
		}
	}
	payable := decimal.Zero
	for _, b := range in.Bills {
		if b.Balance > 0 {
			payable = payable.Add(decimal.NewFromFloat(b.Balance))
		}
	}
	m.OutstandingReceivables = receivable.InexactFloat64()
	m.OutstandingPayables = payable.InexactFloat64()
	return m
}

// DaysSinceLastLog reports whole civil days between the project's latest log
// and now. ok is false when the project has never logged.
func (m Metrics) DaysSinceLastLog(projectID string, now time.Time) (days int, ok bool) {
	last, ok := m.LastLog[projectID]
	if !ok {
		return 0, false
	}
	return DaysBetween(last, now), true
}

// DaysBetween counts civil days from a to b, each read in its own location, so
// a date stored as UTC midnight never slides across a day boundary.
func DaysBetween(a, b time.Time) int {
	return int(civilDay(b).Sub(civilDay(a)).Hours() / 24)
}

// DaysOverdue is positive once the due date has passed.
func DaysOverdue(due, now time.Time) int {
	return DaysBetween(due, now)
}

// DaysUntilDue is negative once the due date has passed.
func DaysUntilDue(due, now time.Time) int {
	return DaysBetween(now, due)
}

func civilDay(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

// Sum adds amounts exactly and returns the nearest float.
func Sum(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total.InexactFloat64()
}
