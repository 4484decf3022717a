package feed

import (
	"sort"
	"time"

	"sitefeed/internal/domain"
	"sitefeed/internal/metrics"
)

// Records is one fetch of every source the feed reads. A failed source is left
// empty.
type Records struct {
	Projects  []domain.Project
	Invoices  []domain.Invoice
	Bills     []domain.Bill
	DailyLogs []domain.DailyLog
	Photos    []domain.Photo
	Costs     []domain.ProjectCost
	Bids      []domain.Bid
	Safety    []domain.SafetyChecklist
}

// Snapshot is the read-only input shared by every rule in a pass.
type Snapshot struct {
	Records
	Now     time.Time
	Metrics metrics.Metrics

	projects map[string]domain.Project
	active   []domain.Project
	open     []domain.Invoice
	openBill []domain.Bill
}

func NewSnapshot(now time.Time, recs Records) *Snapshot {
	s := &Snapshot{
		Records: recs,
		Now:     now,
		Metrics: metrics.Compute(metrics.Input{
			Invoices: recs.Invoices,
			Bills:    recs.Bills,
			Costs:    recs.Costs,
			Logs:     recs.DailyLogs,
		}),
		projects: make(map[string]domain.Project, len(recs.Projects)),
	}
	for _, p := range recs.Projects {
		s.projects[p.ID] = p
		if p.Active() {
			s.active = append(s.active, p)
		}
	}
	for _, inv := range recs.Invoices {
		if inv.Balance > 0 {
			s.open = append(s.open, inv)
		}
	}
	for _, b := range recs.Bills {
		if b.Balance > 0 {
			s.openBill = append(s.openBill, b)
		}
	}
	return s
}

// ActiveProjects returns projects in the active status, in input order.
func (s *Snapshot) ActiveProjects() []domain.Project { return s.active }

// OpenInvoices returns invoices that still carry a balance.
func (s *Snapshot) OpenInvoices() []domain.Invoice { return s.open }

// OpenBills returns bills that still carry a balance.
func (s *Snapshot) OpenBills() []domain.Bill { return s.openBill }

// Project returns the project by id, or a zero value for unknown references.
func (s *Snapshot) Project(id string) domain.Project { return s.projects[id] }

func (s *Snapshot) isOverdue(inv domain.Invoice) bool {
	return inv.DueDate != nil && metrics.DaysOverdue(*inv.DueDate, s.Now) > 0
}

// withinDays reports whether a civil date falls on or after the date n days
// before today.
func (s *Snapshot) withinDays(date time.Time, n int) bool {
	return !date.IsZero() && metrics.DaysBetween(date, s.Now) <= n
}

// openBidsByDue returns draft and submitted bids ordered by due date, with
// undated bids last.
func openBidsByDue(bids []domain.Bid) []domain.Bid {
	var out []domain.Bid
	for _, b := range bids {
		if b.Open() {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].DueDate, out[j].DueDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
	return out
}
