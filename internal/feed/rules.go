package feed

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"sitefeed/internal/domain"
	"sitefeed/internal/metrics"
)

const (
	recentWindowDays = 3
	recentLogLimit   = 20
	recentPhotoLimit = 20
	recentCostLimit  = 5
	recentSafety     = 10
	bidCardLimit     = 5
	agingDays        = 30
	stalledDays      = 3
	summaryExcerpt   = 100
)

// Rule is one named classification. Emit must not mutate the snapshot.
type Rule struct {
	Name string
	Emit func(s *Snapshot) []domain.FeedCard
}

// DefaultRules lists every rule in emission order.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "overdue-invoices", Emit: overdueInvoicesRule},
		{Name: "negative-profit", Emit: negativeProfitRule},
		{Name: "bills-due-48h", Emit: billsDueImminentRule},
		{Name: "bills-due-7d", Emit: billsDueWeekRule},
		{Name: "aging-receivables", Emit: agingReceivablesRule},
		{Name: "stalled-projects", Emit: stalledProjectsRule},
		{Name: "missing-estimates", Emit: missingEstimatesRule},
		{Name: "unassigned-invoices", Emit: unassignedInvoicesRule},
		{Name: "daily-logs", Emit: dailyLogsRule},
		{Name: "new-photos", Emit: newPhotosRule},
		{Name: "cost-entries", Emit: costEntriesRule},
		{Name: "safety-checklists", Emit: safetyChecklistsRule},
		{Name: "project-progress", Emit: projectProgressRule},
		{Name: "upcoming-bids", Emit: upcomingBidsRule},
	}
}

func overdueInvoicesRule(s *Snapshot) []domain.FeedCard {
	var overdue []domain.Invoice
	for _, inv := range s.OpenInvoices() {
		if s.isOverdue(inv) {
			overdue = append(overdue, inv)
		}
	}
	if len(overdue) == 0 {
		return nil
	}
	total := sumInvoiceBalances(overdue)
	var clients, numbers []string
	for _, inv := range overdue {
		clients = append(clients, inv.ClientName)
		numbers = append(numbers, inv.InvoiceNumber)
	}
	clients = distinct(clients)
	return []domain.FeedCard{{
		ID:          "overdue-invoices",
		Type:        domain.CardOverdueInvoice,
		Priority:    domain.TierCritical,
		Title:       fmt.Sprintf("%d Overdue Invoice%s", len(overdue), plural(len(overdue))),
		Description: fmt.Sprintf("%s outstanding. %s", currency(total), listWithMore(clients, 3)),
		Timestamp:   s.Now,
		Amount:      amount(total),
		Metadata: map[string]any{
			"count":           len(overdue),
			"invoice_numbers": numbers,
			"clients":         nonNil(firstN(clients, 3)),
		},
		Action: domain.Action{Target: "/receivables", Label: "View Invoices"},
	}}
}

func negativeProfitRule(s *Snapshot) []domain.FeedCard {
	var cards []domain.FeedCard
	for _, p := range s.ActiveProjects() {
		revenue := s.Metrics.Revenue[p.ID]
		costs := s.Metrics.Costs[p.ID]
		profit := s.Metrics.Profit[p.ID]
		if profit >= 0 || (revenue <= 0 && costs <= 0) {
			continue
		}
		cards = append(cards, domain.FeedCard{
			ID:       "negative-profit-" + p.ID,
			Type:     domain.CardNegativeProfit,
			Priority: domain.TierCritical,
			Title:    "Negative Profit: " + p.Label(),
			Description: fmt.Sprintf("Loss of %s. Revenue: %s, Costs: %s.",
				currency(math.Abs(profit)), currency(revenue), currency(costs)),
			Timestamp:   s.Now,
			Amount:      amount(profit),
			ProjectID:   p.ID,
			ProjectCode: p.Code,
			ClientName:  p.ClientName,
			Metadata: map[string]any{
				"revenue": revenue,
				"costs":   costs,
				"profit":  profit,
				"loss":    math.Abs(profit),
			},
			Action: storyAction(p.ID, "View Story"),
		})
	}
	return cards
}

func billsDueBetween(s *Snapshot, match func(days int) bool) []domain.Bill {
	var out []domain.Bill
	for _, b := range s.OpenBills() {
		if b.DueDate == nil {
			continue
		}
		if match(metrics.DaysUntilDue(*b.DueDate, s.Now)) {
			out = append(out, b)
		}
	}
	return out
}

func billsDueImminentRule(s *Snapshot) []domain.FeedCard {
	due := billsDueBetween(s, func(days int) bool { return days >= 0 && days <= 2 })
	if len(due) == 0 {
		return nil
	}
	total, vendors := billTotals(due)
	return []domain.FeedCard{{
		ID:          "bills-due-48h",
		Type:        domain.CardBillDueSoon,
		Priority:    domain.TierCritical,
		Title:       fmt.Sprintf("%d Bill%s Due in 48hrs", len(due), plural(len(due))),
		Description: fmt.Sprintf("%s due. %s", currency(total), strings.Join(firstN(vendors, 3), ", ")),
		Timestamp:   s.Now,
		Amount:      amount(total),
		Metadata: map[string]any{
			"count":   len(due),
			"vendors": firstN(vendors, 3),
		},
		Action: domain.Action{Target: "/payables", Label: "View Bills"},
	}}
}

func billsDueWeekRule(s *Snapshot) []domain.FeedCard {
	due := billsDueBetween(s, func(days int) bool { return days > 2 && days <= 7 })
	if len(due) == 0 {
		return nil
	}
	total, vendors := billTotals(due)
	return []domain.FeedCard{{
		ID:          "bills-due-7d",
		Type:        domain.CardBillDueSoon,
		Priority:    domain.TierHigh,
		Title:       fmt.Sprintf("%d Bill%s Due This Week", len(due), plural(len(due))),
		Description: fmt.Sprintf("%s upcoming. %s", currency(total), strings.Join(firstN(vendors, 3), ", ")),
		Timestamp:   s.Now,
		Amount:      amount(total),
		Metadata:    map[string]any{"count": len(due)},
		Action:      domain.Action{Target: "/payables", Label: "View Bills"},
	}}
}

func agingReceivablesRule(s *Snapshot) []domain.FeedCard {
	var aging []domain.Invoice
	for _, inv := range s.OpenInvoices() {
		if inv.IssueDate.IsZero() || s.isOverdue(inv) {
			continue
		}
		if metrics.DaysBetween(inv.IssueDate, s.Now) > agingDays {
			aging = append(aging, inv)
		}
	}
	if len(aging) == 0 {
		return nil
	}
	total := sumInvoiceBalances(aging)
	return []domain.FeedCard{{
		ID:          "aging-receivables",
		Type:        domain.CardAgingReceivable,
		Priority:    domain.TierHigh,
		Title:       fmt.Sprintf("%d Aging Receivable%s", len(aging), plural(len(aging))),
		Description: fmt.Sprintf("%s outstanding for %d+ days.", currency(total), agingDays),
		Timestamp:   s.Now,
		Amount:      amount(total),
		Metadata:    map[string]any{"count": len(aging)},
		Action:      domain.Action{Target: "/receivables", Label: "View Receivables"},
	}}
}

func stalledProjectsRule(s *Snapshot) []domain.FeedCard {
	var cards []domain.FeedCard
	for _, p := range s.ActiveProjects() {
		days, ok := s.Metrics.DaysSinceLastLog(p.ID, s.Now)
		if !ok || days < stalledDays {
			continue
		}
		last := s.Metrics.LastLog[p.ID]
		cards = append(cards, domain.FeedCard{
			ID:          "stalled-" + p.ID,
			Type:        domain.CardStalledProject,
			Priority:    domain.TierHigh,
			Title:       "No Activity: " + p.Label(),
			Description: fmt.Sprintf("%d days since last daily log.", days),
			Timestamp:   last,
			ProjectID:   p.ID,
			ProjectCode: p.Code,
			ClientName:  p.ClientName,
			Metadata: map[string]any{
				"days_since_log": days,
				"last_log_date":  last.Format(time.DateOnly),
			},
			Action: storyAction(p.ID, "View Story"),
		})
	}
	return cards
}

func missingEstimatesRule(s *Snapshot) []domain.FeedCard {
	var codes []string
	count := 0
	for _, p := range s.ActiveProjects() {
		if p.EstimateAmount != nil && *p.EstimateAmount != 0 {
			continue
		}
		count++
		if p.Code != "" {
			codes = append(codes, p.Code)
		}
	}
	if count == 0 {
		return nil
	}
	return []domain.FeedCard{{
		ID:          "missing-estimates",
		Type:        domain.CardMissingEstimate,
		Priority:    domain.TierHigh,
		Title:       fmt.Sprintf("%d Project%s Missing Estimate", count, plural(count)),
		Description: strings.Join(codes, ", "),
		Timestamp:   s.Now,
		Metadata:    map[string]any{"projects": nonNil(codes)},
		Action:      domain.Action{Target: "/projects", Label: "View Projects"},
	}}
}

func unassignedInvoicesRule(s *Snapshot) []domain.FeedCard {
	var unassigned []domain.Invoice
	var numbers []string
	for _, inv := range s.OpenInvoices() {
		if inv.ProjectID == nil || *inv.ProjectID == "" {
			unassigned = append(unassigned, inv)
			numbers = append(numbers, inv.InvoiceNumber)
		}
	}
	if len(unassigned) == 0 {
		return nil
	}
	total := sumInvoiceBalances(unassigned)
	return []domain.FeedCard{{
		ID:          "unassigned-invoices",
		Type:        domain.CardUnassignedInvoice,
		Priority:    domain.TierHigh,
		Title:       fmt.Sprintf("%d Unassigned Invoice%s", len(unassigned), plural(len(unassigned))),
		Description: fmt.Sprintf("%s not linked to a project.", currency(total)),
		Timestamp:   s.Now,
		Amount:      amount(total),
		Metadata: map[string]any{
			"count":           len(unassigned),
			"invoice_numbers": numbers,
		},
		Action: domain.Action{Target: "/receivables", Label: "Assign Invoices"},
	}}
}

func dailyLogsRule(s *Snapshot) []domain.FeedCard {
	var recent []domain.DailyLog
	for _, log := range s.DailyLogs {
		if s.withinDays(log.LogDate, recentWindowDays) {
			recent = append(recent, log)
		}
	}
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].LogDate.After(recent[j].LogDate) })
	recent = firstN(recent, recentLogLimit)

	cards := make([]domain.FeedCard, 0, len(recent))
	for _, log := range recent {
		p := s.Project(log.ProjectID)
		crewCount := len(log.Crew)
		var head []string
		if crewCount > 0 {
			head = append(head, fmt.Sprintf("%d crew", crewCount))
		}
		if log.TotalHours > 0 {
			head = append(head, fmt.Sprintf("%gh logged", log.TotalHours))
		}
		var sentences []string
		if len(head) > 0 {
			sentences = append(sentences, strings.Join(head, ", ")+".")
		}
		if log.Weather != "" {
			sentences = append(sentences, log.Weather+".")
		}
		excerpt := truncate(log.WorkSummary, summaryExcerpt)
		if excerpt != "" {
			sentences = append(sentences, excerpt)
		}
		cards = append(cards, domain.FeedCard{
			ID:          "daily-log-" + log.ID,
			Type:        domain.CardDailyLog,
			Priority:    domain.TierMedium,
			Title:       "Daily Log: " + p.Label(),
			Description: strings.Join(sentences, " "),
			Timestamp:   log.LogDate,
			ProjectID:   log.ProjectID,
			ProjectCode: p.Code,
			ClientName:  p.ClientName,
			Metadata: map[string]any{
				"crew_count":  crewCount,
				"total_hours": log.TotalHours,
				"weather":     log.Weather,
				"summary":     excerpt,
			},
			Action: storyAction(log.ProjectID, "Read More"),
		})
	}
	return cards
}

func newPhotosRule(s *Snapshot) []domain.FeedCard {
	cutoff := s.Now.Add(-recentWindowDays * 24 * time.Hour)
	var recent []domain.Photo
	for _, ph := range s.Photos {
		if !ph.CreatedAt.Before(cutoff) {
			recent = append(recent, ph)
		}
	}
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].CreatedAt.After(recent[j].CreatedAt) })
	recent = firstN(recent, recentPhotoLimit)

	var order []string
	groups := map[string][]domain.Photo{}
	for _, ph := range recent {
		if _, ok := groups[ph.ProjectID]; !ok {
			order = append(order, ph.ProjectID)
		}
		groups[ph.ProjectID] = append(groups[ph.ProjectID], ph)
	}

	cards := make([]domain.FeedCard, 0, len(order))
	for _, projectID := range order {
		photos := groups[projectID]
		p := s.Project(projectID)
		var categories []string
		for _, ph := range photos {
			categories = append(categories, ph.Category)
		}
		categories = distinct(categories)
		cards = append(cards, domain.FeedCard{
			ID:          fmt.Sprintf("photos-%s-%s", projectID, photos[0].ID),
			Type:        domain.CardNewPhotos,
			Priority:    domain.TierMedium,
			Title:       fmt.Sprintf("%d New Photo%s: %s", len(photos), plural(len(photos)), p.Label()),
			Description: strings.Join(categories, ", ") + " photos uploaded.",
			Timestamp:   photos[0].CreatedAt,
			ProjectID:   projectID,
			ProjectCode: p.Code,
			ClientName:  p.ClientName,
			Metadata: map[string]any{
				"count":      len(photos),
				"categories": nonNil(categories),
			},
			Action: storyAction(projectID, "View Gallery"),
		})
	}
	return cards
}

func costEntriesRule(s *Snapshot) []domain.FeedCard {
	var recent []domain.ProjectCost
	for _, c := range s.Costs {
		if s.withinDays(c.CostDate, recentWindowDays) {
			recent = append(recent, c)
		}
	}
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].CostDate.After(recent[j].CostDate) })
	recent = firstN(recent, recentCostLimit)

	cards := make([]domain.FeedCard, 0, len(recent))
	for _, c := range recent {
		p := s.Project(c.ProjectID)
		label := p.Code
		if label == "" {
			label = c.Description
		}
		desc := fmt.Sprintf("%s - %s", currency(c.Amount), c.Category)
		if c.Vendor != "" {
			desc += fmt.Sprintf(" (%s)", c.Vendor)
		}
		cards = append(cards, domain.FeedCard{
			ID:          "cost-" + c.ID,
			Type:        domain.CardCostEntry,
			Priority:    domain.TierMedium,
			Title:       "Cost Entry: " + label,
			Description: desc,
			Timestamp:   c.CostDate,
			Amount:      amount(c.Amount),
			ProjectID:   c.ProjectID,
			ProjectCode: p.Code,
			Metadata: map[string]any{
				"category": c.Category,
				"vendor":   c.Vendor,
			},
			Action: storyAction(c.ProjectID, "View Costs"),
		})
	}
	return cards
}

func safetyChecklistsRule(s *Snapshot) []domain.FeedCard {
	var recent []domain.SafetyChecklist
	for _, sc := range s.Safety {
		if s.withinDays(sc.ChecklistDate, recentWindowDays) {
			recent = append(recent, sc)
		}
	}
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].ChecklistDate.After(recent[j].ChecklistDate) })
	recent = firstN(recent, recentSafety)

	cards := make([]domain.FeedCard, 0, len(recent))
	for _, sc := range recent {
		p := s.Project(sc.ProjectID)
		status := sc.Status
		if status == "" {
			status = "completed"
		}
		cards = append(cards, domain.FeedCard{
			ID:          "safety-" + sc.ID,
			Type:        domain.CardSafetyChecklist,
			Priority:    domain.TierMedium,
			Title:       "Safety Checklist: " + p.Code,
			Description: fmt.Sprintf("Checklist %s on %s.", status, sc.ChecklistDate.Format("Jan 2")),
			Timestamp:   sc.CreatedAt,
			ProjectID:   sc.ProjectID,
			ProjectCode: p.Code,
			Metadata: map[string]any{
				"status": sc.Status,
				"date":   sc.ChecklistDate.Format(time.DateOnly),
			},
			Action: storyAction(sc.ProjectID, "View Details"),
		})
	}
	return cards
}

func projectProgressRule(s *Snapshot) []domain.FeedCard {
	var cards []domain.FeedCard
	for _, p := range s.ActiveProjects() {
		costs := s.Metrics.Costs[p.ID]
		if p.EstimateAmount == nil || *p.EstimateAmount <= 0 || costs <= 0 {
			continue
		}
		estimate := *p.EstimateAmount
		revenue := s.Metrics.Revenue[p.ID]
		progress := int(math.Min(100, math.Round(costs/estimate*100)))
		cards = append(cards, domain.FeedCard{
			ID:       "progress-" + p.ID,
			Type:     domain.CardProjectProgress,
			Priority: domain.TierInfo,
			Title:    fmt.Sprintf("%s - %d%% through estimate", p.Label(), progress),
			Description: fmt.Sprintf("%s spent of %s estimated. Revenue: %s.",
				currency(costs), currency(estimate), currency(revenue)),
			Timestamp:   p.UpdatedAt,
			ProjectID:   p.ID,
			ProjectCode: p.Code,
			ClientName:  p.ClientName,
			Metadata: map[string]any{
				"progress": progress,
				"estimate": estimate,
				"costs":    costs,
				"revenue":  revenue,
			},
			Action: storyAction(p.ID, "Read Story"),
		})
	}
	return cards
}

func upcomingBidsRule(s *Snapshot) []domain.FeedCard {
	var cards []domain.FeedCard
	for _, bid := range firstN(openBidsByDue(s.Bids), bidCardLimit) {
		if bid.DueDate == nil {
			continue
		}
		daysUntil := metrics.DaysUntilDue(*bid.DueDate, s.Now)
		tier := domain.TierInfo
		if daysUntil <= 3 {
			tier = domain.TierHigh
		}
		desc := "Due " + bid.DueDate.Format("Jan 2")
		if bid.ClientName != "" {
			desc = bid.ClientName + " - " + desc
		}
		var value *float64
		if bid.EstimatedValue != nil && *bid.EstimatedValue != 0 {
			value = amount(*bid.EstimatedValue)
			desc += ". Est: " + currency(*bid.EstimatedValue)
		}
		cards = append(cards, domain.FeedCard{
			ID:          "bid-" + bid.ID,
			Type:        domain.CardUpcomingBid,
			Priority:    tier,
			Title:       "Bid: " + bid.Name,
			Description: desc,
			Timestamp:   bid.CreatedAt,
			Amount:      value,
			ProjectCode: bid.ClientCode,
			ClientName:  bid.ClientName,
			Metadata: map[string]any{
				"days_until": daysUntil,
				"status":     bid.Status,
				"location":   bid.Location,
				"due_date":   bid.DueDate.Format(time.DateOnly),
			},
			Action: domain.Action{Target: "/bids", Label: "View Bid"},
		})
	}
	return cards
}

// UpcomingBids lists every draft or submitted bid by ascending due date,
// undated bids last.
func UpcomingBids(bids []domain.Bid) []domain.UpcomingBid {
	open := openBidsByDue(bids)
	out := make([]domain.UpcomingBid, 0, len(open))
	for _, b := range open {
		out = append(out, domain.UpcomingBid{
			ID:             b.ID,
			Name:           b.Name,
			ClientCode:     optional(b.ClientCode),
			ClientName:     optional(b.ClientName),
			DueDate:        b.DueDate,
			EstimatedValue: b.EstimatedValue,
			Status:         b.Status,
			Location:       optional(b.Location),
		})
	}
	return out
}

func storyAction(projectID, label string) domain.Action {
	return domain.Action{Target: "/stories/" + projectID, Label: label}
}

func sumInvoiceBalances(invoices []domain.Invoice) float64 {
	values := make([]float64, len(invoices))
	for i, inv := range invoices {
		values[i] = inv.Balance
	}
	return metrics.Sum(values...)
}

func billTotals(bills []domain.Bill) (float64, []string) {
	values := make([]float64, len(bills))
	vendors := make([]string, len(bills))
	for i, b := range bills {
		values[i] = b.Balance
		vendors[i] = b.VendorName
	}
	return metrics.Sum(values...), vendors
}

func currency(v float64) string {
	return "$" + humanize.Commaf(math.Round(v*100)/100)
}

func amount(v float64) *float64 { return &v }

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func firstN[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}

// distinct drops empty and repeated values, keeping first-seen order.
func distinct(values []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func listWithMore(values []string, n int) string {
	out := strings.Join(firstN(values, n), ", ")
	if len(values) > n {
		out += fmt.Sprintf(" +%d more", len(values)-n)
	}
	return out
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}
