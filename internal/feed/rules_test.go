package feed

import (
	"fmt"
	"testing"
	"time"

	"sitefeed/internal/domain"
)

func TestBillWindows(t *testing.T) {
	s := NewSnapshot(testNow, Records{Bills: []domain.Bill{
		{ID: "b0", VendorName: "Today", Balance: 10, DueDate: ptr(daysAgo(0))},
		{ID: "b2", VendorName: "Two", Balance: 20, DueDate: ptr(daysAgo(-2))},
		{ID: "b5", VendorName: "Five", Balance: 50, DueDate: ptr(daysAgo(-5))},
		{ID: "b7", VendorName: "Seven", Balance: 70, DueDate: ptr(daysAgo(-7))},
		{ID: "b9", VendorName: "Nine", Balance: 90, DueDate: ptr(daysAgo(-9))},
		{ID: "paid", VendorName: "Paid", Balance: 0, DueDate: ptr(daysAgo(-1))},
		{ID: "late", VendorName: "Late", Balance: 5, DueDate: ptr(daysAgo(1))},
		{ID: "undated", VendorName: "Undated", Balance: 5},
	}})

	imminent := billsDueImminentRule(s)
	if len(imminent) != 1 || imminent[0].Priority != domain.TierCritical {
		t.Fatalf("expected one critical card, got %#v", imminent)
	}
	if *imminent[0].Amount != 30 || imminent[0].Metadata["count"] != 2 {
		t.Fatalf("expected two bills totalling 30, got %v %v", *imminent[0].Amount, imminent[0].Metadata["count"])
	}

	week := billsDueWeekRule(s)
	if len(week) != 1 || week[0].Priority != domain.TierHigh {
		t.Fatalf("expected one high card, got %#v", week)
	}
	if *week[0].Amount != 120 || week[0].Metadata["count"] != 2 {
		t.Fatalf("expected two bills totalling 120, got %v %v", *week[0].Amount, week[0].Metadata["count"])
	}
}

func TestAgingAndUnassignedReceivables(t *testing.T) {
	s := NewSnapshot(testNow, Records{Invoices: []domain.Invoice{
		{ID: "old", InvoiceNumber: "1", Balance: 100, IssueDate: daysAgo(45)},
		{ID: "fresh", InvoiceNumber: "2", Balance: 100, IssueDate: daysAgo(10), ProjectID: ptr("p1")},
		{ID: "paid", InvoiceNumber: "3", Balance: 0, IssueDate: daysAgo(60)},
		{ID: "boundary", InvoiceNumber: "4", Balance: 25, IssueDate: daysAgo(30), ProjectID: ptr("p1")},
	}})

	aging := agingReceivablesRule(s)
	if len(aging) != 1 || *aging[0].Amount != 100 {
		t.Fatalf("expected one aging card of 100, got %#v", aging)
	}

	unassigned := unassignedInvoicesRule(s)
	if len(unassigned) != 1 {
		t.Fatalf("expected one unassigned card, got %d", len(unassigned))
	}
	numbers := unassigned[0].Metadata["invoice_numbers"].([]string)
	if len(numbers) != 1 || numbers[0] != "1" {
		t.Fatalf("expected invoice 1 only, got %v", numbers)
	}
}

func TestMissingEstimatesSkipsClosedProjects(t *testing.T) {
	s := NewSnapshot(testNow, Records{Projects: []domain.Project{
		{ID: "a", Code: "A", Status: domain.ProjectActive},
		{ID: "b", Code: "B", Status: domain.ProjectActive, EstimateAmount: ptr(0.0)},
		{ID: "c", Code: "C", Status: domain.ProjectActive, EstimateAmount: ptr(500.0)},
		{ID: "d", Code: "D", Status: domain.ProjectClosed},
	}})
	cards := missingEstimatesRule(s)
	if len(cards) != 1 {
		t.Fatalf("expected one card, got %d", len(cards))
	}
	if cards[0].Description != "A, B" {
		t.Fatalf("expected codes A, B, got %q", cards[0].Description)
	}
}

func TestDailyLogCards(t *testing.T) {
	s := NewSnapshot(testNow, Records{
		Projects: []domain.Project{{ID: "p1", Code: "P-1", ClientName: "Acme"}},
		DailyLogs: []domain.DailyLog{
			{ID: "old", ProjectID: "p1", LogDate: daysAgo(4)},
			{ID: "edge", ProjectID: "p1", LogDate: daysAgo(3)},
			{
				ID:          "new",
				ProjectID:   "p1",
				LogDate:     daysAgo(0),
				TotalHours:  16,
				Weather:     "Sunny",
				WorkSummary: "Framed the east wall",
				Crew:        []domain.CrewHours{{WorkerName: "Ana", Hours: 8}, {WorkerName: "Bo", Hours: 8}},
			},
		},
	})
	cards := dailyLogsRule(s)
	if len(cards) != 2 {
		t.Fatalf("expected two recent log cards, got %d", len(cards))
	}
	if cards[0].ID != "daily-log-new" {
		t.Fatalf("expected newest first, got %s", cards[0].ID)
	}
	want := "2 crew, 16h logged. Sunny. Framed the east wall"
	if cards[0].Description != want {
		t.Fatalf("expected %q, got %q", want, cards[0].Description)
	}
	if cards[0].Title != "Daily Log: P-1" || cards[0].ClientName != "Acme" {
		t.Fatalf("unexpected card header %q %q", cards[0].Title, cards[0].ClientName)
	}
	if cards[0].Action.Target != "/stories/p1" {
		t.Fatalf("expected story action, got %q", cards[0].Action.Target)
	}
}

func TestNewPhotosGroupByProject(t *testing.T) {
	s := NewSnapshot(testNow, Records{
		Projects: []domain.Project{{ID: "p1", Code: "P-1"}, {ID: "p2", Code: "P-2"}},
		Photos: []domain.Photo{
			{ID: "a", ProjectID: "p1", Category: "before", CreatedAt: testNow.Add(-3 * time.Hour)},
			{ID: "b", ProjectID: "p2", Category: "after", CreatedAt: testNow.Add(-1 * time.Hour)},
			{ID: "c", ProjectID: "p1", Category: "during", CreatedAt: testNow.Add(-2 * time.Hour)},
			{ID: "stale", ProjectID: "p1", Category: "during", CreatedAt: daysAgo(10)},
		},
	})
	cards := newPhotosRule(s)
	if len(cards) != 2 {
		t.Fatalf("expected two project groups, got %d", len(cards))
	}
	if cards[0].ProjectID != "p2" || cards[1].ProjectID != "p1" {
		t.Fatalf("expected groups ordered by newest photo, got %s, %s", cards[0].ProjectID, cards[1].ProjectID)
	}
	if cards[1].Metadata["count"] != 2 {
		t.Fatalf("expected two photos for p1, got %v", cards[1].Metadata["count"])
	}
	if cards[1].Description != "during, before photos uploaded." {
		t.Fatalf("unexpected description %q", cards[1].Description)
	}
}

func TestProjectProgressCapsAtHundred(t *testing.T) {
	s := NewSnapshot(testNow, Records{
		Projects: []domain.Project{
			{ID: "p1", Code: "P-1", Status: domain.ProjectActive, EstimateAmount: ptr(1000.0)},
			{ID: "p2", Code: "P-2", Status: domain.ProjectActive, EstimateAmount: ptr(1000.0)},
		},
		Costs: []domain.ProjectCost{
			{ID: "c1", ProjectID: "p1", Amount: 2500},
			{ID: "c2", ProjectID: "p2", Amount: 333},
		},
	})
	cards := projectProgressRule(s)
	if len(cards) != 2 {
		t.Fatalf("expected two progress cards, got %d", len(cards))
	}
	if cards[0].Metadata["progress"] != 100 {
		t.Fatalf("expected capped progress, got %v", cards[0].Metadata["progress"])
	}
	if cards[1].Metadata["progress"] != 33 {
		t.Fatalf("expected 33%%, got %v", cards[1].Metadata["progress"])
	}
	if cards[0].Priority != domain.TierInfo {
		t.Fatalf("expected info tier, got %s", cards[0].Priority)
	}
}

func TestUpcomingBids(t *testing.T) {
	bids := []domain.Bid{
		{ID: "undated", Name: "Undated", Status: domain.BidDraft},
		{ID: "far", Name: "Far", Status: domain.BidSubmitted, DueDate: ptr(daysAgo(-10)), ClientName: "City"},
		{ID: "won", Name: "Won", Status: "won", DueDate: ptr(daysAgo(-1))},
		{ID: "soon", Name: "Soon", Status: domain.BidDraft, DueDate: ptr(daysAgo(-2)), EstimatedValue: ptr(125000.0)},
	}
	s := NewSnapshot(testNow, Records{Bids: bids})

	cards := upcomingBidsRule(s)
	if len(cards) != 2 {
		t.Fatalf("expected dated open bids only, got %d", len(cards))
	}
	if cards[0].ID != "bid-soon" || cards[0].Priority != domain.TierHigh {
		t.Fatalf("expected soon bid at high tier, got %s %s", cards[0].ID, cards[0].Priority)
	}
	if cards[0].Description != "Due Mar 12. Est: $125,000" {
		t.Fatalf("unexpected description %q", cards[0].Description)
	}
	if cards[1].ID != "bid-far" || cards[1].Priority != domain.TierInfo {
		t.Fatalf("expected far bid at info tier, got %s %s", cards[1].ID, cards[1].Priority)
	}

	list := UpcomingBids(bids)
	if len(list) != 3 {
		t.Fatalf("expected three open bids, got %d", len(list))
	}
	order := []string{list[0].ID, list[1].ID, list[2].ID}
	if order[0] != "soon" || order[1] != "far" || order[2] != "undated" {
		t.Fatalf("expected due-date order with undated last, got %v", order)
	}
	if list[2].ClientName != nil {
		t.Fatalf("expected nil client name for empty value")
	}
}

func TestCurrencyFormat(t *testing.T) {
	cases := map[float64]string{
		1000:      "$1,000",
		1234.5:    "$1,234.5",
		0.125:     "$0.13",
		1234567.0: "$1,234,567",
	}
	for in, want := range cases {
		if got := currency(in); got != want {
			t.Fatalf("currency(%v): expected %q, got %q", in, want, got)
		}
	}
}

func TestCostEntriesCapAtFive(t *testing.T) {
	var costs []domain.ProjectCost
	for i := 6; i >= 0; i-- {
		costs = append(costs, domain.ProjectCost{
			ID:        fmt.Sprintf("c%d", i),
			ProjectID: "p1",
			Amount:    10,
			CostDate:  daysAgo(i / 2),
			Category:  "labor",
			Vendor:    "Depot",
		})
	}
	costs = append(costs, domain.ProjectCost{ID: "old", ProjectID: "p1", Amount: 99, CostDate: daysAgo(4), Category: "labor"})
	s := NewSnapshot(testNow, Records{
		Projects: []domain.Project{{ID: "p1", Code: "P-1", Status: domain.ProjectActive}},
		Costs:    costs,
	})

	cards := costEntriesRule(s)
	if len(cards) != 5 {
		t.Fatalf("expected 5 cost cards, got %d", len(cards))
	}
	var ids []string
	for i, c := range cards {
		ids = append(ids, c.ID)
		if i > 0 && c.Timestamp.After(cards[i-1].Timestamp) {
			t.Fatalf("expected newest first, got %v", ids)
		}
	}
	want := []string{"cost-c1", "cost-c0", "cost-c3", "cost-c2", "cost-c5"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, ids)
		}
	}
	if cards[0].Title != "Cost Entry: P-1" || cards[0].Description != "$10 - labor (Depot)" {
		t.Fatalf("unexpected card %q %q", cards[0].Title, cards[0].Description)
	}
	if cards[0].Priority != domain.TierMedium {
		t.Fatalf("expected medium tier, got %s", cards[0].Priority)
	}
}

func TestSafetyChecklistCards(t *testing.T) {
	var checklists []domain.SafetyChecklist
	for i := 0; i < 12; i++ {
		status := "in_progress"
		if i == 0 {
			status = ""
		}
		checklists = append(checklists, domain.SafetyChecklist{
			ID:            fmt.Sprintf("s%d", i),
			ProjectID:     "p1",
			ChecklistDate: daysAgo(i % 3),
			Status:        status,
			CreatedAt:     testNow.Add(-time.Duration(i) * time.Hour),
		})
	}
	checklists = append(checklists, domain.SafetyChecklist{ID: "old", ProjectID: "p1", ChecklistDate: daysAgo(5), CreatedAt: daysAgo(5)})
	s := NewSnapshot(testNow, Records{
		Projects: []domain.Project{{ID: "p1", Code: "P-1", Status: domain.ProjectActive}},
		Safety:   checklists,
	})

	cards := safetyChecklistsRule(s)
	if len(cards) != 10 {
		t.Fatalf("expected 10 checklist cards, got %d", len(cards))
	}
	if cards[0].ID != "safety-s0" || cards[9].ID != "safety-s5" {
		t.Fatalf("expected most recent checklist dates first, got %s .. %s", cards[0].ID, cards[9].ID)
	}
	for _, c := range cards {
		if c.ID == "safety-old" {
			t.Fatalf("checklist outside the window must not appear")
		}
	}
	if cards[0].Description != "Checklist completed on Mar 10." {
		t.Fatalf("expected default status completed, got %q", cards[0].Description)
	}
	if cards[4].ID != "safety-s1" || cards[4].Description != "Checklist in_progress on Mar 9." {
		t.Fatalf("unexpected card %s %q", cards[4].ID, cards[4].Description)
	}
	if cards[0].Title != "Safety Checklist: P-1" || !cards[0].Timestamp.Equal(testNow) {
		t.Fatalf("unexpected card header %q %v", cards[0].Title, cards[0].Timestamp)
	}
}
