package feed

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"

	"sitefeed/internal/domain"
)

var testNow = time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

type fakeSource struct {
	Records
	fail map[string]error
}

func (f fakeSource) err(name string) error { return f.fail[name] }

func (f fakeSource) ListProjects(context.Context) ([]domain.Project, error) {
	return f.Projects, f.err("projects")
}

func (f fakeSource) ListInvoices(context.Context) ([]domain.Invoice, error) {
	return f.Invoices, f.err("invoices")
}

func (f fakeSource) ListBills(context.Context) ([]domain.Bill, error) {
	return f.Bills, f.err("bills")
}

func (f fakeSource) ListDailyLogs(context.Context) ([]domain.DailyLog, error) {
	return f.DailyLogs, f.err("daily_logs")
}

func (f fakeSource) ListPhotos(context.Context) ([]domain.Photo, error) {
	return f.Photos, f.err("photos")
}

func (f fakeSource) ListProjectCosts(context.Context) ([]domain.ProjectCost, error) {
	return f.Costs, f.err("project_costs")
}

func (f fakeSource) ListBids(context.Context) ([]domain.Bid, error) {
	return f.Bids, f.err("bids")
}

func (f fakeSource) ListSafetyChecklists(context.Context) ([]domain.SafetyChecklist, error) {
	return f.Safety, f.err("safety_checklists")
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAssembler(src Source) Assembler {
	a := New(src, quietLogger())
	a.Now = func() time.Time { return testNow }
	return a
}

func daysAgo(n int) time.Time {
	d := testNow.AddDate(0, 0, -n)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

func cardsOfType(cards []domain.FeedCard, typ string) []domain.FeedCard {
	var out []domain.FeedCard
	for _, c := range cards {
		if c.Type == typ {
			out = append(out, c)
		}
	}
	return out
}

func TestOverdueInvoiceIsCritical(t *testing.T) {
	src := fakeSource{Records: Records{
		Invoices: []domain.Invoice{{
			ID:            "inv-1",
			InvoiceNumber: "1001",
			ClientName:    "Acme",
			Amount:        1000,
			Balance:       1000,
			IssueDate:     daysAgo(40),
			DueDate:       ptr(daysAgo(10)),
			Status:        "open",
			ProjectID:     ptr("p1"),
		}},
	}}
	feed := newAssembler(src).Assemble(context.Background())

	overdue := cardsOfType(feed.Cards, domain.CardOverdueInvoice)
	if len(overdue) != 1 {
		t.Fatalf("expected one overdue card, got %d", len(overdue))
	}
	card := overdue[0]
	if card.Priority != domain.TierCritical {
		t.Fatalf("expected critical, got %s", card.Priority)
	}
	if card.Amount == nil || *card.Amount != 1000 {
		t.Fatalf("expected amount 1000, got %v", card.Amount)
	}
	if got := card.Metadata["count"]; got != 1 {
		t.Fatalf("expected count 1, got %v", got)
	}
	if len(cardsOfType(feed.Cards, domain.CardAgingReceivable)) != 0 {
		t.Fatalf("overdue invoice must not also age")
	}
}

func TestNegativeProfitCard(t *testing.T) {
	src := fakeSource{Records: Records{
		Projects: []domain.Project{{ID: "p1", Code: "P-1", Status: domain.ProjectActive, UpdatedAt: daysAgo(1)}},
		Invoices: []domain.Invoice{{ID: "i1", InvoiceNumber: "1", Amount: 5000, Balance: 0, IssueDate: daysAgo(20), Status: "paid", ProjectID: ptr("p1")}},
		Costs: []domain.ProjectCost{
			{ID: "c1", ProjectID: "p1", Amount: 4000, CostDate: daysAgo(30), Category: "labor"},
			{ID: "c2", ProjectID: "p1", Amount: 3000, CostDate: daysAgo(30), Category: "materials"},
		},
	}}
	feed := newAssembler(src).Assemble(context.Background())

	cards := cardsOfType(feed.Cards, domain.CardNegativeProfit)
	if len(cards) != 1 {
		t.Fatalf("expected one negative profit card, got %d", len(cards))
	}
	if cards[0].Priority != domain.TierCritical {
		t.Fatalf("expected critical, got %s", cards[0].Priority)
	}
	if cards[0].Amount == nil || *cards[0].Amount != -2000 {
		t.Fatalf("expected amount -2000, got %v", cards[0].Amount)
	}
	if cards[0].ProjectID != "p1" {
		t.Fatalf("expected project p1, got %q", cards[0].ProjectID)
	}
}

func TestStalledProjectCard(t *testing.T) {
	src := fakeSource{Records: Records{
		Projects: []domain.Project{
			{ID: "p1", Code: "P-1", Status: domain.ProjectActive, EstimateAmount: ptr(100.0)},
			{ID: "p2", Code: "P-2", Status: domain.ProjectClosed, EstimateAmount: ptr(100.0)},
		},
		DailyLogs: []domain.DailyLog{
			{ID: "l1", ProjectID: "p1", LogDate: daysAgo(9)},
			{ID: "l2", ProjectID: "p1", LogDate: daysAgo(5)},
			{ID: "l3", ProjectID: "p1", LogDate: daysAgo(7)},
			{ID: "l4", ProjectID: "p2", LogDate: daysAgo(20)},
		},
	}}
	feed := newAssembler(src).Assemble(context.Background())

	cards := cardsOfType(feed.Cards, domain.CardStalledProject)
	if len(cards) != 1 {
		t.Fatalf("expected one stalled card, got %d", len(cards))
	}
	if cards[0].Priority != domain.TierHigh {
		t.Fatalf("expected high, got %s", cards[0].Priority)
	}
	if got := cards[0].Metadata["days_since_log"]; got != 5 {
		t.Fatalf("expected 5 days since log, got %v", got)
	}
	if !cards[0].Timestamp.Equal(daysAgo(5)) {
		t.Fatalf("expected timestamp of the latest log, got %v", cards[0].Timestamp)
	}
}

func TestEmptySourcesYieldEmptyFeed(t *testing.T) {
	feed := newAssembler(fakeSource{}).Assemble(context.Background())
	if feed.Cards == nil || len(feed.Cards) != 0 {
		t.Fatalf("expected empty non-nil cards, got %#v", feed.Cards)
	}
	if feed.UpcomingBids == nil || len(feed.UpcomingBids) != 0 {
		t.Fatalf("expected empty non-nil bids, got %#v", feed.UpcomingBids)
	}
	if !feed.GeneratedAt.Equal(testNow) {
		t.Fatalf("expected generated_at %v, got %v", testNow, feed.GeneratedAt)
	}
}

func TestFailingSourceDegrades(t *testing.T) {
	boom := errors.New("boom")
	src := fakeSource{
		Records: Records{
			Projects: []domain.Project{{ID: "p1", Code: "P-1", Status: domain.ProjectActive}},
			Invoices: []domain.Invoice{{ID: "i1", Amount: 10, Balance: 10, DueDate: ptr(daysAgo(3))}},
		},
		fail: map[string]error{"invoices": boom, "bids": context.DeadlineExceeded},
	}
	feed := newAssembler(src).Assemble(context.Background())

	if len(cardsOfType(feed.Cards, domain.CardOverdueInvoice)) != 0 {
		t.Fatalf("failed invoice source must contribute nothing")
	}
	if len(cardsOfType(feed.Cards, domain.CardMissingEstimate)) != 1 {
		t.Fatalf("expected the rest of the feed to build")
	}
	if len(feed.UpcomingBids) != 0 {
		t.Fatalf("expected no bids, got %d", len(feed.UpcomingBids))
	}
}

type slowInvoices struct {
	fakeSource
}

func (s slowInvoices) ListInvoices(ctx context.Context) ([]domain.Invoice, error) {
	<-ctx.Done()
	return s.Invoices, ctx.Err()
}

func TestFetchTimeoutDegrades(t *testing.T) {
	src := slowInvoices{fakeSource{Records: Records{
		Projects: []domain.Project{{ID: "p1", Code: "P-1", Status: domain.ProjectActive}},
		Invoices: []domain.Invoice{{ID: "i1", Amount: 10, Balance: 10, DueDate: ptr(daysAgo(3))}},
	}}}
	var buf bytes.Buffer
	a := newAssembler(src)
	a.Logger = slog.New(slog.NewTextHandler(&buf, nil))
	a.FetchTimeout = 20 * time.Millisecond

	feed := a.Assemble(context.Background())
	if len(cardsOfType(feed.Cards, domain.CardOverdueInvoice)) != 0 {
		t.Fatalf("timed out invoice source must contribute nothing")
	}
	if len(cardsOfType(feed.Cards, domain.CardMissingEstimate)) != 1 {
		t.Fatalf("expected the other sources to still produce cards")
	}
	if !strings.Contains(buf.String(), "source=invoices") {
		t.Fatalf("expected a warning for the invoice source, got %s", buf.String())
	}
}

func TestNilSourceDegrades(t *testing.T) {
	a := newAssembler(nil)
	feed := a.Assemble(context.Background())
	if len(feed.Cards) != 0 {
		t.Fatalf("expected no cards, got %d", len(feed.Cards))
	}
}

func TestAssembleIsIdempotent(t *testing.T) {
	src := fakeSource{Records: Records{
		Projects: []domain.Project{
			{ID: "p1", Code: "P-1", Status: domain.ProjectActive, EstimateAmount: ptr(10000.0), UpdatedAt: daysAgo(2)},
			{ID: "p2", Code: "P-2", Status: domain.ProjectActive, UpdatedAt: daysAgo(1)},
		},
		Invoices: []domain.Invoice{
			{ID: "i1", InvoiceNumber: "1", ClientName: "A", Amount: 100, Balance: 100, IssueDate: daysAgo(45), DueDate: ptr(daysAgo(5)), ProjectID: ptr("p1")},
			{ID: "i2", InvoiceNumber: "2", ClientName: "B", Amount: 200, Balance: 200, IssueDate: daysAgo(40)},
		},
		Bills: []domain.Bill{{ID: "b1", VendorName: "V", Amount: 50, Balance: 50, DueDate: ptr(daysAgo(-1))}},
		DailyLogs: []domain.DailyLog{
			{ID: "l1", ProjectID: "p1", LogDate: daysAgo(1), TotalHours: 8, Crew: []domain.CrewHours{{WorkerName: "Ana", Hours: 8}}},
			{ID: "l2", ProjectID: "p2", LogDate: daysAgo(1), TotalHours: 4},
		},
		Photos: []domain.Photo{{ID: "ph1", ProjectID: "p1", Category: "during", CreatedAt: testNow.Add(-time.Hour)}},
		Costs:  []domain.ProjectCost{{ID: "c1", ProjectID: "p1", Amount: 2500, CostDate: daysAgo(1), Category: "labor"}},
		Bids:   []domain.Bid{{ID: "bid1", Name: "School", Status: domain.BidDraft, DueDate: ptr(daysAgo(-2)), CreatedAt: daysAgo(10)}},
		Safety: []domain.SafetyChecklist{{ID: "s1", ProjectID: "p1", ChecklistDate: daysAgo(0), CreatedAt: testNow.Add(-2 * time.Hour)}},
	}}
	a := newAssembler(src)
	first := a.Assemble(context.Background())
	second := a.Assemble(context.Background())
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical feeds for the same snapshot")
	}
	if len(first.Cards) < 10 {
		t.Fatalf("expected a populated feed, got %d cards", len(first.Cards))
	}
	assertSorted(t, first.Cards)
}

func TestPanickingRuleIsSkipped(t *testing.T) {
	a := newAssembler(fakeSource{})
	a.Rules = []Rule{
		{Name: "broken", Emit: func(*Snapshot) []domain.FeedCard { panic("bad rule") }},
		{Name: "static", Emit: func(s *Snapshot) []domain.FeedCard {
			return []domain.FeedCard{{ID: "static", Priority: domain.TierInfo, Timestamp: s.Now}}
		}},
	}
	feed := a.Assemble(context.Background())
	if len(feed.Cards) != 1 || feed.Cards[0].ID != "static" {
		t.Fatalf("expected only the static card, got %#v", feed.Cards)
	}
	if feed.Cards[0].Metadata == nil {
		t.Fatalf("expected metadata to default to an empty map")
	}
}

func TestSortOrdersByTierThenNewest(t *testing.T) {
	cards := []domain.FeedCard{
		{ID: "info-old", Priority: domain.TierInfo, Timestamp: daysAgo(5)},
		{ID: "medium-new", Priority: domain.TierMedium, Timestamp: daysAgo(0)},
		{ID: "critical", Priority: domain.TierCritical, Timestamp: daysAgo(9)},
		{ID: "medium-old", Priority: domain.TierMedium, Timestamp: daysAgo(3)},
		{ID: "high-a", Priority: domain.TierHigh, Timestamp: daysAgo(1)},
		{ID: "high-b", Priority: domain.TierHigh, Timestamp: daysAgo(1)},
	}
	Sort(cards)
	want := []string{"critical", "high-a", "high-b", "medium-new", "medium-old", "info-old"}
	for i, id := range want {
		if cards[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, cards[i].ID)
		}
	}
	assertSorted(t, cards)
}

func assertSorted(t *testing.T, cards []domain.FeedCard) {
	t.Helper()
	for i := 1; i < len(cards); i++ {
		prev, cur := cards[i-1], cards[i]
		if prev.Priority.Rank() > cur.Priority.Rank() {
			t.Fatalf("card %s (%s) sorted before %s (%s)", prev.ID, prev.Priority, cur.ID, cur.Priority)
		}
		if prev.Priority == cur.Priority && prev.Timestamp.Before(cur.Timestamp) {
			t.Fatalf("card %s older than following %s in the same tier", prev.ID, cur.ID)
		}
	}
}
