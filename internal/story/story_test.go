package story

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"sitefeed/internal/domain"
)

var testNow = time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

var errMissing = errors.New("not found")

func ptr[T any](v T) *T { return &v }

func day(n int) time.Time {
	return time.Date(2025, 3, n, 0, 0, 0, 0, time.UTC)
}

type fakeSource struct {
	projects    []domain.Project
	estimates   []domain.Estimate
	assignments []domain.CrewAssignment
	logs        []domain.DailyLog
	photos      []domain.Photo
	invoices    []domain.Invoice
	costs       []domain.ProjectCost
	fail        map[string]error
}

func (f fakeSource) GetProject(_ context.Context, id string) (domain.Project, error) {
	for _, p := range f.projects {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Project{}, errMissing
}

func (f fakeSource) ListProjects(context.Context) ([]domain.Project, error) {
	return f.projects, f.fail["projects"]
}

func (f fakeSource) ListPhotos(context.Context) ([]domain.Photo, error) {
	return f.photos, f.fail["photos"]
}

func (f fakeSource) ProjectEstimates(context.Context, string) ([]domain.Estimate, error) {
	return f.estimates, f.fail["estimates"]
}

func (f fakeSource) ProjectCrewAssignments(context.Context, string) ([]domain.CrewAssignment, error) {
	return f.assignments, f.fail["crew_assignments"]
}

func (f fakeSource) ProjectDailyLogs(context.Context, string) ([]domain.DailyLog, error) {
	return f.logs, f.fail["daily_logs"]
}

func (f fakeSource) ProjectPhotos(context.Context, string) ([]domain.Photo, error) {
	return f.photos, f.fail["photos"]
}

func (f fakeSource) ProjectInvoices(context.Context, string) ([]domain.Invoice, error) {
	return f.invoices, f.fail["invoices"]
}

func (f fakeSource) ProjectCosts(context.Context, string) ([]domain.ProjectCost, error) {
	return f.costs, f.fail["project_costs"]
}

func newAssembler(src Source) Assembler {
	a := New(src, slog.New(slog.NewTextHandler(io.Discard, nil)))
	a.Now = func() time.Time { return testNow }
	return a
}

func TestEstimateStageWithoutLineItems(t *testing.T) {
	stage := BuildEstimateStage([]domain.Estimate{{ID: "e1", Name: "Base", TotalAmount: 100, Status: "draft", CreatedAt: day(1)}})
	if stage == nil {
		t.Fatalf("expected estimate stage")
	}
	if len(stage.Substeps) != 1 {
		t.Fatalf("expected one substep, got %d", len(stage.Substeps))
	}
	total, ok := stage.Substeps[0].Data.(domain.EstimateTotal)
	if !ok || total.TotalAmount != 100 {
		t.Fatalf("expected totals metric of 100, got %#v", stage.Substeps[0].Data)
	}
	if !stage.IsCurrent {
		t.Fatalf("draft estimate should be current")
	}
}

func TestEstimateStageBreakdown(t *testing.T) {
	approved := day(4)
	stage := BuildEstimateStage([]domain.Estimate{
		{
			ID:           "e2",
			TotalAmount:  600,
			Status:       "approved",
			ApprovedDate: &approved,
			LineItems: []domain.EstimateLineItem{
				{Category: "labor", TotalPrice: 200},
				{Category: "labor", TotalPrice: 100},
				{Category: "materials", TotalPrice: 300},
			},
		},
		{ID: "older", TotalAmount: 1, Status: "draft"},
	})
	if len(stage.Substeps) != 2 {
		t.Fatalf("expected totals and breakdown, got %d substeps", len(stage.Substeps))
	}
	breakdown := stage.Substeps[1].Data.(domain.EstimateBreakdown)
	if breakdown.CategoryTotals["labor"] != 300 || breakdown.CategoryTotals["materials"] != 300 {
		t.Fatalf("unexpected category totals %v", breakdown.CategoryTotals)
	}
	if breakdown.LineItemCount != 3 {
		t.Fatalf("expected 3 line items, got %d", breakdown.LineItemCount)
	}
	if stage.IsCurrent {
		t.Fatalf("approved estimate should not be current")
	}
	if stage.CompletedAt == nil || !stage.CompletedAt.Equal(approved) {
		t.Fatalf("expected completed_at from approval date")
	}
}

func TestInvoicingStageAllPaidManyInvoices(t *testing.T) {
	var invoices []domain.Invoice
	for i := 0; i < 12; i++ {
		invoices = append(invoices, domain.Invoice{
			ID:            fmt.Sprintf("i%d", i),
			InvoiceNumber: fmt.Sprint(1000 + i),
			Amount:        250,
			Balance:       0,
			Status:        "paid",
			IssueDate:     day(1),
			DueDate:       ptr(day(2 + i)),
		})
	}
	stage := BuildInvoicingStage(invoices)
	if len(stage.Substeps) != 1 {
		t.Fatalf("expected only the summary substep, got %d", len(stage.Substeps))
	}
	if stage.IsCurrent {
		t.Fatalf("fully paid invoicing should not be current")
	}
	summary := stage.Substeps[0].Data.(domain.InvoiceSummary)
	if summary.TotalInvoiced != 3000 || summary.PaidPercentage != 100 || summary.InvoiceCount != 12 {
		t.Fatalf("unexpected summary %#v", summary)
	}
	if stage.CompletedAt == nil || !stage.CompletedAt.Equal(day(13)) {
		t.Fatalf("expected completion at the last invoice due date, got %v", stage.CompletedAt)
	}
}

func TestInvoicingTotalsBalance(t *testing.T) {
	invoices := []domain.Invoice{
		{ID: "a", InvoiceNumber: "1", Amount: 1000.10, Balance: 333.33, Status: "partial"},
		{ID: "b", InvoiceNumber: "2", Amount: 250.25, Balance: 250.25, Status: "overdue"},
		{ID: "c", InvoiceNumber: "3", Amount: 99.99, Balance: 0, Status: "paid"},
	}
	stage := BuildInvoicingStage(invoices)
	if !stage.IsCurrent {
		t.Fatalf("open invoices keep invoicing current")
	}
	if len(stage.Substeps) != 4 {
		t.Fatalf("expected summary plus three invoices, got %d", len(stage.Substeps))
	}
	s := stage.Substeps[0].Data.(domain.InvoiceSummary)
	if math.Abs(s.TotalPaid+s.TotalOutstanding-s.TotalInvoiced) > 1e-9 {
		t.Fatalf("paid %v + outstanding %v != invoiced %v", s.TotalPaid, s.TotalOutstanding, s.TotalInvoiced)
	}
	if s.OverdueCount != 1 {
		t.Fatalf("expected one overdue, got %d", s.OverdueCount)
	}
}

func TestCrewStage(t *testing.T) {
	stage := BuildCrewStage([]domain.CrewAssignment{
		{ID: "a1", Active: true, Member: domain.CrewMember{ID: "m1", Name: "Ana", Role: "foreman"}},
		{ID: "a2", Active: true, Member: domain.CrewMember{ID: "m2", Name: "Bo"}},
		{ID: "a3", Active: false, Member: domain.CrewMember{ID: "m3", Name: "Cy", Role: "foreman"}},
	}, testNow)
	overview := stage.Substeps[0].Data.(domain.TeamOverview)
	if overview.TotalCrew != 2 {
		t.Fatalf("expected two active members, got %d", overview.TotalCrew)
	}
	if got := overview.RoleGroups["laborer"]; len(got) != 1 || got[0] != "Bo" {
		t.Fatalf("expected unroled member grouped as laborer, got %v", overview.RoleGroups)
	}
	if !stage.IsCurrent {
		t.Fatalf("active crew should be current")
	}

	inactive := BuildCrewStage([]domain.CrewAssignment{{ID: "a3", Member: domain.CrewMember{Name: "Cy"}}}, testNow)
	if inactive == nil || inactive.IsCurrent || len(inactive.Substeps) != 1 {
		t.Fatalf("expected non-current crew stage with one substep, got %#v", inactive)
	}
	if BuildCrewStage(nil, testNow) != nil {
		t.Fatalf("expected no crew stage without assignments")
	}
}

func TestDailyLogsStageCapsEntries(t *testing.T) {
	var logs []domain.DailyLog
	for i := 0; i < 35; i++ {
		logs = append(logs, domain.DailyLog{ID: fmt.Sprint(i), LogDate: testNow.AddDate(0, 0, -i)})
	}
	stage := BuildDailyLogsStage(logs)
	if len(stage.Substeps) != maxLogSubsteps {
		t.Fatalf("expected %d substeps, got %d", maxLogSubsteps, len(stage.Substeps))
	}
	if stage.Substeps[0].ID != "log-0" {
		t.Fatalf("expected newest log first, got %s", stage.Substeps[0].ID)
	}
	entry := stage.Substeps[0].Data.(domain.DailyLogEntry)
	if entry.AreasWorked == nil || entry.Crew == nil {
		t.Fatalf("expected empty lists, not nil")
	}
	if !stage.IsCurrent {
		t.Fatalf("daily logs stage is always current")
	}
}

func TestCompletionStage(t *testing.T) {
	project := domain.Project{ID: "p1", Status: domain.ProjectClosed, UpdatedAt: day(9)}
	costs := []domain.ProjectCost{{Amount: 100.1}, {Amount: 200.2}}

	if BuildCompletionStage(nil, project, costs) != nil {
		t.Fatalf("expected no completion stage without photos or final cost")
	}

	photos := []domain.Photo{
		{ID: "1", Category: "after", StorageURL: "a.jpg", CreatedAt: day(8)},
		{ID: "2", Category: "before", ThumbnailURL: "b-thumb.jpg", CreatedAt: day(2)},
	}
	stage := BuildCompletionStage(photos, project, costs)
	if len(stage.Substeps) != 2 {
		t.Fatalf("expected photos and summary, got %d", len(stage.Substeps))
	}
	cmp := stage.Substeps[0].Data.(domain.PhotoComparison)
	if len(cmp.Before) != 1 || len(cmp.After) != 1 || cmp.Before[0].URL != "b-thumb.jpg" {
		t.Fatalf("unexpected comparison %#v", cmp)
	}
	summary := stage.Substeps[1].Data.(domain.ProjectSummary)
	if summary.FinalCost != 300.3 {
		t.Fatalf("expected cost fallback 300.3, got %v", summary.FinalCost)
	}
	if stage.IsCurrent || stage.CompletedAt == nil {
		t.Fatalf("closed project completion should be done")
	}

	finalOnly := BuildCompletionStage(nil, domain.Project{Status: domain.ProjectActive, FinalCost: ptr(50.0)}, nil)
	if finalOnly == nil || len(finalOnly.Substeps) != 1 || !finalOnly.IsCurrent {
		t.Fatalf("expected summary-only current stage, got %#v", finalOnly)
	}

	gallery := BuildCompletionStage([]domain.Photo{{ID: "3", Category: "progress", StorageURL: "c.jpg"}}, project, nil)
	all := gallery.Substeps[0].Data.(domain.PhotoGallery)
	if len(all.All) != 1 || all.All[0].Category != "progress" {
		t.Fatalf("expected gallery fallback, got %#v", all)
	}
}

func TestCurrentStageIndex(t *testing.T) {
	stages := []domain.Stage{
		{Slug: domain.StageEstimate, IsCurrent: true},
		{Slug: domain.StageDailyLogs, IsCurrent: true},
		{Slug: domain.StageInvoicing},
	}
	if got := CurrentStageIndex(stages); got != 1 {
		t.Fatalf("expected latest current stage 1, got %d", got)
	}
	stages[1].IsCurrent = false
	stages[0].IsCurrent = false
	if got := CurrentStageIndex(stages); got != 2 {
		t.Fatalf("expected fallback to last stage, got %d", got)
	}
	if got := CurrentStageIndex(nil); got != 0 {
		t.Fatalf("expected 0 for no stages, got %d", got)
	}
}

func TestBuildKeepsLifecycleOrder(t *testing.T) {
	recs := Records{
		Project:   domain.Project{ID: "p1", Code: "P-1", Status: domain.ProjectActive, UpdatedAt: day(9)},
		Estimates: []domain.Estimate{{ID: "e1", TotalAmount: 10, Status: "approved"}},
		DailyLogs: []domain.DailyLog{{ID: "l1", LogDate: day(8)}},
		Invoices:  []domain.Invoice{{ID: "i1", InvoiceNumber: "1", Amount: 10, Balance: 10, Status: "open"}},
		Photos:    []domain.Photo{{ID: "ph", Category: "during", ThumbnailURL: "t.jpg", CreatedAt: day(8)}},
	}
	st := Build(recs, testNow)
	want := []domain.StageSlug{domain.StageEstimate, domain.StageDailyLogs, domain.StageCompletion, domain.StageInvoicing}
	if len(st.Stages) != len(want) {
		t.Fatalf("expected %d stages, got %d", len(want), len(st.Stages))
	}
	for i, slug := range want {
		if st.Stages[i].Slug != slug {
			t.Fatalf("stage %d: expected %s, got %s", i, slug, st.Stages[i].Slug)
		}
		if len(st.Stages[i].Substeps) == 0 {
			t.Fatalf("stage %s has no substeps", slug)
		}
	}
	if st.CurrentStageIndex != 3 {
		t.Fatalf("expected invoicing current, got %d", st.CurrentStageIndex)
	}
	if st.ThumbnailURL == nil || *st.ThumbnailURL != "t.jpg" {
		t.Fatalf("expected thumbnail from the first photo")
	}

	empty := Build(Records{Project: recs.Project}, testNow)
	if len(empty.Stages) != 0 || empty.CurrentStageIndex != 0 {
		t.Fatalf("expected empty story, got %#v", empty)
	}
}

func TestStoryNotFound(t *testing.T) {
	_, err := newAssembler(fakeSource{}).Story(context.Background(), "missing")
	if !errors.Is(err, errMissing) {
		t.Fatalf("expected wrapped lookup error, got %v", err)
	}
}

func TestStoryDegradesFailedSources(t *testing.T) {
	src := fakeSource{
		projects: []domain.Project{{ID: "p1", Status: domain.ProjectActive}},
		logs:     []domain.DailyLog{{ID: "l1", LogDate: day(9)}},
		invoices: []domain.Invoice{{ID: "i1", Amount: 1, Balance: 1}},
		fail:     map[string]error{"invoices": errors.New("boom")},
	}
	st, err := newAssembler(src).Story(context.Background(), "p1")
	if err != nil {
		t.Fatalf("story: %v", err)
	}
	if len(st.Stages) != 1 || st.Stages[0].Slug != domain.StageDailyLogs {
		t.Fatalf("expected only the daily logs stage, got %#v", st.Stages)
	}
}

func TestSummaries(t *testing.T) {
	src := fakeSource{
		projects: []domain.Project{
			{ID: "old", Status: domain.ProjectClosed, UpdatedAt: day(1)},
			{ID: "new", Status: domain.ProjectActive, UpdatedAt: day(5)},
		},
		photos: []domain.Photo{
			{ID: "2", ProjectID: "new", StorageURL: "newest.jpg", CreatedAt: day(5)},
			{ID: "1", ProjectID: "new", StorageURL: "older.jpg", CreatedAt: day(3)},
		},
	}
	items, err := newAssembler(src).Summaries(context.Background())
	if err != nil {
		t.Fatalf("summaries: %v", err)
	}
	if len(items) != 2 || items[0].ProjectID != "new" {
		t.Fatalf("expected most recently updated first, got %#v", items)
	}
	if items[0].ThumbnailURL == nil || *items[0].ThumbnailURL != "newest.jpg" {
		t.Fatalf("expected newest photo as thumbnail")
	}
	if items[0].CurrentStageName != "In Progress" || items[1].CurrentStageName != "Completed" {
		t.Fatalf("unexpected stage names %q %q", items[0].CurrentStageName, items[1].CurrentStageName)
	}
	if items[1].ThumbnailURL != nil {
		t.Fatalf("expected no thumbnail for project without photos")
	}

	src.fail = map[string]error{"projects": errors.New("down")}
	if _, err := newAssembler(src).Summaries(context.Background()); err == nil {
		t.Fatalf("expected project listing error")
	}
}
