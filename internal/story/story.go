// Package story turns one project's records into an ordered sequence of
// lifecycle stages and infers which stage the project is in.
package story

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"sitefeed/internal/domain"
)

// Source is the per-project read side of the record gateway.
type Source interface {
	GetProject(ctx context.Context, id string) (domain.Project, error)
	ListProjects(ctx context.Context) ([]domain.Project, error)
	ListPhotos(ctx context.Context) ([]domain.Photo, error)
	ProjectEstimates(ctx context.Context, projectID string) ([]domain.Estimate, error)
	ProjectCrewAssignments(ctx context.Context, projectID string) ([]domain.CrewAssignment, error)
	ProjectDailyLogs(ctx context.Context, projectID string) ([]domain.DailyLog, error)
	ProjectPhotos(ctx context.Context, projectID string) ([]domain.Photo, error)
	ProjectInvoices(ctx context.Context, projectID string) ([]domain.Invoice, error)
	ProjectCosts(ctx context.Context, projectID string) ([]domain.ProjectCost, error)
}

// Records is everything the stage builders read for one project.
type Records struct {
	Project         domain.Project
	Estimates       []domain.Estimate
	CrewAssignments []domain.CrewAssignment
	DailyLogs       []domain.DailyLog
	Photos          []domain.Photo
	Invoices        []domain.Invoice
	Costs           []domain.ProjectCost
}

type Assembler struct {
	Source       Source
	Logger       *slog.Logger
	FetchTimeout time.Duration
	Now          func() time.Time
}

func New(src Source, logger *slog.Logger) Assembler {
	return Assembler{Source: src, Logger: logger, Now: time.Now}
}

func (a Assembler) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a Assembler) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}

// Story loads and assembles one project's story. Only a failed project lookup
// is returned as an error; every other source degrades to empty.
func (a Assembler) Story(ctx context.Context, projectID string) (domain.ProjectStory, error) {
	recs, err := a.Fetch(ctx, projectID)
	if err != nil {
		return domain.ProjectStory{}, err
	}
	return Build(recs, a.now()), nil
}

func (a Assembler) Fetch(ctx context.Context, projectID string) (Records, error) {
	var recs Records
	project, err := a.Source.GetProject(ctx, projectID)
	if err != nil {
		return recs, fmt.Errorf("load project %s: %w", projectID, err)
	}
	recs.Project = project

	var g errgroup.Group
	fetchInto(ctx, a, &g, "estimates", projectID, a.Source.ProjectEstimates, &recs.Estimates)
	fetchInto(ctx, a, &g, "crew_assignments", projectID, a.Source.ProjectCrewAssignments, &recs.CrewAssignments)
	fetchInto(ctx, a, &g, "daily_logs", projectID, a.Source.ProjectDailyLogs, &recs.DailyLogs)
	fetchInto(ctx, a, &g, "photos", projectID, a.Source.ProjectPhotos, &recs.Photos)
	fetchInto(ctx, a, &g, "invoices", projectID, a.Source.ProjectInvoices, &recs.Invoices)
	fetchInto(ctx, a, &g, "project_costs", projectID, a.Source.ProjectCosts, &recs.Costs)
	_ = g.Wait()
	return recs, nil
}

func fetchInto[T any](ctx context.Context, a Assembler, g *errgroup.Group, name, projectID string, fn func(context.Context, string) ([]T, error), dst *[]T) {
	g.Go(func() error {
		fctx := ctx
		if a.FetchTimeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(ctx, a.FetchTimeout)
			defer cancel()
		}
		items, err := fn(fctx, projectID)
		if err != nil {
			a.logger().Warn("story source unavailable", "source", name, "project_id", projectID, "error", err)
			return nil
		}
		*dst = items
		return nil
	})
}

// Build runs every stage builder in lifecycle order. It performs no I/O.
func Build(recs Records, now time.Time) domain.ProjectStory {
	p := recs.Project
	candidates := []*domain.Stage{
		BuildEstimateStage(recs.Estimates),
		BuildCrewStage(recs.CrewAssignments, now),
		BuildDailyLogsStage(recs.DailyLogs),
		BuildCompletionStage(recs.Photos, p, recs.Costs),
		BuildInvoicingStage(recs.Invoices),
	}
	stages := make([]domain.Stage, 0, len(candidates))
	for _, s := range candidates {
		if s != nil {
			stages = append(stages, *s)
		}
	}
	var thumb *string
	if len(recs.Photos) > 0 {
		thumb = thumbnail(recs.Photos[0])
	}
	return domain.ProjectStory{
		ProjectID:         p.ID,
		ProjectCode:       p.Code,
		ProjectName:       p.Description,
		ClientName:        p.ClientName,
		ClientCode:        p.ClientCode,
		Status:            p.Status,
		ThumbnailURL:      thumb,
		Stages:            stages,
		CurrentStageIndex: CurrentStageIndex(stages),
		LastUpdated:       p.UpdatedAt,
	}
}

// CurrentStageIndex returns the latest stage flagged current, else the last
// stage, else 0.
func CurrentStageIndex(stages []domain.Stage) int {
	for i := len(stages) - 1; i >= 0; i-- {
		if stages[i].IsCurrent {
			return i
		}
	}
	if len(stages) == 0 {
		return 0
	}
	return len(stages) - 1
}

// Summaries lists every project story, most recently updated first, with the
// newest photo as its thumbnail.
func (a Assembler) Summaries(ctx context.Context) ([]domain.StorySummary, error) {
	projects, err := a.Source.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	photos, err := a.Source.ListPhotos(ctx)
	if err != nil {
		a.logger().Warn("story source unavailable", "source", "photos", "error", err)
		photos = nil
	}
	return BuildSummaries(projects, photos), nil
}

// BuildSummaries expects photos newest first.
func BuildSummaries(projects []domain.Project, photos []domain.Photo) []domain.StorySummary {
	thumbs := map[string]*string{}
	for _, ph := range photos {
		if _, ok := thumbs[ph.ProjectID]; !ok {
			thumbs[ph.ProjectID] = thumbnail(ph)
		}
	}
	ordered := make([]domain.Project, len(projects))
	copy(ordered, projects)
	sortByUpdated(ordered)
	out := make([]domain.StorySummary, 0, len(ordered))
	for _, p := range ordered {
		stage := "Completed"
		if p.Active() {
			stage = "In Progress"
		}
		out = append(out, domain.StorySummary{
			ProjectID:        p.ID,
			ProjectCode:      p.Code,
			ProjectName:      p.Description,
			ClientName:       p.ClientName,
			ClientCode:       p.ClientCode,
			Status:           p.Status,
			ThumbnailURL:     thumbs[p.ID],
			LastUpdated:      p.UpdatedAt,
			CurrentStageName: stage,
		})
	}
	return out
}

func thumbnail(p domain.Photo) *string {
	url := p.ThumbnailURL
	if url == "" {
		url = p.StorageURL
	}
	if url == "" {
		return nil
	}
	return &url
}

func sortByUpdated(projects []domain.Project) {
	sort.SliceStable(projects, func(i, j int) bool {
		return projects[i].UpdatedAt.After(projects[j].UpdatedAt)
	})
}
