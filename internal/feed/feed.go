// Package feed assembles the ranked cross-project attention feed.
package feed

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"sitefeed/internal/domain"
)

// Source is the read side of the record gateway the feed depends on.
type Source interface {
	ListProjects(ctx context.Context) ([]domain.Project, error)
	ListInvoices(ctx context.Context) ([]domain.Invoice, error)
	ListBills(ctx context.Context) ([]domain.Bill, error)
	ListDailyLogs(ctx context.Context) ([]domain.DailyLog, error)
	ListPhotos(ctx context.Context) ([]domain.Photo, error)
	ListProjectCosts(ctx context.Context) ([]domain.ProjectCost, error)
	ListBids(ctx context.Context) ([]domain.Bid, error)
	ListSafetyChecklists(ctx context.Context) ([]domain.SafetyChecklist, error)
}

type Assembler struct {
	Source       Source
	Rules        []Rule
	Logger       *slog.Logger
	FetchTimeout time.Duration
	Now          func() time.Time
}

func New(src Source, logger *slog.Logger) Assembler {
	return Assembler{
		Source: src,
		Rules:  DefaultRules(),
		Logger: logger,
		Now:    time.Now,
	}
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

// Assemble fetches every source, classifies, and sorts. It never fails: an
// unavailable source contributes nothing and the rest of the feed still builds.
func (a Assembler) Assemble(ctx context.Context) domain.Feed {
	now := a.now()
	recs := a.Fetch(ctx)
	snap := NewSnapshot(now, recs)
	rules := a.Rules
	if rules == nil {
		rules = DefaultRules()
	}
	cards := Classify(snap, rules, a.logger())
	a.logger().Debug("feed assembled",
		"cards", len(cards),
		"receivables", snap.Metrics.OutstandingReceivables,
		"payables", snap.Metrics.OutstandingPayables)
	return domain.Feed{
		Cards:        cards,
		GeneratedAt:  now,
		UpcomingBids: UpcomingBids(recs.Bids),
	}
}

// Fetch issues every source read concurrently and waits for all of them.
func (a Assembler) Fetch(ctx context.Context) Records {
	var recs Records
	if a.Source == nil {
		return recs
	}
	var g errgroup.Group
	fetchInto(ctx, a, &g, "projects", a.Source.ListProjects, &recs.Projects)
	fetchInto(ctx, a, &g, "invoices", a.Source.ListInvoices, &recs.Invoices)
	fetchInto(ctx, a, &g, "bills", a.Source.ListBills, &recs.Bills)
	fetchInto(ctx, a, &g, "daily_logs", a.Source.ListDailyLogs, &recs.DailyLogs)
	fetchInto(ctx, a, &g, "photos", a.Source.ListPhotos, &recs.Photos)
	fetchInto(ctx, a, &g, "project_costs", a.Source.ListProjectCosts, &recs.Costs)
	fetchInto(ctx, a, &g, "bids", a.Source.ListBids, &recs.Bids)
	fetchInto(ctx, a, &g, "safety_checklists", a.Source.ListSafetyChecklists, &recs.Safety)
	_ = g.Wait()
	return recs
}

func fetchInto[T any](ctx context.Context, a Assembler, g *errgroup.Group, name string, fn func(context.Context) ([]T, error), dst *[]T) {
	g.Go(func() error {
		fctx := ctx
		if a.FetchTimeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(ctx, a.FetchTimeout)
			defer cancel()
		}
		items, err := fn(fctx)
		if err != nil {
			a.logger().Warn("feed source unavailable", "source", name, "error", err)
			return nil
		}
		*dst = items
		return nil
	})
}

// Classify runs every rule against the snapshot and returns the sorted cards.
func Classify(s *Snapshot, rules []Rule, logger *slog.Logger) []domain.FeedCard {
	cards := make([]domain.FeedCard, 0)
	for _, r := range rules {
		cards = append(cards, runRule(r, s, logger)...)
	}
	Sort(cards)
	return cards
}

func runRule(r Rule, s *Snapshot, logger *slog.Logger) (cards []domain.FeedCard) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("feed rule failed", "rule", r.Name, "panic", rec)
			cards = nil
		}
	}()
	cards = r.Emit(s)
	for i := range cards {
		if cards[i].Metadata == nil {
			cards[i].Metadata = map[string]any{}
		}
	}
	return cards
}

// Sort orders cards by tier, then newest first. Equal timestamps keep
// emission order.
func Sort(cards []domain.FeedCard) {
	sort.SliceStable(cards, func(i, j int) bool {
		ri, rj := cards[i].Priority.Rank(), cards[j].Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		return cards[i].Timestamp.After(cards[j].Timestamp)
	})
}
