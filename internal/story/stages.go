package story

import (
	"math"
	"time"

	"sitefeed/internal/domain"
	"sitefeed/internal/metrics"
)

const (
	maxLogSubsteps     = 30
	maxComparisonPhoto = 4
	maxGalleryPhotos   = 9
	maxInvoiceSubsteps = 10
)

// Each builder returns nil when its category has nothing to show. A non-nil
// stage always carries at least one substep.

func BuildEstimateStage(estimates []domain.Estimate) *domain.Stage {
	if len(estimates) == 0 {
		return nil
	}
	primary := estimates[0]
	substeps := []domain.Substep{{
		ID:    "est-summary-" + primary.ID,
		Type:  domain.SubstepMetric,
		Title: "Estimate Total",
		Data: domain.EstimateTotal{
			TotalAmount: primary.TotalAmount,
			Status:      primary.Status,
			Name:        primary.Name,
		},
		Timestamp: primary.CreatedAt,
	}}
	if len(primary.LineItems) > 0 {
		totals := map[string]float64{}
		for _, item := range primary.LineItems {
			totals[item.Category] = metrics.Sum(totals[item.Category], item.TotalPrice)
		}
		substeps = append(substeps, domain.Substep{
			ID:    "est-breakdown-" + primary.ID,
			Type:  domain.SubstepChart,
			Title: "Cost Breakdown",
			Data: domain.EstimateBreakdown{
				CategoryTotals: totals,
				LineItemCount:  len(primary.LineItems),
			},
			Timestamp: primary.CreatedAt,
		})
	}
	return &domain.Stage{
		Slug:        domain.StageEstimate,
		Label:       domain.StageEstimate.Label(),
		Substeps:    substeps,
		HasData:     true,
		CompletedAt: primary.ApprovedDate,
		IsCurrent:   primary.Status == "draft" || primary.Status == "sent",
	}
}

func BuildCrewStage(assignments []domain.CrewAssignment, now time.Time) *domain.Stage {
	if len(assignments) == 0 {
		return nil
	}
	groups := map[string][]string{}
	members := []domain.TeamMember{}
	for _, a := range assignments {
		if !a.Active {
			continue
		}
		role := a.Member.Role
		if role == "" {
			role = "laborer"
		}
		groups[role] = append(groups[role], a.Member.Name)
		members = append(members, domain.TeamMember{
			ID:             a.Member.ID,
			Name:           a.Member.Name,
			Role:           a.Member.Role,
			Company:        a.Member.Company,
			EmploymentType: a.Member.EmploymentType,
		})
	}
	return &domain.Stage{
		Slug:  domain.StageCrew,
		Label: domain.StageCrew.Label(),
		Substeps: []domain.Substep{{
			ID:    "crew-overview",
			Type:  domain.SubstepMetric,
			Title: "Team Overview",
			Data: domain.TeamOverview{
				TotalCrew:  len(members),
				RoleGroups: groups,
				Members:    members,
			},
			Timestamp: now,
		}},
		HasData:   true,
		IsCurrent: len(members) > 0,
	}
}

// BuildDailyLogsStage expects logs newest first and keeps that order.
func BuildDailyLogsStage(logs []domain.DailyLog) *domain.Stage {
	if len(logs) == 0 {
		return nil
	}
	if len(logs) > maxLogSubsteps {
		logs = logs[:maxLogSubsteps]
	}
	substeps := make([]domain.Substep, 0, len(logs))
	for _, log := range logs {
		entry := domain.DailyLogEntry{
			Date:            log.LogDate,
			WorkSummary:     log.WorkSummary,
			Weather:         log.Weather,
			TemperatureHigh: log.TemperatureHigh,
			TemperatureLow:  log.TemperatureLow,
			TotalHours:      log.TotalHours,
			Notes:           log.Notes,
			AreasWorked:     log.AreasWorked,
			Status:          log.Status,
			CrewCount:       len(log.Crew),
			Crew:            make([]domain.LogWorker, 0, len(log.Crew)),
		}
		if entry.AreasWorked == nil {
			entry.AreasWorked = []string{}
		}
		for _, c := range log.Crew {
			entry.Crew = append(entry.Crew, domain.LogWorker{Name: c.WorkerName, Hours: c.Hours, Role: c.Role})
		}
		for _, m := range log.Materials {
			entry.Materials = append(entry.Materials, domain.LogMaterial{Name: m.ItemName, Quantity: m.Quantity, Unit: m.Unit})
		}
		for _, e := range log.Equipment {
			entry.Equipment = append(entry.Equipment, domain.LogEquipment{Name: e.Name, Hours: e.Hours})
		}
		substeps = append(substeps, domain.Substep{
			ID:        "log-" + log.ID,
			Type:      domain.SubstepText,
			Title:     log.LogDate.Format("Mon, Jan 2"),
			Data:      entry,
			Timestamp: log.LogDate,
		})
	}
	// Once logging has started the stage stays in progress; current-stage
	// inference prefers later categories.
	return &domain.Stage{
		Slug:      domain.StageDailyLogs,
		Label:     domain.StageDailyLogs.Label(),
		Substeps:  substeps,
		HasData:   true,
		IsCurrent: true,
	}
}

func BuildCompletionStage(photos []domain.Photo, project domain.Project, costs []domain.ProjectCost) *domain.Stage {
	hasFinalCost := project.FinalCost != nil && *project.FinalCost != 0
	if len(photos) == 0 && !hasFinalCost {
		return nil
	}
	var substeps []domain.Substep
	before := photosIn(photos, "before")
	after := photosIn(photos, "after")
	switch {
	case len(before) > 0 || len(after) > 0:
		substeps = append(substeps, domain.Substep{
			ID:    "completion-photos",
			Type:  domain.SubstepPhotoGrid,
			Title: "Project Photos",
			Data: domain.PhotoComparison{
				Before:      photoRefs(before, maxComparisonPhoto, false),
				After:       photoRefs(after, maxComparisonPhoto, false),
				During:      photoRefs(photosIn(photos, "during"), maxComparisonPhoto, false),
				TotalPhotos: len(photos),
			},
			Timestamp: photos[0].CreatedAt,
		})
	case len(photos) > 0:
		substeps = append(substeps, domain.Substep{
			ID:    "completion-all-photos",
			Type:  domain.SubstepPhotoGrid,
			Title: "Project Photos",
			Data: domain.PhotoGallery{
				All:         photoRefs(photos, maxGalleryPhotos, true),
				TotalPhotos: len(photos),
			},
			Timestamp: photos[0].CreatedAt,
		})
	}

	finalCost := 0.0
	if hasFinalCost {
		finalCost = *project.FinalCost
	} else {
		amounts := make([]float64, len(costs))
		for i, c := range costs {
			amounts[i] = c.Amount
		}
		finalCost = metrics.Sum(amounts...)
	}
	substeps = append(substeps, domain.Substep{
		ID:    "completion-stats",
		Type:  domain.SubstepMetric,
		Title: "Project Summary",
		Data: domain.ProjectSummary{
			Status:         project.Status,
			EstimateAmount: project.EstimateAmount,
			FinalCost:      finalCost,
			FinalRevenue:   project.FinalRevenue,
			ProfitMargin:   project.ProfitMargin,
			TotalPhotos:    len(photos),
		},
		Timestamp: project.UpdatedAt,
	})

	stage := &domain.Stage{
		Slug:      domain.StageCompletion,
		Label:     domain.StageCompletion.Label(),
		Substeps:  substeps,
		HasData:   true,
		IsCurrent: project.Status == domain.ProjectActive,
	}
	if project.Status == domain.ProjectClosed {
		done := project.UpdatedAt
		stage.CompletedAt = &done
	}
	return stage
}

func BuildInvoicingStage(invoices []domain.Invoice) *domain.Stage {
	if len(invoices) == 0 {
		return nil
	}
	var amounts, paid, balances []float64
	overdue := 0
	allPaid := true
	for _, inv := range invoices {
		amounts = append(amounts, inv.Amount)
		paid = append(paid, inv.Amount-inv.Balance)
		balances = append(balances, inv.Balance)
		if inv.Status == "overdue" {
			overdue++
		}
		if inv.Status != "paid" {
			allPaid = false
		}
	}
	summary := domain.InvoiceSummary{
		TotalInvoiced:    metrics.Sum(amounts...),
		TotalPaid:        metrics.Sum(paid...),
		TotalOutstanding: metrics.Sum(balances...),
		InvoiceCount:     len(invoices),
		OverdueCount:     overdue,
	}
	if summary.TotalInvoiced > 0 {
		summary.PaidPercentage = int(math.Round(summary.TotalPaid / summary.TotalInvoiced * 100))
	}
	substeps := []domain.Substep{{
		ID:        "invoicing-summary",
		Type:      domain.SubstepMetric,
		Title:     "Invoice Summary",
		Data:      summary,
		Timestamp: invoices[0].IssueDate,
	}}
	if len(invoices) <= maxInvoiceSubsteps {
		for _, inv := range invoices {
			substeps = append(substeps, domain.Substep{
				ID:    "inv-" + inv.ID,
				Type:  domain.SubstepMetric,
				Title: "Invoice #" + inv.InvoiceNumber,
				Data: domain.InvoiceDetail{
					InvoiceNumber: inv.InvoiceNumber,
					ClientName:    inv.ClientName,
					Amount:        inv.Amount,
					Balance:       inv.Balance,
					Status:        inv.Status,
					IssueDate:     inv.IssueDate,
					DueDate:       inv.DueDate,
				},
				Timestamp: inv.IssueDate,
			})
		}
	}
	stage := &domain.Stage{
		Slug:      domain.StageInvoicing,
		Label:     domain.StageInvoicing.Label(),
		Substeps:  substeps,
		HasData:   true,
		IsCurrent: !allPaid,
	}
	if allPaid {
		stage.CompletedAt = invoices[len(invoices)-1].DueDate
	}
	return stage
}

func photosIn(photos []domain.Photo, category string) []domain.Photo {
	var out []domain.Photo
	for _, p := range photos {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

func photoRefs(photos []domain.Photo, limit int, withCategory bool) []domain.PhotoRef {
	if len(photos) > limit {
		photos = photos[:limit]
	}
	refs := make([]domain.PhotoRef, 0, len(photos))
	for _, p := range photos {
		ref := domain.PhotoRef{URL: p.URL(), Thumbnail: p.ThumbnailURL, Caption: p.Notes}
		if withCategory {
			ref.Category = p.Category
		}
		refs = append(refs, ref)
	}
	return refs
}
