package seed

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"sitefeed/internal/domain"
)

type records struct {
	projects    []domain.Project
	invoices    []domain.Invoice
	bills       []domain.Bill
	costs       []domain.ProjectCost
	logs        []domain.DailyLog
	photos      []domain.Photo
	bids        []domain.Bid
	safety      []domain.SafetyChecklist
	crew        []domain.CrewMember
	assignments []domain.CrewAssignment
	estimates   []domain.Estimate
}

type converter struct {
	now      time.Time
	projects map[string]string
	crew     map[string]domain.CrewMember
}

func convert(ds Dataset, now time.Time) (records, error) {
	c := converter{now: now.UTC(), projects: map[string]string{}, crew: map[string]domain.CrewMember{}}
	var out records
	for i, p := range ds.Projects {
		proj, err := c.project(i, p)
		if err != nil {
			return out, err
		}
		out.projects = append(out.projects, proj)
	}
	for i, in := range ds.Invoices {
		inv, err := c.invoice(i, in)
		if err != nil {
			return out, err
		}
		out.invoices = append(out.invoices, inv)
	}
	for i, in := range ds.Bills {
		b, err := c.bill(i, in)
		if err != nil {
			return out, err
		}
		out.bills = append(out.bills, b)
	}
	for i, in := range ds.Costs {
		cost, err := c.cost(i, in)
		if err != nil {
			return out, err
		}
		out.costs = append(out.costs, cost)
	}
	for i, in := range ds.DailyLogs {
		l, err := c.dailyLog(i, in)
		if err != nil {
			return out, err
		}
		out.logs = append(out.logs, l)
	}
	for i, in := range ds.Photos {
		p, err := c.photo(i, in)
		if err != nil {
			return out, err
		}
		out.photos = append(out.photos, p)
	}
	for i, in := range ds.Bids {
		b, err := c.bid(i, in)
		if err != nil {
			return out, err
		}
		out.bids = append(out.bids, b)
	}
	for i, in := range ds.SafetyChecklists {
		s, err := c.safety(i, in)
		if err != nil {
			return out, err
		}
		out.safety = append(out.safety, s)
	}
	for i, in := range ds.Crew {
		m, err := c.crewMember(i, in)
		if err != nil {
			return out, err
		}
		out.crew = append(out.crew, m)
	}
	for i, in := range ds.Assignments {
		a, err := c.assignment(i, in)
		if err != nil {
			return out, err
		}
		out.assignments = append(out.assignments, a)
	}
	for i, in := range ds.Estimates {
		e, err := c.estimate(i, in)
		if err != nil {
			return out, err
		}
		out.estimates = append(out.estimates, e)
	}
	return out, nil
}

func (c *converter) project(i int, in Project) (domain.Project, error) {
	if in.Code == "" && in.ID == "" {
		return domain.Project{}, fmt.Errorf("projects[%d]: code or id is required", i)
	}
	id := orID(in.ID, "project", in.Code)
	status := in.Status
	if status == "" {
		status = domain.ProjectActive
	}
	if status != domain.ProjectActive && status != domain.ProjectClosed {
		return domain.Project{}, fmt.Errorf("projects[%d]: status must be active or closed", i)
	}
	created, err := c.timestamp(in.CreatedAt, c.now)
	if err != nil {
		return domain.Project{}, fmt.Errorf("projects[%d].created_at: %w", i, err)
	}
	updated, err := c.timestamp(in.UpdatedAt, created)
	if err != nil {
		return domain.Project{}, fmt.Errorf("projects[%d].updated_at: %w", i, err)
	}
	if in.Code != "" {
		if _, dup := c.projects[in.Code]; dup {
			return domain.Project{}, fmt.Errorf("projects[%d]: duplicate code %s", i, in.Code)
		}
		c.projects[in.Code] = id
	}
	c.projects[id] = id
	return domain.Project{
		ID:             id,
		Code:           in.Code,
		ClientCode:     in.ClientCode,
		ClientName:     in.ClientName,
		Description:    in.Description,
		Status:         status,
		EstimateAmount: in.EstimateAmount,
		FinalCost:      in.FinalCost,
		FinalRevenue:   in.FinalRevenue,
		ProfitMargin:   in.ProfitMargin,
		CreatedAt:      created,
		UpdatedAt:      updated,
	}, nil
}

func (c *converter) invoice(i int, in Invoice) (domain.Invoice, error) {
	where := fmt.Sprintf("invoices[%d]", i)
	if in.InvoiceNumber == "" {
		return domain.Invoice{}, fmt.Errorf("%s: number is required", where)
	}
	issue, err := c.date(in.IssueDate, where+".issue_date")
	if err != nil {
		return domain.Invoice{}, err
	}
	due, err := c.optionalDate(in.DueDate, where+".due_date")
	if err != nil {
		return domain.Invoice{}, err
	}
	project, err := c.optionalProject(in.Project, where)
	if err != nil {
		return domain.Invoice{}, err
	}
	balance, err := balanceOf(in.Amount, in.Balance, where)
	if err != nil {
		return domain.Invoice{}, err
	}
	return domain.Invoice{
		ID:            orID(in.ID, "invoice", in.InvoiceNumber),
		InvoiceNumber: in.InvoiceNumber,
		ClientName:    in.ClientName,
		Amount:        in.Amount,
		Balance:       balance,
		IssueDate:     issue,
		DueDate:       due,
		Status:        statusOf(in.Status, balance),
		Memo:          in.Memo,
		ProjectID:     project,
	}, nil
}

func (c *converter) bill(i int, in Bill) (domain.Bill, error) {
	where := fmt.Sprintf("bills[%d]", i)
	if in.VendorName == "" {
		return domain.Bill{}, fmt.Errorf("%s: vendor is required", where)
	}
	due, err := c.optionalDate(in.DueDate, where+".due_date")
	if err != nil {
		return domain.Bill{}, err
	}
	project, err := c.optionalProject(in.Project, where)
	if err != nil {
		return domain.Bill{}, err
	}
	balance, err := balanceOf(in.Amount, in.Balance, where)
	if err != nil {
		return domain.Bill{}, err
	}
	return domain.Bill{
		ID:         orID(in.ID, "bill", indexed(i, in.VendorName)),
		VendorName: in.VendorName,
		Amount:     in.Amount,
		Balance:    balance,
		DueDate:    due,
		Status:     statusOf(in.Status, balance),
		ProjectID:  project,
	}, nil
}

func (c *converter) cost(i int, in Cost) (domain.ProjectCost, error) {
	where := fmt.Sprintf("costs[%d]", i)
	project, err := c.projectRef(in.Project, where)
	if err != nil {
		return domain.ProjectCost{}, err
	}
	date, err := c.date(in.Date, where+".date")
	if err != nil {
		return domain.ProjectCost{}, err
	}
	category := in.Category
	if category == "" {
		category = "other"
	}
	switch category {
	case "labor", "materials", "equipment", "subcontractor", "other":
	default:
		return domain.ProjectCost{}, fmt.Errorf("%s: unknown category %s", where, category)
	}
	return domain.ProjectCost{
		ID:          orID(in.ID, "cost", indexed(i, project)),
		ProjectID:   project,
		Description: in.Description,
		Amount:      in.Amount,
		CostDate:    date,
		Category:    category,
		Vendor:      in.Vendor,
	}, nil
}

func (c *converter) dailyLog(i int, in DailyLog) (domain.DailyLog, error) {
	where := fmt.Sprintf("daily_logs[%d]", i)
	project, err := c.projectRef(in.Project, where)
	if err != nil {
		return domain.DailyLog{}, err
	}
	date, err := c.date(in.Date, where+".date")
	if err != nil {
		return domain.DailyLog{}, err
	}
	if in.TotalHours < 0 {
		return domain.DailyLog{}, fmt.Errorf("%s: total_hours must not be negative", where)
	}
	log := domain.DailyLog{
		ID:              orID(in.ID, "daily_log", project+"/"+in.Date+"/"+strconv.Itoa(i)),
		ProjectID:       project,
		LogDate:         date,
		WorkSummary:     in.WorkSummary,
		Weather:         in.Weather,
		TemperatureHigh: in.TemperatureHigh,
		TemperatureLow:  in.TemperatureLow,
		TotalHours:      in.TotalHours,
		Notes:           in.Notes,
		Status:          in.Status,
		AreasWorked:     in.AreasWorked,
	}
	for _, w := range in.Crew {
		log.Crew = append(log.Crew, domain.CrewHours{WorkerName: w.Name, Hours: w.Hours, Role: w.Role})
	}
	for _, m := range in.Materials {
		log.Materials = append(log.Materials, domain.MaterialUse{ItemName: m.Name, Quantity: m.Quantity, Unit: m.Unit})
	}
	for _, e := range in.Equipment {
		log.Equipment = append(log.Equipment, domain.EquipmentUse{Name: e.Name, Hours: e.Hours})
	}
	return log, nil
}

func (c *converter) photo(i int, in Photo) (domain.Photo, error) {
	where := fmt.Sprintf("photos[%d]", i)
	project, err := c.projectRef(in.Project, where)
	if err != nil {
		return domain.Photo{}, err
	}
	created, err := c.timestamp(in.CreatedAt, c.now)
	if err != nil {
		return domain.Photo{}, fmt.Errorf("%s.created_at: %w", where, err)
	}
	filename := in.Filename
	if filename == "" {
		filename = fmt.Sprintf("photo-%d.jpg", i+1)
	}
	return domain.Photo{
		ID:           orID(in.ID, "photo", project+"/"+filename+"/"+strconv.Itoa(i)),
		ProjectID:    project,
		Filename:     filename,
		Category:     in.Category,
		StorageURL:   in.StorageURL,
		ThumbnailURL: in.ThumbnailURL,
		Notes:        in.Notes,
		Area:         in.Area,
		CreatedAt:    created,
	}, nil
}

func (c *converter) bid(i int, in Bid) (domain.Bid, error) {
	where := fmt.Sprintf("bids[%d]", i)
	if in.Name == "" {
		return domain.Bid{}, fmt.Errorf("%s: name is required", where)
	}
	due, err := c.optionalDate(in.DueDate, where+".due_date")
	if err != nil {
		return domain.Bid{}, err
	}
	created, err := c.timestamp(in.CreatedAt, c.now)
	if err != nil {
		return domain.Bid{}, fmt.Errorf("%s.created_at: %w", where, err)
	}
	status := in.Status
	if status == "" {
		status = domain.BidDraft
	}
	return domain.Bid{
		ID:             orID(in.ID, "bid", indexed(i, in.Name)),
		Name:           in.Name,
		ClientCode:     in.ClientCode,
		ClientName:     in.ClientName,
		DueDate:        due,
		EstimatedValue: in.EstimatedValue,
		Status:         status,
		Location:       in.Location,
		CreatedAt:      created,
	}, nil
}

func (c *converter) safety(i int, in SafetyChecklist) (domain.SafetyChecklist, error) {
	where := fmt.Sprintf("safety_checklists[%d]", i)
	project, err := c.projectRef(in.Project, where)
	if err != nil {
		return domain.SafetyChecklist{}, err
	}
	date, err := c.date(in.Date, where+".date")
	if err != nil {
		return domain.SafetyChecklist{}, err
	}
	created, err := c.timestamp(in.CreatedAt, date)
	if err != nil {
		return domain.SafetyChecklist{}, fmt.Errorf("%s.created_at: %w", where, err)
	}
	return domain.SafetyChecklist{
		ID:            orID(in.ID, "safety", project+"/"+in.Date+"/"+strconv.Itoa(i)),
		ProjectID:     project,
		ChecklistDate: date,
		Status:        in.Status,
		CreatedAt:     created,
	}, nil
}

func (c *converter) crewMember(i int, in CrewMember) (domain.CrewMember, error) {
	if in.Name == "" {
		return domain.CrewMember{}, fmt.Errorf("crew[%d]: name is required", i)
	}
	if _, dup := c.crew[in.Name]; dup {
		return domain.CrewMember{}, fmt.Errorf("crew[%d]: duplicate name %s", i, in.Name)
	}
	employment := in.EmploymentType
	if employment == "" {
		employment = "employee"
	}
	m := domain.CrewMember{
		ID:             orID(in.ID, "crew", in.Name),
		Name:           in.Name,
		Role:           in.Role,
		Phone:          in.Phone,
		Email:          in.Email,
		EmploymentType: employment,
		Company:        in.Company,
		HourlyRate:     in.HourlyRate,
	}
	c.crew[in.Name] = m
	return m, nil
}

func (c *converter) assignment(i int, in Assignment) (domain.CrewAssignment, error) {
	where := fmt.Sprintf("assignments[%d]", i)
	project, err := c.projectRef(in.Project, where)
	if err != nil {
		return domain.CrewAssignment{}, err
	}
	member, ok := c.crew[in.Crew]
	if !ok {
		return domain.CrewAssignment{}, fmt.Errorf("%s: unknown crew member %q", where, in.Crew)
	}
	start, err := c.optionalDate(in.StartDate, where+".start_date")
	if err != nil {
		return domain.CrewAssignment{}, err
	}
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	return domain.CrewAssignment{
		ID:        orID(in.ID, "assignment", project+"/"+member.ID),
		ProjectID: project,
		Role:      in.Role,
		Member:    member,
		Active:    active,
		StartDate: start,
	}, nil
}

func (c *converter) estimate(i int, in Estimate) (domain.Estimate, error) {
	where := fmt.Sprintf("estimates[%d]", i)
	project, err := c.projectRef(in.Project, where)
	if err != nil {
		return domain.Estimate{}, err
	}
	approved, err := c.optionalDate(in.ApprovedDate, where+".approved_date")
	if err != nil {
		return domain.Estimate{}, err
	}
	created, err := c.timestamp(in.CreatedAt, c.now)
	if err != nil {
		return domain.Estimate{}, fmt.Errorf("%s.created_at: %w", where, err)
	}
	status := in.Status
	if status == "" {
		status = "draft"
	}
	id := orID(in.ID, "estimate", indexed(i, project))
	total := decimal.Zero
	items := make([]domain.EstimateLineItem, 0, len(in.LineItems))
	for j, li := range in.LineItems {
		line := decimal.NewFromFloat(li.Quantity).Mul(decimal.NewFromFloat(li.UnitPrice)).Round(2)
		if li.TotalPrice != nil {
			line = decimal.NewFromFloat(*li.TotalPrice)
		}
		total = total.Add(line)
		items = append(items, domain.EstimateLineItem{
			ID:          StableID("line_item", id+"/"+strconv.Itoa(j)),
			Category:    li.Category,
			Description: li.Description,
			Quantity:    li.Quantity,
			Unit:        li.Unit,
			UnitPrice:   li.UnitPrice,
			TotalPrice:  line.InexactFloat64(),
		})
	}
	amount := total.InexactFloat64()
	if in.TotalAmount != nil {
		amount = *in.TotalAmount
	}
	return domain.Estimate{
		ID:           id,
		ProjectID:    project,
		Name:         in.Name,
		TotalAmount:  amount,
		Status:       status,
		ApprovedDate: approved,
		CreatedAt:    created,
		LineItems:    items,
	}, nil
}

// projectRef resolves a project code or id declared earlier in the dataset.
func (c *converter) projectRef(ref, where string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("%s: project is required", where)
	}
	id, ok := c.projects[ref]
	if !ok {
		return "", fmt.Errorf("%s: unknown project %q", where, ref)
	}
	return id, nil
}

func (c *converter) optionalProject(ref, where string) (*string, error) {
	if ref == "" {
		return nil, nil
	}
	id, err := c.projectRef(ref, where)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (c *converter) date(s, where string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("%s is required", where)
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: expected YYYY-MM-DD, got %q", where, s)
	}
	return t, nil
}

func (c *converter) optionalDate(s, where string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := c.date(s, where)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *converter) timestamp(s string, fallback time.Time) (time.Time, error) {
	if s == "" {
		return fallback, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected RFC3339 or YYYY-MM-DD, got %q", s)
	}
	return t, nil
}

// balanceOf defaults an omitted balance to the full amount.
func balanceOf(amount float64, balance *float64, where string) (float64, error) {
	if balance == nil {
		return amount, nil
	}
	if *balance < 0 {
		return 0, fmt.Errorf("%s: balance must not be negative", where)
	}
	return *balance, nil
}

func statusOf(status string, balance float64) string {
	if status != "" {
		return status
	}
	if balance > 0 {
		return "open"
	}
	return "paid"
}

func orID(id, kind, key string) string {
	if id != "" {
		return id
	}
	return StableID(kind, key)
}

func indexed(i int, key string) string {
	return key + "/" + strconv.Itoa(i)
}
