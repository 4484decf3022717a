package domain

import "time"

// StageSlug names a lifecycle category. The declaration order is story order.
type StageSlug string

const (
	StageEstimate   StageSlug = "estimate"
	StageCrew       StageSlug = "crew"
	StageDailyLogs  StageSlug = "daily_logs"
	StageCompletion StageSlug = "completion"
	StageInvoicing  StageSlug = "invoicing"
)

var StageOrder = []StageSlug{StageEstimate, StageCrew, StageDailyLogs, StageCompletion, StageInvoicing}

func (s StageSlug) Label() string {
	switch s {
	case StageEstimate:
		return "Estimate"
	case StageCrew:
		return "Crew"
	case StageDailyLogs:
		return "Daily Logs"
	case StageCompletion:
		return "Completion"
	case StageInvoicing:
		return "Invoicing"
	default:
		return string(s)
	}
}

type SubstepType string

const (
	SubstepMetric    SubstepType = "metric"
	SubstepChart     SubstepType = "chart"
	SubstepText      SubstepType = "text"
	SubstepPhotoGrid SubstepType = "photo_grid"
)

type Substep struct {
	ID        string      `json:"id"`
	Type      SubstepType `json:"type" enum:"metric,chart,text,photo_grid"`
	Title     string      `json:"title"`
	Data      any         `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

type Stage struct {
	Slug        StageSlug  `json:"slug" enum:"estimate,crew,daily_logs,completion,invoicing"`
	Label       string     `json:"label"`
	Substeps    []Substep  `json:"substeps"`
	HasData     bool       `json:"has_data"`
	CompletedAt *time.Time `json:"completed_at"`
	IsCurrent   bool       `json:"is_current"`
}

type ProjectStory struct {
	ProjectID         string    `json:"project_id"`
	ProjectCode       string    `json:"project_code"`
	ProjectName       string    `json:"project_name"`
	ClientName        string    `json:"client_name"`
	ClientCode        string    `json:"client_code"`
	Status            string    `json:"status" enum:"active,closed"`
	ThumbnailURL      *string   `json:"thumbnail_url"`
	Stages            []Stage   `json:"stages"`
	CurrentStageIndex int       `json:"current_stage_index"`
	LastUpdated       time.Time `json:"last_updated"`
}

// StorySummary is the lightweight listing entry for a project story.
type StorySummary struct {
	ProjectID        string    `json:"project_id"`
	ProjectCode      string    `json:"project_code"`
	ProjectName      string    `json:"project_name"`
	ClientName       string    `json:"client_name"`
	ClientCode       string    `json:"client_code"`
	Status           string    `json:"status"`
	ThumbnailURL     *string   `json:"thumbnail_url"`
	LastUpdated      time.Time `json:"last_updated"`
	CurrentStageName string    `json:"current_stage_name"`
}

// Substep payloads.

type EstimateTotal struct {
	TotalAmount float64 `json:"total_amount"`
	Status      string  `json:"status"`
	Name        string  `json:"name"`
}

type EstimateBreakdown struct {
	CategoryTotals map[string]float64 `json:"category_totals"`
	LineItemCount  int                `json:"line_item_count"`
}

type TeamMember struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Role           string `json:"role"`
	Company        string `json:"company,omitempty"`
	EmploymentType string `json:"employment_type"`
}

type TeamOverview struct {
	TotalCrew  int                 `json:"total_crew"`
	RoleGroups map[string][]string `json:"role_groups"`
	Members    []TeamMember        `json:"members"`
}

type LogWorker struct {
	Name  string  `json:"name"`
	Hours float64 `json:"hours"`
	Role  string  `json:"role,omitempty"`
}

type LogMaterial struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit,omitempty"`
}

type LogEquipment struct {
	Name  string   `json:"name"`
	Hours *float64 `json:"hours,omitempty"`
}

type DailyLogEntry struct {
	Date            time.Time      `json:"date"`
	WorkSummary     string         `json:"work_summary,omitempty"`
	Weather         string         `json:"weather,omitempty"`
	TemperatureHigh *float64       `json:"temperature_high,omitempty"`
	TemperatureLow  *float64       `json:"temperature_low,omitempty"`
	TotalHours      float64        `json:"total_hours"`
	Notes           string         `json:"notes,omitempty"`
	AreasWorked     []string       `json:"areas_worked"`
	Status          string         `json:"status,omitempty"`
	CrewCount       int            `json:"crew_count"`
	Crew            []LogWorker    `json:"crew"`
	Materials       []LogMaterial  `json:"materials,omitempty"`
	Equipment       []LogEquipment `json:"equipment,omitempty"`
}

type PhotoRef struct {
	URL       string `json:"url"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Caption   string `json:"caption,omitempty"`
	Category  string `json:"category,omitempty"`
}

type PhotoComparison struct {
	Before      []PhotoRef `json:"before"`
	After       []PhotoRef `json:"after"`
	During      []PhotoRef `json:"during"`
	TotalPhotos int        `json:"total_photos"`
}

type PhotoGallery struct {
	All         []PhotoRef `json:"all"`
	TotalPhotos int        `json:"total_photos"`
}

type ProjectSummary struct {
	Status         string   `json:"status"`
	EstimateAmount *float64 `json:"estimate_amount"`
	FinalCost      float64  `json:"final_cost"`
	FinalRevenue   *float64 `json:"final_revenue"`
	ProfitMargin   *float64 `json:"profit_margin"`
	TotalPhotos    int      `json:"total_photos"`
}

type InvoiceSummary struct {
	TotalInvoiced    float64 `json:"total_invoiced"`
	TotalPaid        float64 `json:"total_paid"`
	TotalOutstanding float64 `json:"total_outstanding"`
	InvoiceCount     int     `json:"invoice_count"`
	OverdueCount     int     `json:"overdue_count"`
	PaidPercentage   int     `json:"paid_percentage"`
}

type InvoiceDetail struct {
	InvoiceNumber string     `json:"invoice_number"`
	ClientName    string     `json:"client_name"`
	Amount        float64    `json:"amount"`
	Balance       float64    `json:"balance"`
	Status        string     `json:"status"`
	IssueDate     time.Time  `json:"issue_date"`
	DueDate       *time.Time `json:"due_date"`
}
