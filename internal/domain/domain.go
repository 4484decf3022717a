package domain

import "time"

const (
	ProjectActive = "active"
	ProjectClosed = "closed"
)

type Project struct {
	ID             string    `json:"id"`
	Code           string    `json:"code"`
	ClientCode     string    `json:"client_code,omitempty"`
	ClientName     string    `json:"client_name,omitempty"`
	Description    string    `json:"description,omitempty"`
	Status         string    `json:"status" enum:"active,closed"`
	EstimateAmount *float64  `json:"estimate_amount,omitempty"`
	FinalCost      *float64  `json:"final_cost,omitempty"`
	FinalRevenue   *float64  `json:"final_revenue,omitempty"`
	ProfitMargin   *float64  `json:"profit_margin,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Label is the code when set, otherwise the description.
func (p Project) Label() string {
	if p.Code != "" {
		return p.Code
	}
	return p.Description
}

func (p Project) Active() bool { return p.Status == ProjectActive }

type Invoice struct {
	ID            string     `json:"id"`
	InvoiceNumber string     `json:"invoice_number"`
	ClientName    string     `json:"client_name,omitempty"`
	Amount        float64    `json:"amount"`
	Balance       float64    `json:"balance"`
	IssueDate     time.Time  `json:"issue_date"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	Status        string     `json:"status"`
	Memo          string     `json:"memo,omitempty"`
	ProjectID     *string    `json:"project_id,omitempty"`
}

type Bill struct {
	ID         string     `json:"id"`
	VendorName string     `json:"vendor_name"`
	Amount     float64    `json:"amount"`
	Balance    float64    `json:"balance"`
	DueDate    *time.Time `json:"due_date,omitempty"`
	Status     string     `json:"status"`
	ProjectID  *string    `json:"project_id,omitempty"`
}

type ProjectCost struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	CostDate    time.Time `json:"cost_date"`
	Category    string    `json:"category" enum:"labor,materials,equipment,subcontractor,other"`
	Vendor      string    `json:"vendor,omitempty"`
}

type CrewHours struct {
	WorkerName string  `json:"worker_name"`
	Hours      float64 `json:"hours_worked"`
	Role       string  `json:"role,omitempty"`
}

type MaterialUse struct {
	ItemName string  `json:"item_name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit,omitempty"`
}

type EquipmentUse struct {
	Name  string   `json:"equipment_name"`
	Hours *float64 `json:"hours_used,omitempty"`
}

type DailyLog struct {
	ID              string         `json:"id"`
	ProjectID       string         `json:"project_id"`
	LogDate         time.Time      `json:"log_date"`
	WorkSummary     string         `json:"work_summary,omitempty"`
	Weather         string         `json:"weather,omitempty"`
	TemperatureHigh *float64       `json:"temperature_high,omitempty"`
	TemperatureLow  *float64       `json:"temperature_low,omitempty"`
	TotalHours      float64        `json:"total_hours"`
	Notes           string         `json:"notes,omitempty"`
	Status          string         `json:"status,omitempty"`
	AreasWorked     []string       `json:"areas_worked,omitempty"`
	Crew            []CrewHours    `json:"crew,omitempty"`
	Materials       []MaterialUse  `json:"materials,omitempty"`
	Equipment       []EquipmentUse `json:"equipment,omitempty"`
}

type Photo struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"project_id"`
	Filename     string    `json:"filename"`
	Category     string    `json:"category"`
	StorageURL   string    `json:"storage_url,omitempty"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	Area         string    `json:"area,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// URL prefers the full-size storage URL.
func (p Photo) URL() string {
	if p.StorageURL != "" {
		return p.StorageURL
	}
	return p.ThumbnailURL
}

const (
	BidDraft     = "draft"
	BidSubmitted = "submitted"
)

type Bid struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	ClientCode     string     `json:"client_code,omitempty"`
	ClientName     string     `json:"client_name,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	EstimatedValue *float64   `json:"estimated_value,omitempty"`
	Status         string     `json:"status"`
	Location       string     `json:"location,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func (b Bid) Open() bool { return b.Status == BidDraft || b.Status == BidSubmitted }

type SafetyChecklist struct {
	ID            string    `json:"id"`
	ProjectID     string    `json:"project_id"`
	ChecklistDate time.Time `json:"checklist_date"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

type CrewMember struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Role           string   `json:"role"`
	Phone          string   `json:"phone,omitempty"`
	Email          string   `json:"email,omitempty"`
	EmploymentType string   `json:"employment_type"`
	Company        string   `json:"company,omitempty"`
	HourlyRate     *float64 `json:"hourly_rate,omitempty"`
}

type CrewAssignment struct {
	ID        string     `json:"id"`
	ProjectID string     `json:"project_id"`
	Role      string     `json:"role,omitempty"`
	Member    CrewMember `json:"crew_member"`
	Active    bool       `json:"is_active"`
	StartDate *time.Time `json:"start_date,omitempty"`
}

type EstimateLineItem struct {
	ID          string  `json:"id"`
	Category    string  `json:"category"`
	Description string  `json:"description,omitempty"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit,omitempty"`
	UnitPrice   float64 `json:"unit_price"`
	TotalPrice  float64 `json:"total_price"`
}

type Estimate struct {
	ID           string             `json:"id"`
	ProjectID    string             `json:"project_id"`
	Name         string             `json:"name"`
	TotalAmount  float64            `json:"total_amount"`
	Status       string             `json:"status"`
	ApprovedDate *time.Time         `json:"approved_date,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	LineItems    []EstimateLineItem `json:"line_items,omitempty"`
}
