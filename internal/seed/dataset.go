package seed

// Dataset is the YAML document accepted by sf seed. Records point at their
// project by code and at crew members by name; ids are optional.
type Dataset struct {
	Projects         []Project         `yaml:"projects"`
	Invoices         []Invoice         `yaml:"invoices"`
	Bills            []Bill            `yaml:"bills"`
	Costs            []Cost            `yaml:"costs"`
	DailyLogs        []DailyLog        `yaml:"daily_logs"`
	Photos           []Photo           `yaml:"photos"`
	Bids             []Bid             `yaml:"bids"`
	SafetyChecklists []SafetyChecklist `yaml:"safety_checklists"`
	Crew             []CrewMember      `yaml:"crew"`
	Assignments      []Assignment      `yaml:"assignments"`
	Estimates        []Estimate        `yaml:"estimates"`
}

type Project struct {
	ID             string   `yaml:"id"`
	Code           string   `yaml:"code"`
	ClientCode     string   `yaml:"client_code"`
	ClientName     string   `yaml:"client_name"`
	Description    string   `yaml:"description"`
	Status         string   `yaml:"status"`
	EstimateAmount *float64 `yaml:"estimate_amount"`
	FinalCost      *float64 `yaml:"final_cost"`
	FinalRevenue   *float64 `yaml:"final_revenue"`
	ProfitMargin   *float64 `yaml:"profit_margin"`
	CreatedAt      string   `yaml:"created_at"`
	UpdatedAt      string   `yaml:"updated_at"`
}

type Invoice struct {
	ID            string   `yaml:"id"`
	InvoiceNumber string   `yaml:"number"`
	Project       string   `yaml:"project"`
	ClientName    string   `yaml:"client_name"`
	Amount        float64  `yaml:"amount"`
	Balance       *float64 `yaml:"balance"`
	IssueDate     string   `yaml:"issue_date"`
	DueDate       string   `yaml:"due_date"`
	Status        string   `yaml:"status"`
	Memo          string   `yaml:"memo"`
}

type Bill struct {
	ID         string   `yaml:"id"`
	VendorName string   `yaml:"vendor"`
	Project    string   `yaml:"project"`
	Amount     float64  `yaml:"amount"`
	Balance    *float64 `yaml:"balance"`
	DueDate    string   `yaml:"due_date"`
	Status     string   `yaml:"status"`
}

type Cost struct {
	ID          string  `yaml:"id"`
	Project     string  `yaml:"project"`
	Description string  `yaml:"description"`
	Amount      float64 `yaml:"amount"`
	Date        string  `yaml:"date"`
	Category    string  `yaml:"category"`
	Vendor      string  `yaml:"vendor"`
}

type DailyLog struct {
	ID              string      `yaml:"id"`
	Project         string      `yaml:"project"`
	Date            string      `yaml:"date"`
	WorkSummary     string      `yaml:"work_summary"`
	Weather         string      `yaml:"weather"`
	TemperatureHigh *float64    `yaml:"temperature_high"`
	TemperatureLow  *float64    `yaml:"temperature_low"`
	TotalHours      float64     `yaml:"total_hours"`
	Notes           string      `yaml:"notes"`
	Status          string      `yaml:"status"`
	AreasWorked     []string    `yaml:"areas_worked"`
	Crew            []LogWorker `yaml:"crew"`
	Materials       []LogItem   `yaml:"materials"`
	Equipment       []LogItem   `yaml:"equipment"`
}

type LogWorker struct {
	Name  string  `yaml:"name"`
	Hours float64 `yaml:"hours"`
	Role  string  `yaml:"role"`
}

// LogItem is a material (quantity, unit) or a piece of equipment (hours).
type LogItem struct {
	Name     string   `yaml:"name"`
	Quantity float64  `yaml:"quantity"`
	Unit     string   `yaml:"unit"`
	Hours    *float64 `yaml:"hours"`
}

type Photo struct {
	ID           string `yaml:"id"`
	Project      string `yaml:"project"`
	Filename     string `yaml:"filename"`
	Category     string `yaml:"category"`
	StorageURL   string `yaml:"storage_url"`
	ThumbnailURL string `yaml:"thumbnail_url"`
	Notes        string `yaml:"notes"`
	Area         string `yaml:"area"`
	CreatedAt    string `yaml:"created_at"`
}

type Bid struct {
	ID             string   `yaml:"id"`
	Name           string   `yaml:"name"`
	ClientCode     string   `yaml:"client_code"`
	ClientName     string   `yaml:"client_name"`
	DueDate        string   `yaml:"due_date"`
	EstimatedValue *float64 `yaml:"estimated_value"`
	Status         string   `yaml:"status"`
	Location       string   `yaml:"location"`
	CreatedAt      string   `yaml:"created_at"`
}

type SafetyChecklist struct {
	ID        string `yaml:"id"`
	Project   string `yaml:"project"`
	Date      string `yaml:"date"`
	Status    string `yaml:"status"`
	CreatedAt string `yaml:"created_at"`
}

type CrewMember struct {
	ID             string   `yaml:"id"`
	Name           string   `yaml:"name"`
	Role           string   `yaml:"role"`
	Phone          string   `yaml:"phone"`
	Email          string   `yaml:"email"`
	EmploymentType string   `yaml:"employment_type"`
	Company        string   `yaml:"company"`
	HourlyRate     *float64 `yaml:"hourly_rate"`
}

type Assignment struct {
	ID        string `yaml:"id"`
	Project   string `yaml:"project"`
	Crew      string `yaml:"crew"`
	Role      string `yaml:"role"`
	Active    *bool  `yaml:"active"`
	StartDate string `yaml:"start_date"`
}

type Estimate struct {
	ID           string     `yaml:"id"`
	Project      string     `yaml:"project"`
	Name         string     `yaml:"name"`
	TotalAmount  *float64   `yaml:"total_amount"`
	Status       string     `yaml:"status"`
	ApprovedDate string     `yaml:"approved_date"`
	CreatedAt    string     `yaml:"created_at"`
	LineItems    []LineItem `yaml:"line_items"`
}

type LineItem struct {
	Category    string   `yaml:"category"`
	Description string   `yaml:"description"`
	Quantity    float64  `yaml:"quantity"`
	Unit        string   `yaml:"unit"`
	UnitPrice   float64  `yaml:"unit_price"`
	TotalPrice  *float64 `yaml:"total_price"`
}
