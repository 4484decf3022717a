package domain

import "time"

// Tier is the severity bucket of a feed card. Lower rank sorts first.
type Tier string

const (
	TierCritical Tier = "critical"
	TierHigh     Tier = "high"
	TierMedium   Tier = "medium"
	TierInfo     Tier = "info"
)

func (t Tier) Rank() int {
	switch t {
	case TierCritical:
		return 0
	case TierHigh:
		return 1
	case TierMedium:
		return 2
	default:
		return 3
	}
}

const (
	CardOverdueInvoice    = "overdue_invoice"
	CardNegativeProfit    = "negative_profit"
	CardBillDueSoon       = "bill_due_soon"
	CardAgingReceivable   = "aging_receivable"
	CardStalledProject    = "stalled_project"
	CardMissingEstimate   = "missing_estimate"
	CardUnassignedInvoice = "unassigned_invoice"
	CardDailyLog          = "daily_log"
	CardNewPhotos         = "new_photos"
	CardCostEntry         = "cost_entry"
	CardSafetyChecklist   = "safety_checklist"
	CardProjectProgress   = "project_progress"
	CardUpcomingBid       = "upcoming_bid"
)

type Action struct {
	Target string `json:"target"`
	Label  string `json:"label"`
}

type FeedCard struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Priority    Tier           `json:"priority" enum:"critical,high,medium,info"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Timestamp   time.Time      `json:"timestamp"`
	Amount      *float64       `json:"amount,omitempty"`
	ProjectID   string         `json:"project_id,omitempty"`
	ProjectCode string         `json:"project_code,omitempty"`
	ClientName  string         `json:"client_name,omitempty"`
	Metadata    map[string]any `json:"metadata"`
	Action      Action         `json:"action"`
}

type UpcomingBid struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	ClientCode     *string    `json:"client_code"`
	ClientName     *string    `json:"client_name"`
	DueDate        *time.Time `json:"due_date"`
	EstimatedValue *float64   `json:"estimated_value"`
	Status         string     `json:"status"`
	Location       *string    `json:"location"`
}

type Feed struct {
	Cards        []FeedCard    `json:"cards"`
	GeneratedAt  time.Time     `json:"generated_at"`
	UpcomingBids []UpcomingBid `json:"upcoming_bids"`
}
