package sitefeedsdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Sitefeed HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v0",
		Timeout:  10 * time.Second,
	}
}

// Card is one feed entry.
type Card struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Priority    string         `json:"priority"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Timestamp   time.Time      `json:"timestamp"`
	Amount      *float64       `json:"amount,omitempty"`
	ProjectID   string         `json:"project_id,omitempty"`
	ProjectCode string         `json:"project_code,omitempty"`
	ClientName  string         `json:"client_name,omitempty"`
	Metadata    map[string]any `json:"metadata"`
	Action      struct {
		Target string `json:"target"`
		Label  string `json:"label"`
	} `json:"action"`
}

type UpcomingBid struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	ClientName     string     `json:"client_name,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	EstimatedValue *float64   `json:"estimated_value,omitempty"`
	Status         string     `json:"status"`
}

type Feed struct {
	Cards        []Card        `json:"cards"`
	GeneratedAt  time.Time     `json:"generated_at"`
	UpcomingBids []UpcomingBid `json:"upcoming_bids"`
}

type StorySummary struct {
	ProjectID        string    `json:"project_id"`
	ProjectCode      string    `json:"project_code"`
	ProjectName      string    `json:"project_name"`
	ClientName       string    `json:"client_name"`
	Status           string    `json:"status"`
	ThumbnailURL     *string   `json:"thumbnail_url,omitempty"`
	LastUpdated      time.Time `json:"last_updated"`
	CurrentStageName string    `json:"current_stage_name"`
}

// Substep keeps its payload raw; decode Data by Type.
type Substep struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

type Stage struct {
	Slug        string     `json:"slug"`
	Label       string     `json:"label"`
	Substeps    []Substep  `json:"substeps"`
	HasData     bool       `json:"has_data"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	IsCurrent   bool       `json:"is_current"`
}

type Story struct {
	ProjectID         string    `json:"project_id"`
	ProjectCode       string    `json:"project_code"`
	ProjectName       string    `json:"project_name"`
	ClientName        string    `json:"client_name"`
	Status            string    `json:"status"`
	ThumbnailURL      *string   `json:"thumbnail_url,omitempty"`
	Stages            []Stage   `json:"stages"`
	CurrentStageIndex int       `json:"current_stage_index"`
	LastUpdated       time.Time `json:"last_updated"`
}

// CurrentStage returns the stage the project is in, if it has any.
func (s Story) CurrentStage() (Stage, bool) {
	if s.CurrentStageIndex < 0 || s.CurrentStageIndex >= len(s.Stages) {
		return Stage{}, false
	}
	return s.Stages[s.CurrentStageIndex], true
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Feed returns the ranked attention feed.
func (c *Client) Feed(ctx context.Context) (Feed, error) {
	var resp Feed
	err := c.get(ctx, "feed", &resp)
	return resp, err
}

// Stories lists every project story summary.
func (c *Client) Stories(ctx context.Context) ([]StorySummary, error) {
	var resp struct {
		Items []StorySummary `json:"items"`
	}
	err := c.get(ctx, "stories", &resp)
	return resp.Items, err
}

// Story fetches one project's story.
func (c *Client) Story(ctx context.Context, projectID string) (Story, error) {
	var resp Story
	err := c.get(ctx, "stories/"+url.PathEscape(projectID), &resp)
	return resp, err
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(endpoint), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) url(endpoint string) string {
	base := strings.TrimRight(c.BaseURL, "/")
	prefix := strings.Trim(c.BasePath, "/")
	if prefix != "" {
		base += "/" + prefix
	}
	return base + "/" + strings.TrimLeft(endpoint, "/")
}
