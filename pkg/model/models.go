package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// SectionType is the discriminant of a report section.
type SectionType string

const (
	SectionTitle         SectionType = "title"
	SectionNavigation    SectionType = "navigation"
	SectionHeader        SectionType = "header"
	SectionContent       SectionType = "content"
	SectionChartInsights SectionType = "chartInsights"
	SectionTimeline      SectionType = "timeline"
)

// Section is one tagged content block of a report. Only the fields relevant
// to its Type are populated; the core never mutates a Section.
type Section struct {
	Key        string          `json:"key,omitempty"`
	Type       SectionType     `json:"type"`
	Heading    string          `json:"heading,omitempty"`
	Subheading string          `json:"subheading,omitempty"`
	Body       string          `json:"body,omitempty"`
	Theme      string          `json:"theme,omitempty"` // semantic theme color, e.g. "blue"
	Color      string          `json:"color,omitempty"` // explicit color token
	Image      *ImageRef       `json:"image,omitempty"`
	Items      []string        `json:"items,omitempty"`
	Chart      *Chart          `json:"chart,omitempty"`
	Insights   []Insight       `json:"insights,omitempty"`
	Events     []TimelineEvent `json:"events,omitempty"`
}

// ImageRef points at an image asset held by the content store.
type ImageRef struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

// Chart configures the chart drawn by chart-bearing sections.
// Data is either given inline (Series) or as CSV text with label,value rows.
type Chart struct {
	Kind   string      `json:"kind"` // bar, line or pie
	Title  string      `json:"title,omitempty"`
	Unit   string      `json:"unit,omitempty"`
	Source string      `json:"source,omitempty"`
	CSV    string      `json:"csv,omitempty"`
	Series []DataPoint `json:"series,omitempty"`
}

// DataPoint is a single labelled chart value.
type DataPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Insight is a headline finding attached to a chart.
type Insight struct {
	Title string `json:"title"`
	Text  string `json:"text,omitempty"`
}

// TimelineEvent is one entry of a timeline section.
type TimelineEvent struct {
	Date        string `json:"date"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// SectionList is stored as a JSON array in SQLite
type SectionList []Section

// Scan implements sql.Scanner for SectionList
func (s *SectionList) Scan(value interface{}) error {
	if value == nil {
		*s = SectionList{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}
	return json.Unmarshal(bytes, s)
}

// Value implements driver.Valuer for SectionList
func (s SectionList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Report is an ordered sequence of sections plus metadata.
// Section order determines rendering order and numbering.
type Report struct {
	ID          string      `json:"id"`
	OrgID       int64       `json:"org_id"`
	Title       string      `json:"title"`
	Author      string      `json:"author,omitempty"`
	PublishedAt *time.Time  `json:"published_at,omitempty"`
	Sections    SectionList `json:"sections"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Dimensions is a raster size in pixels.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// PreviewRecord is the rendered result for one section.
type PreviewRecord struct {
	SlideIndex    int         `json:"slide_index"`
	SectionNumber *int        `json:"section_number"`
	SlideType     SectionType `json:"slide_type"`
	ImageData     []byte      `json:"image_data"` // PNG
	Dimensions    Dimensions  `json:"dimensions"`
}

// PreviewBatch is the envelope returned for a whole report.
type PreviewBatch struct {
	Previews []PreviewRecord `json:"previews"`
	Metadata BatchMetadata   `json:"metadata"`
}

// BatchMetadata lets callers detect partial failure by comparing counts.
type BatchMetadata struct {
	BatchID         string    `json:"batch_id"`
	TotalSlides     int       `json:"total_slides"`
	PreviewedSlides int       `json:"previewed_slides"`
	OnePerType      bool      `json:"one_per_type"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// Schedule represents a scheduled deck export
type Schedule struct {
	ID           int64      `json:"id"`
	OrgID        int64      `json:"org_id"`
	Name         string     `json:"name"`
	ReportID     string     `json:"report_id"`
	IntervalType string     `json:"interval_type"`
	CronExpr     string     `json:"cron_expr,omitempty"`
	Timezone     string     `json:"timezone"`
	Recipients   Recipients `json:"recipients"`
	EmailSubject string     `json:"email_subject"`
	EmailBody    string     `json:"email_body"`
	Enabled      bool       `json:"enabled"`
	LastRunAt    *time.Time `json:"last_run_at,omitempty"`
	NextRunAt    *time.Time `json:"next_run_at,omitempty"`
	OwnerUserID  int64      `json:"owner_user_id"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Recipients holds email recipient information
type Recipients struct {
	To  []string `json:"to"`
	CC  []string `json:"cc,omitempty"`
	BCC []string `json:"bcc,omitempty"`
}

// Run statuses
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Run represents one export execution
type Run struct {
	ID             int64      `json:"id"`
	ScheduleID     int64      `json:"schedule_id"`
	OrgID          int64      `json:"org_id"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	Status         string     `json:"status"`
	EmailSent      bool       `json:"email_sent"`
	EmailError     string     `json:"email_error,omitempty"`
	ErrorText      string     `json:"error_text,omitempty"`
	Format         string     `json:"format,omitempty"`
	TotalSlides    int        `json:"total_slides"`
	RenderedSlides int        `json:"rendered_slides"`
	Bytes          int64      `json:"bytes"`
	Checksum       string     `json:"checksum,omitempty"`
	ArtifactData   []byte     `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Settings holds per-org settings
type Settings struct {
	ID           int64        `json:"id"`
	OrgID        int64        `json:"org_id"`
	SMTPConfig   *SMTPConfig  `json:"smtp_config,omitempty"`
	ExportConfig ExportConfig `json:"export_config"`
	Limits       Limits       `json:"limits"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// SMTPConfig holds SMTP configuration
type SMTPConfig struct {
	Host          string `json:"host"`
	Port          int    `json:"port"`
	Username      string `json:"username"`
	Password      string `json:"password"`
	From          string `json:"from"`
	UseTLS        bool   `json:"use_tls"`
	SkipTLSVerify bool   `json:"skip_tls_verify"`
}

// ExportConfig selects and tunes the deck export backend
type ExportConfig struct {
	Backend      string `json:"backend"` // "pdf" (default), "chromium" or "playwright"
	TimeoutMS    int    `json:"timeout_ms"`
	ChromiumPath string `json:"chromium_path"` // optional, auto-detect if empty
	Headless     bool   `json:"headless"`
	NoSandbox    bool   `json:"no_sandbox"`
}

// Limits holds usage limits
type Limits struct {
	MaxRecipients        int      `json:"max_recipients"`
	MaxAttachmentSizeMB  int      `json:"max_attachment_size_mb"`
	MaxConcurrentExports int      `json:"max_concurrent_exports"`
	RetentionDays        int      `json:"retention_days"`
	AllowedDomains       []string `json:"allowed_domains,omitempty"` // If empty, all domains are allowed
}

func scanJSON(value interface{}, dst interface{}) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	}
	return nil
}

// Scan implements sql.Scanner for Recipients
func (r *Recipients) Scan(value interface{}) error { return scanJSON(value, r) }

// Value implements driver.Valuer for Recipients
func (r Recipients) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// Scan implements sql.Scanner for SMTPConfig
func (s *SMTPConfig) Scan(value interface{}) error { return scanJSON(value, s) }

// Value implements driver.Valuer for SMTPConfig
func (s *SMTPConfig) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner for ExportConfig
func (e *ExportConfig) Scan(value interface{}) error { return scanJSON(value, e) }

// Value implements driver.Valuer for ExportConfig
func (e ExportConfig) Value() (driver.Value, error) {
	return json.Marshal(e)
}

// Scan implements sql.Scanner for Limits
func (l *Limits) Scan(value interface{}) error { return scanJSON(value, l) }

// Value implements driver.Valuer for Limits
func (l Limits) Value() (driver.Value, error) {
	return json.Marshal(l)
}

// DefaultSettings returns the settings used for an org that has saved none.
func DefaultSettings(orgID int64) *Settings {
	return &Settings{
		OrgID: orgID,
		SMTPConfig: &SMTPConfig{
			Port:   587,
			UseTLS: true,
		},
		ExportConfig: ExportConfig{
			Backend:   "pdf",
			TimeoutMS: 60000,
			Headless:  true,
			NoSandbox: true,
		},
		Limits: Limits{
			MaxRecipients:        50,
			MaxAttachmentSizeMB:  25,
			MaxConcurrentExports: 5,
			RetentionDays:        30,
		},
	}
}
