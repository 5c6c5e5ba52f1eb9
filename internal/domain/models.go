package domain

import "time"

type DownloadID string

// Section groups downloads on the index page.
type Section string

const (
	SectionSource        Section = "source"
	SectionBinary        Section = "binary"
	SectionDocumentation Section = "documentation"
)

// Download is one catalog entry. Disabled entries are listed without a
// link and are never probed.
type Download struct {
	ID          DownloadID `json:"id" yaml:"id,omitempty"`
	Name        string     `json:"name" yaml:"name" validate:"required"`
	URL         string     `json:"url,omitempty" yaml:"url,omitempty" validate:"omitempty,httpurl"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Section     Section    `json:"section" yaml:"section" validate:"omitempty,oneof=source binary documentation"`
	Disabled    bool       `json:"disabled,omitempty" yaml:"disabled,omitempty"`
}

// DownloadStatus is a catalog entry together with the outcome of probing
// its URL. Available is false for missing files and for failed probes;
// Indeterminate marks the latter.
type DownloadStatus struct {
	Download
	Outcome       string    `json:"outcome"`
	Available     bool      `json:"available"`
	Indeterminate bool      `json:"indeterminate,omitempty"`
	StatusLine    string    `json:"status_line,omitempty"`
	Error         string    `json:"error,omitempty"`
	LatencyMS     float64   `json:"latency_ms"`
	CheckedAt     time.Time `json:"checked_at"`
}
