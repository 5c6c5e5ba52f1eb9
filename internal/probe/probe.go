package probe

import (
	"context"
	"errors"
	"strings"
)

// Outcome is the tri-state answer of a single existence probe.
type Outcome int

const (
	OutcomeFailed Outcome = iota
	OutcomeExists
	OutcomeNotFound
)

func (o Outcome) String() string {
	switch o {
	case OutcomeExists:
		return "exists"
	case OutcomeNotFound:
		return "not_found"
	default:
		return "failed"
	}
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

var (
	ErrInvalidURL    = errors.New("invalid url: missing host")
	ErrConnection    = errors.New("connection error")
	ErrRead          = errors.New("read error")
	ErrEmptyResponse = errors.New("empty response")
)

// Result is the outcome of one probe plus what was learned on the way.
//
// Err is only set when Outcome is OutcomeFailed and wraps one of the
// sentinel errors above.
type Result struct {
	URL        string  `json:"url"`
	Host       string  `json:"host,omitempty"`
	Path       string  `json:"path,omitempty"`
	Outcome    Outcome `json:"outcome"`
	StatusLine string  `json:"status_line,omitempty"`
	LatencyMS  float64 `json:"latency_ms"`
	Err        error   `json:"-"`
}

// Exists reports whether the resource should be treated as present.
// A failed probe counts as missing.
func (r Result) Exists() bool {
	return r.Outcome == OutcomeExists
}

// Detail is a one-line human readable explanation of the result.
func (r Result) Detail() string {
	if r.Err != nil {
		return r.Err.Error()
	}
	return r.StatusLine
}

// Prober performs one existence check for a URL. Implementations must not
// panic or return partially filled results on failure.
type Prober interface {
	Probe(ctx context.Context, url string) Result
}

// classify maps the raw response text to an outcome. Only the first line is
// inspected and any line containing "404" counts as missing.
func classify(text string) (Outcome, string, error) {
	if text == "" {
		return OutcomeFailed, "", ErrEmptyResponse
	}
	first := strings.Split(text, "\n")[0]
	status := strings.TrimRight(first, "\r")
	if strings.Contains(first, "404") {
		return OutcomeNotFound, status, nil
	}
	return OutcomeExists, status, nil
}
