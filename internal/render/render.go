// Package render turns probed catalog entries into the download page. The
// layout lives in a template file; only the row text is decided here.
package render

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"time"

	"github.com/hamed0406/dlprobe/internal/domain"
	"github.com/hamed0406/dlprobe/internal/index"
)

//go:embed page.html.tmpl
var defaultPage string

const (
	TextExists       = "file exists"
	TextMissing      = "file does not exist"
	TextNotAvailable = "not yet available"
)

var headings = map[domain.Section]string{
	domain.SectionSource:        "Sources distributions",
	domain.SectionBinary:        "Binary distributions",
	domain.SectionDocumentation: "Documentation",
}

var sectionOrder = []domain.Section{domain.SectionSource, domain.SectionBinary, domain.SectionDocumentation}

type Row struct {
	Name        string
	URL         string
	Description string
	Linked      bool
	Text        string
	Class       string
}

type Section struct {
	Heading string
	Rows    []Row
}

type Page struct {
	Title     string
	Sections  []Section
	CheckedAt string
}

type Renderer struct {
	tmpl *template.Template
}

// New parses the page template. An empty source uses the built-in page.
func New(source string) (*Renderer, error) {
	if source == "" {
		source = defaultPage
	}
	t, err := template.New("page").Parse(source)
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}
	return &Renderer{tmpl: t}, nil
}

// Load reads a page template from path. An empty path uses the built-in
// page.
func Load(path string) (*Renderer, error) {
	if path == "" {
		return New("")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read page template: %w", err)
	}
	return New(string(b))
}

// RowText is what the page says about a download.
func RowText(st domain.DownloadStatus) string {
	switch {
	case st.Outcome == index.OutcomeDisabled:
		return TextNotAvailable
	case st.Available:
		return TextExists
	default:
		return TextMissing
	}
}

// Build groups statuses by section, keeping catalog order inside a section.
func Build(title string, statuses []domain.DownloadStatus, checkedAt time.Time) Page {
	bySection := make(map[domain.Section][]Row)
	for _, st := range statuses {
		sec := st.Section
		if sec == "" {
			sec = domain.SectionSource
		}
		class := "missing"
		if st.Available {
			class = "exists"
		} else if st.Indeterminate {
			class = "unknown"
		}
		bySection[sec] = append(bySection[sec], Row{
			Name:        st.Name,
			URL:         st.URL,
			Description: st.Description,
			Linked:      !st.Disabled && st.Available,
			Text:        RowText(st),
			Class:       class,
		})
	}

	p := Page{Title: title, CheckedAt: checkedAt.UTC().Format(time.RFC3339)}
	for _, sec := range sectionOrder {
		if rows := bySection[sec]; len(rows) > 0 {
			p.Sections = append(p.Sections, Section{Heading: headings[sec], Rows: rows})
		}
	}
	return p
}

func (r *Renderer) Render(w io.Writer, p Page) error {
	return r.tmpl.Execute(w, p)
}
