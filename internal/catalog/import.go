package catalog

import (
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hamed0406/dlprobe/internal/domain"
)

var archiveExts = []string{".tgz", ".tar.gz", ".zip", ".jar", ".tar.bz2", ".tar.xz"}

func isArchive(name string) bool {
	name = strings.ToLower(name)
	for _, ext := range archiveExts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// ImportHTML builds a catalog from an existing download page. Table rows
// holding an archive link become downloads; rows that only name an archive
// become disabled downloads. Bold header rows switch the current section.
// Relative links are resolved against base, which may be empty.
func ImportHTML(r io.Reader, base string) (*Catalog, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	var baseURL *url.URL
	if base != "" {
		if baseURL, err = url.Parse(base); err != nil {
			return nil, fmt.Errorf("base url: %w", err)
		}
	}

	c := &Catalog{Title: squash(doc.Find("title").First().Text())}
	seen := make(map[string]struct{})
	section := domain.SectionSource

	add := func(d domain.Download) {
		if d.URL != "" {
			if _, ok := seen[d.URL]; ok {
				return
			}
			seen[d.URL] = struct{}{}
		}
		c.Downloads = append(c.Downloads, d)
	}

	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		// layout rows wrapping the download table
		if row.Find("table").Length() > 0 {
			return
		}
		if row.Find("a[href]").Length() == 0 {
			if s, ok := sectionOf(squash(row.Find("b").First().Text())); ok {
				section = s
				return
			}
		}
		cells := row.ChildrenFiltered("td")
		if cells.Length() == 0 {
			return
		}
		desc := ""
		if cells.Length() > 1 {
			desc = squash(cells.Eq(1).Text())
		}

		if link := row.Find("a[href]").First(); link.Length() > 0 {
			href, _ := link.Attr("href")
			u, ok := resolve(baseURL, href)
			if !ok || !isArchive(u) {
				return
			}
			add(domain.Download{
				Name:        linkName(link.Text(), u),
				URL:         u,
				Description: desc,
				Section:     section,
			})
			return
		}

		name := strings.TrimSpace(strings.TrimPrefix(squash(cells.First().Text()), "-"))
		if isArchive(name) {
			add(domain.Download{
				Name:        name,
				Description: stripNotice(desc),
				Section:     section,
				Disabled:    true,
			})
		}
	})

	// loose links outside of tables
	doc.Find("a[href]").Not("tr a").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		u, ok := resolve(baseURL, href)
		if !ok || !isArchive(u) {
			return
		}
		add(domain.Download{Name: linkName(link.Text(), u), URL: u, Section: section})
	})

	if err := Validate(c); err != nil {
		return nil, err
	}
	return c, nil
}

func sectionOf(header string) (domain.Section, bool) {
	h := strings.ToLower(header)
	switch {
	case h == "":
		return "", false
	case strings.Contains(h, "source"):
		return domain.SectionSource, true
	case strings.Contains(h, "binar"):
		return domain.SectionBinary, true
	case strings.Contains(h, "doc"):
		return domain.SectionDocumentation, true
	}
	return "", false
}

func resolve(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
		return "", false
	}
	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	u.Fragment = ""
	if !IsHTTPURL(u.String()) {
		return "", false
	}
	return u.String(), true
}

func linkName(text, u string) string {
	name := strings.TrimSpace(strings.TrimPrefix(squash(text), "-"))
	if name != "" {
		return name
	}
	if p, err := url.Parse(u); err == nil {
		return path.Base(p.Path)
	}
	return u
}

// stripNotice drops a trailing "(Not yet available)" remark.
func stripNotice(desc string) string {
	if i := strings.Index(strings.ToLower(desc), "(not"); i > 0 {
		return strings.TrimSpace(desc[:i])
	}
	return desc
}

func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
