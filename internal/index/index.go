// Package index ties the download catalog to the existence prober: it
// answers "which of these downloads are really there right now".
package index

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/dlprobe/internal/catalog"
	"github.com/hamed0406/dlprobe/internal/domain"
	"github.com/hamed0406/dlprobe/internal/probe"
	"github.com/hamed0406/dlprobe/internal/repo"
)

// OutcomeDisabled is reported for catalog entries that have no link.
const OutcomeDisabled = "disabled"

var ErrInvalidDownload = errors.New("invalid download")

type Service struct {
	Logger *zap.Logger
	Store  repo.CatalogStore
	Prober probe.Prober
	// Limit bounds concurrent probes during a catalog check.
	Limit int

	mu    sync.RWMutex
	title string
	now   func() time.Time
}

func New(logger *zap.Logger, store repo.CatalogStore, prober probe.Prober, limit int) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limit < 1 {
		limit = 1
	}
	return &Service{
		Logger: logger,
		Store:  store,
		Prober: prober,
		Limit:  limit,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Load replaces the catalog contents with c.
func (s *Service) Load(ctx context.Context, c *catalog.Catalog) error {
	if err := s.Store.Replace(ctx, c.Downloads); err != nil {
		return err
	}
	s.mu.Lock()
	s.title = c.Title
	s.mu.Unlock()
	s.Logger.Info("catalog_loaded", zap.String("title", c.Title), zap.Int("downloads", len(c.Downloads)))
	return nil
}

func (s *Service) Title() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.title
}

func (s *Service) Downloads(ctx context.Context) ([]domain.Download, error) {
	return s.Store.List(ctx)
}

// Add validates d and appends it to the catalog.
func (s *Service) Add(ctx context.Context, d domain.Download) (*domain.Download, error) {
	if err := catalog.ValidateDownload(d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDownload, err)
	}
	if err := s.Store.Add(ctx, &d); err != nil {
		return nil, err
	}
	s.Logger.Info("download_added", zap.String("id", string(d.ID)), zap.String("url", d.URL))
	return &d, nil
}

// Probe checks a single URL and logs the outcome.
func (s *Service) Probe(ctx context.Context, url string) probe.Result {
	r := s.Prober.Probe(ctx, url)
	s.logResult(r)
	return r
}

// Statuses probes every enabled download and returns all entries, in
// catalog order, with their outcome.
func (s *Service) Statuses(ctx context.Context) ([]domain.DownloadStatus, error) {
	ds, err := s.Store.List(ctx)
	if err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(ds))
	for _, d := range ds {
		if !d.Disabled {
			urls = append(urls, d.URL)
		}
	}
	results := probe.CheckAll(ctx, s.Prober, urls, s.Limit)

	now := s.now()
	out := make([]domain.DownloadStatus, 0, len(ds))
	var i, found, missing, failed int
	for _, d := range ds {
		if d.Disabled {
			out = append(out, domain.DownloadStatus{Download: d, Outcome: OutcomeDisabled, CheckedAt: now})
			continue
		}
		r := results[i]
		i++
		s.logResult(r)
		switch r.Outcome {
		case probe.OutcomeExists:
			found++
		case probe.OutcomeNotFound:
			missing++
		default:
			failed++
		}
		out = append(out, StatusOf(d, r, now))
	}

	s.Logger.Info("catalog_checked",
		zap.Int("exists", found),
		zap.Int("not_found", missing),
		zap.Int("failed", failed),
	)
	return out, nil
}

// StatusOf combines a download with its probe result. A failed probe is
// rendered as not available and flagged indeterminate.
func StatusOf(d domain.Download, r probe.Result, checkedAt time.Time) domain.DownloadStatus {
	st := domain.DownloadStatus{
		Download:      d,
		Outcome:       r.Outcome.String(),
		Available:     r.Exists(),
		Indeterminate: r.Outcome == probe.OutcomeFailed,
		StatusLine:    r.StatusLine,
		LatencyMS:     r.LatencyMS,
		CheckedAt:     checkedAt,
	}
	if r.Err != nil {
		st.Error = r.Err.Error()
	}
	return st
}

func (s *Service) logResult(r probe.Result) {
	fields := []zap.Field{
		zap.String("url", r.URL),
		zap.String("outcome", r.Outcome.String()),
		zap.String("status_line", r.StatusLine),
		zap.Float64("latency_ms", r.LatencyMS),
	}
	if r.Err != nil {
		s.Logger.Warn("probe_failed", append(fields, zap.Error(r.Err))...)
		return
	}
	s.Logger.Debug("probe_done", fields...)
}
