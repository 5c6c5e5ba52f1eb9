package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hamed0406/dlprobe/internal/domain"
	"github.com/hamed0406/dlprobe/internal/repo"
)

type Store struct {
	mu        sync.RWMutex
	downloads []domain.Download
	byURL     map[string]int
	alerts    map[string]repo.AlertRecord
}

func New() *Store {
	return &Store{
		byURL:  make(map[string]int),
		alerts: make(map[string]repo.AlertRecord),
	}
}

func (m *Store) Add(ctx context.Context, d *domain.Download) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.URL != "" {
		if _, ok := m.byURL[d.URL]; ok {
			return fmt.Errorf("%w: %s", repo.ErrDuplicate, d.URL)
		}
	}
	if d.ID == "" {
		d.ID = domain.DownloadID(uuid.NewString())
	}
	m.append(*d)
	return nil
}

func (m *Store) append(d domain.Download) {
	if d.URL != "" {
		m.byURL[d.URL] = len(m.downloads)
	}
	m.downloads = append(m.downloads, d)
}

func (m *Store) List(ctx context.Context) ([]domain.Download, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Download, len(m.downloads))
	copy(out, m.downloads)
	return out, nil
}

func (m *Store) GetByURL(ctx context.Context, url string) (*domain.Download, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.byURL[url]
	if !ok {
		return nil, nil
	}
	d := m.downloads[i]
	return &d, nil
}

func (m *Store) Replace(ctx context.Context, ds []domain.Download) error {
	byURL := make(map[string]struct{}, len(ds))
	for _, d := range ds {
		if d.URL == "" {
			continue
		}
		if _, ok := byURL[d.URL]; ok {
			return fmt.Errorf("%w: %s", repo.ErrDuplicate, d.URL)
		}
		byURL[d.URL] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloads = make([]domain.Download, 0, len(ds))
	m.byURL = make(map[string]int, len(ds))
	for _, d := range ds {
		if d.ID == "" {
			d.ID = domain.DownloadID(uuid.NewString())
		}
		m.append(d)
	}
	return nil
}

// ---- AlertStore ----

func (m *Store) Get(ctx context.Context, url string) (*repo.AlertRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.alerts[url]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *Store) Set(ctx context.Context, url string, available bool, sentAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ts *time.Time
	if !sentAt.IsZero() {
		ts = &sentAt
	}
	m.alerts[url] = repo.AlertRecord{URL: url, LastAvailable: available, LastSentAt: ts}
	return nil
}
