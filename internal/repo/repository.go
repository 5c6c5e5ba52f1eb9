package repo

import (
	"context"
	"errors"

	"github.com/hamed0406/dlprobe/internal/domain"
)

var ErrDuplicate = errors.New("download url already in catalog")

// CatalogStore holds the download catalog. List returns entries in the
// order they were added.
type CatalogStore interface {
	Add(ctx context.Context, d *domain.Download) error
	List(ctx context.Context) ([]domain.Download, error)
	// GetByURL returns nil, nil when no entry has that URL.
	GetByURL(ctx context.Context, url string) (*domain.Download, error)
	// Replace swaps the whole catalog, e.g. after the catalog file changed.
	Replace(ctx context.Context, ds []domain.Download) error
}
