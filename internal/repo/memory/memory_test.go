package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hamed0406/dlprobe/internal/domain"
	"github.com/hamed0406/dlprobe/internal/repo"
)

func TestMemoryStore_AddAndList(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, name := range []string{"b.tgz", "a.tgz", "c.zip"} {
		d := &domain.Download{Name: name, URL: "http://example.com/" + name}
		if err := s.Add(ctx, d); err != nil {
			t.Fatalf("Add %s: %v", name, err)
		}
		if d.ID == "" {
			t.Fatalf("expected ID to be set for %s", name)
		}
	}

	all, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 || all[0].Name != "b.tgz" || all[2].Name != "c.zip" {
		t.Fatalf("want insertion order, got %+v", all)
	}
}

func TestMemoryStore_RejectsDuplicateURL(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.Add(ctx, &domain.Download{Name: "x", URL: "http://example.com/x.tgz"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	err := s.Add(ctx, &domain.Download{Name: "y", URL: "http://example.com/x.tgz"})
	if !errors.Is(err, repo.ErrDuplicate) {
		t.Fatalf("want ErrDuplicate, got %v", err)
	}

	// disabled entries have no URL and never collide
	for i := 0; i < 2; i++ {
		if err := s.Add(ctx, &domain.Download{Name: "solaris", Disabled: true}); err != nil {
			t.Fatalf("Add disabled: %v", err)
		}
	}
}

func TestMemoryStore_GetByURL(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.Add(ctx, &domain.Download{Name: "x", URL: "http://example.com/x.tgz"})

	got, err := s.GetByURL(ctx, "http://example.com/x.tgz")
	if err != nil || got == nil || got.Name != "x" {
		t.Fatalf("GetByURL: %+v err=%v", got, err)
	}
	got, err = s.GetByURL(ctx, "http://example.com/none.tgz")
	if err != nil || got != nil {
		t.Fatalf("want nil,nil for unknown url, got %+v err=%v", got, err)
	}
}

func TestMemoryStore_Replace(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.Add(ctx, &domain.Download{Name: "old", URL: "http://example.com/old.tgz"})

	err := s.Replace(ctx, []domain.Download{
		{Name: "new1", URL: "http://example.com/new1.tgz"},
		{Name: "new2", URL: "http://example.com/new2.tgz"},
	})
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	all, _ := s.List(ctx)
	if len(all) != 2 || all[0].Name != "new1" {
		t.Fatalf("unexpected catalog after replace: %+v", all)
	}
	if got, _ := s.GetByURL(ctx, "http://example.com/old.tgz"); got != nil {
		t.Fatalf("old entry still indexed: %+v", got)
	}

	err = s.Replace(ctx, []domain.Download{
		{Name: "a", URL: "http://example.com/dup.tgz"},
		{Name: "b", URL: "http://example.com/dup.tgz"},
	})
	if !errors.Is(err, repo.ErrDuplicate) {
		t.Fatalf("want ErrDuplicate, got %v", err)
	}
	if all, _ := s.List(ctx); len(all) != 2 {
		t.Fatalf("failed replace must keep the previous catalog, got %d entries", len(all))
	}
}

func TestMemoryStore_Alerts(t *testing.T) {
	ctx := context.Background()
	s := New()

	rec, err := s.Get(ctx, "u")
	if err != nil || rec != nil {
		t.Fatalf("expected nil, got %+v err=%v", rec, err)
	}

	if err := s.Set(ctx, "u", false, time.Time{}); err != nil {
		t.Fatalf("set: %v", err)
	}
	rec, _ = s.Get(ctx, "u")
	if rec == nil || rec.LastSentAt != nil || rec.LastAvailable {
		t.Fatalf("unexpected: %+v", rec)
	}

	now := time.Now()
	_ = s.Set(ctx, "u", true, now)
	rec, _ = s.Get(ctx, "u")
	if rec == nil || rec.LastSentAt == nil || !rec.LastAvailable {
		t.Fatalf("unexpected2: %+v", rec)
	}
}
