package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/hamed0406/dlprobe/internal/domain"
	"github.com/hamed0406/dlprobe/internal/notify"
	"github.com/hamed0406/dlprobe/internal/repo"
)

type AlerterConfig struct {
	AlertOnRecovery bool
	Cooldown        time.Duration
}

// Alerter turns a sweep of download statuses into notifications when a
// download goes missing or comes back.
type Alerter struct {
	alertDB  repo.AlertStore
	notifier notify.Notifier
	cfg      AlerterConfig
	now      func() time.Time
}

func NewAlerter(alertDB repo.AlertStore, notifier notify.Notifier, cfg AlerterConfig) *Alerter {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Alerter{
		alertDB:  alertDB,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Observe compares each status against the last recorded availability and
// returns how many alerts were sent. Disabled entries are ignored. A failing
// store or notifier does not stop the sweep; all errors come back combined.
func (a *Alerter) Observe(ctx context.Context, statuses []domain.DownloadStatus) (int, error) {
	now := a.now()
	sent := 0
	var errs error

	for _, st := range statuses {
		if st.Disabled || st.URL == "" {
			continue
		}
		ok, err := a.observe(ctx, st, now)
		if ok {
			sent++
		}
		errs = multierr.Append(errs, err)
	}
	return sent, errs
}

func (a *Alerter) observe(ctx context.Context, st domain.DownloadStatus, now time.Time) (bool, error) {
	rec, err := a.alertDB.Get(ctx, st.URL)
	if err != nil {
		return false, fmt.Errorf("alert state %s: %w", st.URL, err)
	}

	// A download seen for the first time and present is not news.
	if rec == nil && st.Available {
		return false, a.alertDB.Set(ctx, st.URL, true, time.Time{})
	}
	if rec != nil && rec.LastAvailable == st.Available {
		return false, nil
	}

	if !st.Available {
		// Inside the cooldown the old state stays recorded, so the alert
		// goes out on the first sweep after it ends.
		if rec != nil && rec.LastSentAt != nil && now.Sub(*rec.LastSentAt) < a.cfg.Cooldown {
			return false, nil
		}
	} else if !a.cfg.AlertOnRecovery {
		// Keep the last send time so the cooldown still covers flapping.
		var sentAt time.Time
		if rec != nil && rec.LastSentAt != nil {
			sentAt = *rec.LastSentAt
		}
		return false, a.alertDB.Set(ctx, st.URL, true, sentAt)
	}

	title := "Download MISSING"
	if st.Available {
		title = "Download BACK"
	}
	if err := a.notifier.Send(ctx, title, message(st)); err != nil {
		// Nothing recorded: the next sweep tries again.
		return false, fmt.Errorf("notify %s: %w", st.URL, err)
	}
	return true, a.alertDB.Set(ctx, st.URL, st.Available, now)
}

func message(st domain.DownloadStatus) string {
	status := st.StatusLine
	if status == "" {
		status = "n/a"
	}
	text := fmt.Sprintf("%s\nURL: %s\nOutcome: %s\nStatus: %s\nChecked: %s",
		st.Name, st.URL, st.Outcome, status, st.CheckedAt.Format(time.RFC3339))
	if st.Error != "" {
		text += "\nError: " + st.Error
	}
	return text
}
