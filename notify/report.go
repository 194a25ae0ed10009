package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"hire-scout/ledger"
)

// StatsSource provides the current ledger counts.
type StatsSource interface {
	Stats() ledger.Stats
}

// DailyReport summarizes ledger growth since the previous report.
type DailyReport struct {
	stats  StatsSource
	sender Sender

	mu   sync.Mutex
	last ledger.Stats
}

// NewDailyReport creates a report. The baseline is the ledger state at creation.
func NewDailyReport(stats StatsSource, sender Sender) *DailyReport {
	return &DailyReport{
		stats:  stats,
		sender: sender,
		last:   stats.Stats(),
	}
}

// Send posts the report. The baseline moves forward only once the report
// has been sent.
func (r *DailyReport) Send(ctx context.Context, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.stats.Stats()
	text := FormatReport(now, r.last, current)
	if err := r.sender.Notify(ctx, text, true); err != nil {
		return fmt.Errorf("send report: %w", err)
	}
	r.last = current
	slog.Info("daily report sent", "messaged", current.Messaged, "no_chat", current.NoChat)
	return nil
}

// FormatReport renders counts and the change since prev.
func FormatReport(now time.Time, prev, current ledger.Stats) string {
	return fmt.Sprintf(
		"📊 <b>Outreach report %s</b>\n\n"+
			"✉️ Messaged: %d (+%d)\n"+
			"🚫 No chat / rejected: %d (+%d)\n"+
			"👥 Authors handled: %d",
		now.Format("2006-01-02"),
		current.Messaged, current.Messaged-prev.Messaged,
		current.NoChat, current.NoChat-prev.NoChat,
		current.Total(),
	)
}
