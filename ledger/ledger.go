package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
)

// ErrAlreadyRecorded is returned when an author already has an outcome.
var ErrAlreadyRecorded = errors.New("author already recorded")

// Outcome is the terminal state of a processed author.
type Outcome int

const (
	// Messaged means an outreach message was handed to the delivery surface.
	Messaged Outcome = iota + 1
	// NoChatAvailable means the author had no reachable channel (or was rejected).
	NoChatAvailable
)

func (o Outcome) String() string {
	switch o {
	case Messaged:
		return "messaged"
	case NoChatAvailable:
		return "no_chat"
	default:
		return "unknown"
	}
}

// ParseOutcome converts a stored outcome name back to an Outcome.
func ParseOutcome(s string) (Outcome, error) {
	switch s {
	case "messaged":
		return Messaged, nil
	case "no_chat":
		return NoChatAvailable, nil
	default:
		return 0, fmt.Errorf("unknown outcome %q", s)
	}
}

// Record is a single appended ledger entry.
type Record struct {
	Username   string
	Outcome    Outcome
	RecordedAt time.Time
}

// Store is the durable, append-only backing for the ledger partitions.
type Store interface {
	Load(ctx context.Context) ([]Record, error)
	Append(ctx context.Context, rec Record) error
	Close() error
}

// Stats counts authors per partition.
type Stats struct {
	Messaged int
	NoChat   int
}

// Total returns the number of distinct authors seen.
func (s Stats) Total() int {
	return s.Messaged + s.NoChat
}

// Ledger is the in-memory seen-set over a Store.
type Ledger struct {
	store Store

	mu   sync.RWMutex
	seen map[string]Outcome
}

// New creates an empty ledger. Call Load before use.
func New(store Store) *Ledger {
	return &Ledger{
		store: store,
		seen:  make(map[string]Outcome),
	}
}

// Load reads both partitions and returns the union of usernames.
// A store that cannot be read is treated as empty.
func (l *Ledger) Load(ctx context.Context) map[string]struct{} {
	records, err := l.store.Load(ctx)
	if err != nil {
		slog.Warn("ledger unreadable, starting empty", "error", err)
		records = nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.seen = make(map[string]Outcome, len(records))
	for _, rec := range records {
		name := strings.TrimSpace(rec.Username)
		if name == "" {
			continue
		}
		if prev, ok := l.seen[name]; ok {
			if prev != rec.Outcome {
				slog.Warn("author present in both partitions, keeping first",
					"author", name, "kept", prev, "ignored", rec.Outcome)
			}
			continue
		}
		l.seen[name] = rec.Outcome
	}

	set := make(map[string]struct{}, len(l.seen))
	for name := range l.seen {
		set[name] = struct{}{}
	}
	return set
}

// Contains reports whether the author has already been processed.
func (l *Ledger) Contains(username string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.seen[username]
	return ok
}

// OutcomeOf returns the recorded outcome for an author.
func (l *Ledger) OutcomeOf(username string) (Outcome, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	o, ok := l.seen[username]
	return o, ok
}

// RecordMessaged appends the author to the Messaged partition.
func (l *Ledger) RecordMessaged(ctx context.Context, username string) error {
	return l.record(ctx, username, Messaged)
}

// RecordNoChat appends the author to the NoChatAvailable partition.
func (l *Ledger) RecordNoChat(ctx context.Context, username string) error {
	return l.record(ctx, username, NoChatAvailable)
}

// The in-memory mark happens before the durable write; a failed append leaves
// the author seen for the rest of the run only.
func (l *Ledger) record(ctx context.Context, username string, outcome Outcome) error {
	l.mu.Lock()
	if _, ok := l.seen[username]; ok {
		l.mu.Unlock()
		return ErrAlreadyRecorded
	}
	l.seen[username] = outcome
	l.mu.Unlock()

	rec := Record{Username: username, Outcome: outcome, RecordedAt: time.Now().UTC()}
	if err := l.store.Append(ctx, rec); err != nil {
		return fmt.Errorf("append %s record: %w", outcome, err)
	}
	return nil
}

// Stats returns per-partition counts.
func (l *Ledger) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var s Stats
	for _, o := range l.seen {
		switch o {
		case Messaged:
			s.Messaged++
		case NoChatAvailable:
			s.NoChat++
		}
	}
	return s
}

// Authors returns the usernames recorded with outcome, sorted.
func (l *Ledger) Authors(outcome Outcome) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var names []string
	for name, o := range l.seen {
		if o == outcome {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// Close closes the underlying store.
func (l *Ledger) Close() error {
	return l.store.Close()
}
