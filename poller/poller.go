// Package poller runs the fetch, classify, compose, dispatch and record loop.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"hire-scout/classifier"
	"hire-scout/composer"
	"hire-scout/dispatch"
	"hire-scout/feed"
)

const deletedAuthor = "[deleted]"

// Ledger remembers which authors have already been handled.
type Ledger interface {
	Contains(username string) bool
	RecordMessaged(ctx context.Context, username string) error
	RecordNoChat(ctx context.Context, username string) error
}

// Dispatcher delivers a message to an author.
type Dispatcher interface {
	Dispatch(ctx context.Context, author, message string) (dispatch.Outcome, error)
}

// Enricher adds content to a post before it is classified.
type Enricher interface {
	Enrich(ctx context.Context, post feed.Post) feed.Post
}

// decision is a classified post whose outcome has not been recorded yet.
type decision struct {
	relevant bool
	message  string
	rule     string
}

// Result is how a single post ended up.
type Result string

const (
	ResultSkipped        Result = "skipped"
	ResultRejected       Result = "rejected"
	ResultDelivered      Result = "delivered"
	ResultNoChannel      Result = "no_channel"
	ResultDeliveryFailed Result = "delivery_failed"
	ResultError          Result = "error"
)

// CycleStats counts what one cycle did.
type CycleStats struct {
	CycleID        string
	Fetched        int
	Skipped        int
	Rejected       int
	Delivered      int
	NoChannel      int
	DeliveryFailed int
	Errors         int
}

func (s *CycleStats) add(res Result) {
	switch res {
	case ResultSkipped:
		s.Skipped++
	case ResultRejected:
		s.Rejected++
	case ResultDelivered:
		s.Delivered++
	case ResultNoChannel:
		s.NoChannel++
	case ResultDeliveryFailed:
		s.DeliveryFailed++
	case ResultError:
		s.Errors++
	}
}

// Runner drives the poll loop. RunCycle must not be called concurrently.
type Runner struct {
	source     feed.Source
	enricher   Enricher
	classifier classifier.Classifier
	composer   composer.Composer
	dispatcher Dispatcher
	ledger     Ledger
	metrics    *Metrics

	// pending holds decisions for authors not yet in the ledger, so a
	// retried post is never classified twice.
	pending map[string]decision

	feeds          []string
	pollInterval   time.Duration
	retryBackoff   time.Duration
	afterPostDelay time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

// WithFeeds sets the feed references polled each cycle.
func WithFeeds(refs ...string) Option {
	return func(r *Runner) {
		r.feeds = refs
	}
}

// WithPollInterval sets the sleep between successful cycles.
func WithPollInterval(d time.Duration) Option {
	return func(r *Runner) {
		r.pollInterval = d
	}
}

// WithRetryBackoff sets the sleep after a cycle with fetch errors.
func WithRetryBackoff(d time.Duration) Option {
	return func(r *Runner) {
		r.retryBackoff = d
	}
}

// WithAfterPostDelay sets the pause after each dispatched post.
func WithAfterPostDelay(d time.Duration) Option {
	return func(r *Runner) {
		r.afterPostDelay = d
	}
}

// WithEnricher sets the enricher applied to posts from unknown authors.
func WithEnricher(e Enricher) Option {
	return func(r *Runner) {
		r.enricher = e
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// NewRunner creates a poll loop runner.
func NewRunner(
	source feed.Source,
	cls classifier.Classifier,
	comp composer.Composer,
	dispatcher Dispatcher,
	ledger Ledger,
	opts ...Option,
) *Runner {
	r := &Runner{
		source:         source,
		classifier:     cls,
		composer:       comp,
		dispatcher:     dispatcher,
		ledger:         ledger,
		pending:        make(map[string]decision),
		pollInterval:   60 * time.Second,
		retryBackoff:   60 * time.Second,
		afterPostDelay: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run polls until ctx is cancelled. Cancellation is a clean stop and returns nil.
func (r *Runner) Run(ctx context.Context) error {
	if len(r.feeds) == 0 {
		return fmt.Errorf("no feeds configured")
	}

	slog.Info("poll loop started", "feeds", r.feeds, "interval", r.pollInterval)
	for ctx.Err() == nil {
		wait := r.pollInterval
		if _, err := r.RunCycle(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			slog.Error("poll cycle failed", "error", err, "retry_in", r.retryBackoff)
			wait = r.retryBackoff
		}
		if err := sleep(ctx, wait); err != nil {
			break
		}
	}
	slog.Info("poll loop stopped")
	return nil
}

// RunCycle fetches every feed once and handles each post. Fetch failures are
// joined into the returned error; post failures are only counted.
func (r *Runner) RunCycle(ctx context.Context) (CycleStats, error) {
	stats := CycleStats{CycleID: uuid.NewString()}
	logger := slog.With("cycle_id", stats.CycleID)
	start := time.Now()
	defer func() {
		r.metrics.observeCycle(time.Since(start))
	}()

	var fetchErrs []error
	for _, ref := range r.feeds {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		entries, err := r.source.ListPosts(ctx, ref)
		if err != nil {
			logger.Warn("failed to fetch feed", "feed", ref, "error", err)
			r.metrics.incFetchError(ref)
			fetchErrs = append(fetchErrs, fmt.Errorf("fetch %s: %w", ref, err))
			continue
		}
		stats.Fetched += len(entries)

		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			res, err := r.handlePost(ctx, logger, entry)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return stats, ctxErr
				}
				logger.Warn("failed to handle post", "feed", ref, "error", err)
				res = ResultError
			}
			stats.add(res)
			r.metrics.incPost(string(res))
		}
	}

	logger.Info("cycle complete",
		"fetched", stats.Fetched,
		"skipped", stats.Skipped,
		"rejected", stats.Rejected,
		"delivered", stats.Delivered,
		"no_channel", stats.NoChannel,
		"delivery_failed", stats.DeliveryFailed,
		"errors", stats.Errors,
		"duration", time.Since(start),
	)
	return stats, errors.Join(fetchErrs...)
}

func (r *Runner) handlePost(ctx context.Context, logger *slog.Logger, entry feed.Entry) (res Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()

	post, err := entry.Extract(ctx)
	if err != nil {
		return "", fmt.Errorf("extract post: %w", err)
	}

	author := strings.TrimSpace(post.Author)
	if author == "" || author == deletedAuthor {
		return ResultSkipped, nil
	}
	if r.ledger.Contains(author) {
		logger.Debug("author already handled", "author", author)
		return ResultSkipped, nil
	}

	d, ok := r.pending[author]
	if ok {
		logger.Debug("reusing earlier decision", "author", author)
	} else {
		if r.enricher != nil {
			post = r.enricher.Enrich(ctx, post)
		}
		d, err = r.decide(ctx, post)
		if err != nil {
			return "", err
		}
		r.pending[author] = d
	}

	if !d.relevant {
		if err := r.ledger.RecordNoChat(ctx, author); err != nil {
			return "", fmt.Errorf("record rejection: %w", err)
		}
		delete(r.pending, author)
		logger.Info("post rejected", "author", author, "url", post.URL)
		return ResultRejected, nil
	}
	message, rule := d.message, d.rule

	outcome, err := r.dispatcher.Dispatch(ctx, author, message)
	if err != nil {
		return "", fmt.Errorf("dispatch: %w", err)
	}
	if outcome != dispatch.Delivered && ctx.Err() != nil {
		return "", ctx.Err()
	}

	// A delivered message is recorded even if shutdown started mid-send.
	recordCtx := context.WithoutCancel(ctx)
	switch outcome {
	case dispatch.Delivered:
		res = ResultDelivered
		err = r.ledger.RecordMessaged(recordCtx, author)
	case dispatch.DeliveryFailed:
		res = ResultDeliveryFailed
		err = r.ledger.RecordMessaged(recordCtx, author)
	case dispatch.NoChannelAvailable:
		res = ResultNoChannel
		err = r.ledger.RecordNoChat(recordCtx, author)
	default:
		return "", fmt.Errorf("unknown dispatch outcome %d", outcome)
	}
	if err != nil {
		return "", fmt.Errorf("record %s: %w", outcome, err)
	}
	delete(r.pending, author)
	logger.Info("post handled", "author", author, "outcome", outcome.String(), "rule", rule, "url", post.URL)

	_ = sleep(ctx, r.afterPostDelay)
	return res, nil
}

// decide classifies post and settles the message to send when it is relevant.
func (r *Runner) decide(ctx context.Context, post feed.Post) (decision, error) {
	verdict := r.classifier.Classify(ctx, post)
	if err := ctx.Err(); err != nil {
		return decision{}, err
	}
	if !verdict.IsRelevant {
		return decision{}, nil
	}

	d := decision{relevant: true, message: verdict.SuggestedMessage, rule: "classifier"}
	if d.message == "" {
		c := r.composer.Compose(post, verdict)
		d.message, d.rule = c.Message, c.Rule
	}
	if strings.TrimSpace(d.message) == "" {
		return decision{}, fmt.Errorf("empty message for %s", post.Author)
	}
	return d, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
