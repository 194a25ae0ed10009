package poller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hire-scout/classifier"
	"hire-scout/composer"
	"hire-scout/dispatch"
	"hire-scout/feed"
	"hire-scout/ledger"
)

type fakeSource struct {
	entries map[string][]feed.Entry
	errs    map[string]error
	calls   int
}

func (s *fakeSource) ListPosts(ctx context.Context, feedRef string) ([]feed.Entry, error) {
	s.calls++
	if err := s.errs[feedRef]; err != nil {
		return nil, err
	}
	return s.entries[feedRef], nil
}

type brokenEntry struct{}

func (brokenEntry) Extract(ctx context.Context) (feed.Post, error) {
	return feed.Post{}, errors.New("element went stale")
}

type panickingEntry struct{}

func (panickingEntry) Extract(ctx context.Context) (feed.Post, error) {
	panic("nil element")
}

type countingClassifier struct {
	inner classifier.Classifier
	calls int
}

func (c *countingClassifier) Classify(ctx context.Context, post feed.Post) classifier.Result {
	c.calls++
	return c.inner.Classify(ctx, post)
}

type fixedClassifier struct {
	result classifier.Result
}

func (c fixedClassifier) Classify(ctx context.Context, post feed.Post) classifier.Result {
	return c.result
}

type dispatchCall struct {
	author  string
	message string
}

type fakeDispatcher struct {
	outcomes map[string]dispatch.Outcome
	errs     map[string]error
	calls    []dispatchCall
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, author, message string) (dispatch.Outcome, error) {
	d.calls = append(d.calls, dispatchCall{author: author, message: message})
	if err := d.errs[author]; err != nil {
		return 0, err
	}
	if o, ok := d.outcomes[author]; ok {
		return o, nil
	}
	return dispatch.Delivered, nil
}

func firstOpener(n int) int { return 0 }

func newTestRunner(t *testing.T, source feed.Source, cls classifier.Classifier, d Dispatcher, opts ...Option) (*Runner, *ledger.Ledger, string) {
	t.Helper()
	dir := t.TempDir()
	l := ledger.New(ledger.NewFileStore(dir))
	l.Load(context.Background())

	opts = append([]Option{WithFeeds("/r/forhire/new/"), WithAfterPostDelay(0)}, opts...)
	r := NewRunner(source, cls, composer.NewRules(composer.WithPicker(firstOpener)), d, l, opts...)
	return r, l, dir
}

func TestRunCycleEndToEnd(t *testing.T) {
	post := feed.Post{Author: "dev123", Title: "Hiring a python automation bot dev"}
	source := &fakeSource{entries: map[string][]feed.Entry{"/r/forhire/new/": {post}}}
	cls := &countingClassifier{inner: classifier.NewKeyword()}
	d := dispatch.New(dispatch.LogOpener{}, dispatch.WithSettleDelay(0))

	r, l, dir := newTestRunner(t, source, cls, d)
	ctx := context.Background()

	stats, err := r.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Delivered)
	assert.NotEmpty(t, stats.CycleID)
	assert.Equal(t, 1, cls.calls)

	got, ok := l.OutcomeOf("dev123")
	require.True(t, ok)
	assert.Equal(t, ledger.Messaged, got)

	stats, err = r.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 0, stats.Delivered)
	assert.Equal(t, 1, cls.calls, "known author must not be classified again")

	data, err := os.ReadFile(filepath.Join(dir, ledger.MessagedFile))
	require.NoError(t, err)
	assert.Equal(t, "dev123\n", string(data))
}

func TestRunCycleComposesDeveloperMessage(t *testing.T) {
	post := feed.Post{Author: "dev123", Title: "Hiring a python automation bot dev"}
	source := &fakeSource{entries: map[string][]feed.Entry{"/r/forhire/new/": {post}}}
	d := &fakeDispatcher{}

	r, _, _ := newTestRunner(t, source, classifier.NewKeyword(), d)
	_, err := r.RunCycle(context.Background())
	require.NoError(t, err)

	want := composer.NewRules().Compose(post, classifier.Result{IsRelevant: true})
	require.Equal(t, composer.RuleDeveloper, want.Rule)
	require.Len(t, d.calls, 1)
	assert.Equal(t, want.Message, d.calls[0].message)
}

func TestRunCycleUsesClassifierMessage(t *testing.T) {
	post := feed.Post{Author: "founder", Title: "Need an app built"}
	source := &fakeSource{entries: map[string][]feed.Entry{"/r/forhire/new/": {post}}}
	cls := fixedClassifier{result: classifier.Result{IsRelevant: true, SuggestedMessage: "Custom pitch"}}
	d := &fakeDispatcher{}

	r, _, _ := newTestRunner(t, source, cls, d)
	_, err := r.RunCycle(context.Background())
	require.NoError(t, err)

	require.Len(t, d.calls, 1)
	assert.Equal(t, "Custom pitch", d.calls[0].message)
}

func TestRunCycleSkipsKnownAndDeletedAuthors(t *testing.T) {
	source := &fakeSource{entries: map[string][]feed.Entry{"/r/forhire/new/": {
		feed.Post{Author: "known", Title: "hiring"},
		feed.Post{Author: "[deleted]", Title: "hiring"},
		feed.Post{Author: "", Title: "hiring"},
	}}}
	cls := &countingClassifier{inner: classifier.NewKeyword()}
	d := &fakeDispatcher{}

	r, l, _ := newTestRunner(t, source, cls, d)
	require.NoError(t, l.RecordNoChat(context.Background(), "known"))

	stats, err := r.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Skipped)
	assert.Zero(t, cls.calls)
	assert.Empty(t, d.calls)
}

func TestRunCycleRecordsOutcomes(t *testing.T) {
	source := &fakeSource{entries: map[string][]feed.Entry{"/r/forhire/new/": {
		feed.Post{Author: "offering", Title: "[For Hire] logo designer"},
		feed.Post{Author: "closed", Title: "Hiring a writer"},
		feed.Post{Author: "flaky", Title: "Hiring a writer"},
		feed.Post{Author: "unreachable", Title: "Hiring a writer"},
		feed.Post{Author: "ok", Title: "Hiring a writer"},
	}}}
	d := &fakeDispatcher{
		outcomes: map[string]dispatch.Outcome{
			"closed": dispatch.NoChannelAvailable,
			"flaky":  dispatch.DeliveryFailed,
		},
		errs: map[string]error{"unreachable": errors.New("profile page timed out")},
	}

	cls := &countingClassifier{inner: classifier.NewKeyword()}

	r, l, _ := newTestRunner(t, source, cls, d)
	stats, err := r.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, CycleStats{
		CycleID:        stats.CycleID,
		Fetched:        5,
		Rejected:       1,
		Delivered:      1,
		NoChannel:      1,
		DeliveryFailed: 1,
		Errors:         1,
	}, stats)

	tests := map[string]ledger.Outcome{
		"offering": ledger.NoChatAvailable,
		"closed":   ledger.NoChatAvailable,
		"flaky":    ledger.Messaged,
		"ok":       ledger.Messaged,
	}
	for author, want := range tests {
		got, ok := l.OutcomeOf(author)
		require.True(t, ok, author)
		assert.Equal(t, want, got, author)
	}
	assert.False(t, l.Contains("unreachable"), "dispatch errors are retried next cycle")
	assert.Equal(t, 5, cls.calls)

	stats, err = r.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Skipped)
	assert.Equal(t, 1, stats.Errors)
	assert.Equal(t, 5, cls.calls, "a retried author is not classified again")

	var retried []string
	for _, c := range d.calls {
		if c.author == "unreachable" {
			retried = append(retried, c.message)
		}
	}
	require.Len(t, retried, 2)
	assert.Equal(t, retried[0], retried[1], "the retry sends the same message")
}

func TestRunCycleRetryAfterRecoveryRecordsOnce(t *testing.T) {
	source := &fakeSource{entries: map[string][]feed.Entry{"/r/forhire/new/": {
		feed.Post{Author: "unreachable", Title: "Hiring a writer"},
	}}}
	d := &fakeDispatcher{errs: map[string]error{"unreachable": errors.New("profile page timed out")}}
	cls := &countingClassifier{inner: classifier.NewKeyword()}

	r, l, _ := newTestRunner(t, source, cls, d)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := r.RunCycle(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, cls.calls)

	delete(d.errs, "unreachable")
	stats, err := r.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Delivered)
	assert.Equal(t, 1, cls.calls)
	assert.True(t, l.Contains("unreachable"))
	assert.Empty(t, r.pending)
}

func TestRunCycleEnrichesOnlyUnknownAuthors(t *testing.T) {
	var hits atomic.Int32
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><article><p>We are hiring a Go developer to build a price crawler that runs every hour and stores results in Postgres.</p></article></body></html>`)
	}))
	defer page.Close()

	entries := []feed.Entry{feed.Post{Author: "known", Title: "Task", LinkURL: page.URL + "/brief"}}
	source := &fakeSource{entries: map[string][]feed.Entry{"/r/forhire/new/": entries}}
	cls := &countingClassifier{inner: classifier.NewKeyword()}

	r, l, _ := newTestRunner(t, source, cls, &fakeDispatcher{}, WithEnricher(feed.NewEnricher()))
	require.NoError(t, l.RecordNoChat(context.Background(), "known"))

	for i := 0; i < 3; i++ {
		stats, err := r.RunCycle(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Skipped)
	}
	assert.Zero(t, hits.Load(), "linked page fetched for a known author")
	assert.Zero(t, cls.calls)

	source.entries["/r/forhire/new/"] = append(entries, feed.Post{Author: "fresh", Title: "Task", LinkURL: page.URL + "/other"})
	stats, err := r.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Delivered)
	assert.Equal(t, int32(1), hits.Load())
}

type recordingClassifier struct {
	posts []feed.Post
}

func (c *recordingClassifier) Classify(ctx context.Context, post feed.Post) classifier.Result {
	c.posts = append(c.posts, post)
	return classifier.Result{}
}

func TestRunCycleClassifiesEnrichedPost(t *testing.T) {
	source := &fakeSource{entries: map[string][]feed.Entry{"/r/forhire/new/": {
		feed.Post{Author: "linker", Title: "Task", LinkURL: "https://example.com/brief"},
	}}}
	cls := &recordingClassifier{}

	r, _, _ := newTestRunner(t, source, cls, &fakeDispatcher{}, WithEnricher(bodyEnricher("full brief")))
	_, err := r.RunCycle(context.Background())
	require.NoError(t, err)

	require.Len(t, cls.posts, 1)
	assert.Equal(t, "full brief", cls.posts[0].Body)
}

type bodyEnricher string

func (b bodyEnricher) Enrich(ctx context.Context, post feed.Post) feed.Post {
	post.Body = string(b)
	return post
}

func TestRunCycleIsolatesPostFailures(t *testing.T) {
	source := &fakeSource{entries: map[string][]feed.Entry{"/r/forhire/new/": {
		brokenEntry{},
		panickingEntry{},
		feed.Post{Author: "after", Title: "Hiring a python dev"},
	}}}
	d := &fakeDispatcher{}

	r, l, _ := newTestRunner(t, source, classifier.NewKeyword(), d)
	stats, err := r.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Errors)
	assert.Equal(t, 1, stats.Delivered)
	assert.True(t, l.Contains("after"))
}

func TestRunCycleFetchErrorsAreJoined(t *testing.T) {
	source := &fakeSource{
		entries: map[string][]feed.Entry{"/r/b/": {feed.Post{Author: "dev", Title: "hiring"}}},
		errs:    map[string]error{"/r/a/": errors.New("503")},
	}
	d := &fakeDispatcher{}

	r, l, _ := newTestRunner(t, source, classifier.NewKeyword(), d, WithFeeds("/r/a/", "/r/b/"))
	_, err := r.RunCycle(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/r/a/")
	assert.True(t, l.Contains("dev"), "healthy feeds are still processed")
}

func TestRunCycleCancelledClassificationRecordsNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cls := cancellingClassifier{cancel: cancel}
	source := &fakeSource{entries: map[string][]feed.Entry{"/r/forhire/new/": {
		feed.Post{Author: "slow", Title: "Hiring"},
	}}}

	r, l, _ := newTestRunner(t, source, cls, &fakeDispatcher{})
	_, err := r.RunCycle(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, l.Contains("slow"))
}

type cancellingClassifier struct {
	cancel context.CancelFunc
}

func (c cancellingClassifier) Classify(ctx context.Context, post feed.Post) classifier.Result {
	c.cancel()
	return classifier.Result{}
}

func TestRunStopsOnCancel(t *testing.T) {
	source := &fakeSource{entries: map[string][]feed.Entry{}}
	r, _, _ := newTestRunner(t, source, classifier.NewKeyword(), &fakeDispatcher{},
		WithPollInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	assert.Equal(t, 1, source.calls)
}

func TestRunRequiresFeeds(t *testing.T) {
	r, _, _ := newTestRunner(t, &fakeSource{}, classifier.NewKeyword(), &fakeDispatcher{}, WithFeeds())
	assert.Error(t, r.Run(context.Background()))
}

func TestMetricsCountPosts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := MustNewMetrics(reg)
	source := &fakeSource{entries: map[string][]feed.Entry{"/r/forhire/new/": {
		feed.Post{Author: "a", Title: "hiring"},
		feed.Post{Author: "b", Title: "for hire"},
	}}}

	r, _, _ := newTestRunner(t, source, classifier.NewKeyword(), &fakeDispatcher{}, WithMetrics(m))
	_, err := r.RunCycle(context.Background())
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)

	posts := map[string]float64{}
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
		if f.GetName() != "hire_scout_poller_posts_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			for _, label := range metric.GetLabel() {
				posts[label.GetValue()] = metric.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, 1.0, posts[string(ResultDelivered)])
	assert.Equal(t, 1.0, posts[string(ResultRejected)])
	assert.Contains(t, names, "hire_scout_poller_cycle_duration_seconds")
}
