package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hire-scout/classifier"
	"hire-scout/composer"
	"hire-scout/config"
	"hire-scout/dispatch"
	"hire-scout/feed"
	"hire-scout/ledger"
	"hire-scout/llm"
	"hire-scout/notify"
	"hire-scout/poller"
)

func openLedger(ctx context.Context, cfg *config.Config) (*ledger.Ledger, error) {
	var store ledger.Store
	switch cfg.LedgerBackend {
	case config.LedgerSQLite:
		s, err := ledger.NewSQLiteStore(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open ledger database %s: %w", cfg.DBPath, err)
		}
		store = s
	default:
		store = ledger.NewFileStore(cfg.LedgerDir)
	}

	l := ledger.New(store)
	known := l.Load(ctx)
	stats := l.Stats()
	slog.Info("ledger loaded",
		"backend", cfg.LedgerBackend,
		"authors", len(known),
		"messaged", stats.Messaged,
		"no_chat", stats.NoChat,
	)
	return l, nil
}

// buildNotifier returns a Telegram sender when credentials are configured,
// otherwise notifications go to the log.
func buildNotifier(cfg *config.Config) (notify.Sender, error) {
	if cfg.TelegramToken == "" || cfg.TelegramChatID == 0 {
		return notify.LogSender{}, nil
	}
	tg, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
	if err != nil {
		return nil, err
	}
	slog.Info("telegram notifications enabled", "chat_id", cfg.TelegramChatID)
	return tg, nil
}

func buildSource(cfg *config.Config) feed.Source {
	opts := []feed.Option{
		feed.WithBaseURL(cfg.FeedBaseURL),
		feed.WithLimit(cfg.FeedLimit),
		feed.WithTimeout(cfg.FetchTimeout()),
		feed.WithUserAgent(cfg.UserAgent),
	}

	switch cfg.FeedFormat {
	case config.FeedHTML:
		return feed.NewHTMLSource(opts...)
	default:
		return feed.NewRedditSource(opts...)
	}
}

func buildClassifier(cfg *config.Config) (classifier.Classifier, error) {
	opts := classifier.Options{
		Keywords:      cfg.Keywords,
		PromoMobile:   cfg.PromoMobile,
		PromoSoftware: cfg.PromoSoftware,
	}
	if cfg.Classifier == classifier.StrategyModel {
		provider, err := llm.New(cfg.LLMProvider, cfg.LLMAPIKey,
			llm.WithModel(cfg.LLMModel),
			llm.WithBaseURL(cfg.LLMBaseURL),
		)
		if err != nil {
			return nil, err
		}
		opts.Provider = provider
	}
	return classifier.New(cfg.Classifier, opts)
}

func buildOpener(cfg *config.Config, sender notify.Sender) (dispatch.ChatOpener, error) {
	switch cfg.DispatchMode {
	case config.DispatchReddit:
		return dispatch.NewRedditOpener(cfg.RedditAccessToken,
			dispatch.WithSubject(cfg.RedditSubject),
			dispatch.WithUserAgent(cfg.UserAgent),
			dispatch.WithHTTPTimeout(cfg.FetchTimeout()),
		), nil
	case config.DispatchTelegramRelay:
		return dispatch.NewRelayOpener(sender), nil
	case config.DispatchLog:
		return dispatch.LogOpener{}, nil
	default:
		return nil, fmt.Errorf("unknown dispatch mode %q", cfg.DispatchMode)
	}
}

func buildRunner(cfg *config.Config, l *ledger.Ledger, sender notify.Sender, metrics *poller.Metrics) (*poller.Runner, error) {
	cls, err := buildClassifier(cfg)
	if err != nil {
		return nil, fmt.Errorf("build classifier: %w", err)
	}
	comp, err := composer.New(cfg.Composer, composer.WithPortfolio(cfg.PortfolioURL))
	if err != nil {
		return nil, fmt.Errorf("build composer: %w", err)
	}
	opener, err := buildOpener(cfg, sender)
	if err != nil {
		return nil, fmt.Errorf("build chat opener: %w", err)
	}

	dispatcher := dispatch.New(opener,
		dispatch.WithReadyTimeout(cfg.ReadyTimeout()),
		dispatch.WithSettleDelay(cfg.SettleDelay()),
	)

	opts := []poller.Option{
		poller.WithFeeds(cfg.Feeds...),
		poller.WithPollInterval(cfg.PollInterval()),
		poller.WithRetryBackoff(cfg.RetryBackoff()),
		poller.WithAfterPostDelay(cfg.AfterPostDelay()),
		poller.WithMetrics(metrics),
	}
	if cfg.EnrichLinkPosts {
		opts = append(opts, poller.WithEnricher(feed.NewEnricher(
			feed.WithEnrichTimeout(cfg.FetchTimeout()),
			feed.WithEnrichUserAgent(cfg.UserAgent),
		)))
	}

	return poller.NewRunner(buildSource(cfg), cls, comp, dispatcher, l, opts...), nil
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("metrics server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("metrics server failed", "error", err)
	}
}
