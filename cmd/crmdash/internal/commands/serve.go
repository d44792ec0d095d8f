package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rpattn/crmdash/internal/analysis"
	"github.com/rpattn/crmdash/internal/api"
	"github.com/rpattn/crmdash/internal/auth"
	"github.com/rpattn/crmdash/internal/newsfeed"
)

type ServeCmd struct {
	Addr string `help:"Listen address, overrides http.addr."`
}

func (s *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, cfg, log, err := globals.setup(ctx)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if s.Addr != "" {
		cfg.HTTP.Addr = s.Addr
	}

	conn, err := connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer conn.Close()

	tokens, err := auth.NewTokens(cfg.Auth.SessionSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}

	repos := newRepositories(conn.Pool)
	llm := cfg.LLM
	feed, err := newsfeed.NewClient(newsfeed.NewCachingHTTPClient(cfg.News.CacheDir, cfg.News.Timeout), cfg.News.FeedURL)
	if err != nil {
		return err
	}

	handler := api.NewRouter(api.Deps{
		Organizations: repos.orgs,
		Subsidiaries:  repos.subs,
		Opportunities: repos.opps,
		Deals:         repos.deals,
		News:          repos.news,
		Projects:      repos.projects,
		Jobs:          repos.jobs,
		AnalysisLogs:  repos.analysis,
		Dashboard:     repos.dashboard,
		Importer:      repos.importer(cfg.Import.Limits()),
		Analyzer:      analysis.NewAnalyzer(analysis.NewClient(&llm), repos.orgs, repos.analysis),
		Refresher:     newsfeed.NewRefresher(feed, repos.orgs, repos.news, cfg.News.MaxItems),
		Tokens:        tokens,
		Logger:        log,
		CookieName:    cfg.Auth.CookieName,
		CORSOrigins:   cfg.HTTP.CORSOrigins,
		MaxBodyBytes:  cfg.HTTP.MaxBodyBytes,
	})

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		MaxHeaderBytes:    8 * 1024,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Str("version", globals.Version).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info().Msg("server exited")
	return nil
}
