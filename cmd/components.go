package cmd

import (
	"context"

	"github.com/audimetria/audimetria/internal/config"
	"github.com/audimetria/audimetria/internal/utils"
	"github.com/audimetria/audimetria/pkg/extract"
	"github.com/audimetria/audimetria/pkg/ratings"
	"github.com/audimetria/audimetria/pkg/reconcile"
	"github.com/audimetria/audimetria/pkg/storage"
	"github.com/audimetria/audimetria/pkg/store"
	"github.com/audimetria/audimetria/pkg/whttp"
	"github.com/spf13/viper"
)

func loadConfig() (config.Config, error) {
	return config.Load(viper.GetViper())
}

func newStore(cfg config.Config) (store.Store, error) {
	if cfg.LocalPath != "" {
		return store.NewFile(cfg.LocalPath), nil
	}
	return store.NewGitHub(store.GitHubConfig{
		Token:         cfg.GitHub.Token,
		Repo:          cfg.GitHub.Repo,
		Path:          cfg.GitHub.Path,
		Branch:        cfg.GitHub.Branch,
		APIURL:        cfg.GitHub.APIURL,
		CommitMessage: cfg.GitHub.CommitMessage,
		Timeout:       cfg.Source.Timeout,
	})
}

func newExtractor(cfg config.Config) *extract.Extractor {
	// Same order as extract.DefaultMatchers.
	return &extract.Extractor{
		Matchers: []extract.Matcher{
			{Key: ratings.ElHormiguero, Contains: cfg.Match.ElHormiguero},
			{Key: ratings.LaRevuelta, Contains: cfg.Match.LaRevuelta},
		},
		FirstMatchWins: cfg.Match.FirstMatchWins,
	}
}

// newDriver wires every component of a run. The store is only built when
// withStore is set, so `scrape` works without GitHub credentials.
func newDriver(cfg config.Config, withStore bool) (*reconcile.Driver, error) {
	fetcher, err := whttp.New(whttp.Options{
		UserAgent: cfg.Source.UserAgent,
		Timeout:   cfg.Source.Timeout,
		Retries:   cfg.Source.Retries,
		Rate:      cfg.Source.Rate,
		Proxy:     cfg.Source.Proxy,
		Log:       utils.Log,
	})
	if err != nil {
		return nil, err
	}

	d := &reconcile.Driver{
		Fetcher:   fetcher,
		Extractor: newExtractor(cfg),
		BaseURL:   cfg.Source.URL,
		Start:     cfg.Source.StartDate,
		Weekdays:  cfg.Source.Weekdays,
		Log:       utils.Log,
	}
	if withStore {
		if d.Store, err = newStore(cfg); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// lockedMirror serializes writers of the sqlite mirror across processes.
type lockedMirror struct {
	path string
}

func (m lockedMirror) UpsertDailyRecords(ctx context.Context, records []ratings.DailyRecord) ([]storage.Change, error) {
	lock, err := utils.NewMirrorLock(m.path)
	if err != nil {
		return nil, err
	}
	if err := lock.Lock(); err != nil {
		return nil, err
	}
	defer lock.Unlock()

	db, err := storage.Open(m.path)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return db.UpsertDailyRecords(ctx, records)
}
