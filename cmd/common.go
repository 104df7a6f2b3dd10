package cmd

import (
	"context"

	"github.com/spf13/viper"
	"github.com/sw33tLie/lootscope/internal/utils"
	"github.com/sw33tLie/lootscope/pkg/loot"
	"github.com/sw33tLie/lootscope/pkg/polling"
	"github.com/sw33tLie/lootscope/pkg/report"
	"github.com/sw33tLie/lootscope/pkg/storage"
	"github.com/sw33tLie/lootscope/pkg/whttp"
)

// newScanner builds a scanner against the configured upstream.
func newScanner() (*loot.Scanner, error) {
	client, err := whttp.NewClient(whttp.ClientOptions{
		Retries: viper.GetInt("upstream.retries"),
		Timeout: viper.GetDuration("upstream.timeout"),
		Proxy:   viper.GetString("proxy"),
	})
	if err != nil {
		return nil, err
	}

	source := loot.NewHTTPSource(viper.GetString("upstream.baseurl"), client)
	return loot.NewScanner(source, loot.Options{
		Alliance:  viper.GetString("upstream.alliance"),
		PageDelay: viper.GetDuration("scan.pagedelay"),
		MaxPages:  viper.GetInt("scan.maxpages"),
		Log:       utils.Log,
	}), nil
}

func openRunLog() (*storage.DB, error) {
	dbPath, err := utils.ResolvePath(viper.GetString("db.path"), "runs.sqlite")
	if err != nil {
		return nil, err
	}
	return storage.Open(dbPath)
}

// newGenerator wires scanner, report store and run log together. The caller closes the returned DB.
func newGenerator(ctx context.Context) (*polling.Generator, *report.FileStore, *storage.DB, error) {
	scanner, err := newScanner()
	if err != nil {
		return nil, nil, nil, err
	}

	store, err := report.NewFileStore(viper.GetString("report.path"))
	if err != nil {
		return nil, nil, nil, err
	}

	db, err := openRunLog()
	if err != nil {
		return nil, nil, nil, err
	}

	gen := polling.NewGenerator(polling.Config{
		Scanner:     scanner,
		Store:       store,
		Runs:        db,
		Log:         utils.Log,
		BaseContext: ctx,
	})
	return gen, store, db, nil
}
