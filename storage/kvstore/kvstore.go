// Package kvstore opens the configured core.KeyValueStore.
package kvstore

import (
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/storage/database"
	"github.com/trezcool/masomo-portal/storage/kvstore/badgerkv"
	"github.com/trezcool/masomo-portal/storage/kvstore/inmem"
	"github.com/trezcool/masomo-portal/storage/kvstore/pgkv"
	"github.com/trezcool/masomo-portal/storage/kvstore/rediskv"
)

// Open returns the store selected by conf.Store.Driver and a func releasing it.
// The postgres store migrates the database first.
func Open(conf *core.Config, logger core.Logger) (core.KeyValueStore, func() error, error) {
	noop := func() error { return nil }

	switch conf.Store.Driver {
	case core.StoreMemory, "":
		return inmemkv.NewStore(), noop, nil
	case core.StoreBadger:
		store, err := badgerkv.Open(badgerkv.Config{Path: conf.Store.BadgerPath, SyncWrites: true, Logger: logger})
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case core.StoreRedis:
		store, err := rediskv.New(conf)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil
	case core.StorePostgres:
		db, err := database.Open(conf)
		if err != nil {
			return nil, nil, err
		}
		if err = database.Migrate(db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return pgkv.NewStore(db), db.Close, nil
	default:
		return nil, nil, errors.Errorf("unknown store driver %q", conf.Store.Driver)
	}
}
