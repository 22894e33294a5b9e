package badgerkv

import (
	"context"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core"
)

type Config struct {
	Path       string // ignored when InMemory
	InMemory   bool
	SyncWrites bool
	Logger     core.Logger // nil disables badger's logging
}

// Store is a core.KeyValueStore backed by an embedded badger database. The CLI keeps its state in it.
type Store struct {
	db *badger.DB
}

var _ core.KeyValueStore = (*Store)(nil)

func Open(conf Config) (*Store, error) {
	if !conf.InMemory && conf.Path == "" {
		return nil, errors.New("badger path is required")
	}

	var opts badger.Options
	if conf.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(conf.Path, 0750); err != nil {
			return nil, errors.Wrapf(err, "creating %s", conf.Path)
		}
		opts = badger.DefaultOptions(conf.Path)
	}
	opts = opts.WithSyncWrites(conf.SyncWrites).WithNumVersionsToKeep(1)
	if conf.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: conf.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "opening badger")
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return "", core.ErrKeyNotFound
		}
		return "", errors.Wrapf(err, "reading %s", key)
	}
	return string(val), nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	})
	return errors.Wrapf(err, "writing %s", key)
}

func (s *Store) Clear(_ context.Context, key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	return errors.Wrapf(err, "clearing %s", key)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// badgerLogger adapts core.Logger to badger's logger.
type badgerLogger struct {
	logger core.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error("badger: " + fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn("badger: " + fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug("badger: " + fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug("badger: " + fmt.Sprintf(format, args...))
}
