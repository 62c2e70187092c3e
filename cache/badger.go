package cache

import (
	"bytes"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/YuminosukeSato/svmgrid/pkg/errors"
	"github.com/YuminosukeSato/svmgrid/pkg/log"
)

// BadgerConfig configures a BadgerStore.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string

	// InMemory keeps the database in RAM. Useful for tests.
	InMemory bool

	// SyncWrites flushes every write to disk.
	SyncWrites bool

	// Logger receives badger's internal messages. Nil disables them.
	Logger log.Logger
}

// BadgerStore keeps artifacts in an embedded badger database, using the
// same codec as FileStore.
type BadgerStore struct {
	db *badger.DB
}

type badgerLogger struct {
	logger log.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// OpenBadger opens or creates the database described by cfg.
// The caller must Close the store.
func OpenBadger(cfg BadgerConfig) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.NewValidationError("path", "required for a persistent badger cache", cfg.Path)
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, errors.Wrapf(err, "create database directory %s", cfg.Path)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger.With(log.ComponentKey, "badger")})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "open badger database")
	}
	return &BadgerStore{db: db}, nil
}

// Load decodes the value stored under key into v.
func (s *BadgerStore) Load(key string, v any) (bool, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "badger get %s", key)
	}
	if err := Decode(bytes.NewReader(raw), v); err != nil {
		return false, errors.Wrapf(err, "load %s", key)
	}
	return true, nil
}

// Store encodes v under key.
func (s *BadgerStore) Store(key string, v any) error {
	var buf bytes.Buffer
	if err := Encode(&buf, v); err != nil {
		return errors.Wrapf(err, "store %s", key)
	}
	return errors.Wrapf(s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), buf.Bytes())
	}), "badger set %s", key)
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return errors.Wrap(s.db.Close(), "close badger database")
}
