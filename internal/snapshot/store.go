// Package snapshot persists modified circuits.
//
// A snapshot is taken inside a read transaction, so it never contains a
// half-applied edit, and the circuit's modified flag is cleared in the same
// transaction. Records are msgpack-encoded, zstd-compressed and stored in
// badger under "circuit/<name>".
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/klauspost/compress/zstd"
	"github.com/vk/circuitgrid/internal/circuit"
	"github.com/vk/circuitgrid/internal/design"
	"github.com/vmihailenco/msgpack/v5"
)

const keyPrefix = "circuit/"

// ErrNotFound is returned when no snapshot exists for a circuit.
var ErrNotFound = errors.New("snapshot not found")

// Config holds configuration for a snapshot store.
type Config struct {
	// Path is the badger directory. Ignored when InMemory is true.
	Path string
	// InMemory keeps everything in memory; used by tests.
	InMemory bool
	// Logger receives badger's own log output. Nil disables it.
	Logger *slog.Logger
}

// Store saves and loads circuit records.
type Store struct {
	db  *badger.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
	now func() time.Time
}

// badgerLogger adapts slog.Logger to badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Open opens the badger database described by cfg.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("snapshot: path is required for persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create snapshot directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open snapshot database: %w", err)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &Store{db: db, enc: enc, dec: dec, now: time.Now}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	s.dec.Close()
	if err := s.enc.Close(); err != nil {
		s.db.Close()
		return err
	}
	return s.db.Close()
}

func (s *Store) encode(rec *Record) ([]byte, error) {
	data, err := msgpack.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("codec encoding failed: %w", err)
	}
	return s.enc.EncodeAll(data, nil), nil
}

func (s *Store) decode(data []byte) (*Record, error) {
	raw, err := s.dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompression failed: %w", err)
	}
	var rec Record
	if err := msgpack.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("codec decoding failed: %w", err)
	}
	return &rec, nil
}

// Save snapshots c and clears its modified flag.
func (s *Store) Save(ctx context.Context, c *circuit.Circuit) (*Record, error) {
	var rec *Record
	err := circuit.Run(ctx, c, circuit.Read, "snapshot", func(context.Context, *circuit.Mutator) error {
		rec = Capture(c, s.now())
		data, err := s.encode(rec)
		if err != nil {
			return err
		}
		err = s.db.Update(func(txn *badger.Txn) error {
			return txn.Set([]byte(keyPrefix+rec.Circuit), data)
		})
		if err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
		c.ClearModified()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("save %s: %w", c.Name(), err)
	}
	return rec, nil
}

// SaveModified saves every modified circuit of d and returns how many were
// written.
func (s *Store) SaveModified(ctx context.Context, d *design.Design) (int, error) {
	n := 0
	for _, c := range d.Modified() {
		if _, err := s.Save(ctx, c); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Load returns the latest record of the named circuit.
func (s *Store) Load(name string) (*Record, error) {
	var rec *Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			rec, err = s.decode(val)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns the names of all stored circuits.
func (s *Store) List() ([]string, error) {
	var names []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			names = append(names, strings.TrimPrefix(string(it.Item().Key()), keyPrefix))
		}
		return nil
	})
	return names, err
}
