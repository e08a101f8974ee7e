// Package store persists serialized snapshots in a Badger-backed archive.
//
// Every saved snapshot gets a ULID identifier, so archive order follows
// creation time and the newest record is the lexicographically largest key.
package store

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// Common errors
var (
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrArchiveEmpty     = errors.New("archive is empty")
)

const snapshotPrefix = "snap/"

// Options configures the archive.
type Options struct {
	// Dir is the Badger data directory.
	Dir string
	// Keep is how many snapshots Prune retains, newest first.
	Keep int
	// GCInterval is how often the value log GC runs. Zero disables it.
	GCInterval time.Duration
	// GCThreshold is the value log rewrite ratio. Zero means 0.5.
	GCThreshold float64
	// InMemory runs Badger without disk, for tests.
	InMemory bool
}

// Record describes one archived snapshot.
type Record struct {
	ID        string
	CreatedAt time.Time
	Size      int64
}

// Archive stores snapshot payloads keyed by ULID.
type Archive struct {
	db     *badger.DB
	opts   Options
	logger *slog.Logger

	metricsSize  prometheus.Gauge
	metricsSaves prometheus.Counter

	stopCh chan struct{}
	doneCh chan struct{}
}

// Open opens or creates the archive.
func Open(opts Options, logger *slog.Logger) (*Archive, error) {
	if opts.Dir == "" && !opts.InMemory {
		return nil, fmt.Errorf("archive: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Keep <= 0 {
		opts.Keep = 1
	}
	if opts.GCThreshold <= 0 {
		opts.GCThreshold = 0.5
	}

	badgerOpts := badger.DefaultOptions(opts.Dir)
	badgerOpts.Logger = &badgerLogger{logger: logger}
	badgerOpts.InMemory = opts.InMemory

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("archive: open db: %w", err)
	}

	a := &Archive{
		db:     db,
		opts:   opts,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go a.gcLoop()

	logger.Info("snapshot archive opened",
		"dir", opts.Dir,
		"keep", opts.Keep,
		"in_memory", opts.InMemory)

	return a, nil
}

// Save stores a snapshot payload and returns its ULID.
func (a *Archive) Save(data []byte) (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", fmt.Errorf("archive: generate id: %w", err)
	}

	key := []byte(snapshotPrefix + id.String())
	err = a.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
	if err != nil {
		return "", fmt.Errorf("archive: save snapshot: %w", err)
	}

	if a.metricsSaves != nil {
		a.metricsSaves.Inc()
	}
	a.updateSizeGauge()

	a.logger.Info("snapshot saved", "id", id.String(), "bytes", len(data))
	return id.String(), nil
}

// Load returns the payload stored under id.
func (a *Archive) Load(id string) ([]byte, error) {
	if _, err := ulid.Parse(id); err != nil {
		return nil, fmt.Errorf("archive: invalid snapshot id %q: %w", id, err)
	}

	var data []byte
	err := a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(snapshotPrefix + id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrSnapshotNotFound
			}
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Latest returns the most recently saved snapshot and its id.
func (a *Archive) Latest() (string, []byte, error) {
	var (
		id   string
		data []byte
	)
	err := a.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(snapshotPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration needs a seek past every prefixed key.
		it.Seek([]byte(snapshotPrefix + "\xff"))
		if !it.Valid() {
			return ErrArchiveEmpty
		}

		item := it.Item()
		id = string(item.Key()[len(snapshotPrefix):])
		var err error
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return "", nil, err
	}
	return id, data, nil
}

// List returns all archived snapshots, newest first.
func (a *Archive) List() ([]Record, error) {
	var records []Record
	err := a.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(snapshotPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			idStr := string(item.Key()[len(snapshotPrefix):])
			parsed, err := ulid.Parse(idStr)
			if err != nil {
				continue
			}
			records = append(records, Record{
				ID:        idStr,
				CreatedAt: ulid.Time(parsed.Time()),
				Size:      item.ValueSize(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].ID > records[j].ID
	})
	return records, nil
}

// Prune deletes every snapshot beyond the configured retention count.
// It returns how many records were removed.
func (a *Archive) Prune() (int, error) {
	records, err := a.List()
	if err != nil {
		return 0, err
	}
	if len(records) <= a.opts.Keep {
		return 0, nil
	}

	victims := records[a.opts.Keep:]
	err = a.db.Update(func(txn *badger.Txn) error {
		for _, rec := range victims {
			if err := txn.Delete([]byte(snapshotPrefix + rec.ID)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("archive: prune: %w", err)
	}

	a.updateSizeGauge()
	a.logger.Info("snapshots pruned",
		"deleted", len(victims),
		"kept", a.opts.Keep)

	return len(victims), nil
}

// Delete removes one snapshot by id.
func (a *Archive) Delete(id string) error {
	if _, err := ulid.Parse(id); err != nil {
		return fmt.Errorf("archive: invalid snapshot id %q: %w", id, err)
	}

	err := a.db.Update(func(txn *badger.Txn) error {
		key := []byte(snapshotPrefix + id)
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrSnapshotNotFound
			}
			return err
		}
		return txn.Delete(key)
	})
	if err != nil {
		return err
	}

	a.updateSizeGauge()
	return nil
}

// Close stops the GC loop and closes the database.
func (a *Archive) Close() error {
	close(a.stopCh)
	<-a.doneCh

	if err := a.db.Close(); err != nil {
		return fmt.Errorf("archive: close db: %w", err)
	}
	a.logger.Info("snapshot archive closed")
	return nil
}

// RegisterMetrics registers archive collectors with the registry.
// Call once during initialization.
func (a *Archive) RegisterMetrics(registry *prometheus.Registry) *Archive {
	a.metricsSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ordguard",
		Subsystem: "archive",
		Name:      "size_bytes",
		Help:      "Badger storage size of the snapshot archive (LSM + value log)",
	})
	a.metricsSaves = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ordguard",
		Subsystem: "archive",
		Name:      "saves_total",
		Help:      "Snapshots written to the archive",
	})

	registry.MustRegister(a.metricsSize, a.metricsSaves)
	a.updateSizeGauge()
	return a
}

func (a *Archive) updateSizeGauge() {
	if a.metricsSize == nil {
		return
	}
	lsm, vlog := a.db.Size()
	a.metricsSize.Set(float64(lsm + vlog))
}

// gcLoop runs periodic value log garbage collection.
func (a *Archive) gcLoop() {
	defer close(a.doneCh)

	if a.opts.GCInterval <= 0 || a.opts.InMemory {
		<-a.stopCh
		return
	}

	ticker := time.NewTicker(a.opts.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for {
				err := a.db.RunValueLogGC(a.opts.GCThreshold)
				if err != nil {
					if !errors.Is(err, badger.ErrNoRewrite) {
						a.logger.Error("archive gc failed", "error", err)
					}
					break
				}
			}
			a.updateSizeGauge()

		case <-a.stopCh:
			return
		}
	}
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
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
