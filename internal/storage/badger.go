package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"codefacts/internal/slogutil"
)

const docPrefix = "doc/"

// BadgerOptions configures the badger backend.
type BadgerOptions struct {
	// Path is the database directory. Required unless InMemory.
	Path       string
	InMemory   bool
	SyncWrites bool
	// GCInterval is how often value-log GC runs. Zero disables it.
	GCInterval time.Duration
	Logger     *slog.Logger
}

// BadgerStore keeps documents as JSON values under doc/<id> keys.
// A badger directory can only be opened once per process.
type BadgerStore struct {
	db     *badger.DB
	logger *slog.Logger
	stop   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

type badgerDoc struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

// badgerLogger adapts slog to badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// OpenBadger opens a badger-backed store.
func OpenBadger(opts BadgerOptions) (*BadgerStore, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Path == "" {
			return nil, errors.New("path is required for persistent database")
		}
		if err := os.MkdirAll(opts.Path, 0755); err != nil {
			return nil, fmt.Errorf("create badger directory: %w", err)
		}
		bopts = badger.DefaultOptions(opts.Path).WithSyncWrites(opts.SyncWrites)
	}
	bopts = bopts.WithNumVersionsToKeep(1)
	if opts.Logger != nil {
		bopts = bopts.WithLogger(&badgerLogger{logger: opts.Logger.With("component", "badger")})
	} else {
		bopts = bopts.WithLogger(nil)
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	s := &BadgerStore{db: db, logger: slogutil.OrDiscard(opts.Logger), stop: make(chan struct{})}
	if opts.GCInterval > 0 && !opts.InMemory {
		s.wg.Add(1)
		go s.runGC(opts.GCInterval)
	}
	return s, nil
}

func (s *BadgerStore) runGC(interval time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			err := s.db.RunValueLogGC(0.5)
			// ErrNoRewrite means nothing to collect
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				s.logger.Warn("badger value log GC error", "error", err)
			}
		}
	}
}

// AddText implements DocumentStore.
func (s *BadgerStore) AddText(_ context.Context, content string, metadata map[string]string) (string, error) {
	val, err := json.Marshal(badgerDoc{Content: content, Metadata: metadata})
	if err != nil {
		return "", err
	}
	id := uuid.New().String()
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(docPrefix+id), val)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// Get implements DocumentStore.
func (s *BadgerStore) Get(_ context.Context, id string) (*Document, error) {
	var doc *Document
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(docPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var bd badgerDoc
			if err := json.Unmarshal(val, &bd); err != nil {
				return fmt.Errorf("corrupt document %s: %w", id, err)
			}
			doc = &Document{ID: id, Content: bd.Content, Metadata: bd.Metadata}
			return nil
		})
	})
	return doc, err
}

// GetAllIDs implements DocumentStore. Badger iterates keys in byte order.
func (s *BadgerStore) GetAllIDs(_ context.Context) ([]string, error) {
	ids := []string{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(docPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			ids = append(ids, strings.TrimPrefix(string(it.Item().Key()), docPrefix))
		}
		return nil
	})
	return ids, err
}

// Delete implements DocumentStore.
func (s *BadgerStore) Delete(_ context.Context, id string) (bool, error) {
	existed := false
	err := s.db.Update(func(txn *badger.Txn) error {
		key := []byte(docPrefix + id)
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		existed = true
		return txn.Delete(key)
	})
	return existed, err
}

// SearchText scans every document. A whole-content match scores 1.0, a
// prefix of the content 0.8 and any other case-insensitive occurrence 0.5,
// plus a small bonus per extra occurrence.
func (s *BadgerStore) SearchText(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	needle := strings.ToLower(strings.TrimSpace(query))
	results := []SearchResult{}
	if needle == "" {
		return results, nil
	}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(docPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			id := strings.TrimPrefix(string(item.Key()), docPrefix)
			err := item.Value(func(val []byte) error {
				var bd badgerDoc
				if err := json.Unmarshal(val, &bd); err != nil {
					s.logger.Warn("Skipped corrupt document in search", "docId", id, "error", err)
					return nil
				}
				if r, ok := scoreDocument(needle, id, bd); ok {
					results = append(results, r)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func scoreDocument(needle, id string, bd badgerDoc) (SearchResult, bool) {
	haystack := strings.ToLower(bd.Content)
	n := strings.Count(haystack, needle)
	for _, v := range bd.Metadata {
		if strings.EqualFold(v, needle) {
			n++
		}
	}
	if n == 0 {
		return SearchResult{}, false
	}

	r := SearchResult{Document: Document{ID: id, Content: bd.Content, Metadata: bd.Metadata}}
	switch {
	case haystack == needle:
		r.Score, r.MatchType = 1.0, MatchExact
	case strings.HasPrefix(haystack, needle):
		r.Score, r.MatchType = 0.8, MatchPrefix
	default:
		r.Score, r.MatchType = 0.5, MatchSubstring
	}
	r.Score += 0.01 * float64(min(n-1, 10))
	return r, true
}

// Close stops GC and closes the database. Safe to call more than once.
func (s *BadgerStore) Close() error {
	var err error
	s.once.Do(func() {
		close(s.stop)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}
