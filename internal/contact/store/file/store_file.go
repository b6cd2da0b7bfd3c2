// Package file persists contact documents to a single JSON file laid out as
// one named table of id-keyed documents:
//
//	{
//	    "_default": {
//	        "1": {"first_name": "Jean", "last_name": "Dupont", ...}
//	    }
//	}
//
// Every operation reads the file under an advisory lock held on a sidecar
// "<path>.lock" file, so several handles on one path (the server and the CLI)
// always see each other's writes. Mutations rewrite the file through a temp
// file and rename; a failed write leaves the previous contents in place.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"contactbook/internal/contact/models"
	"contactbook/internal/contact/store"
	"contactbook/internal/contact/store/memory"
	"contactbook/pkg/platform/sentinel"
)

// DefaultTable is the table name documents are written under.
const DefaultTable = "_default"

type fileLayout map[string]map[string]models.Document

var renameFile = os.Rename

// Store is a file-backed document store. It keeps no documents between calls.
type Store struct {
	mu       sync.Mutex
	path     string
	lockPath string
	table    string
	closed   bool
}

// Open checks that path decodes, treating a missing file as an empty store.
func Open(path string) (*Store, error) {
	s := &Store{
		path:     path,
		lockPath: path + ".lock",
		table:    DefaultTable,
	}
	if err := s.read(func(*memory.InMemory) error { return nil }); err != nil {
		return nil, err
	}
	return s, nil
}

func load(path, table string) ([]models.StoredDocument, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read contact file: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var layout fileLayout
	if err := json.Unmarshal(raw, &layout); err != nil {
		return nil, fmt.Errorf("decode contact file %s: %w", path, err)
	}

	docs := make([]models.StoredDocument, 0, len(layout[table]))
	for key, fields := range layout[table] {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode contact file %s: document key %q is not an integer", path, key)
		}
		docs = append(docs, models.StoredDocument{ID: models.RecordID(id), Fields: fields})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// read runs fn against the current file contents under a shared lock.
func (s *Store) read(fn func(*memory.InMemory) error) error {
	return s.locked(false, func() error {
		docs, err := load(s.path, s.table)
		if err != nil {
			return err
		}
		return fn(memory.NewFromDocuments(docs))
	})
}

// write runs fn against the current file contents under an exclusive lock
// and persists the result. Nothing is written when fn fails.
func (s *Store) write(fn func(*memory.InMemory) error) error {
	return s.locked(true, func() error {
		docs, err := load(s.path, s.table)
		if err != nil {
			return err
		}
		mem := memory.NewFromDocuments(docs)
		if err := fn(mem); err != nil {
			return err
		}
		return s.flush(mem.Snapshot())
	})
}

func (s *Store) locked(exclusive bool, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return sentinel.ErrClosed
	}
	lock, err := acquire(s.lockPath, exclusive)
	if err != nil {
		return err
	}
	defer lock.release()
	return fn()
}

// flush replaces the file with docs. The rename is the commit point.
func (s *Store) flush(docs []models.StoredDocument) error {
	table := make(map[string]models.Document, len(docs))
	for _, d := range docs {
		table[d.ID.String()] = d.Fields
	}
	raw, err := json.MarshalIndent(fileLayout{s.table: table}, "", "    ")
	if err != nil {
		return fmt.Errorf("encode contact file: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write contact file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write contact file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write contact file: %w", err)
	}
	if err := renameFile(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("write contact file: %w", err)
	}
	return nil
}

func (s *Store) Insert(ctx context.Context, doc models.Document) (models.RecordID, error) {
	var id models.RecordID
	err := s.write(func(mem *memory.InMemory) error {
		var err error
		id, err = mem.Insert(ctx, doc)
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) Update(ctx context.Context, id models.RecordID, doc models.Document) error {
	return s.write(func(mem *memory.InMemory) error {
		return mem.Update(ctx, id, doc)
	})
}

func (s *Store) Remove(ctx context.Context, id models.RecordID) error {
	return s.write(func(mem *memory.InMemory) error {
		return mem.Remove(ctx, id)
	})
}

func (s *Store) Get(ctx context.Context, id models.RecordID) (*models.StoredDocument, error) {
	var got *models.StoredDocument
	err := s.read(func(mem *memory.InMemory) error {
		var err error
		got, err = mem.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return got, nil
}

func (s *Store) Find(ctx context.Context, where store.Where) ([]models.StoredDocument, error) {
	var found []models.StoredDocument
	err := s.read(func(mem *memory.InMemory) error {
		var err error
		found, err = mem.Find(ctx, where)
		return err
	})
	return found, err
}

func (s *Store) All(ctx context.Context) ([]models.StoredDocument, error) {
	var all []models.StoredDocument
	err := s.read(func(mem *memory.InMemory) error {
		var err error
		all, err = mem.All(ctx)
		return err
	})
	return all, err
}

func (s *Store) Truncate(ctx context.Context) error {
	return s.write(func(mem *memory.InMemory) error {
		return mem.Truncate(ctx)
	})
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
