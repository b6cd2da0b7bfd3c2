package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"contactbook/internal/contact/models"
	"contactbook/internal/contact/store"
	"contactbook/pkg/platform/sentinel"
)

// DefaultPrefix namespaces every key this store writes.
const DefaultPrefix = "contactbook"

// Store keeps each document in a hash and tracks insertion order in a sorted
// set scored by identifier. Identifiers come from an INCR counter.
//
// Key layout:
//
//	<prefix>:contacts:seq   counter
//	<prefix>:contacts       sorted set of ids
//	<prefix>:contact:<id>   hash of document fields
type Store struct {
	client redis.UniversalClient
	prefix string
}

// New constructs a Redis-backed document store. An empty prefix falls back to
// DefaultPrefix.
func New(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) seqKey() string   { return s.prefix + ":contacts:seq" }
func (s *Store) indexKey() string { return s.prefix + ":contacts" }
func (s *Store) docKey(id models.RecordID) string {
	return s.prefix + ":contact:" + id.String()
}

func (s *Store) Insert(ctx context.Context, doc models.Document) (models.RecordID, error) {
	if len(doc) == 0 {
		return 0, errors.New("redis store: empty document")
	}
	n, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("allocate contact id: %w", err)
	}
	id := models.RecordID(n)

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.docKey(id), toHash(doc))
		pipe.ZAdd(ctx, s.indexKey(), redis.Z{Score: float64(id), Member: id.String()})
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("insert contact: %w", err)
	}
	return id, nil
}

func (s *Store) Update(ctx context.Context, id models.RecordID, doc models.Document) error {
	key := s.docKey(id)
	return s.watchExisting(ctx, key, id, func(tx *redis.Tx) error {
		if len(doc) == 0 {
			return nil
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, toHash(doc))
			return nil
		})
		return err
	})
}

func (s *Store) Remove(ctx context.Context, id models.RecordID) error {
	key := s.docKey(id)
	return s.watchExisting(ctx, key, id, func(tx *redis.Tx) error {
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.ZRem(ctx, s.indexKey(), id.String())
			return nil
		})
		return err
	})
}

// watchExisting runs fn under WATCH on key once the document is known to exist.
func (s *Store) watchExisting(ctx context.Context, key string, id models.RecordID, fn func(tx *redis.Tx) error) error {
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("document %d: %w", id, sentinel.ErrNotFound)
		}
		return fn(tx)
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("document %d modified concurrently: %w", id, sentinel.ErrConflict)
	}
	return err
}

func (s *Store) Get(ctx context.Context, id models.RecordID) (*models.StoredDocument, error) {
	fields, err := s.client.HGetAll(ctx, s.docKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get contact %d: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("document %d: %w", id, sentinel.ErrNotFound)
	}
	return &models.StoredDocument{ID: id, Fields: models.Document(fields)}, nil
}

func (s *Store) Find(ctx context.Context, where store.Where) ([]models.StoredDocument, error) {
	members, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list contact ids: %w", err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	ids := make([]models.RecordID, 0, len(members))
	cmds := make([]*redis.MapStringStringCmd, 0, len(members))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, m := range members {
			n, err := strconv.ParseInt(m, 10, 64)
			if err != nil {
				return fmt.Errorf("corrupt contact index member %q", m)
			}
			id := models.RecordID(n)
			ids = append(ids, id)
			cmds = append(cmds, pipe.HGetAll(ctx, s.docKey(id)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load contacts: %w", err)
	}

	docs := make([]models.StoredDocument, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		doc := models.Document(fields)
		if !where.Matches(doc) {
			continue
		}
		docs = append(docs, models.StoredDocument{ID: ids[i], Fields: doc})
	}
	return docs, nil
}

func (s *Store) All(ctx context.Context) ([]models.StoredDocument, error) {
	return s.Find(ctx, nil)
}

// Truncate removes every document, the index and the id counter.
func (s *Store) Truncate(ctx context.Context) error {
	members, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("truncate contacts: %w", err)
	}
	keys := make([]string, 0, len(members)+2)
	for _, m := range members {
		keys = append(keys, s.prefix+":contact:"+m)
	}
	keys = append(keys, s.indexKey(), s.seqKey())
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("truncate contacts: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func toHash(doc models.Document) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
