// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/lorekeeper/storage"
)

// Store implements storage.VectorStore on top of BadgerDB.
// Search is an exact scan over the collection.
type Store struct {
	backend     *Backend
	ownsBackend bool
	logger      *slog.Logger
}

var _ storage.VectorStore = (*Store)(nil)

// NewStore opens (or creates) an on-disk store at path.
//
// Returns storage.VectorStore interface to enforce abstraction.
func NewStore(path string) (storage.VectorStore, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	return newStore(backend, true), nil
}

// NewStoreWithBackend creates a store over an existing backend.
// The caller keeps ownership of the backend.
func NewStoreWithBackend(backend *Backend) storage.VectorStore {
	return newStore(backend, false)
}

func newStore(backend *Backend, owns bool) *Store {
	return &Store{
		backend:     backend,
		ownsBackend: owns,
		logger:      slog.Default().With("component", "badger-store"),
	}
}

// Close closes the backend if the store opened it.
func (s *Store) Close() error {
	if !s.ownsBackend || s.backend.IsClosed() {
		return nil
	}
	return s.backend.Close()
}

func (s *Store) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return nil
}

// EnsureCollection creates the collection if missing.
func (s *Store) EnsureCollection(ctx context.Context, name string, vectorSize int, distance storage.Distance) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if err := validateCollectionName(name); err != nil {
		return err
	}
	if vectorSize <= 0 {
		return fmt.Errorf("%w: vector size must be positive, got %d", storage.ErrInvalidQuery, vectorSize)
	}

	return s.backend.WithTx(func(tx *badger.Txn) error {
		existing, err := getCollection(tx, name)
		if err == nil {
			if existing.VectorSize != vectorSize {
				return fmt.Errorf("%w: collection %s has size %d, requested %d",
					storage.ErrDimensionMismatch, name, existing.VectorSize, vectorSize)
			}
			return nil
		}
		if !errors.Is(err, storage.ErrCollectionNotFound) {
			return err
		}

		value, err := storage.MarshalCollection(&storage.CollectionInfo{
			Name:       name,
			VectorSize: vectorSize,
			Distance:   distance,
			CreatedAt:  time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		if err := tx.Set(makeCollectionKey(name), value); err != nil {
			return err
		}
		s.logger.Info("created collection", "collection", name, "size", vectorSize, "distance", distance)
		return tx.Commit()
	}, true)
}

// Upsert writes points, replacing any with the same ID.
func (s *Store) Upsert(ctx context.Context, collection string, points ...storage.Point) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if len(points) == 0 {
		return nil
	}
	info, err := s.collection(collection)
	if err != nil {
		return err
	}

	encoded := make([][]byte, len(points))
	for i := range points {
		p := &points[i]
		if p.ID == "" {
			return fmt.Errorf("%w: point %d has no id", storage.ErrInvalidQuery, i)
		}
		if len(p.Vector) != info.VectorSize {
			return fmt.Errorf("%w: point %s has %d dimensions, collection %s expects %d",
				storage.ErrDimensionMismatch, p.ID, len(p.Vector), collection, info.VectorSize)
		}
		if encoded[i], err = storage.MarshalPoint(p); err != nil {
			return err
		}
	}

	return s.backend.WithBatch(func(wb *badger.WriteBatch) error {
		for i := range points {
			if err := wb.Set(makePointKey(collection, points[i].ID), encoded[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// Scroll returns up to limit matching points ordered by ID.
func (s *Store) Scroll(ctx context.Context, collection string, filter *storage.Filter, limit int, offset string) (*storage.ScrollPage, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}
	if _, err := s.collection(collection); err != nil {
		return nil, err
	}

	page := &storage.ScrollPage{}
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePointPrefix(collection)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		start := opts.Prefix
		if offset != "" {
			start = makePointKey(collection, offset)
		}
		for iter.Seek(start); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, err := readPoint(iter.Item())
			if err != nil {
				return err
			}
			if !filter.Matches(p.Payload) {
				continue
			}
			if len(page.Points) == limit {
				page.Next = p.ID
				return nil
			}
			page.Points = append(page.Points, *p)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return page, nil
}

// Delete removes points by ID. Unknown IDs are ignored.
func (s *Store) Delete(ctx context.Context, collection string, ids ...string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if _, err := s.collection(collection); err != nil {
		return err
	}
	return s.backend.WithBatch(func(wb *badger.WriteBatch) error {
		for _, id := range ids {
			if err := wb.Delete(makePointKey(collection, id)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Stats counts the points in a collection.
func (s *Store) Stats(ctx context.Context, collection string) (*storage.CollectionStats, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	info, err := s.collection(collection)
	if err != nil {
		return nil, err
	}

	stats := &storage.CollectionStats{
		Name:       collection,
		VectorSize: info.VectorSize,
		Distance:   info.Distance,
		Status:     storage.StatusGreen,
	}
	err = s.scan(ctx, collection, func(p *storage.Point) {
		stats.PointCount++
		if len(p.Vector) > 0 {
			stats.VectorCount++
		}
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Search scores every matching point and returns the best limit hits.
func (s *Store) Search(ctx context.Context, collection string, vector []float32, limit int, filter *storage.Filter) ([]storage.ScoredPoint, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}
	info, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	if len(vector) != info.VectorSize {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection %s expects %d",
			storage.ErrDimensionMismatch, len(vector), collection, info.VectorSize)
	}

	var results []storage.ScoredPoint
	err = s.scan(ctx, collection, func(p *storage.Point) {
		if !filter.Matches(p.Payload) || len(p.Vector) == 0 {
			return
		}
		results = append(results, storage.ScoredPoint{
			Point: *p,
			Score: score(info.Distance, vector, p.Vector),
		})
	})
	if err != nil {
		return nil, err
	}

	// Sort by score descending
	slices.SortFunc(results, func(a, b storage.ScoredPoint) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// score maps each metric onto "higher is closer".
func score(distance storage.Distance, query, candidate []float32) float32 {
	switch distance {
	case storage.DistanceDot:
		return dotProduct(query, candidate)
	case storage.DistanceEuclid:
		return -euclideanDistance(query, candidate)
	default:
		return cosineSimilarity(query, candidate)
	}
}

func (s *Store) scan(ctx context.Context, collection string, fn func(p *storage.Point)) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePointPrefix(collection)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, err := readPoint(iter.Item())
			if err != nil {
				return err
			}
			fn(p)
		}
		return nil
	}, false)
}

func (s *Store) collection(name string) (*storage.CollectionInfo, error) {
	if err := validateCollectionName(name); err != nil {
		return nil, err
	}
	var info *storage.CollectionInfo
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		info, err = getCollection(tx, name)
		return err
	}, false)
	return info, err
}

func getCollection(tx *badger.Txn, name string) (*storage.CollectionInfo, error) {
	item, err := tx.Get(makeCollectionKey(name))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", storage.ErrCollectionNotFound, name)
		}
		return nil, err
	}
	var info *storage.CollectionInfo
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		info, unmarshalErr = storage.UnmarshalCollection(val)
		return unmarshalErr
	})
	return info, err
}

func readPoint(item *badger.Item) (*storage.Point, error) {
	var p *storage.Point
	err := item.Value(func(val []byte) error {
		var err error
		p, err = storage.UnmarshalPoint(val)
		return err
	})
	return p, err
}
