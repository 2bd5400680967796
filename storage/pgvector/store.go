// Package pgvector implements storage.VectorStore on PostgreSQL with the
// pgvector extension, through database/sql and the pgx stdlib driver.
//
// All collections share one points table keyed by (collection, id). The
// embedding column is an unsized vector so collections may differ in
// dimension; the collections table records each collection's size.
package pgvector

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pgvector/pgvector-go"
	"github.com/poiesic/lorekeeper/storage"
)

const schema = `
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS lorekeeper_collections (
	name        TEXT PRIMARY KEY,
	vector_size INTEGER NOT NULL,
	distance    TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS lorekeeper_points (
	collection TEXT NOT NULL REFERENCES lorekeeper_collections(name) ON DELETE CASCADE,
	id         TEXT NOT NULL,
	embedding  vector NOT NULL,
	payload    JSONB NOT NULL DEFAULT '{}'::jsonb,
	PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS lorekeeper_points_file_path
	ON lorekeeper_points (collection, (payload->>'file_path'));
`

// Store implements storage.VectorStore backed by PostgreSQL.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ storage.VectorStore = (*Store)(nil)

// NewStore connects to databaseURL, verifies the connection and creates the
// schema if needed.
//
// Returns storage.VectorStore interface to enforce abstraction.
func NewStore(ctx context.Context, databaseURL string) (storage.VectorStore, error) {
	if databaseURL == "" {
		return nil, errors.New("pgvector: database url is empty")
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Store{db: db, logger: slog.Default().With("component", "pgvector-store")}
	if err := s.bootstrap(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return s, nil
}

func (s *Store) bootstrap(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, schema); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Close closes the connection pool.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// EnsureCollection creates the collection row if missing.
func (s *Store) EnsureCollection(ctx context.Context, name string, vectorSize int, distance storage.Distance) error {
	if name == "" || vectorSize <= 0 {
		return fmt.Errorf("%w: collection %q size %d", storage.ErrInvalidQuery, name, vectorSize)
	}

	const q = `
		INSERT INTO lorekeeper_collections (name, vector_size, distance)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, q, name, vectorSize, string(distance))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.logger.Info("created collection", "collection", name, "size", vectorSize, "distance", distance)
		return nil
	}

	info, err := s.collection(ctx, name)
	if err != nil {
		return err
	}
	if info.VectorSize != vectorSize {
		return fmt.Errorf("%w: collection %s has size %d, requested %d",
			storage.ErrDimensionMismatch, name, info.VectorSize, vectorSize)
	}
	return nil
}

// Upsert writes points in one transaction, replacing rows with the same ID.
func (s *Store) Upsert(ctx context.Context, collection string, points ...storage.Point) error {
	if len(points) == 0 {
		return nil
	}
	info, err := s.collection(ctx, collection)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO lorekeeper_points (collection, id, embedding, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (collection, id) DO UPDATE
		SET embedding = EXCLUDED.embedding, payload = EXCLUDED.payload
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range points {
		p := &points[i]
		if p.ID == "" {
			_ = tx.Rollback()
			return fmt.Errorf("%w: point %d has no id", storage.ErrInvalidQuery, i)
		}
		if len(p.Vector) != info.VectorSize {
			_ = tx.Rollback()
			return fmt.Errorf("%w: point %s has %d dimensions, collection %s expects %d",
				storage.ErrDimensionMismatch, p.ID, len(p.Vector), collection, info.VectorSize)
		}
		payload, err := json.Marshal(p.Payload)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
		}
		if _, err := stmt.ExecContext(ctx, collection, p.ID, pgvector.NewVector(p.Vector), string(payload)); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Scroll returns up to limit matching points ordered by ID.
func (s *Store) Scroll(ctx context.Context, collection string, filter *storage.Filter, limit int, offset string) (*storage.ScrollPage, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}
	if _, err := s.collection(ctx, collection); err != nil {
		return nil, err
	}

	where, args := whereClause(collection, filter)
	args = append(args, offset, limit+1)
	q := fmt.Sprintf(`
		SELECT id, embedding, payload
		FROM lorekeeper_points
		WHERE %s AND id >= $%d
		ORDER BY id ASC
		LIMIT $%d
	`, where, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	page := &storage.ScrollPage{}
	for rows.Next() {
		p, err := scanPoint(rows)
		if err != nil {
			return nil, err
		}
		if len(page.Points) == limit {
			page.Next = p.ID
			break
		}
		page.Points = append(page.Points, *p)
	}
	return page, rows.Err()
}

// Delete removes points by ID. Unknown IDs are ignored.
func (s *Store) Delete(ctx context.Context, collection string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := s.collection(ctx, collection); err != nil {
		return err
	}
	const q = `DELETE FROM lorekeeper_points WHERE collection = $1 AND id = ANY($2)`
	_, err := s.db.ExecContext(ctx, q, collection, ids)
	return err
}

// Stats counts the points in a collection.
func (s *Store) Stats(ctx context.Context, collection string) (*storage.CollectionStats, error) {
	info, err := s.collection(ctx, collection)
	if err != nil {
		return nil, err
	}

	const q = `SELECT count(*) FROM lorekeeper_points WHERE collection = $1`
	var count int
	if err := s.db.QueryRowContext(ctx, q, collection).Scan(&count); err != nil {
		return nil, err
	}
	return &storage.CollectionStats{
		Name:        collection,
		PointCount:  count,
		VectorCount: count,
		VectorSize:  info.VectorSize,
		Distance:    info.Distance,
		Status:      storage.StatusGreen,
	}, nil
}

// Search orders by the collection's distance operator and converts the
// distance into a "higher is closer" score.
func (s *Store) Search(ctx context.Context, collection string, vector []float32, limit int, filter *storage.Filter) ([]storage.ScoredPoint, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}
	info, err := s.collection(ctx, collection)
	if err != nil {
		return nil, err
	}
	if len(vector) != info.VectorSize {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection %s expects %d",
			storage.ErrDimensionMismatch, len(vector), collection, info.VectorSize)
	}

	op, scoreExpr := distanceSQL(info.Distance)
	where, args := whereClause(collection, filter)
	args = append(args, pgvector.NewVector(vector), limit)
	vecArg := len(args) - 1
	q := fmt.Sprintf(`
		SELECT id, embedding, payload, %s AS score
		FROM lorekeeper_points
		WHERE %s
		ORDER BY embedding %s $%d
		LIMIT $%d
	`, fmt.Sprintf(scoreExpr, vecArg), where, op, vecArg, len(args))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.ScoredPoint
	for rows.Next() {
		var (
			id      string
			emb     pgvector.Vector
			payload []byte
			score   float64
		)
		if err := rows.Scan(&id, &emb, &payload, &score); err != nil {
			return nil, err
		}
		p, err := newPoint(id, emb, payload)
		if err != nil {
			return nil, err
		}
		out = append(out, storage.ScoredPoint{Point: *p, Score: float32(score)})
	}
	return out, rows.Err()
}

func (s *Store) collection(ctx context.Context, name string) (*storage.CollectionInfo, error) {
	const q = `SELECT name, vector_size, distance, created_at FROM lorekeeper_collections WHERE name = $1`
	var (
		info     storage.CollectionInfo
		distance string
	)
	err := s.db.QueryRowContext(ctx, q, name).Scan(&info.Name, &info.VectorSize, &distance, &info.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", storage.ErrCollectionNotFound, name)
		}
		return nil, err
	}
	info.Distance = storage.Distance(distance)
	return &info, nil
}

// distanceSQL returns the ordering operator and a score expression with a
// %d placeholder for the query vector argument.
func distanceSQL(distance storage.Distance) (string, string) {
	switch distance {
	case storage.DistanceEuclid:
		return "<->", "-(embedding <-> $%d)"
	case storage.DistanceDot:
		// <#> is the negative inner product.
		return "<#>", "-(embedding <#> $%d)"
	default:
		return "<=>", "1 - (embedding <=> $%d)"
	}
}

func whereClause(collection string, filter *storage.Filter) (string, []any) {
	clauses := []string{"collection = $1"}
	args := []any{collection}
	if filter != nil {
		args = append(args, filter.Field, filter.Value)
		clauses = append(clauses, fmt.Sprintf("payload->>$%d = $%d", len(args)-1, len(args)))
	}
	return strings.Join(clauses, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPoint(row rowScanner) (*storage.Point, error) {
	var (
		id      string
		emb     pgvector.Vector
		payload []byte
	)
	if err := row.Scan(&id, &emb, &payload); err != nil {
		return nil, err
	}
	return newPoint(id, emb, payload)
}

func newPoint(id string, emb pgvector.Vector, payload []byte) (*storage.Point, error) {
	p := &storage.Point{ID: id, Vector: emb.Slice(), Payload: map[string]any{}}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &p.Payload); err != nil {
			return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
		}
	}
	return p, nil
}
