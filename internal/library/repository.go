package library

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"time"
)

// Repository persists library items with their embeddings in sqlite.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Save upserts an item together with its embedding.
func (r *Repository) Save(ctx context.Context, item Item, embedding []float32) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal library item: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO library_items (id, kind, data, embedding, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			data = excluded.data,
			embedding = excluded.embedding,
			updated_at = excluded.updated_at`,
		item.ID, item.Kind, string(data), float32SliceToBytes(embedding), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save library item: %w", err)
	}
	return nil
}

// Get returns an item by ID, or nil if absent.
func (r *Repository) Get(ctx context.Context, id string) (*Item, error) {
	var data string
	err := r.db.QueryRowContext(ctx,
		`SELECT data FROM library_items WHERE id = ?`, id,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get library item: %w", err)
	}

	var item Item
	if err := json.Unmarshal([]byte(data), &item); err != nil {
		return nil, fmt.Errorf("failed to decode library item %s: %w", id, err)
	}
	return &item, nil
}

func (r *Repository) Count(ctx context.Context, kind string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM library_items WHERE kind = ?`, kind,
	).Scan(&n)
	return n, err
}

// SampleNames returns up to n item names of the given kind, rotating
// through the catalog by recency so prompts do not always cite the same
// items. Satisfies the generator's variety source.
func (r *Repository) SampleNames(ctx context.Context, kind string, n int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT data FROM library_items WHERE kind = ?
		 ORDER BY updated_at DESC LIMIT ?`,
		kind, n,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to sample library items: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var item Item
		if err := json.Unmarshal([]byte(data), &item); err != nil {
			continue
		}
		if item.Name != "" {
			names = append(names, item.Name)
		}
	}
	return names, rows.Err()
}

type scoredItem struct {
	ID    string
	Score float64
}

// FindSimilar returns the IDs of the items of the given kind whose
// embeddings are closest to the query, best first. Used during ingestion
// to skip near-duplicates.
func (r *Repository) FindSimilar(ctx context.Context, kind string, query []float32, limit int) ([]string, error) {
	scored, err := r.similarityScores(ctx, kind, query)
	if err != nil {
		return nil, err
	}
	if limit < len(scored) {
		scored = scored[:limit]
	}
	ids := make([]string, len(scored))
	for i, s := range scored {
		ids[i] = s.ID
	}
	return ids, nil
}

// Embeddings are compared in memory; the catalog stays small enough that
// this beats maintaining an index.
func (r *Repository) similarityScores(ctx context.Context, kind string, query []float32) ([]scoredItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, embedding FROM library_items WHERE kind = ? AND embedding IS NOT NULL`,
		kind,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list embeddings: %w", err)
	}
	defer rows.Close()

	var scored []scoredItem
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, err
		}
		embedding, err := bytesToFloat32Slice(blob)
		if err != nil {
			continue
		}
		scored = append(scored, scoredItem{ID: id, Score: cosineSimilarity(query, embedding)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	slices.SortFunc(scored, func(a, b scoredItem) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
	return scored, nil
}

// HasNearDuplicate reports whether an item with similarity at or above the
// threshold already exists.
func (r *Repository) HasNearDuplicate(ctx context.Context, kind string, embedding []float32, threshold float64) (bool, error) {
	scored, err := r.similarityScores(ctx, kind, embedding)
	if err != nil {
		return false, err
	}
	return len(scored) > 0 && scored[0].Score >= threshold, nil
}

func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(floats))
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:(i+1)*4], math.Float32bits(f))
	}
	return buf
}

func bytesToFloat32Slice(b []byte) ([]float32, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4", len(b))
	}
	floats := make([]float32, len(b)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4 : (i+1)*4]))
	}
	return floats, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
