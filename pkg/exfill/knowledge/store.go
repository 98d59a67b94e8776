package knowledge

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/ukaji3/exfill-go/pkg/exfill/models"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	id TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	content TEXT NOT NULL,
	embedding TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source);
`

// Store is a SQLite-backed evidence corpus.
type Store struct {
	db       *sql.DB
	embedder Embedder
	logger   *zap.Logger
}

// Open opens or creates the store at path. Use ":memory:" for a transient store.
func Open(path string, embedder Embedder, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Store{db: db, embedder: embedder, logger: logger}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ingest chunks text, embeds the chunks in one batch and stores them under
// source. It returns the number of chunks stored.
func (s *Store) Ingest(ctx context.Context, source, text string) (int, error) {
	chunks := Chunk(text)
	if len(chunks) == 0 {
		return 0, nil
	}

	vectors, err := embedBatches(ctx, chunks, s.embedder.EmbedDocuments)
	if err != nil {
		return 0, fmt.Errorf("ingest %s: %w", source, err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("ingest %s: got %d embeddings for %d chunks", source, len(vectors), len(chunks))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (id, source, content, embedding, created_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i, chunk := range chunks {
		embedding, err := json.Marshal(vectors[i])
		if err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx, uuid.NewString(), source, chunk, string(embedding), now); err != nil {
			return 0, fmt.Errorf("ingest %s: %w", source, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}

	s.logger.Info("ingested", zap.String("source", source), zap.Int("chunks", len(chunks)))
	return len(chunks), nil
}

// Count returns the number of stored chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n)
	return n, err
}

// Search returns the topK chunks most similar to query, by descending cosine
// similarity.
func (s *Store) Search(ctx context.Context, query string, topK int) ([]models.EvidenceChunk, error) {
	q, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT content, embedding FROM chunks ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer rows.Close()

	var results []models.EvidenceChunk
	for rows.Next() {
		var content, raw string
		if err := rows.Scan(&content, &raw); err != nil {
			return nil, fmt.Errorf("search: %w", err)
		}
		var vec []float32
		if err := json.Unmarshal([]byte(raw), &vec); err != nil {
			s.logger.Warn("skipping chunk with unreadable embedding", zap.Error(err))
			continue
		}
		if len(vec) != len(q) {
			continue
		}
		results = append(results, models.EvidenceChunk{Text: content, Score: cosine(q, vec)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
