package vectorindex

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/codebuildervaibhav/lecture-grader/internal/apperr"
)

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PGVectorConfig configures the Postgres-backed index.
type PGVectorConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
}

// PGVectorIndex stores embeddings in a pgvector column and ranks by cosine
// distance.
type PGVectorIndex struct {
	config PGVectorConfig
	pool   *pgxpool.Pool
}

// NewPGVectorIndex connects and creates the extension, table and index.
func NewPGVectorIndex(ctx context.Context, config PGVectorConfig) (*PGVectorIndex, error) {
	if config.ConnString == "" {
		return nil, apperr.Newf(apperr.KindConfiguration, "pgvector", "connection string is required")
	}
	if config.TableName == "" {
		config.TableName = "lecture_documents"
	}
	if !tableNamePattern.MatchString(config.TableName) {
		return nil, apperr.Newf(apperr.KindConfiguration, "pgvector", "invalid table name %q", config.TableName)
	}
	if config.VectorDim == 0 {
		config.VectorDim = 384
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, apperr.Newf(apperr.KindConfiguration, "pgvector", "failed to connect to database: %w", err)
	}

	idx := &PGVectorIndex{config: config, pool: pool}
	if err := idx.initialize(ctx); err != nil {
		pool.Close()
		return nil, apperr.New(apperr.KindUpstream, "pgvector init", err)
	}
	return idx, nil
}

func (p *PGVectorIndex) initialize(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			title TEXT,
			content TEXT,
			embedding vector(%d),
			metadata JSONB
		)`, p.config.TableName, p.config.VectorDim)
	if _, err := p.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING hnsw (embedding vector_cosine_ops)`,
		p.config.TableName, p.config.TableName)
	if _, err := p.pool.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

func (p *PGVectorIndex) Upsert(ctx context.Context, id string, vector []float32, metadata map[string]string) error {
	if len(vector) != p.config.VectorDim {
		return apperr.Newf(apperr.KindInvalidInput, "pgvector upsert", "vector has %d dimensions, index expects %d", len(vector), p.config.VectorDim)
	}

	clean := make(map[string]string, len(metadata))
	for k, v := range metadata {
		clean[k] = sanitizeUTF8(v)
	}
	meta, err := json.Marshal(clean)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, title, content, embedding, metadata)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata`,
		p.config.TableName)

	_, err = p.pool.Exec(ctx, stmt, id, clean[metaTitle], clean[metaText], pgvector.NewVector(vector), meta)
	if err != nil {
		return apperr.New(apperr.KindUpstream, "pgvector upsert", err)
	}
	return nil
}

func (p *PGVectorIndex) Query(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = 1
	}

	query := fmt.Sprintf(`
		SELECT id, 1 - (embedding <=> $1) AS score, metadata
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`,
		p.config.TableName)

	rows, err := p.pool.Query(ctx, query, pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, apperr.New(apperr.KindUpstream, "pgvector query", err)
	}
	defer rows.Close()

	matches := []Match{}
	for rows.Next() {
		var (
			m     Match
			raw   []byte
			score float64
		)
		if err := rows.Scan(&m.ID, &score, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		m.Score = float32(score)
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &m.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode metadata for %s: %w", m.ID, err)
			}
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.New(apperr.KindUpstream, "pgvector query", err)
	}
	return matches, nil
}

func (p *PGVectorIndex) Count(ctx context.Context) (int, error) {
	var n int
	err := p.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", p.config.TableName)).Scan(&n)
	if err != nil {
		return 0, apperr.New(apperr.KindUpstream, "pgvector count", err)
	}
	return n, nil
}

func (p *PGVectorIndex) Close() error {
	p.pool.Close()
	return nil
}

func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return strings.ReplaceAll(s, "\x00", "")
	}
	return strings.ReplaceAll(strings.ToValidUTF8(s, ""), "\x00", "")
}
