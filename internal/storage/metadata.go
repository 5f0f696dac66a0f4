package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/codebuildervaibhav/lecture-grader/internal/types"
)

// MetadataDB handles SQLite database operations
type MetadataDB struct {
	db *sql.DB
}

// NewMetadataDB creates a new metadata database
func NewMetadataDB(dbPath string) (*MetadataDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS assets (
		storage_key TEXT PRIMARY KEY,
		original_name TEXT NOT NULL,
		public_url TEXT NOT NULL,
		backend TEXT NOT NULL,
		size INTEGER NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS videos (
		video_key TEXT PRIMARY KEY,
		original_name TEXT NOT NULL,
		source TEXT NOT NULL,
		size INTEGER NOT NULL,
		path TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS grading_runs (
		id TEXT PRIMARY KEY,
		video_key TEXT NOT NULL,
		prompt TEXT NOT NULL,
		row_count INTEGER NOT NULL,
		status TEXT NOT NULL,
		error TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_videos_created_at ON videos(created_at);
	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON grading_runs(created_at);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &MetadataDB{db: db}, nil
}

// SaveAsset records an object-store upload.
func (mdb *MetadataDB) SaveAsset(ctx context.Context, asset *types.UploadedAsset, originalName, backend string, size int) error {
	query := `
	INSERT INTO assets (storage_key, original_name, public_url, backend, size, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := mdb.db.ExecContext(ctx, query, asset.StorageKey, originalName, asset.PublicURL, backend, size, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save asset metadata: %w", err)
	}
	return nil
}

// SaveVideo records a stored video. Re-uploading identical content keeps the
// first record.
func (mdb *MetadataDB) SaveVideo(ctx context.Context, v *types.StoredVideo) error {
	query := `
	INSERT INTO videos (video_key, original_name, source, size, path, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(video_key) DO NOTHING
	`
	_, err := mdb.db.ExecContext(ctx, query, v.Key, v.OriginalName, v.Source, v.Size, v.Path, v.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save video metadata: %w", err)
	}
	return nil
}

// ListVideos returns the most recent videos first.
func (mdb *MetadataDB) ListVideos(ctx context.Context, limit int) ([]types.StoredVideo, error) {
	query := `
	SELECT video_key, original_name, source, size, path, created_at
	FROM videos ORDER BY created_at DESC LIMIT ?
	`

	rows, err := mdb.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	defer rows.Close()

	videos := []types.StoredVideo{}
	for rows.Next() {
		var v types.StoredVideo
		if err := rows.Scan(&v.Key, &v.OriginalName, &v.Source, &v.Size, &v.Path, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		videos = append(videos, v)
	}

	return videos, rows.Err()
}

// SaveGradingRun records the outcome of a grading export.
func (mdb *MetadataDB) SaveGradingRun(ctx context.Context, run *types.GradingRun) error {
	query := `
	INSERT INTO grading_runs (id, video_key, prompt, row_count, status, error, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := mdb.db.ExecContext(ctx, query, run.ID, run.VideoKey, run.Prompt, run.Rows, run.Status, run.Error, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save grading run: %w", err)
	}
	return nil
}

// ListGradingRuns returns the most recent runs first.
func (mdb *MetadataDB) ListGradingRuns(ctx context.Context, limit int) ([]types.GradingRun, error) {
	query := `
	SELECT id, video_key, prompt, row_count, status, COALESCE(error, ''), created_at
	FROM grading_runs ORDER BY created_at DESC LIMIT ?
	`

	rows, err := mdb.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list grading runs: %w", err)
	}
	defer rows.Close()

	runs := []types.GradingRun{}
	for rows.Next() {
		var r types.GradingRun
		if err := rows.Scan(&r.ID, &r.VideoKey, &r.Prompt, &r.Rows, &r.Status, &r.Error, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan grading run: %w", err)
		}
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// Close closes the database connection
func (mdb *MetadataDB) Close() error {
	return mdb.db.Close()
}
