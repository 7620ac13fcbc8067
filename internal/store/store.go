package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/ironsheep/omr-grader/internal/model"
)

// DBFile is the database file name inside the store directory.
const DBFile = "omr.db"

// ErrKeyNotFound is returned by LoadAnswerKey when no key exists for a version.
var ErrKeyNotFound = errors.New("answer key not found")

// ErrNotFinal is returned by InsertResult for a record still being evaluated.
var ErrNotFinal = errors.New("result is not final")

// Store keeps answer keys and evaluation results in SQLite.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Options configures Store behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if missing.
	CreateIfNotExists bool

	// EnableWAL enables write-ahead logging.
	EnableWAL bool
}

// DefaultOptions returns the default store options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the store in dir.
func Open(dir string, opts Options) (*Store, error) {
	dbPath := filepath.Join(dir, DBFile)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection serializes writers; batch workers share the store.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables() error {
	schema := `
	-- Answer keys; the most recent upload of a version wins
	CREATE TABLE IF NOT EXISTS answer_keys (
		id TEXT PRIMARY KEY,
		version TEXT NOT NULL,
		source TEXT,
		answers_json TEXT NOT NULL,
		uploaded_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_keys_version ON answer_keys(version);

	-- One result per sheet image and key version
	CREATE TABLE IF NOT EXISTS results (
		id TEXT PRIMARY KEY,
		sheet_id TEXT NOT NULL,
		version TEXT NOT NULL,
		source TEXT,
		total_score INTEGER DEFAULT 0,
		scored_questions INTEGER DEFAULT 0,
		flagged INTEGER DEFAULT 0,
		flag_reason TEXT,
		state TEXT,
		record_json TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(sheet_id, version)
	);

	CREATE INDEX IF NOT EXISTS idx_results_flagged ON results(flagged);
	CREATE INDEX IF NOT EXISTS idx_results_created ON results(created_at);
	`

	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// SaveAnswerKey stores key under its version and returns the new row id.
// Saving a version again supersedes the earlier key.
func (s *Store) SaveAnswerKey(ctx context.Context, key *model.AnswerKey, source string) (string, error) {
	if key == nil || key.Version == "" {
		return "", errors.New("answer key needs a version")
	}
	answersJSON, err := json.Marshal(key.Answers)
	if err != nil {
		return "", fmt.Errorf("failed to serialize answers: %w", err)
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO answer_keys (id, version, source, answers_json) VALUES (?, ?, ?, ?)`,
		id, key.Version, source, string(answersJSON))
	if err != nil {
		return "", fmt.Errorf("failed to insert answer key: %w", err)
	}
	return id, nil
}

// LoadAnswerKey returns the most recently saved key for version.
func (s *Store) LoadAnswerKey(ctx context.Context, version string) (*model.AnswerKey, error) {
	query := `
	SELECT answers_json FROM answer_keys
	WHERE version = ?
	ORDER BY uploaded_at DESC, rowid DESC
	LIMIT 1
	`

	var answersJSON string
	err := s.db.QueryRowContext(ctx, query, version).Scan(&answersJSON)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: version %s", ErrKeyNotFound, version)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load answer key: %w", err)
	}

	key := &model.AnswerKey{Version: version}
	if err := json.Unmarshal([]byte(answersJSON), &key.Answers); err != nil {
		return nil, fmt.Errorf("failed to parse answer key: %w", err)
	}
	return key, nil
}

// KeyVersion summarizes the stored keys of one version.
type KeyVersion struct {
	Version    string
	Uploads    int
	Questions  int
	UploadedAt time.Time
}

// ListVersions returns every version with a stored key, in version order.
// Questions counts the entries of the latest upload.
func (s *Store) ListVersions(ctx context.Context) ([]KeyVersion, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT version, COUNT(*), MAX(uploaded_at) FROM answer_keys
	GROUP BY version
	ORDER BY version
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	defer rows.Close()

	var versions []KeyVersion
	for rows.Next() {
		var v KeyVersion
		var uploaded string
		if err := rows.Scan(&v.Version, &v.Uploads, &uploaded); err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		v.UploadedAt = parseTimestamp(uploaded)
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}

	for i := range versions {
		key, err := s.LoadAnswerKey(ctx, versions[i].Version)
		if err != nil {
			return nil, err
		}
		versions[i].Questions = len(key.Answers)
	}
	return versions, nil
}

// InsertResult stores rec unless a result for the same sheet and version
// already exists. It reports whether a row was written. Only records in a
// terminal state are accepted.
func (s *Store) InsertResult(ctx context.Context, rec *model.ScoreRecord) (bool, error) {
	if !rec.State.Terminal() {
		return false, fmt.Errorf("%w: %s", ErrNotFinal, rec.State)
	}
	recordJSON, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("failed to serialize result: %w", err)
	}

	query := `
	INSERT INTO results (id, sheet_id, version, source, total_score, scored_questions, flagged, flag_reason, state, record_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(sheet_id, version) DO NOTHING
	`

	res, err := s.db.ExecContext(ctx, query,
		uuid.NewString(),
		rec.SheetID,
		rec.Version,
		rec.Source,
		rec.TotalScore,
		rec.ScoredQuestions,
		rec.Flagged,
		rec.FlagReason,
		string(rec.State),
		string(recordJSON),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert result: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to insert result: %w", err)
	}
	return n == 1, nil
}

// ResultFilter narrows ListResults.
type ResultFilter struct {
	FlaggedOnly bool
	Version     string

	// Limit caps the number of results; zero means no limit.
	Limit int
}

// ListResults returns stored results, newest first.
func (s *Store) ListResults(ctx context.Context, f ResultFilter) ([]model.ScoreRecord, error) {
	query := `SELECT record_json FROM results WHERE 1=1`
	args := make([]interface{}, 0)

	if f.FlaggedOnly {
		query += " AND flagged = 1"
	}
	if f.Version != "" {
		query += " AND version = ?"
		args = append(args, f.Version)
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var records []model.ScoreRecord
	for rows.Next() {
		var recordJSON string
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		var rec model.ScoreRecord
		if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
			return nil, fmt.Errorf("failed to parse result: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// timestampFormats lists the layouts SQLite may return, most specific first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	time.RFC3339,
	"2006-01-02 15:04:05.999",
}

// parseTimestamp returns the zero time when s matches no known layout.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
