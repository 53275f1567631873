package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sangam-civic/sangam/pkg/domain/interfaces"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when the requested row does not exist
var ErrNotFound = goerr.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS petitions (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL DEFAULT '',
    location TEXT NOT NULL DEFAULT '',
    created_by TEXT NOT NULL DEFAULT '',
    supporters INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT '',
    embedding BLOB,
    embedding_fingerprint TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_petitions_created_at ON petitions(created_at);
CREATE INDEX IF NOT EXISTS idx_petitions_created_by ON petitions(created_by, created_at);

CREATE TABLE IF NOT EXISTS threads (
    id TEXT PRIMARY KEY,
    member_key TEXT NOT NULL,
    petition_ids TEXT NOT NULL,
    label TEXT NOT NULL DEFAULT '',
    summary TEXT NOT NULL DEFAULT '',
    petition_count INTEGER NOT NULL DEFAULT 0,
    total_supporters INTEGER NOT NULL DEFAULT 0,
    fallback INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_threads_member_key ON threads(member_key);
`

// SQLite is a single-file repository backed by modernc.org/sqlite
type SQLite struct {
	db       *sql.DB
	petition *petitionRepository
	thread   *threadRepository
}

var _ interfaces.Repository = &SQLite{}

// New opens (and creates if needed) the database at path. Use ":memory:" for a
// throwaway database.
func New(ctx context.Context, path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, goerr.Wrap(err, "failed to create data directory", goerr.V("path", path))
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open sqlite database", goerr.V("path", path))
	}
	// A single connection serializes writers and keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to apply sqlite schema", goerr.V("path", path))
	}

	return &SQLite{
		db:       db,
		petition: &petitionRepository{db: db},
		thread:   &threadRepository{db: db},
	}, nil
}

func (s *SQLite) Petition() interfaces.PetitionRepository {
	return s.petition
}

func (s *SQLite) Thread() interfaces.ThreadRepository {
	return s.thread
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func encodeVector(vector []float32) []byte {
	if len(vector) == 0 {
		return nil
	}
	buf := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	vector := make([]float32, len(data)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vector
}

func toUnix(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromUnix(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
