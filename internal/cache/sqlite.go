package cache

import (
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite is a Store backed by a single-file sqlite database, for
// caches that should survive restarts. Vectors are stored as
// little-endian float64 blobs.
type SQLite struct {
	db    *sql.DB
	model string
}

// OpenSQLite opens (creating if needed) the cache database at path.
// The model fingerprint is recorded with each entry.
func OpenSQLite(path, model string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cache: open %s: %w", path, err)
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS embeddings(
			key TEXT PRIMARY KEY,
			model TEXT NOT NULL,
			dim INTEGER NOT NULL,
			vec BLOB NOT NULL,
			created_at INTEGER NOT NULL
		)`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cache: init schema: %w", err)
	}
	return &SQLite{db: db, model: model}, nil
}

func (c *SQLite) Get(key string) ([]float64, bool, error) {
	var dim int
	var blob []byte
	err := c.db.QueryRow("SELECT dim, vec FROM embeddings WHERE key = ?", key).Scan(&dim, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: get: %w", err)
	}
	if dim <= 0 || len(blob) != dim*8 {
		return nil, false, fmt.Errorf("cache: entry %s has %d blob bytes for dim %d", key, len(blob), dim)
	}
	vec := make([]float64, dim)
	for i := range vec {
		vec[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[i*8:]))
	}
	return vec, true, nil
}

func (c *SQLite) Put(key string, vec []float64) error {
	if len(vec) == 0 {
		return fmt.Errorf("cache: empty vector for key %s", key)
	}
	blob := make([]byte, 0, len(vec)*8)
	for _, v := range vec {
		blob = binary.LittleEndian.AppendUint64(blob, math.Float64bits(v))
	}
	_, err := c.db.Exec(
		"INSERT OR REPLACE INTO embeddings(key, model, dim, vec, created_at) VALUES(?,?,?,?,?)",
		key, c.model, len(vec), blob, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("cache: put: %w", err)
	}
	return nil
}

func (c *SQLite) Close() error { return c.db.Close() }
