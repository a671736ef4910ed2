package embedding

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Cache stores computed embeddings in SQLite so repeated requests for the
// same article and model skip the backend call.
type Cache struct {
	db *sql.DB
}

// CachedEmbedding is one stored vector with the inputs that produced it.
type CachedEmbedding struct {
	Key       string
	URL       string
	Model     string
	Vector    []float64
	CreatedAt time.Time
}

// Key derives the cache key for a model and article URL.
func Key(model, url string) string {
	h := sha256.Sum256([]byte(model + "|" + url))
	return hex.EncodeToString(h[:])
}

// OpenCache opens (or creates) the cache database at the given path.
func OpenCache(path string) (*Cache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	cache := &Cache{db: db}
	if err := cache.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}

	return cache, nil
}

// initSchema creates the embeddings table if it doesn't exist.
func (c *Cache) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS embeddings (
		key TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		model TEXT NOT NULL,
		dim INTEGER NOT NULL,
		vector TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	`

	_, err := c.db.Exec(schema)
	return err
}

// Close closes the cache database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the cached embedding for key, or nil on a miss.
func (c *Cache) Get(key string) (*CachedEmbedding, error) {
	query := `SELECT key, url, model, vector, created_at FROM embeddings WHERE key = ?`

	var entry CachedEmbedding
	var vectorJSON, createdAt string
	err := c.db.QueryRow(query, key).Scan(&entry.Key, &entry.URL, &entry.Model, &vectorJSON, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}

	if err := json.Unmarshal([]byte(vectorJSON), &entry.Vector); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached vector: %w", err)
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		entry.CreatedAt = t
	}

	return &entry, nil
}

// Put stores an embedding, replacing any prior entry under the same key.
func (c *Cache) Put(entry CachedEmbedding) error {
	vectorJSON, err := json.Marshal(entry.Vector)
	if err != nil {
		return fmt.Errorf("failed to marshal vector: %w", err)
	}

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT OR REPLACE INTO embeddings (key, url, model, dim, vector, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err = c.db.Exec(query,
		entry.Key,
		entry.URL,
		entry.Model,
		len(entry.Vector),
		string(vectorJSON),
		createdAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}

	return nil
}
