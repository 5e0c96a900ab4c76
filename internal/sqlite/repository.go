package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/walletfeed/wallet-feed/internal/domain"
	_ "modernc.org/sqlite"
)

// Repository implements domain.MessageRepository and domain.LinkRepository
// using SQLite. Mentions and hashtags are stored as JSON arrays and queried
// with json_each.
type Repository struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id        TEXT PRIMARY KEY,
	username  TEXT NOT NULL,
	text      TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	address   TEXT NOT NULL,
	latitude  REAL,
	longitude REAL,
	mentions  TEXT NOT NULL,
	hashtags  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages (timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_messages_username ON messages (username, timestamp DESC);

CREATE TABLE IF NOT EXISTS user_links (
	user_key   TEXT NOT NULL,
	provider   TEXT NOT NULL,
	username   TEXT NOT NULL,
	url        TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (user_key, provider)
);`

// NewRepository opens (or creates) the SQLite database at path, applies the
// schema, and returns a new Repository. The caller should call Close when
// the repository is no longer needed.
func NewRepository(path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Repository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Insert stores a new message.
func (r *Repository) Insert(ctx context.Context, msg *domain.Message) error {
	mentions, err := json.Marshal(sliceOrEmpty(msg.Mentions))
	if err != nil {
		return fmt.Errorf("marshal mentions: %w", err)
	}
	hashtags, err := json.Marshal(sliceOrEmpty(msg.Hashtags))
	if err != nil {
		return fmt.Errorf("marshal hashtags: %w", err)
	}

	query := `
		INSERT INTO messages (id, username, text, timestamp, address, latitude, longitude, mentions, hashtags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		msg.ID,
		msg.Username,
		msg.Text,
		msg.Timestamp,
		msg.Address,
		nullFloat(msg.Latitude),
		nullFloat(msg.Longitude),
		string(mentions),
		string(hashtags),
	)
	return err
}

// HasDuplicate reports whether an identical (username, text) pair exists.
func (r *Repository) HasDuplicate(ctx context.Context, username, text string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM messages WHERE username = ? AND text = ?)`,
		username, text,
	).Scan(&exists)
	return exists, err
}

// ListAll retrieves every message ordered by timestamp descending.
func (r *Repository) ListAll(ctx context.Context) ([]domain.Message, error) {
	return r.list(ctx, `
		SELECT id, username, text, timestamp, address, latitude, longitude, mentions, hashtags
		FROM messages
		ORDER BY timestamp DESC`)
}

// ListByMention retrieves messages whose mentions array contains key.
func (r *Repository) ListByMention(ctx context.Context, key string) ([]domain.Message, error) {
	return r.list(ctx, `
		SELECT id, username, text, timestamp, address, latitude, longitude, mentions, hashtags
		FROM messages
		WHERE EXISTS (SELECT 1 FROM json_each(messages.mentions) WHERE json_each.value = ?)
		ORDER BY timestamp DESC`, key)
}

// ListByUsername retrieves messages authored by key.
func (r *Repository) ListByUsername(ctx context.Context, key string) ([]domain.Message, error) {
	return r.list(ctx, `
		SELECT id, username, text, timestamp, address, latitude, longitude, mentions, hashtags
		FROM messages
		WHERE username = ?
		ORDER BY timestamp DESC`, key)
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		var (
			m                  domain.Message
			lat, lon           sql.NullFloat64
			mentions, hashtags string
		)
		err := rows.Scan(
			&m.ID,
			&m.Username,
			&m.Text,
			&m.Timestamp,
			&m.Address,
			&lat,
			&lon,
			&mentions,
			&hashtags,
		)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if err := json.Unmarshal([]byte(mentions), &m.Mentions); err != nil {
			return nil, fmt.Errorf("unmarshal mentions: %w", err)
		}
		if err := json.Unmarshal([]byte(hashtags), &m.Hashtags); err != nil {
			return nil, fmt.Errorf("unmarshal hashtags: %w", err)
		}
		if lat.Valid {
			m.Latitude = &lat.Float64
		}
		if lon.Valid {
			m.Longitude = &lon.Float64
		}
		msgs = append(msgs, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return msgs, nil
}

// MergeLink upserts one provider's link for a user key, leaving other
// providers stored for the same key untouched.
func (r *Repository) MergeLink(ctx context.Context, key, provider string, link domain.Link) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_links (user_key, provider, username, url, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_key, provider) DO UPDATE SET
			username = excluded.username,
			url = excluded.url,
			updated_at = excluded.updated_at`,
		key, provider, link.Username, link.URL, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetLinks retrieves all linked profiles for a user key, by provider.
func (r *Repository) GetLinks(ctx context.Context, key string) (map[string]domain.Link, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT provider, username, url FROM user_links WHERE user_key = ?`, key,
	)
	if err != nil {
		return nil, fmt.Errorf("query links: %w", err)
	}
	defer rows.Close()

	links := make(map[string]domain.Link)
	for rows.Next() {
		var provider string
		var link domain.Link
		if err := rows.Scan(&provider, &link.Username, &link.URL); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		links[provider] = link
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate links: %w", err)
	}
	return links, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

// sliceOrEmpty keeps stored JSON as [] rather than null for nil slices.
func sliceOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
