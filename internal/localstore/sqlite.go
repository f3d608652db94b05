package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/JCampos05/taskeer-notify/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db     *sqlx.DB
	logger *log.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string, logger *log.Logger) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if logger == nil {
		logger = log.Default()
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// getValue reads a raw value from the kv table. Returns "" when the key
// is absent.
func (s *SQLiteStore) getValue(key string) (string, error) {
	var value string
	err := s.db.Get(&value, "SELECT value FROM kv WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading kv %q: %w", key, err)
	}
	return value, nil
}

// setValue writes a value into the kv table, replacing any prior one.
func (s *SQLiteStore) setValue(key, value string) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO kv (key, value, updated_at)
		VALUES (?, ?, ?)`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("writing kv %q: %w", key, err)
	}
	return nil
}

// Token returns the stored auth token, or "" when none is stored.
func (s *SQLiteStore) Token() (string, error) {
	return s.getValue(KeyAuthToken)
}

// SetToken stores the auth token.
func (s *SQLiteStore) SetToken(token string) error {
	return s.setValue(KeyAuthToken, token)
}

// DeleteToken removes the stored auth token.
func (s *SQLiteStore) DeleteToken() error {
	_, err := s.db.Exec("DELETE FROM kv WHERE key = ?", KeyAuthToken)
	if err != nil {
		return fmt.Errorf("deleting auth token: %w", err)
	}
	return nil
}

// HiddenIDs returns the set of dismissed notification IDs. The set is
// stored as a JSON array under a well-known key; a corrupt value is
// logged and treated as empty, and the next AddHiddenID overwrites it.
func (s *SQLiteStore) HiddenIDs() map[int]struct{} {
	set := make(map[int]struct{})

	raw, err := s.getValue(KeyHiddenIDs)
	if err != nil {
		s.logger.Warn("reading hidden notification ids", "err", err)
		return set
	}
	if raw == "" {
		return set
	}

	var ids []int
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		s.logger.Warn("hidden notification ids corrupt, resetting", "err", err)
		return set
	}

	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// AddHiddenID records a dismissed notification ID. The full set is
// rewritten, which also heals a previously corrupt value.
func (s *SQLiteStore) AddHiddenID(id int) error {
	set := s.HiddenIDs()
	set[id] = struct{}{}

	data, err := json.Marshal(sortedIDs(set))
	if err != nil {
		return fmt.Errorf("marshaling hidden ids: %w", err)
	}
	return s.setValue(KeyHiddenIDs, string(data))
}

// ClearHiddenIDs removes the whole hidden set ("restore hidden
// notifications").
func (s *SQLiteStore) ClearHiddenIDs() error {
	_, err := s.db.Exec("DELETE FROM kv WHERE key = ?", KeyHiddenIDs)
	if err != nil {
		return fmt.Errorf("clearing hidden ids: %w", err)
	}
	return nil
}

// CacheNotifications replaces the offline snapshot of the reconciled
// view, preserving order.
func (s *SQLiteStore) CacheNotifications(ctx context.Context, list []model.Notification) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM notification_cache"); err != nil {
		return fmt.Errorf("clearing notification cache: %w", err)
	}

	const query = `
		INSERT INTO notification_cache (
			id, owner_user_id, kind, title, message, read, created_at, payload, position
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing cache insert: %w", err)
	}
	defer stmt.Close()

	for i, n := range list {
		payload, err := json.Marshal(n.Payload)
		if err != nil {
			return fmt.Errorf("marshaling payload for notification %d: %w", n.ID, err)
		}
		_, err = stmt.ExecContext(ctx,
			n.ID, n.OwnerUserID, string(n.Kind), n.Title, n.Message,
			boolToInt(n.Read), n.CreatedAt.UTC(), string(payload), i,
		)
		if err != nil {
			return fmt.Errorf("caching notification %d: %w", n.ID, err)
		}
	}

	return tx.Commit()
}

// CachedNotifications returns the last cached view in its original
// order. Rows that fail to scan are logged and skipped.
func (s *SQLiteStore) CachedNotifications(ctx context.Context) ([]model.Notification, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT id, owner_user_id, kind, title, message, read, created_at, payload FROM notification_cache ORDER BY position",
	)
	if err != nil {
		return nil, fmt.Errorf("querying notification cache: %w", err)
	}
	defer rows.Close()

	var list []model.Notification
	for rows.Next() {
		n, err := scanCached(rows)
		if err != nil {
			s.logger.Warn("skipping corrupt cached notification", "err", err)
			continue
		}
		list = append(list, n)
	}

	return list, rows.Err()
}

// scanCached scans a notification row from a sqlx.Rows result set.
func scanCached(rows *sqlx.Rows) (model.Notification, error) {
	var (
		n         model.Notification
		kind      string
		readInt   int
		createdAt time.Time
		payload   string
	)

	err := rows.Scan(
		&n.ID, &n.OwnerUserID, &kind, &n.Title, &n.Message,
		&readInt, &createdAt, &payload,
	)
	if err != nil {
		return model.Notification{}, fmt.Errorf("scanning cached notification: %w", err)
	}

	n.Kind = model.Kind(kind)
	n.Read = readInt != 0
	n.CreatedAt = createdAt

	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &n.Payload); err != nil {
			return model.Notification{}, fmt.Errorf("unmarshaling cached payload: %w", err)
		}
	}

	return n, nil
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
