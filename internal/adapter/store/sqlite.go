package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"vibedesk/internal/domain"
)

// SQLiteStore implements domain.MessageStore and domain.ArtifactStore on one
// SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database at dbPath and runs the schema
// migration.
func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store db: %w", err)
	}
	// WAL mode for better concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate store db: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS messages (
			id         TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			role       TEXT NOT NULL,
			content    TEXT NOT NULL DEFAULT '',
			streaming  INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);

		CREATE TABLE IF NOT EXISTS artifact_versions (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id  TEXT NOT NULL,
			message_id  TEXT NOT NULL DEFAULT '',
			version     INTEGER NOT NULL,
			name        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			files       TEXT NOT NULL DEFAULT '{}',
			metadata    TEXT NOT NULL DEFAULT '{}',
			created_at  TEXT NOT NULL,
			UNIQUE(session_id, version)
		);
	`)
	return err
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func newMessageID(t time.Time) string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

func (s *SQLiteStore) CreateStreamingMessage(ctx context.Context, sessionID string) (string, error) {
	now := time.Now().UTC()
	id := newMessageID(now)
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO messages (id, session_id, role, content, streaming, created_at, updated_at) VALUES (?, ?, ?, '', 1, ?, ?)",
		id, sessionID, domain.RoleAssistant,
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", domain.NewDomainError("store.CreateStreamingMessage", domain.ErrStoreWrite, err.Error())
	}
	return id, nil
}

func (s *SQLiteStore) UpdateMessage(ctx context.Context, id, content string, complete bool) error {
	streaming := 1
	if complete {
		streaming = 0
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE messages SET content = ?, streaming = ?, updated_at = ? WHERE id = ?",
		content, streaming, time.Now().UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return domain.NewDomainError("store.UpdateMessage", domain.ErrStoreWrite, err.Error())
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.NewDomainError("store.UpdateMessage", domain.ErrMessageNotFound, id)
	}
	return nil
}

func (s *SQLiteStore) AppendMessage(ctx context.Context, sessionID, role, content string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO messages (id, session_id, role, content, streaming, created_at, updated_at) VALUES (?, ?, ?, ?, 0, ?, ?)",
		newMessageID(now), sessionID, role, content,
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return domain.NewDomainError("store.AppendMessage", domain.ErrStoreWrite, err.Error())
	}
	return nil
}

func (s *SQLiteStore) GetMessage(ctx context.Context, id string) (*domain.ChatMessage, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, session_id, role, content, streaming, created_at, updated_at FROM messages WHERE id = ?", id,
	)
	var m domain.ChatMessage
	var streaming int
	var createdStr, updatedStr string
	if err := row.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &streaming, &createdStr, &updatedStr); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.NewDomainError("store.GetMessage", domain.ErrMessageNotFound, id)
		}
		return nil, domain.WrapOp("store.GetMessage", err)
	}
	m.Streaming = streaming != 0
	m.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	m.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedStr)
	return &m, nil
}

// FinalizeStaleMessages marks messages stuck in the streaming state for
// longer than olderThan as complete, appending marker to their content so
// the user never sees a message spinning forever. Returns how many messages
// were finalized.
func (s *SQLiteStore) FinalizeStaleMessages(ctx context.Context, olderThan time.Duration, marker string) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339Nano)
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, `
		UPDATE messages
		SET streaming = 0,
		    content = CASE WHEN content = '' THEN ? ELSE content || ? END,
		    updated_at = ?
		WHERE streaming = 1 AND updated_at < ?`,
		marker, "\n\n"+marker, now, cutoff,
	)
	if err != nil {
		return 0, domain.WrapOp("store.FinalizeStaleMessages", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLiteStore) LatestFiles(ctx context.Context, sessionID string) (map[string]string, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT files FROM artifact_versions WHERE session_id = ? ORDER BY version DESC LIMIT 1", sessionID,
	)
	var filesJSON string
	if err := row.Scan(&filesJSON); err != nil {
		if err == sql.ErrNoRows {
			return map[string]string{}, nil
		}
		return nil, domain.WrapOp("store.LatestFiles", err)
	}
	files := map[string]string{}
	if err := json.Unmarshal([]byte(filesJSON), &files); err != nil {
		return nil, fmt.Errorf("unmarshal artifact files: %w", err)
	}
	return files, nil
}

func (s *SQLiteStore) SaveVersion(ctx context.Context, v *domain.ArtifactVersion) (int, error) {
	filesJSON, err := json.Marshal(v.Files)
	if err != nil {
		return 0, fmt.Errorf("marshal artifact files: %w", err)
	}
	metaJSON, err := json.Marshal(v.Metadata)
	if err != nil {
		return 0, fmt.Errorf("marshal artifact metadata: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, domain.WrapOp("store.SaveVersion", err)
	}
	defer tx.Rollback()

	var version int
	if err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) + 1 FROM artifact_versions WHERE session_id = ?", v.SessionID,
	).Scan(&version); err != nil {
		return 0, domain.WrapOp("store.SaveVersion", err)
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO artifact_versions (session_id, message_id, version, name, description, files, metadata, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		v.SessionID, v.MessageID, version, v.Name, v.Description,
		string(filesJSON), string(metaJSON), now.Format(time.RFC3339Nano),
	); err != nil {
		return 0, domain.WrapOp("store.SaveVersion", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, domain.WrapOp("store.SaveVersion", err)
	}

	v.Version = version
	v.CreatedAt = now
	return version, nil
}

// Compile-time interface checks.
var (
	_ domain.MessageStore  = (*SQLiteStore)(nil)
	_ domain.ArtifactStore = (*SQLiteStore)(nil)
)
