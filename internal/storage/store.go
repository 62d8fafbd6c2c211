package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const defaultBusyTimeout = 5000

// Store wraps the SQLite handle and exposes helper methods used by the server.
type Store struct {
	db *sql.DB
}

// FileRef points at a stored binary asset from inside a message.
type FileRef struct {
	Filename string
	Path     string
	Mimetype string
}

// Message represents a row in the messages table. A message carrying a File
// is treated as a file message, otherwise as a text message.
type Message struct {
	ID        string
	Username  string
	Text      string
	File      *FileRef
	CreatedAt time.Time
	Deleted   bool
}

// UploadedFile is the audit record kept for every stored binary. It is never
// read back by the chat flow.
type UploadedFile struct {
	ID        string
	Filename  string
	Path      string
	Mimetype  string
	SizeBytes int64
	CreatedAt time.Time
}

// NewStore initializes the SQLite database at the provided path. Call Close when done.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "webchat.db"
	}
	dsn := buildDSN(path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", defaultBusyTimeout)); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying DB connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the database is still reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func buildDSN(path string) string {
	switch {
	case strings.HasPrefix(path, "sqlite://"):
		path = path[len("sqlite://"):]
	case strings.HasPrefix(path, "file:"), strings.HasPrefix(path, ":memory:"):
		// already in a form sqlite understands
	default:
		path = "file:" + path
	}
	separator := "?"
	if strings.Contains(path, "?") {
		separator = "&"
	}
	return fmt.Sprintf("%s%s_pragma=busy_timeout=%d&_pragma=foreign_keys=ON", path, separator, defaultBusyTimeout)
}

// Migrate runs the schema creation statements.
func (s *Store) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			body TEXT,
			file_name TEXT,
			file_path TEXT,
			file_mimetype TEXT,
			created_at DATETIME NOT NULL,
			deleted INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS uploaded_files (
			id TEXT PRIMARY KEY,
			filename TEXT NOT NULL,
			path TEXT NOT NULL,
			mimetype TEXT NOT NULL,
			size_bytes INTEGER NOT NULL,
			created_at DATETIME NOT NULL
		);`,
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for _, stmt := range statements {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// AppendMessage inserts a new message, assigning its id and timestamp, and
// returns the stored record. Text-only messages pass a nil file.
func (s *Store) AppendMessage(ctx context.Context, username, text string, file *FileRef) (Message, error) {
	msg := Message{
		ID:        uuid.NewString(),
		Username:  username,
		Text:      text,
		File:      file,
		CreatedAt: time.Now().UTC(),
	}
	var fileName, filePath, fileMimetype sql.NullString
	if file != nil {
		fileName = sql.NullString{String: file.Filename, Valid: true}
		filePath = sql.NullString{String: file.Path, Valid: true}
		fileMimetype = sql.NullString{String: file.Mimetype, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages(id, username, body, file_name, file_path, file_mimetype, created_at) VALUES(?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.Username, msg.Text, fileName, filePath, fileMimetype, msg.CreatedAt)
	if err != nil {
		return Message{}, fmt.Errorf("append message: %w", err)
	}
	return msg, nil
}

// ListActiveMessages returns all non-deleted messages in insertion order.
// Used only when bootstrapping a new connection.
func (s *Store) ListActiveMessages(ctx context.Context) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, body, file_name, file_path, file_mimetype, created_at
		FROM messages
		WHERE deleted = 0
		ORDER BY rowid ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		var body, fileName, filePath, fileMimetype sql.NullString
		if err := rows.Scan(&msg.ID, &msg.Username, &body, &fileName, &filePath, &fileMimetype, &msg.CreatedAt); err != nil {
			return nil, err
		}
		msg.Text = body.String
		if fileName.Valid {
			msg.File = &FileRef{
				Filename: fileName.String,
				Path:     filePath.String,
				Mimetype: fileMimetype.String,
			}
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// DeleteMessage marks a single message as deleted. It reports false when the
// id matched nothing, including messages that were already deleted.
func (s *Store) DeleteMessage(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE messages SET deleted = 1 WHERE id = ? AND deleted = 0`, id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// DeleteAllMessages marks every message as deleted. Idempotent.
func (s *Store) DeleteAllMessages(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `UPDATE messages SET deleted = 1 WHERE deleted = 0`)
	return err
}

// RecordUploadedFile stores the audit entry for one uploaded binary.
func (s *Store) RecordUploadedFile(ctx context.Context, file UploadedFile) error {
	if file.ID == "" {
		file.ID = uuid.NewString()
	}
	if file.CreatedAt.IsZero() {
		file.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO uploaded_files(id, filename, path, mimetype, size_bytes, created_at) VALUES(?, ?, ?, ?, ?, ?)`,
		file.ID, file.Filename, file.Path, file.Mimetype, file.SizeBytes, file.CreatedAt)
	if err != nil {
		return fmt.Errorf("record uploaded file: %w", err)
	}
	return nil
}

// ListUploadedFiles returns the audit records in insertion order.
func (s *Store) ListUploadedFiles(ctx context.Context) ([]UploadedFile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, filename, path, mimetype, size_bytes, created_at
		FROM uploaded_files
		ORDER BY rowid ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []UploadedFile
	for rows.Next() {
		var f UploadedFile
		if err := rows.Scan(&f.ID, &f.Filename, &f.Path, &f.Mimetype, &f.SizeBytes, &f.CreatedAt); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}
