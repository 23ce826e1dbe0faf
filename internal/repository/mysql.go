package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const createDocumentsTable = `
CREATE TABLE IF NOT EXISTS documents (
	name       VARCHAR(64) NOT NULL PRIMARY KEY,
	body       LONGBLOB    NOT NULL,
	updated_at TIMESTAMP   NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
)`

// MySQLStore хранит документы строками таблицы documents (name -> body)
type MySQLStore struct {
	DB *sqlx.DB
}

func NewMySQLStore(db *sqlx.DB) *MySQLStore {
	return &MySQLStore{DB: db}
}

var _ BlobStore = (*MySQLStore)(nil)

// EnsureSchema создаёт таблицу documents, если её нет
func (s *MySQLStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, createDocumentsTable); err != nil {
		return fmt.Errorf("create documents table: %w", err)
	}
	return nil
}

func (s *MySQLStore) Read(ctx context.Context, key string) ([]byte, error) {
	var body []byte
	err := s.DB.GetContext(ctx, &body, `SELECT body FROM documents WHERE name = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query document %s: %w", key, err)
	}
	return body, nil
}

func (s *MySQLStore) Write(ctx context.Context, key string, data []byte) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO documents (name, body) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE body = VALUES(body)`,
		key, data,
	)
	if err != nil {
		return fmt.Errorf("upsert document %s: %w", key, err)
	}
	return nil
}

func (s *MySQLStore) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}
