package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/nvoss/zotassist/internal/models"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	UseInMemory bool
}

type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(config DatabaseConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %v", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %v", err)
	}

	storage := &PostgresStorage{db: db}

	// Initialize database schema
	if err := storage.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %v", err)
	}

	return storage, nil
}

func (s *PostgresStorage) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %v", err)
	}

	_, err = s.db.Exec(string(migrationSQL))
	if err != nil {
		return fmt.Errorf("error executing migrations: %v", err)
	}

	return nil
}

func (s *PostgresStorage) GetFileID(itemKey string) (string, error) {
	var fileID string
	err := s.db.QueryRow(`SELECT file_id FROM uploaded_files WHERE item_key = $1`, itemKey).Scan(&fileID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("error querying uploaded file: %v", err)
	}
	return fileID, nil
}

func (s *PostgresStorage) SaveFileID(itemKey, fileID string) error {
	query := `
		INSERT INTO uploaded_files (item_key, file_id)
		VALUES ($1, $2)
		ON CONFLICT (item_key) DO UPDATE SET file_id = EXCLUDED.file_id`

	if _, err := s.db.Exec(query, itemKey, fileID); err != nil {
		return fmt.Errorf("error saving uploaded file: %v", err)
	}
	return nil
}

func (s *PostgresStorage) GetHandle(name string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM session_handles WHERE name = $1`, name).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("error querying session handle: %v", err)
	}
	return value, nil
}

func (s *PostgresStorage) SaveHandle(name, value string) error {
	query := `
		INSERT INTO session_handles (name, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`

	if _, err := s.db.Exec(query, name, value, time.Now()); err != nil {
		return fmt.Errorf("error saving session handle: %v", err)
	}
	return nil
}

func (s *PostgresStorage) DeleteHandle(name string) error {
	if _, err := s.db.Exec(`DELETE FROM session_handles WHERE name = $1`, name); err != nil {
		return fmt.Errorf("error deleting session handle: %v", err)
	}
	return nil
}

func (s *PostgresStorage) GetThread(assistantID string) (*models.ThreadHandle, error) {
	query := `
		SELECT assistant_id, thread_id, created_at, last_used_at
		FROM assistant_threads
		WHERE assistant_id = $1`

	thread := &models.ThreadHandle{}
	err := s.db.QueryRow(query, assistantID).Scan(
		&thread.AssistantID,
		&thread.ThreadID,
		&thread.CreatedAt,
		&thread.LastUsedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying thread: %v", err)
	}
	return thread, nil
}

func (s *PostgresStorage) SaveThread(handle models.ThreadHandle) error {
	query := `
		INSERT INTO assistant_threads (assistant_id, thread_id, created_at, last_used_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (assistant_id) DO UPDATE
		SET thread_id = EXCLUDED.thread_id,
		    created_at = EXCLUDED.created_at,
		    last_used_at = EXCLUDED.last_used_at`

	_, err := s.db.Exec(query, handle.AssistantID, handle.ThreadID, handle.CreatedAt, handle.LastUsedAt)
	if err != nil {
		return fmt.Errorf("error saving thread: %v", err)
	}
	return nil
}

func (s *PostgresStorage) UpdateThreadLastUsed(assistantID string, at time.Time) error {
	_, err := s.db.Exec(`UPDATE assistant_threads SET last_used_at = $1 WHERE assistant_id = $2`, at, assistantID)
	if err != nil {
		return fmt.Errorf("error updating thread last used: %v", err)
	}
	return nil
}

func (s *PostgresStorage) DeleteThread(assistantID string) error {
	if _, err := s.db.Exec(`DELETE FROM assistant_threads WHERE assistant_id = $1`, assistantID); err != nil {
		return fmt.Errorf("error deleting thread: %v", err)
	}
	return nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
