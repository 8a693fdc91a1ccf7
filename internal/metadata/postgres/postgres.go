// Package postgres provides a PostgreSQL-backed record store with metrics.
// It is the employee and document source for the navigator snapshot and
// also holds PIN credentials and portal settings.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/fruitsalade/docportal/internal/logging"
	"github.com/fruitsalade/docportal/internal/metrics"
	"github.com/fruitsalade/docportal/internal/records"
	"github.com/fruitsalade/docportal/pkg/models"
)

// Store is a PostgreSQL record store.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL store.
func New(databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *Store) DB() *sql.DB {
	return s.db
}

// UpdateConnectionMetrics updates the database connection metrics.
func (s *Store) UpdateConnectionMetrics() {
	stats := s.db.Stats()
	metrics.SetDBConnectionsOpen(stats.OpenConnections)
}

// Migrate runs the *.up.sql files in migrationsDir in name order. The
// files are written to be re-runnable.
func (s *Store) Migrate(migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.up.sql"))
	if err != nil {
		return fmt.Errorf("glob migrations: %w", err)
	}
	sort.Strings(files)

	for _, f := range files {
		logging.Info("running migration", zap.String("file", filepath.Base(f)))
		content, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", f, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("exec migration %s: %w", f, err)
		}
	}

	return nil
}

// FetchEmployees returns every employee that is not deleted.
func (s *Store) FetchEmployees(ctx context.Context) ([]models.Employee, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("fetch_employees", time.Since(start)) }()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, department, location, status
		 FROM employees
		 WHERE deleted_at IS NULL AND status <> $1
		 ORDER BY name, id`, models.StatusDeleted)
	if err != nil {
		return nil, fmt.Errorf("query employees: %w", err)
	}
	defer rows.Close()

	var out []models.Employee
	for rows.Next() {
		var e models.Employee
		if err := rows.Scan(&e.ID, &e.Name, &e.Email, &e.Department, &e.Location, &e.Status); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// FetchDocuments returns every document that is not deleted.
func (s *Store) FetchDocuments(ctx context.Context) ([]models.Document, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("fetch_documents", time.Since(start)) }()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, COALESCE(owner_id, ''), name, type, upload_date, file_type, size, storage_key, url
		 FROM documents
		 WHERE deleted_at IS NULL
		 ORDER BY upload_date DESC NULLS LAST, id`)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		var d models.Document
		var uploaded sql.NullTime
		if err := rows.Scan(&d.ID, &d.OwnerID, &d.Name, &d.Type, &uploaded,
			&d.FileType, &d.Size, &d.StorageKey, &d.URL); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		if uploaded.Valid {
			d.UploadDate = uploaded.Time
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// DeleteDocument soft-deletes a document.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	return s.SoftDeleteDocument(ctx, id, "")
}

// SoftDeleteDocument marks a document deleted, recording who did it.
func (s *Store) SoftDeleteDocument(ctx context.Context, id, deletedBy string) error {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("soft_delete_document", time.Since(start)) }()

	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET deleted_at = NOW(), deleted_by = NULLIF($2, '')
		 WHERE id = $1 AND deleted_at IS NULL`,
		id, deletedBy)
	if err != nil {
		return fmt.Errorf("soft delete document: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("soft delete document %s: %w", id, records.ErrNotFound)
	}
	logging.Debug("soft-deleted document", zap.String("id", id), zap.String("deleted_by", deletedBy))
	return nil
}

// UpsertEmployee inserts or updates an employee.
func (s *Store) UpsertEmployee(ctx context.Context, e models.Employee, isAdmin bool) error {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("upsert_employee", time.Since(start)) }()

	status := e.Status
	if status == "" {
		status = models.StatusActive
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO employees (id, name, email, department, location, status, is_admin)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name, email = EXCLUDED.email, department = EXCLUDED.department,
		   location = EXCLUDED.location, status = EXCLUDED.status, is_admin = EXCLUDED.is_admin,
		   deleted_at = NULL`,
		e.ID, e.Name, e.Email, e.Department, e.Location, status, isAdmin)
	if err != nil {
		return fmt.Errorf("upsert employee: %w", err)
	}
	return nil
}

// InsertDocument stores a new document record.
func (s *Store) InsertDocument(ctx context.Context, d models.Document) error {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("insert_document", time.Since(start)) }()

	var uploaded sql.NullTime
	if !d.UploadDate.IsZero() {
		uploaded = sql.NullTime{Time: d.UploadDate, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, owner_id, name, type, upload_date, file_type, size, storage_key, url)
		 VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9)`,
		d.ID, d.OwnerID, d.Name, d.Type, uploaded, d.FileType, d.Size, d.StorageKey, d.URL)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}
