package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"visitd/pkg/log"
	"visitd/pkg/models"
	"visitd/pkg/store"

	"github.com/lib/pq"
)

const (
	maxOpenConns    = 25
	maxIdleConns    = 5
	connMaxLifetime = 5 * time.Minute

	// undefinedTable is the PostgreSQL error code for a missing relation.
	undefinedTable = "42P01"
)

// Store is the relational visit backend on top of database/sql and lib/pq.
// A write against a missing visits table triggers one-shot schema creation
// and exactly one retry of the write.
type Store struct {
	dsn string

	mu sync.Mutex
	db *sql.DB
}

// New creates a store for the given connection string. No connection is
// made until Connect.
func New(dsn string) *Store {
	return &Store{dsn: dsn}
}

// NewWithDB wraps an existing database handle. Used by tests.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Connect opens the connection pool on first use and verifies it with a
// ping. Later calls ping the existing pool.
func (s *Store) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return s.db.PingContext(ctx)
	}

	db, err := sql.Open("postgres", s.dsn)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping postgres: %w", err)
	}

	s.db = db
	return nil
}

// Close releases the connection pool.
func (s *Store) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) database() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil, store.ErrNotConnected
	}
	return s.db, nil
}

// InsertVisit persists one visit. When the visits table is missing the
// schema is created and the insert retried exactly once; a second failure
// is returned to the caller and not retried again.
func (s *Store) InsertVisit(ctx context.Context, visit models.VisitRecord) error {
	db, err := s.database()
	if err != nil {
		return err
	}

	err = insertVisit(ctx, db, visit)
	if err == nil {
		return nil
	}
	if !isUndefinedTable(err) {
		return fmt.Errorf("insert visit: %w", err)
	}

	log.Warn().Msg("Visits table missing, creating schema")
	if ddlErr := s.EnsureSchema(ctx); ddlErr != nil {
		return fmt.Errorf("create visits schema: %w", ddlErr)
	}
	if err := insertVisit(ctx, db, visit); err != nil {
		return fmt.Errorf("insert visit after schema creation: %w", err)
	}
	return nil
}

// EnsureSchema creates the visits table and indexes if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	db, err := s.database()
	if err != nil {
		return err
	}

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// CountVisits returns the total number of persisted visits.
func (s *Store) CountVisits(ctx context.Context) (int64, error) {
	db, err := s.database()
	if err != nil {
		return 0, err
	}

	var count int64
	if err := db.QueryRowContext(ctx, countVisitsQuery).Scan(&count); err != nil {
		return 0, fmt.Errorf("count visits: %w", err)
	}
	return count, nil
}

// RecentVisits returns up to limit visits, most recent first.
func (s *Store) RecentVisits(ctx context.Context, limit int) ([]models.VisitRecord, error) {
	db, err := s.database()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, recentVisitsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent visits: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var visits []models.VisitRecord
	for rows.Next() {
		var visit models.VisitRecord
		var userAgent, url, referer sql.NullString
		var method, acceptLanguage, acceptEncoding sql.NullString
		err := rows.Scan(&visit.ID, &visit.Timestamp, &visit.IP,
			&userAgent, &url, &referer, &method, &acceptLanguage, &acceptEncoding)
		if err != nil {
			return nil, fmt.Errorf("scan visit: %w", err)
		}
		visit.UserAgent = userAgent.String
		visit.URL = url.String
		visit.Referer = referer.String
		visit.Method = method.String
		visit.AcceptLanguage = acceptLanguage.String
		visit.AcceptEncoding = acceptEncoding.String
		visits = append(visits, visit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate visits: %w", err)
	}
	return visits, nil
}

// Info returns the public table names and the visit count. A missing
// visits table reads as zero visits rather than an error.
func (s *Store) Info(ctx context.Context) (*models.BackendInfo, error) {
	db, err := s.database()
	if err != nil {
		return nil, err
	}

	var database string
	if err := db.QueryRowContext(ctx, `SELECT current_database()`).Scan(&database); err != nil {
		return nil, fmt.Errorf("current database: %w", err)
	}

	rows, err := db.QueryContext(ctx, listTablesQuery)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}

	info := &models.BackendInfo{
		Database: database,
		Tables:   tables,
	}
	if count, err := s.CountVisits(ctx); err == nil {
		info.VisitCount = count
	}
	return info, nil
}

func insertVisit(ctx context.Context, db *sql.DB, visit models.VisitRecord) error {
	_, err := db.ExecContext(ctx, insertVisitQuery,
		visit.ID, visit.Timestamp, visit.IP, visit.UserAgent, visit.URL,
		visit.Referer, visit.Method, visit.AcceptLanguage, visit.AcceptEncoding)
	return err
}

func isUndefinedTable(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == undefinedTable
}
