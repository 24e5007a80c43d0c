package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// ErrNotFound is returned when no row owned by the caller matched a record
// lookup, update or delete.
var ErrNotFound = errors.New("record not found")

// Backend table names.
const (
	TableProfiles    = "perfiles"
	TableLandlords   = "caseros"
	TableIncidents   = "incidencias"
	TableProperties  = "propiedades"
	TableTechnicians = "tecnicos"
)

// Store is the table client for the backend database. Every query is
// filtered by the identity passed in by the caller.
type Store struct {
	db *sql.DB
}

// New opens the backend database and checks connectivity.
func New(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open backend database: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping backend database: %w", err)
	}
	return &Store{db: db}, nil
}

// NewWithDB wraps an already opened database handle.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the backend database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// expectOne turns a zero-row write into ErrNotFound.
func expectOne(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
