package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/teresa-solution/housezen-portal/internal/model"
	"github.com/teresa-solution/housezen-portal/internal/monitoring"
)

const technicianColumns = `id, casero_id, nombre, especialidad, telefono, email, activo, created_at`

// ListTechnicians returns the landlord's technicians, newest first.
func (s *Store) ListTechnicians(ctx context.Context, landlordID uuid.UUID) ([]model.Technician, error) {
	defer monitoring.ObserveRead(TableTechnicians, time.Now())

	query := `SELECT ` + technicianColumns + `
              FROM tecnicos WHERE casero_id = $1 ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query, landlordID)
	if err != nil {
		return nil, fmt.Errorf("list technicians for %s: %w", landlordID, err)
	}
	defer rows.Close()

	technicians := []model.Technician{}
	for rows.Next() {
		t, err := scanTechnician(rows)
		if err != nil {
			return nil, err
		}
		technicians = append(technicians, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate technicians: %w", err)
	}
	return technicians, nil
}

// GetTechnician returns one of the landlord's technicians, or ErrNotFound.
func (s *Store) GetTechnician(ctx context.Context, landlordID, id uuid.UUID) (*model.Technician, error) {
	defer monitoring.ObserveRead(TableTechnicians, time.Now())

	query := `SELECT ` + technicianColumns + `
              FROM tecnicos WHERE id = $1 AND casero_id = $2`
	t, err := scanTechnician(s.db.QueryRowContext(ctx, query, id, landlordID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// CreateTechnician inserts a technician owned by t.LandlordID.
func (s *Store) CreateTechnician(ctx context.Context, t *model.Technician) (err error) {
	defer func() { monitoring.RecordWrite(TableTechnicians, err) }()

	query := `INSERT INTO tecnicos (id, casero_id, nombre, especialidad, telefono, email, activo)
              VALUES ($1, $2, $3, $4, $5, $6, $7)
              RETURNING created_at`
	t.ID = uuid.New()
	err = s.db.QueryRowContext(ctx, query, t.ID, t.LandlordID, t.Name, t.Specialty, t.Phone, t.Email,
		t.Available).Scan(&t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert technician: %w", err)
	}
	return nil
}

// UpdateTechnician replaces the editable fields of a technician the landlord
// owns.
func (s *Store) UpdateTechnician(ctx context.Context, t *model.Technician) (err error) {
	defer func() { monitoring.RecordWrite(TableTechnicians, err) }()

	query := `UPDATE tecnicos SET nombre = $3, especialidad = $4, telefono = $5, email = $6, activo = $7
              WHERE id = $1 AND casero_id = $2`
	res, err := s.db.ExecContext(ctx, query, t.ID, t.LandlordID, t.Name, t.Specialty, t.Phone, t.Email, t.Available)
	if err != nil {
		return fmt.Errorf("update technician %s: %w", t.ID, err)
	}
	return expectOne(res)
}

// DeleteTechnician removes a technician the landlord owns.
func (s *Store) DeleteTechnician(ctx context.Context, landlordID, id uuid.UUID) (err error) {
	defer func() { monitoring.RecordWrite(TableTechnicians, err) }()

	res, err := s.db.ExecContext(ctx, `DELETE FROM tecnicos WHERE id = $1 AND casero_id = $2`, id, landlordID)
	if err != nil {
		return fmt.Errorf("delete technician %s: %w", id, err)
	}
	return expectOne(res)
}

func scanTechnician(row rowScanner) (*model.Technician, error) {
	t := &model.Technician{}
	err := row.Scan(&t.ID, &t.LandlordID, &t.Name, &t.Specialty, &t.Phone, &t.Email, &t.Available, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan technician: %w", err)
	}
	return t, nil
}
