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

const propertyColumns = `id, casero_id, direccion_completa, referencia, inquilino_nombre, inquilino_email,
              inquilino_telefono, fecha_inicio_alquiler, activa, created_at`

// ListProperties returns the landlord's properties, newest first.
func (s *Store) ListProperties(ctx context.Context, landlordID uuid.UUID) ([]model.Property, error) {
	defer monitoring.ObserveRead(TableProperties, time.Now())

	query := `SELECT ` + propertyColumns + `
              FROM propiedades WHERE casero_id = $1 ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query, landlordID)
	if err != nil {
		return nil, fmt.Errorf("list properties for %s: %w", landlordID, err)
	}
	defer rows.Close()

	properties := []model.Property{}
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		properties = append(properties, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate properties: %w", err)
	}
	return properties, nil
}

// GetProperty returns one of the landlord's properties, or ErrNotFound when
// it does not exist or belongs to someone else.
func (s *Store) GetProperty(ctx context.Context, landlordID, id uuid.UUID) (*model.Property, error) {
	defer monitoring.ObserveRead(TableProperties, time.Now())

	query := `SELECT ` + propertyColumns + `
              FROM propiedades WHERE id = $1 AND casero_id = $2`
	p, err := scanProperty(s.db.QueryRowContext(ctx, query, id, landlordID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListTenantEmails returns the non-empty tenant emails linked to the
// landlord's properties.
func (s *Store) ListTenantEmails(ctx context.Context, landlordID uuid.UUID) ([]string, error) {
	defer monitoring.ObserveRead(TableProperties, time.Now())

	query := `SELECT inquilino_email FROM propiedades WHERE casero_id = $1`
	rows, err := s.db.QueryContext(ctx, query, landlordID)
	if err != nil {
		return nil, fmt.Errorf("list tenant emails for %s: %w", landlordID, err)
	}
	defer rows.Close()

	emails := []string{}
	for rows.Next() {
		var email sql.NullString
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("scan tenant email: %w", err)
		}
		if email.String != "" {
			emails = append(emails, email.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tenant emails: %w", err)
	}
	return emails, nil
}

// CountProperties returns how many properties the landlord owns.
func (s *Store) CountProperties(ctx context.Context, landlordID uuid.UUID) (int, error) {
	defer monitoring.ObserveRead(TableProperties, time.Now())

	var count int
	query := `SELECT COUNT(*) FROM propiedades WHERE casero_id = $1`
	if err := s.db.QueryRowContext(ctx, query, landlordID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count properties for %s: %w", landlordID, err)
	}
	return count, nil
}

// CreateProperty inserts a property owned by p.LandlordID.
func (s *Store) CreateProperty(ctx context.Context, p *model.Property) (err error) {
	defer func() { monitoring.RecordWrite(TableProperties, err) }()

	query := `INSERT INTO propiedades (id, casero_id, direccion_completa, referencia, inquilino_nombre, inquilino_email,
              inquilino_telefono, fecha_inicio_alquiler, activa)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
              RETURNING created_at`
	p.ID = uuid.New()
	err = s.db.QueryRowContext(ctx, query, p.ID, p.LandlordID, p.Address, p.Reference, p.TenantName,
		p.TenantEmail, p.TenantPhone, p.LeaseStart, p.Active).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert property: %w", err)
	}
	return nil
}

// UpdateProperty replaces the editable fields of a property the landlord owns.
func (s *Store) UpdateProperty(ctx context.Context, p *model.Property) (err error) {
	defer func() { monitoring.RecordWrite(TableProperties, err) }()

	query := `UPDATE propiedades SET direccion_completa = $3, referencia = $4, inquilino_nombre = $5,
              inquilino_email = $6, inquilino_telefono = $7, fecha_inicio_alquiler = $8, activa = $9
              WHERE id = $1 AND casero_id = $2`
	res, err := s.db.ExecContext(ctx, query, p.ID, p.LandlordID, p.Address, p.Reference, p.TenantName,
		p.TenantEmail, p.TenantPhone, p.LeaseStart, p.Active)
	if err != nil {
		return fmt.Errorf("update property %s: %w", p.ID, err)
	}
	return expectOne(res)
}

// DeleteProperty removes a property the landlord owns.
func (s *Store) DeleteProperty(ctx context.Context, landlordID, id uuid.UUID) (err error) {
	defer func() { monitoring.RecordWrite(TableProperties, err) }()

	res, err := s.db.ExecContext(ctx, `DELETE FROM propiedades WHERE id = $1 AND casero_id = $2`, id, landlordID)
	if err != nil {
		return fmt.Errorf("delete property %s: %w", id, err)
	}
	return expectOne(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProperty(row rowScanner) (*model.Property, error) {
	p := &model.Property{}
	err := row.Scan(&p.ID, &p.LandlordID, &p.Address, &p.Reference, &p.TenantName, &p.TenantEmail,
		&p.TenantPhone, &p.LeaseStart, &p.Active, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan property: %w", err)
	}
	return p, nil
}
