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

// GetProfile returns the tenant profile for userID, or nil when none exists.
func (s *Store) GetProfile(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	defer monitoring.ObserveRead(TableProfiles, time.Now())

	query := `SELECT id, direccion, telefono FROM perfiles WHERE id = $1`
	profile := &model.Profile{}
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&profile.ID, &profile.Address, &profile.Phone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile %s: %w", userID, err)
	}
	return profile, nil
}

// UpsertProfile creates or replaces the tenant profile row.
func (s *Store) UpsertProfile(ctx context.Context, profile *model.Profile) (err error) {
	defer func() { monitoring.RecordWrite(TableProfiles, err) }()

	query := `INSERT INTO perfiles (id, direccion, telefono)
              VALUES ($1, $2, $3)
              ON CONFLICT (id) DO UPDATE SET direccion = EXCLUDED.direccion, telefono = EXCLUDED.telefono`
	if _, err = s.db.ExecContext(ctx, query, profile.ID, profile.Address, profile.Phone); err != nil {
		return fmt.Errorf("upsert profile %s: %w", profile.ID, err)
	}
	return nil
}

// GetLandlordProfile returns the landlord profile for userID, or nil when none
// exists yet.
func (s *Store) GetLandlordProfile(ctx context.Context, userID uuid.UUID) (*model.LandlordProfile, error) {
	defer monitoring.ObserveRead(TableLandlords, time.Now())

	query := `SELECT id, COALESCE(nombre_completo, ''), dni_cif, COALESCE(email, ''), telefono_principal,
              telefono_emergencia, direccion
              FROM caseros WHERE id = $1`
	p := &model.LandlordProfile{}
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&p.ID, &p.FullName, &p.TaxID, &p.Email, &p.Phone,
		&p.EmergencyPhone, &p.Address)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get landlord profile %s: %w", userID, err)
	}
	return p, nil
}

// UpsertLandlordProfile creates or replaces the landlord profile row.
func (s *Store) UpsertLandlordProfile(ctx context.Context, p *model.LandlordProfile) (err error) {
	defer func() { monitoring.RecordWrite(TableLandlords, err) }()

	query := `INSERT INTO caseros (id, nombre_completo, dni_cif, email, telefono_principal, telefono_emergencia, direccion)
              VALUES ($1, $2, $3, $4, $5, $6, $7)
              ON CONFLICT (id) DO UPDATE SET nombre_completo = EXCLUDED.nombre_completo, dni_cif = EXCLUDED.dni_cif,
              email = EXCLUDED.email, telefono_principal = EXCLUDED.telefono_principal,
              telefono_emergencia = EXCLUDED.telefono_emergencia, direccion = EXCLUDED.direccion`
	_, err = s.db.ExecContext(ctx, query, p.ID, p.FullName, p.TaxID, p.Email, p.Phone, p.EmergencyPhone, p.Address)
	if err != nil {
		return fmt.Errorf("upsert landlord profile %s: %w", p.ID, err)
	}
	return nil
}
