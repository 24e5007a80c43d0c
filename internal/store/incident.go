package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/teresa-solution/housezen-portal/internal/model"
	"github.com/teresa-solution/housezen-portal/internal/monitoring"
)

const incidentColumns = `id, titulo, descripcion, categoria, urgencia, direccion, telefono, estado,
              user_id, nombre_inquilino, email_inquilino, created_at`

// ListIncidentsByUser returns the incidents reported by userID, newest first.
func (s *Store) ListIncidentsByUser(ctx context.Context, userID uuid.UUID) ([]model.Incident, error) {
	defer monitoring.ObserveRead(TableIncidents, time.Now())

	query := `SELECT ` + incidentColumns + `
              FROM incidencias WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list incidents for user %s: %w", userID, err)
	}
	return scanIncidents(rows)
}

// ListIncidentsByTenantEmails returns the incidents reported by any of the
// given tenant emails, newest first.
func (s *Store) ListIncidentsByTenantEmails(ctx context.Context, emails []string) ([]model.Incident, error) {
	if len(emails) == 0 {
		return []model.Incident{}, nil
	}
	defer monitoring.ObserveRead(TableIncidents, time.Now())

	query := `SELECT ` + incidentColumns + `
              FROM incidencias WHERE email_inquilino = ANY($1) ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(emails))
	if err != nil {
		return nil, fmt.Errorf("list incidents for %d tenants: %w", len(emails), err)
	}
	return scanIncidents(rows)
}

// CreateIncident inserts a tenant's incident and fills in the backend
// generated id, state and timestamp.
func (s *Store) CreateIncident(ctx context.Context, inc *model.Incident) (err error) {
	defer func() { monitoring.RecordWrite(TableIncidents, err) }()

	query := `INSERT INTO incidencias (titulo, descripcion, categoria, urgencia, direccion, telefono,
              user_id, nombre_inquilino, email_inquilino)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
              RETURNING id, COALESCE(estado, ''), created_at`
	err = s.db.QueryRowContext(ctx, query,
		inc.Title, inc.Description, inc.Category, string(inc.Urgency), inc.Address, inc.Phone,
		inc.UserID, inc.TenantName, inc.TenantEmail,
	).Scan(&inc.ID, &inc.Status, &inc.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert incident: %w", err)
	}
	return nil
}

func scanIncidents(rows *sql.Rows) ([]model.Incident, error) {
	defer rows.Close()

	incidents := []model.Incident{}
	for rows.Next() {
		var (
			inc                                               model.Incident
			description, address, phone, status, name, email sql.NullString
			urgency                                           string
		)
		if err := rows.Scan(&inc.ID, &inc.Title, &description, &inc.Category, &urgency, &address, &phone, &status,
			&inc.UserID, &name, &email, &inc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		inc.Urgency = model.Urgency(urgency)
		inc.Description = description.String
		inc.Address = address.String
		inc.Phone = phone.String
		inc.Status = status.String
		inc.TenantName = name.String
		inc.TenantEmail = email.String
		incidents = append(incidents, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incidents: %w", err)
	}
	return incidents, nil
}
