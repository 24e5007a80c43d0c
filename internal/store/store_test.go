package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teresa-solution/housezen-portal/internal/model"
)

func setupTestStore(t *testing.T) (*Store, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	teardown := func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	}
	return NewWithDB(db), mock, teardown
}

var incidentRowColumns = []string{"id", "titulo", "descripcion", "categoria", "urgencia", "direccion", "telefono",
	"estado", "user_id", "nombre_inquilino", "email_inquilino", "created_at"}

func TestStore_ListIncidentsByUser(t *testing.T) {
	s, mock, teardown := setupTestStore(t)
	defer teardown()

	userID := uuid.New()
	newer := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	older := newer.Add(-48 * time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("FROM incidencias WHERE user_id = $1 ORDER BY created_at DESC")).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows(incidentRowColumns).
			AddRow(2, "Fuga", "Gotea el grifo", "fontaneria", "alta", "Calle Mayor 1", "600000000", "Reportada",
				userID.String(), "Ana Ruiz", "ana@example.com", newer).
			AddRow(1, "Enchufe", nil, "electricidad", "baja", nil, nil, nil,
				userID.String(), nil, nil, older))

	incidents, err := s.ListIncidentsByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, incidents, 2)
	assert.Equal(t, int64(2), incidents[0].ID)
	assert.Equal(t, model.UrgencyHigh, incidents[0].Urgency)
	assert.Equal(t, "Reportada", incidents[0].Status)
	assert.Equal(t, userID, incidents[0].UserID)
	assert.Equal(t, "", incidents[1].Status)
	assert.Equal(t, "Enviada", incidents[1].DisplayStatus())
}

func TestStore_ListIncidentsByUser_Empty(t *testing.T) {
	s, mock, teardown := setupTestStore(t)
	defer teardown()

	mock.ExpectQuery("FROM incidencias").WillReturnRows(sqlmock.NewRows(incidentRowColumns))

	incidents, err := s.ListIncidentsByUser(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.NotNil(t, incidents)
	assert.Empty(t, incidents)
}

func TestStore_ListIncidentsByTenantEmails(t *testing.T) {
	s, mock, teardown := setupTestStore(t)
	defer teardown()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE email_inquilino = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(incidentRowColumns).
			AddRow(7, "Puerta", "No cierra", "cerrajeria", "media", "Av. Sol 3", "611111111", "En proceso",
				uuid.New().String(), "Luis", "luis@example.com", time.Now()))

	incidents, err := s.ListIncidentsByTenantEmails(context.Background(), []string{"luis@example.com", "eva@example.com"})
	require.NoError(t, err)
	require.Len(t, incidents, 1)
	assert.Equal(t, "luis@example.com", incidents[0].TenantEmail)
}

func TestStore_ListIncidentsByTenantEmails_NoEmails(t *testing.T) {
	s, _, teardown := setupTestStore(t)
	defer teardown()

	incidents, err := s.ListIncidentsByTenantEmails(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, incidents)
}

func TestStore_CreateIncident(t *testing.T) {
	s, mock, teardown := setupTestStore(t)
	defer teardown()

	created := time.Now().UTC()
	inc := &model.Incident{
		Title:       "Fuga",
		Description: "Gotea el grifo",
		Category:    "fontaneria",
		Urgency:     model.UrgencyHigh,
		Address:     "Calle Mayor 1",
		Phone:       "600000000",
		UserID:      uuid.New(),
		TenantName:  "Ana Ruiz",
		TenantEmail: "ana@example.com",
	}
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO incidencias")).
		WithArgs(inc.Title, inc.Description, inc.Category, "alta", inc.Address, inc.Phone, inc.UserID,
			inc.TenantName, inc.TenantEmail).
		WillReturnRows(sqlmock.NewRows([]string{"id", "estado", "created_at"}).AddRow(42, "Reportada", created))

	require.NoError(t, s.CreateIncident(context.Background(), inc))
	assert.Equal(t, int64(42), inc.ID)
	assert.Equal(t, "Reportada", inc.Status)
	assert.Equal(t, created, inc.CreatedAt)
}

func TestStore_CreateIncident_Error(t *testing.T) {
	s, mock, teardown := setupTestStore(t)
	defer teardown()

	mock.ExpectQuery("INSERT INTO incidencias").WillReturnError(errors.New("connection reset"))

	err := s.CreateIncident(context.Background(), &model.Incident{Urgency: model.UrgencyLow})
	assert.ErrorContains(t, err, "connection reset")
}

func TestStore_GetProfile(t *testing.T) {
	s, mock, teardown := setupTestStore(t)
	defer teardown()

	userID := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("FROM perfiles WHERE id = $1")).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "direccion", "telefono"}).AddRow(userID.String(), "Calle Mayor 1", nil))

	profile, err := s.GetProfile(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "Calle Mayor 1", model.Value(profile.Address))
	assert.Nil(t, profile.Phone)
	assert.False(t, profile.Complete())
}

func TestStore_GetProfile_NotFound(t *testing.T) {
	s, mock, teardown := setupTestStore(t)
	defer teardown()

	mock.ExpectQuery("FROM perfiles").WillReturnError(sql.ErrNoRows)

	profile, err := s.GetProfile(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, profile)
}

func TestStore_UpsertProfile(t *testing.T) {
	s, mock, teardown := setupTestStore(t)
	defer teardown()

	profile := &model.Profile{ID: uuid.New(), Address: model.Optional("Calle Mayor 1"), Phone: model.Optional("600000000")}
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (id) DO UPDATE")).
		WithArgs(profile.ID, "Calle Mayor 1", "600000000").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, s.UpsertProfile(context.Background(), profile))
}

func TestStore_UpsertLandlordProfile(t *testing.T) {
	s, mock, teardown := setupTestStore(t)
	defer teardown()

	p := &model.LandlordProfile{ID: uuid.New(), FullName: "Marta Gil", Email: "marta@example.com", Phone: model.Optional("622")}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO caseros")).
		WithArgs(p.ID, "Marta Gil", nil, "marta@example.com", "622", nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, s.UpsertLandlordProfile(context.Background(), p))
}

var propertyRowColumns = []string{"id", "casero_id", "direccion_completa", "referencia", "inquilino_nombre",
	"inquilino_email", "inquilino_telefono", "fecha_inicio_alquiler", "activa", "created_at"}

func TestStore_ListProperties(t *testing.T) {
	s, mock, teardown := setupTestStore(t)
	defer teardown()

	landlordID := uuid.New()
	lease := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM propiedades WHERE casero_id = $1 ORDER BY created_at DESC")).
		WithArgs(landlordID).
		WillReturnRows(sqlmock.NewRows(propertyRowColumns).
			AddRow(uuid.New().String(), landlordID.String(), "Calle Mayor 1", "A-1", "Ana", "ana@example.com", nil, lease, true, time.Now()).
			AddRow(uuid.New().String(), landlordID.String(), "Av. Sol 3", nil, nil, nil, nil, nil, false, time.Now()))

	properties, err := s.ListProperties(context.Background(), landlordID)
	require.NoError(t, err)
	require.Len(t, properties, 2)
	assert.True(t, properties[0].HasTenant())
	require.NotNil(t, properties[0].LeaseStart)
	assert.Equal(t, lease, *properties[0].LeaseStart)
	assert.False(t, properties[1].HasTenant())
	assert.Nil(t, properties[1].LeaseStart)
}

func TestStore_GetProperty_OtherOwner(t *testing.T) {
	s, mock, teardown := setupTestStore(t)
	defer teardown()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND casero_id = $2")).
		WillReturnRows(sqlmock.NewRows(propertyRowColumns))

	p, err := s.GetProperty(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, p)
}

func TestStore_ListTenantEmails(t *testing.T) {
	s, mock, teardown := setupTestStore(t)
	defer teardown()

	mock.ExpectQuery("SELECT inquilino_email FROM propiedades").
		WillReturnRows(sqlmock.NewRows([]string{"inquilino_email"}).
			AddRow("ana@example.com").
			AddRow(nil).
			AddRow("").
			AddRow("luis@example.com"))

	emails, err := s.ListTenantEmails(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, []string{"ana@example.com", "luis@example.com"}, emails)
}

func TestStore_CreateProperty(t *testing.T) {
	s, mock, teardown := setupTestStore(t)
	defer teardown()

	p := &model.Property{LandlordID: uuid.New(), Address: "Calle Mayor 1", Active: true}
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO propiedades")).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	require.NoError(t, s.CreateProperty(context.Background(), p))
	assert.NotEqual(t, uuid.Nil, p.ID)
	assert.False(t, p.CreatedAt.IsZero())
}

func TestStore_UpdateProperty_NotOwned(t *testing.T) {
	s, mock, teardown := setupTestStore(t)
	defer teardown()

	p := &model.Property{ID: uuid.New(), LandlordID: uuid.New(), Address: "Calle Mayor 1"}
	mock.ExpectExec(regexp.QuoteMeta("UPDATE propiedades SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.UpdateProperty(context.Background(), p)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_DeleteProperty(t *testing.T) {
	s, mock, teardown := setupTestStore(t)
	defer teardown()

	landlordID, id := uuid.New(), uuid.New()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM propiedades WHERE id = $1 AND casero_id = $2")).
		WithArgs(id, landlordID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, s.DeleteProperty(context.Background(), landlordID, id))
}

var technicianRowColumns = []string{"id", "casero_id", "nombre", "especialidad", "telefono", "email", "activo",
	"created_at"}

func TestStore_GetTechnician_NoMatch(t *testing.T) {
	s, mock, teardown := setupTestStore(t)
	defer teardown()

	mock.ExpectQuery(regexp.QuoteMeta("FROM tecnicos WHERE id = $1 AND casero_id = $2")).
		WillReturnRows(sqlmock.NewRows(technicianRowColumns))

	tech, err := s.GetTechnician(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, tech)
}

func TestStore_Technicians(t *testing.T) {
	s, mock, teardown := setupTestStore(t)
	defer teardown()

	landlordID := uuid.New()
	columns := technicianRowColumns
	mock.ExpectQuery(regexp.QuoteMeta("FROM tecnicos WHERE casero_id = $1 ORDER BY created_at DESC")).
		WithArgs(landlordID).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(uuid.New().String(), landlordID.String(), "Pedro", "Fontanero", "633", nil, true, time.Now()))

	technicians, err := s.ListTechnicians(context.Background(), landlordID)
	require.NoError(t, err)
	require.Len(t, technicians, 1)
	assert.Equal(t, "Fontanero", model.Value(technicians[0].Specialty))
	assert.Nil(t, technicians[0].Email)

	tech := &model.Technician{LandlordID: landlordID, Name: "Pedro", Available: true}
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO tecnicos")).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	require.NoError(t, s.CreateTechnician(context.Background(), tech))

	tech.Available = false
	mock.ExpectExec(regexp.QuoteMeta("UPDATE tecnicos SET")).
		WithArgs(tech.ID, landlordID, "Pedro", nil, nil, nil, false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.UpdateTechnician(context.Background(), tech))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tecnicos")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, s.DeleteTechnician(context.Background(), landlordID, tech.ID), ErrNotFound)
}
