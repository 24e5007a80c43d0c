package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 1500*time.Millisecond, cfg.ResetDelay)
	assert.Equal(t, "host=localhost port=5432 user=admin password=securepassword dbname=housezen sslmode=disable", cfg.DSN())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("HOUSEZEN_APP", AppLandlord)
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("HOUSEZEN_RESET_DELAY", "2s")
	t.Setenv("HOUSEZEN_PUBLIC_URL", "https://landlord.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, AppLandlord, cfg.App)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, 2*time.Second, cfg.ResetDelay)
	assert.Equal(t, "https://landlord.example.com/auth/callback", cfg.RedirectURL())
	assert.Equal(t, "housezen:landlord", cfg.Namespace())
}

func TestLoad_InvalidNumber(t *testing.T) {
	t.Setenv("DB_PORT", "five")

	_, err := Load()
	assert.ErrorContains(t, err, "DB_PORT")
}

func TestValidate(t *testing.T) {
	cfg := &Config{App: "admin", HTTPPort: 8080, OpsPort: 8081, OIDCClientID: "id"}
	assert.Error(t, cfg.Validate())

	cfg.App = AppTenant
	assert.NoError(t, cfg.Validate())

	cfg.OIDCClientID = ""
	assert.Error(t, cfg.Validate())
}
