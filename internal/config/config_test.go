package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	path := writeConfig(t, "server:\n  port: 8080\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "test-secret", cfg.JWT.Secret)
	assert.Equal(t, 7, cfg.JWT.AdminExpiryHours)
	assert.True(t, cfg.Payment.RejectCancelled)
	assert.True(t, cfg.Dashboard.AdminIncludeCancelled)
	assert.False(t, cfg.Dashboard.DoctorIncludeCancelled)
	assert.Equal(t, 5, cfg.Dashboard.LatestLimit)
	assert.Equal(t, time.Minute, cfg.Cache.DoctorListTTL)
	assert.Equal(t, "stub", cfg.Email.Provider)
}

func TestLoadConfigSecretsOverrideFile(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("ADMIN_EMAIL", "admin@clinic.test")
	t.Setenv("ADMIN_PASSWORD", "hunter22")
	path := writeConfig(t, `
jwt:
  secret: from-file
admin:
  email: someone@else.test
database:
  driver: memory
dashboard:
  doctor_include_cancelled: true
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, "admin@clinic.test", cfg.Admin.Email)
	assert.Equal(t, "hunter22", cfg.Admin.Password)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.True(t, cfg.Dashboard.DoctorIncludeCancelled)
}

func TestLoadConfigRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	path := writeConfig(t, "database:\n  driver: memory\n")

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	cfg := &Config{
		JWT:      JWTConfig{Secret: "x"},
		Database: DatabaseConfig{Driver: "mongo"},
		Email:    EmailConfig{Provider: "stub"},
	}
	assert.Error(t, cfg.Validate())
}

func TestDatabaseDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "clinic", SSLMode: "disable"}

	assert.Equal(t, "host=db port=5432 user=u password=p dbname=clinic sslmode=disable", c.DSN())
	assert.Equal(t, "postgres://u:p@db:5432/clinic?sslmode=disable", c.URL())
}
