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

	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "postgres", cfg.StorageDriver)
	assert.Equal(t, 10*time.Second, cfg.StorageTimeout)
	assert.Equal(t, 30*time.Second, cfg.OutletLockTTL)
	assert.Equal(t, "SES", cfg.SessionNumberPrefix)
	assert.False(t, cfg.ZReportRequireClosingCount)
	assert.Equal(t, "Asia/Kolkata", cfg.Location().String())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("STORAGE_TIMEOUT", "3s")
	t.Setenv("SESSION_NUMBER_PREFIX", "BLR")
	t.Setenv("ZREPORT_REQUIRE_CLOSING_COUNT", "true")
	t.Setenv("REPORT_RECIPIENTS", " owner@example.com, ,accounts@example.com ")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.StorageDriver)
	assert.Equal(t, 3*time.Second, cfg.StorageTimeout)
	assert.Equal(t, "BLR", cfg.SessionNumberPrefix)
	assert.True(t, cfg.ZReportRequireClosingCount)
	assert.Equal(t, []string{"owner@example.com", "accounts@example.com"}, cfg.Recipients())
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "mongo")
	_, err := Load()
	assert.ErrorContains(t, err, "STORAGE_DRIVER")
}

func TestLoad_RejectsUnknownTimezone(t *testing.T) {
	t.Setenv("BUSINESS_TIMEZONE", "Mars/Olympus")
	_, err := Load()
	assert.ErrorContains(t, err, "BUSINESS_TIMEZONE")
}

func TestLoad_EventsTopicNeedsProject(t *testing.T) {
	t.Setenv("REPORT_EVENTS_TOPIC", "day-end-reports")
	_, err := Load()
	assert.ErrorContains(t, err, "GCP_PROJECT_ID")

	t.Setenv("GCP_PROJECT_ID", "restopos-prod")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "day-end-reports", cfg.ReportEventsTopic)
}
