package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validSettings returns settings that pass validation, for tests to break.
func validSettings() *Settings {
	s := &Settings{}
	s.Server.Host = "0.0.0.0"
	s.Server.Port = "8080"
	s.Output.SQLite.Enabled = true
	s.Output.SQLite.Path = "occurrence.db"
	s.WoRMS.Enabled = true
	s.WoRMS.Endpoint = "https://www.marinespecies.org/rest"
	s.WoRMS.TimeoutSec = 10
	s.WoRMS.BatchSize = 50
	s.Analysis.CoordinatePrecision = 1
	s.Analysis.PreviewRows = 10
	return s
}

func TestValidateSettingsAcceptsDefaults(t *testing.T) {
	require.NoError(t, ValidateSettings(validSettings()))
}

func TestValidateSettingsRejectsBadPort(t *testing.T) {
	s := validSettings()
	s.Server.Port = "not-a-port"
	err := ValidateSettings(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a number")

	s.Server.Port = "70000"
	assert.Error(t, ValidateSettings(s))
}

func TestValidateSettingsRequiresStateStore(t *testing.T) {
	s := validSettings()
	s.Output.SQLite.Enabled = false
	err := ValidateSettings(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no state store enabled")
}

func TestValidateSettingsRequiresSQLitePath(t *testing.T) {
	s := validSettings()
	s.Output.SQLite.Path = ""
	assert.Error(t, ValidateSettings(s))
}

func TestValidateSettingsWormsChecks(t *testing.T) {
	s := validSettings()
	s.WoRMS.BatchSize = 0
	assert.Error(t, ValidateSettings(s))

	s = validSettings()
	s.WoRMS.Enabled = false
	s.WoRMS.BatchSize = 0
	assert.NoError(t, ValidateSettings(s), "worms settings are ignored when disabled")
}
