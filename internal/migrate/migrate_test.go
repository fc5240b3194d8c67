package migrate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/accountauth/migrations"
)

func TestEmbeddedMigrationsAreOrdered(t *testing.T) {
	names, err := Files()
	require.NoError(t, err)
	require.Equal(t, []string{"00001_email_verification.sql", "00002_accounts.sql"}, names)
}

func TestEmbeddedMigrationsHaveGooseMarkers(t *testing.T) {
	names, err := Files()
	require.NoError(t, err)
	for _, name := range names {
		body, err := migrations.FS.ReadFile(name)
		require.NoError(t, err)
		require.True(t, strings.Contains(string(body), "-- +goose Up"), name)
		require.True(t, strings.Contains(string(body), "-- +goose Down"), name)
	}
}

func TestEmailVerificationKeyIsUnique(t *testing.T) {
	body, err := migrations.FS.ReadFile("00001_email_verification.sql")
	require.NoError(t, err)
	require.Contains(t, string(body), "UNIQUE (email)")
}
