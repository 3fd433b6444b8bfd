package qrtoken

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManagerValidation(t *testing.T) {
	t.Parallel()

	_, err := NewManager("", "fuelpass", time.Hour)
	assert.Error(t, err)

	_, err = NewManager("secret", "fuelpass", 0)
	assert.Error(t, err)
}

func TestIssueVerifyRoundtrip(t *testing.T) {
	t.Parallel()

	mgr, err := NewManager("test-secret", "fuelpass", time.Hour)
	require.NoError(t, err)

	stationID := uuid.New()
	raw, err := mgr.Issue(stationID, "dispenser-03", time.Now())
	require.NoError(t, err)

	claims, err := mgr.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, stationID, claims.StationID)
	assert.Equal(t, "dispenser-03", claims.DispenserID)
	assert.NotEmpty(t, claims.Nonce)
}

func TestIssueGeneratesUniqueTokens(t *testing.T) {
	t.Parallel()

	mgr, err := NewManager("test-secret", "fuelpass", time.Hour)
	require.NoError(t, err)

	stationID := uuid.New()
	now := time.Now()
	first, err := mgr.Issue(stationID, "d1", now)
	require.NoError(t, err)
	second, err := mgr.Issue(stationID, "d1", now)
	require.NoError(t, err)

	// Nonce keeps tokens for the same station/dispenser distinct.
	assert.NotEqual(t, first, second)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	t.Parallel()

	issuer, err := NewManager("secret-a", "fuelpass", time.Hour)
	require.NoError(t, err)
	verifier, err := NewManager("secret-b", "fuelpass", time.Hour)
	require.NoError(t, err)

	raw, err := issuer.Issue(uuid.New(), "d1", time.Now())
	require.NoError(t, err)

	_, err = verifier.Verify(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	t.Parallel()

	issuer, err := NewManager("secret", "someone-else", time.Hour)
	require.NoError(t, err)
	verifier, err := NewManager("secret", "fuelpass", time.Hour)
	require.NoError(t, err)

	raw, err := issuer.Issue(uuid.New(), "d1", time.Now())
	require.NoError(t, err)

	_, err = verifier.Verify(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	t.Parallel()

	mgr, err := NewManager("secret", "fuelpass", time.Minute)
	require.NoError(t, err)

	raw, err := mgr.Issue(uuid.New(), "d1", time.Now().Add(-2*time.Hour))
	require.NoError(t, err)

	_, err = mgr.Verify(raw)
	require.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	t.Parallel()

	mgr, err := NewManager("secret", "fuelpass", time.Hour)
	require.NoError(t, err)

	if _, err := mgr.Verify("not-a-jwt"); err == nil {
		t.Fatal("expected error for malformed token")
	}
}
