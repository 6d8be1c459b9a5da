package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	dErrors "github.com/Dibyendu78/Brain-O-Math/pkg/domainerrors"
)

func TestCoordinatorTokenRoundTrip(t *testing.T) {
	svc := NewService("test-signing-key", time.Hour)

	signed, err := svc.IssueCoordinatorToken("coord-1", "a@b.com", "Springfield High", "REG20251234")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(signed)
	require.NoError(t, err)
	require.Equal(t, "coord-1", claims.CoordinatorID)
	require.Equal(t, "REG20251234", claims.RegistrationID)
	require.False(t, claims.Admin)
}

func TestAdminToken(t *testing.T) {
	svc := NewService("test-signing-key", time.Hour)

	signed, err := svc.IssueAdminToken("admin@brainomath.com")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(signed)
	require.NoError(t, err)
	require.True(t, claims.Admin)
	require.Empty(t, claims.CoordinatorID)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	svc := NewService("test-signing-key", -time.Minute)

	signed, err := svc.IssueAdminToken("admin@brainomath.com")
	require.NoError(t, err)

	_, err = svc.ValidateToken(signed)
	require.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateTokenRejectsWrongKey(t *testing.T) {
	signed, err := NewService("key-a", time.Hour).IssueAdminToken("admin@brainomath.com")
	require.NoError(t, err)

	_, err = NewService("key-b", time.Hour).ValidateToken(signed)
	require.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
