package auth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/hungerlink/go-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService_IssueAndVerify(t *testing.T) {
	clk := newClock()
	ts := auth.NewTokenService([]byte("secret-key"), 24*7, "hungerlink", jwt.ClaimStrings{"hungerlink"}, nil).
		WithClock(clk.Now)

	id := uuid.New()
	token, err := ts.Issue(id, auth.RoleNGO)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ts.Verify(token)
	require.NoError(t, err)

	got, err := claims.AccountID()
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.Equal(t, auth.RoleNGO, claims.Role())
	assert.Equal(t, id.String(), claims.Subject())
	assert.WithinDuration(t, clk.Now().Add(7*24*time.Hour), claims.Expires(), 0)
	assert.WithinDuration(t, clk.Now(), claims.IssuedAt(), 0)

	accountID, err := ts.AccountID(token)
	require.NoError(t, err)
	assert.Equal(t, id, accountID)
}

func TestTokenService_Expired(t *testing.T) {
	clk := newClock()
	ts := auth.NewTokenService([]byte("secret-key"), 1, "hungerlink", nil, nil).WithClock(clk.Now)

	token, err := ts.Issue(uuid.New(), auth.RoleDonor)
	require.NoError(t, err)

	clk.Advance(time.Hour + time.Second)

	_, err = ts.Verify(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrTokenExpired)
	assert.True(t, auth.IsTokenExpiredError(err))
	assert.Equal(t, auth.TextCodeTokenExpired, auth.TextCodeOf(err))
}

func TestTokenService_Rejects(t *testing.T) {
	ts := auth.NewTokenService([]byte("secret-key"), 24, "hungerlink", jwt.ClaimStrings{"hungerlink"}, nil)
	other := auth.NewTokenService([]byte("another-key"), 24, "hungerlink", jwt.ClaimStrings{"hungerlink"}, nil)
	foreignIssuer := auth.NewTokenService([]byte("secret-key"), 24, "someone-else", jwt.ClaimStrings{"hungerlink"}, nil)

	forged, err := other.Issue(uuid.New(), auth.RoleDonor)
	require.NoError(t, err)

	wrongIssuer, err := foreignIssuer.Issue(uuid.New(), auth.RoleDonor)
	require.NoError(t, err)

	valid, err := ts.Issue(uuid.New(), auth.RoleDonor)
	require.NoError(t, err)
	parts := strings.Split(valid, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &auth.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			Issuer:    "hungerlink",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"empty":        "",
		"garbage":      "not-a-token",
		"other key":    forged,
		"wrong issuer": wrongIssuer,
		"tampered":     tampered,
		"alg none":     unsigned,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ts.Verify(token)
			require.Error(t, err)
			assert.ErrorIs(t, err, auth.ErrTokenInvalid)
			assert.True(t, auth.IsMalformedError(err))
		})
	}
}

func TestTokenService_IssueRequiresAccount(t *testing.T) {
	ts := auth.NewTokenService([]byte("secret-key"), 24, "", nil, nil)
	_, err := ts.Issue(uuid.Nil, auth.RoleDonor)
	require.Error(t, err)
}

func TestMultiTokenVerifier(t *testing.T) {
	current := auth.NewTokenService([]byte("current-key"), 24, "hungerlink", nil, nil)
	retired := auth.NewTokenService([]byte("retired-key"), 24, "hungerlink", nil, nil)
	unknown := auth.NewTokenService([]byte("unknown-key"), 24, "hungerlink", nil, nil)

	chain := auth.NewMultiTokenVerifier(current, nil, retired)

	id := uuid.New()
	oldToken, err := retired.Issue(id, auth.RoleRecipient)
	require.NoError(t, err)

	claims, err := chain.Verify(oldToken)
	require.NoError(t, err)
	assert.Equal(t, id.String(), claims.UserID())

	newToken, err := current.Issue(id, auth.RoleRecipient)
	require.NoError(t, err)
	_, err = chain.Verify(newToken)
	require.NoError(t, err)

	strange, err := unknown.Issue(id, auth.RoleRecipient)
	require.NoError(t, err)
	_, err = chain.Verify(strange)
	assert.ErrorIs(t, err, auth.ErrTokenInvalid)

	_, err = auth.NewMultiTokenVerifier().Verify(newToken)
	assert.ErrorIs(t, err, auth.ErrTokenInvalid)
}

func TestMultiTokenVerifierStopsOnExpiry(t *testing.T) {
	clk := newClock()
	current := auth.NewTokenService([]byte("current-key"), 1, "hungerlink", nil, nil).WithClock(clk.Now)
	calls := 0
	fallback := auth.TokenVerifierFunc(func(string) (*auth.JWTClaims, error) {
		calls++
		return nil, auth.ErrTokenInvalid
	})

	token, err := current.Issue(uuid.New(), auth.RoleDonor)
	require.NoError(t, err)
	clk.Advance(2 * time.Hour)

	_, err = auth.NewMultiTokenVerifier(current, fallback).Verify(token)
	assert.ErrorIs(t, err, auth.ErrTokenExpired)
	assert.Zero(t, calls)
}
