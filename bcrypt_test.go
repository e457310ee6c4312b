package auth_test

import (
	"strings"
	"testing"

	"github.com/hungerlink/go-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_HashPassword(t *testing.T) {
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)

	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{
			name:     "Valid password",
			password: "Secret123",
		},
		{
			name:     "Empty password",
			password: "",
			wantErr:  auth.ErrNoEmptyString,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := hasher.HashPassword(tt.password)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, hash)
			assert.NotEqual(t, tt.password, hash)
			assert.NoError(t, hasher.ComparePasswordAndHash(tt.password, hash))
		})
	}
}

func TestBcryptHasher_SaltedPerCall(t *testing.T) {
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)

	first, err := hasher.HashPassword("Secret123")
	require.NoError(t, err)
	second, err := hasher.HashPassword("Secret123")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, hasher.Verify("Secret123", first))
	assert.True(t, hasher.Verify("Secret123", second))
}

func TestBcryptHasher_Verify(t *testing.T) {
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	hash, err := hasher.HashPassword("Secret123")
	require.NoError(t, err)

	tests := []struct {
		name     string
		password string
		hash     string
		want     bool
	}{
		{name: "Matching password", password: "Secret123", hash: hash, want: true},
		{name: "Wrong password", password: "secret123", hash: hash, want: false},
		{name: "Empty password", password: "", hash: hash, want: false},
		{name: "Malformed hash", password: "Secret123", hash: "not-a-bcrypt-hash", want: false},
		{name: "Empty hash", password: "Secret123", hash: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.Equal(t, tt.want, hasher.Verify(tt.password, tt.hash))
			})
		})
	}
}

func TestBcryptHasher_CompareMismatch(t *testing.T) {
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	hash, err := hasher.HashPassword("Secret123")
	require.NoError(t, err)

	err = hasher.ComparePasswordAndHash("Wrong123", hash)
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	err = hasher.ComparePasswordAndHash("Secret123", "invalidhash")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestNewBcryptHasher_CostFallback(t *testing.T) {
	assert.Equal(t, bcrypt.MinCost, auth.NewBcryptHasher(bcrypt.MinCost).Cost())

	fallback := auth.NewBcryptHasher(0).Cost()
	assert.GreaterOrEqual(t, fallback, bcrypt.DefaultCost)

	assert.Equal(t, fallback, auth.NewBcryptHasher(bcrypt.MaxCost+1).Cost())
}

func TestBcryptHasher_LongPassword(t *testing.T) {
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	_, err := hasher.HashPassword(strings.Repeat("A1b", 30))
	// bcrypt rejects inputs over 72 bytes
	assert.Error(t, err)
}
