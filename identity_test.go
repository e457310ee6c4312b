package auth_test

import (
	"testing"

	"github.com/hungerlink/go-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeIdentity(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantKind auth.IdentityKind
		want     string
	}{
		{name: "email is lower cased", input: "  Asha@Example.COM ", wantKind: auth.IdentityEmail, want: "asha@example.com"},
		{name: "dotted email", input: "asha.k@mail.example.org", wantKind: auth.IdentityEmail, want: "asha.k@mail.example.org"},
		{name: "local phone gets region prefix", input: "9876543210", wantKind: auth.IdentityPhone, want: "+919876543210"},
		{name: "e164 phone kept", input: "+919876543210", wantKind: auth.IdentityPhone, want: "+919876543210"},
		{name: "unparseable phone kept as entered", input: "12345", wantKind: auth.IdentityPhone, want: "12345"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := auth.NormalizeIdentity(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, tt.want, got.Value)
		})
	}
}

func TestNormalizeIdentityRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "   ", "not an identity", "asha@", "+0123"} {
		_, err := auth.NormalizeIdentity(input)
		require.Error(t, err, input)
		assert.Equal(t, auth.TextCodeValidationFailed, auth.TextCodeOf(err), input)
	}
}

func TestNormalizeIdentityValueFallsBack(t *testing.T) {
	assert.Equal(t, "asha@example.com", auth.NormalizeIdentityValue("ASHA@example.com"))
	assert.Equal(t, "nobody", auth.NormalizeIdentityValue(" nobody "))
}

func TestIdentityKindLabel(t *testing.T) {
	assert.Equal(t, "email", auth.IdentityEmail.Label())
	assert.Equal(t, "phone number", auth.IdentityPhone.Label())
}

func TestParseLocation(t *testing.T) {
	t.Run("plain address", func(t *testing.T) {
		loc := auth.ParseLocation(" Pune ")
		assert.Equal(t, "Pune", loc.Address)
		assert.False(t, loc.HasCoordinates())
	})

	t.Run("gps suffix", func(t *testing.T) {
		loc := auth.ParseLocation("Kothrud, Pune GPS: 18.5074, 73.8077")
		assert.Equal(t, "Kothrud, Pune GPS: 18.5074, 73.8077", loc.Address)
		assert.InDelta(t, 18.5074, loc.Latitude, 1e-9)
		assert.InDelta(t, 73.8077, loc.Longitude, 1e-9)
		assert.True(t, loc.HasCoordinates())
	})

	t.Run("out of range coordinates are dropped", func(t *testing.T) {
		loc := auth.ParseLocation("Somewhere GPS: 123.0, 200.5")
		assert.False(t, loc.HasCoordinates())
	})

	t.Run("geojson order in view", func(t *testing.T) {
		view := auth.NewLocationView(auth.ParseLocation("GPS: 18.5, 73.8"))
		assert.Equal(t, "Point", view.Coordinates.Type)
		assert.Equal(t, [2]float64{73.8, 18.5}, view.Coordinates.Coordinates)
	})
}

func TestParseAccountRole(t *testing.T) {
	role, ok := auth.ParseAccountRole(" NGO ")
	assert.True(t, ok)
	assert.Equal(t, auth.RoleNGO, role)

	_, ok = auth.ParseAccountRole("volunteer")
	assert.False(t, ok)

	assert.True(t, auth.RoleRecipient.CanClaimDonations())
	assert.True(t, auth.RoleNGO.CanClaimDonations())
	assert.False(t, auth.RoleDonor.CanClaimDonations())
}
