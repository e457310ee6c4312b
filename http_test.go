package auth_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/hungerlink/go-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", auth.NewValidationError("name", "Name is required", nil), fiber.StatusBadRequest},
		{"duplicate", auth.NewDuplicateIdentityError(auth.IdentityPhone), fiber.StatusBadRequest},
		{"invalid credentials", auth.ErrInvalidCredentials, fiber.StatusUnauthorized},
		{"deactivated", auth.ErrAccountDeactivated, fiber.StatusUnauthorized},
		{"locked", auth.ErrAccountLocked, fiber.StatusLocked},
		{"expired token", auth.ErrTokenExpired, fiber.StatusUnauthorized},
		{"not found", auth.ErrIdentityNotFound, fiber.StatusNotFound},
		{"wrapped not found", goerrors.Wrap(auth.ErrIdentityNotFound, goerrors.CategoryInternal, "lookup"), fiber.StatusNotFound},
		{"fiber error", fiber.NewError(fiber.StatusRequestEntityTooLarge, "too big"), fiber.StatusRequestEntityTooLarge},
		{"authz category", goerrors.New("nope", goerrors.CategoryAuthz), fiber.StatusForbidden},
		{"conflict category", goerrors.New("taken", goerrors.CategoryConflict), fiber.StatusConflict},
		{"plain error", errors.New("boom"), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.HTTPStatus(tt.err))
		})
	}
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "User not found", auth.PublicMessage(auth.ErrIdentityNotFound))
	assert.Equal(t, "Validation failed", auth.PublicMessage(auth.NewValidationError("name", "x", nil)))
	assert.Equal(t, "User with this phone number already exists", auth.PublicMessage(auth.NewDuplicateIdentityError(auth.IdentityPhone)))
	assert.Equal(t, "too big", auth.PublicMessage(fiber.NewError(413, "too big")))
	assert.Empty(t, auth.PublicMessage(nil))
}

func TestErrorResponderHidesInternalErrors(t *testing.T) {
	for _, debug := range []bool{false, true} {
		app := fiber.New()
		responder := auth.NewErrorResponder(debug, nil)
		auth.NewFiberRouter(app).Get("/", func(ctx router.Context) error {
			return responder.Respond(ctx, errors.New("sql: database is closed"), "Failed to fetch profile")
		})

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)

		out := auth.APIResponse{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		resp.Body.Close()

		assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
		assert.False(t, out.Success)
		assert.Equal(t, "Failed to fetch profile", out.Message)
		if debug {
			assert.Equal(t, "sql: database is closed", out.Stack)
		} else {
			assert.Empty(t, out.Stack)
		}
	}
}

func TestErrorResponderHandlerCoversFiberMiddleware(t *testing.T) {
	responder := auth.NewErrorResponder(false, nil)
	app := fiber.New(fiber.Config{ErrorHandler: responder.Handler()})
	app.Use(func(c *fiber.Ctx) error {
		return auth.NewValidationError("certificate", "Only PDF, JPG and PNG files are allowed", nil)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/auth/register", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	out := auth.APIResponse{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Validation failed", out.Message)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, "certificate", out.Errors[0].Field)
}

func TestFormatValidationErrors(t *testing.T) {
	msg := auth.RegisterAccountMessage{Name: "A", EmailOrPhone: "asha@example.com", Password: "Secret123", Role: "donor", Location: "Pune"}
	err := msg.Validate()
	require.Error(t, err)

	fields := auth.FormatValidationErrors(err, nil)
	require.Len(t, fields, 1)
	assert.Equal(t, "name", fields[0].Field)
	assert.Equal(t, "Name must be between 2 and 50 characters", fields[0].Message)

	assert.Nil(t, auth.FormatValidationErrors(nil, nil))
	assert.Nil(t, auth.AsValidationError(nil, nil))

	plain := auth.FormatValidationErrors(errors.New("bad"), nil)
	require.Len(t, plain, 1)
	assert.Equal(t, "form", plain[0].Field)
}
