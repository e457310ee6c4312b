package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	auth "github.com/hungerlink/go-auth"
	"github.com/hungerlink/go-auth/config"
	"github.com/hungerlink/go-auth/repository"
	"github.com/hungerlink/go-auth/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type envelope struct {
	Success  bool              `json:"success"`
	Message  string            `json:"message"`
	Token    string            `json:"token"`
	User     *auth.AccountView `json:"user"`
	Donation *struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"donation"`
}

func newServer(t *testing.T, edit func(*config.BaseConfig)) *server.Server {
	t.Helper()

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Auth.SigningKey = "server-test-signing-key-32-chars!!"
	cfg.Uploads.Dir = t.TempDir()
	if edit != nil {
		edit(cfg)
	}
	require.NoError(t, cfg.Validate())

	ctx := context.Background()
	repos, err := repository.Open(ctx, auth.DriverSQLite, ":memory:", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repos.Close(ctx) })
	require.NoError(t, repos.Migrate(ctx))

	return server.New(server.Options{
		Config:           cfg,
		Repos:            repos,
		Hasher:           auth.NewBcryptHasher(bcrypt.MinCost),
		DisableAccessLog: true,
	})
}

func call(t *testing.T, s *server.Server, method, path string, body any, token string) (*http.Response, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := s.App.Test(req, -1)
	require.NoError(t, err)

	out := envelope{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp, out
}

func TestServer_HealthAndNotFound(t *testing.T) {
	s := newServer(t, nil)

	resp, out := call(t, s, http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, out.Success)
	assert.Equal(t, "HungerLink API is running", out.Message)
	assert.NotEmpty(t, resp.Header.Get("X-Content-Type-Options"), "security headers are set")

	resp, out = call(t, s, http.MethodGet, "/api/nothing-here", nil, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "API endpoint not found", out.Message)

	resp, out = call(t, s, http.MethodGet, "/elsewhere", nil, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Route not found", out.Message)
}

func TestServer_CORS(t *testing.T) {
	s := newServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set(fiber.HeaderOrigin, "http://localhost:5173")
	req.Header.Set(fiber.HeaderAccessControlRequestMethod, http.MethodPost)

	resp, err := s.App.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "http://localhost:5173", resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
	assert.Equal(t, "true", resp.Header.Get(fiber.HeaderAccessControlAllowCredentials))
}

func TestServer_AccountAndDonationFlow(t *testing.T) {
	s := newServer(t, nil)

	resp, out := call(t, s, http.MethodPost, "/api/auth/register", fiber.Map{
		"name":         "Asha",
		"emailOrPhone": "asha@example.com",
		"password":     "Secret123",
		"role":         "donor",
		"location":     "Pune",
	}, "")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, out.Message)
	donorToken := out.Token

	resp, out = call(t, s, http.MethodPost, "/api/auth/register", fiber.Map{
		"name":         "Ravi",
		"emailOrPhone": "9876543210",
		"password":     "Secret123",
		"role":         "recipient",
		"location":     "Pune",
	}, "")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, out.Message)

	resp, out = call(t, s, http.MethodPost, "/api/auth/login", fiber.Map{
		"emailOrPhone": "9876543210",
		"password":     "Secret123",
	}, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode, out.Message)
	recipientToken := out.Token
	require.NotEmpty(t, recipientToken)

	resp, out = call(t, s, http.MethodPost, "/api/donations", fiber.Map{
		"foodType":   "Biryani",
		"quantity":   "15 plates",
		"expiryTime": "2026-03-01T22:00:00Z",
		"location":   "Kothrud",
	}, donorToken)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, out.Message)
	require.NotNil(t, out.Donation)
	id := out.Donation.ID

	resp, out = call(t, s, http.MethodPatch, "/api/donations/"+id, fiber.Map{"status": "claimed"}, recipientToken)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, out.Message)
	assert.Equal(t, "claimed", out.Donation.Status)

	resp, _ = call(t, s, http.MethodPatch, "/api/donations/"+id, fiber.Map{"status": "claimed"}, recipientToken)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, out = call(t, s, http.MethodGet, "/api/auth/profile", nil, recipientToken)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, out.Message)
}

func TestServer_LockoutUsesConfiguredThreshold(t *testing.T) {
	s := newServer(t, func(cfg *config.BaseConfig) {
		cfg.Auth.MaxLoginAttempts = 2
		cfg.Auth.LockoutDuration = time.Minute
	})

	resp, out := call(t, s, http.MethodPost, "/api/auth/register", fiber.Map{
		"name":         "Asha",
		"emailOrPhone": "asha@example.com",
		"password":     "Secret123",
		"role":         "donor",
		"location":     "Pune",
	}, "")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, out.Message)

	wrong := fiber.Map{"emailOrPhone": "asha@example.com", "password": "Wrong1234"}
	resp, _ = call(t, s, http.MethodPost, "/api/auth/login", wrong, "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, _ = call(t, s, http.MethodPost, "/api/auth/login", wrong, "")
	assert.Equal(t, fiber.StatusLocked, resp.StatusCode)
}

func TestServer_AcceptsTokensFromPreviousKey(t *testing.T) {
	const oldKey = "previous-signing-key-32-characters"

	s := newServer(t, func(cfg *config.BaseConfig) {
		cfg.Auth.PreviousKeys = []string{oldKey}
	})

	resp, out := call(t, s, http.MethodPost, "/api/auth/register", fiber.Map{
		"name":         "Asha",
		"emailOrPhone": "asha@example.com",
		"password":     "Secret123",
		"role":         "donor",
		"location":     "Pune",
	}, "")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, out.Message)

	current, err := s.Tokens.Verify(out.Token)
	require.NoError(t, err)
	id, err := current.AccountID()
	require.NoError(t, err)

	old := auth.NewTokenService([]byte(oldKey), 1, "hungerlink", []string{"hungerlink"}, nil)
	token, err := old.Issue(id, auth.RoleDonor)
	require.NoError(t, err)

	resp, out = call(t, s, http.MethodGet, "/api/auth/profile", nil, token)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode, out.Message)

	stranger := auth.NewTokenService([]byte("some-other-signing-key-32-chars!!!"), 1, "hungerlink", []string{"hungerlink"}, nil)
	token, err = stranger.Issue(id, auth.RoleDonor)
	require.NoError(t, err)

	resp, _ = call(t, s, http.MethodGet, "/api/auth/profile", nil, token)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
