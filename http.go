package auth

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/hungerlink/go-auth/middleware/jwtware"
)

const (
	msgNoToken          = "Access denied. No token provided."
	msgForbidden        = "Access denied. Insufficient permissions."
	msgUserNotFound     = "User not found"
	msgInternal         = "Internal server error"
	msgEndpointNotFound = "API endpoint not found"
)

// APIResponse is the JSON envelope every endpoint answers with
type APIResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	User    *AccountView `json:"user,omitempty"`
	Token   string       `json:"token,omitempty"`
	Data    any          `json:"data,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
	Path    string       `json:"path,omitempty"`
	Stack   string       `json:"stack,omitempty"`
}

// HTTPStatus maps an error to the status code we answer with
func HTTPStatus(err error) int {
	switch TextCodeOf(err) {
	case TextCodeValidationFailed, TextCodeDuplicateIdentity, TextCodeEmptyPassword:
		return fiber.StatusBadRequest
	case TextCodeInvalidCreds, TextCodeAccountDeactivated, TextCodeTokenInvalid, TextCodeTokenExpired:
		return fiber.StatusUnauthorized
	case TextCodeAccountLocked:
		return fiber.StatusLocked
	case TextCodeIdentityNotFound:
		return fiber.StatusNotFound
	}

	var ferr *fiber.Error
	if errors.As(err, &ferr) {
		return ferr.Code
	}

	var gerr *goerrors.Error
	if errors.As(err, &gerr) {
		switch gerr.Category {
		case goerrors.CategoryValidation, goerrors.CategoryBadInput:
			return fiber.StatusBadRequest
		case goerrors.CategoryAuth:
			return fiber.StatusUnauthorized
		case goerrors.CategoryAuthz:
			return fiber.StatusForbidden
		case goerrors.CategoryNotFound:
			return fiber.StatusNotFound
		case goerrors.CategoryConflict:
			return fiber.StatusConflict
		case goerrors.CategoryRateLimit:
			return fiber.StatusTooManyRequests
		}
	}

	return fiber.StatusInternalServerError
}

// ErrorResponder writes errors as APIResponse envelopes
type ErrorResponder struct {
	Debug  bool
	Logger Logger
}

// NewErrorResponder returns a responder. debug adds error detail to 500s.
func NewErrorResponder(debug bool, logger Logger) *ErrorResponder {
	if logger == nil {
		logger = defLogger{}
	}
	return &ErrorResponder{Debug: debug, Logger: logger}
}

// Respond writes err. fallback is the public message for unexpected failures.
func (r *ErrorResponder) Respond(ctx router.Context, err error, fallback string) error {
	status, res := r.envelope(ctx.OriginalURL(), err, fallback)
	return ctx.JSON(status, res)
}

// Handler adapts the responder to fiber.Config.ErrorHandler, for errors
// raised by plain fiber middleware
func (r *ErrorResponder) Handler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status, res := r.envelope(c.OriginalURL(), err, "")
		return c.Status(status).JSON(res)
	}
}

func (r *ErrorResponder) envelope(path string, err error, fallback string) (int, APIResponse) {
	status := HTTPStatus(err)
	res := APIResponse{Success: false}

	if status >= fiber.StatusInternalServerError {
		if fallback == "" {
			fallback = msgInternal
		}
		res.Message = fallback

		var gerr *goerrors.Error
		if errors.As(err, &gerr) {
			r.Logger.Error("request failed",
				"path", path,
				"error", err,
				"category", gerr.Category,
				"details", print.MaybePrettyJSON(gerr.Metadata),
			)
		} else {
			r.Logger.Error("request failed", "path", path, "error", err)
		}

		if r.Debug {
			res.Stack = err.Error()
		}
		return status, res
	}

	res.Message = PublicMessage(err)

	var verr *ValidationError
	if errors.As(err, &verr) {
		res.Errors = verr.Fields
	}

	r.Logger.Debug("request rejected", "path", path, "status", status, "text_code", TextCodeOf(err))

	return status, res
}

// PublicMessage returns the message safe to show a client for a 4xx error
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}

	if HasTextCode(err, TextCodeIdentityNotFound) {
		return msgUserNotFound
	}

	var verr *ValidationError
	if errors.As(err, &verr) {
		return ErrValidationFailed.Message
	}

	var dup *DuplicateIdentityError
	if errors.As(err, &dup) {
		return dup.Error()
	}

	var ferr *fiber.Error
	if errors.As(err, &ferr) {
		return ferr.Message
	}

	var gerr *goerrors.Error
	if errors.As(err, &gerr) {
		return gerr.Message
	}

	return err.Error()
}

// RouteAuthenticator guards routes with bearer tokens
type RouteAuthenticator struct {
	verifier         TokenVerifier
	cfg              Config
	Logger           Logger
	AuthErrorHandler router.ErrorHandler
}

func NewHTTPAuthenticator(verifier TokenVerifier, cfg Config) *RouteAuthenticator {
	a := &RouteAuthenticator{
		verifier: verifier,
		cfg:      cfg,
		Logger:   defLogger{},
	}
	a.AuthErrorHandler = a.defaultAuthErrHandler
	return a
}

func (a *RouteAuthenticator) WithLogger(logger Logger) *RouteAuthenticator {
	if logger != nil {
		a.Logger = logger
	}
	return a
}

// ProtectedRoute requires a valid token. When roles are given the token
// role must be one of them.
func (a *RouteAuthenticator) ProtectedRoute(roles ...AccountRole) router.MiddlewareFunc {
	allowed := make([]string, 0, len(roles))
	for _, role := range roles {
		allowed = append(allowed, role.String())
	}

	return jwtware.New(jwtware.Config{
		ErrorHandler:    a.AuthErrorHandler,
		ContextKey:      a.cfg.GetContextKey(),
		TokenLookup:     a.cfg.GetTokenLookup(),
		AuthScheme:      a.cfg.GetAuthScheme(),
		Verifier:        a.verify,
		AllowedRoles:    allowed,
		ContextEnricher: enrichContext,
	})
}

func (a *RouteAuthenticator) verify(raw string) (jwtware.Claims, error) {
	claims, err := a.verifier.Verify(raw)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func enrichContext(ctx context.Context, claims jwtware.Claims) context.Context {
	jc, ok := claims.(*JWTClaims)
	if !ok {
		return ctx
	}

	ctx = WithClaimsContext(ctx, jc)
	if id, err := jc.AccountID(); err == nil {
		ctx = WithAccountID(ctx, id)
	}
	return ctx
}

func (a *RouteAuthenticator) defaultAuthErrHandler(ctx router.Context, err error) error {
	status := fiber.StatusUnauthorized
	msg := ErrTokenInvalid.Message

	switch {
	case errors.Is(err, jwtware.ErrRoleNotAllowed):
		status = fiber.StatusForbidden
		msg = msgForbidden
	case errors.Is(err, jwtware.ErrJWTMissingOrMalformed):
		msg = msgNoToken
	case IsTokenExpiredError(err):
		msg = ErrTokenExpired.Message
	}

	a.Logger.Info("Authentication error", "error", err, "text_code", TextCodeOf(err), "path", ctx.OriginalURL())

	return ctx.JSON(status, APIResponse{Success: false, Message: msg})
}

// CurrentAccountID returns the account authenticated by ProtectedRoute
func CurrentAccountID(ctx router.Context) (uuid.UUID, error) {
	if id, ok := AccountIDFromContext(ctx.Context()); ok {
		return id, nil
	}
	return uuid.Nil, ErrTokenInvalid
}

// HealthHandler reports the service as up
func HealthHandler(environment string) router.HandlerFunc {
	return func(ctx router.Context) error {
		return ctx.JSON(router.StatusOK, map[string]any{
			"success":     true,
			"message":     "HungerLink API is running",
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"environment": environment,
		})
	}
}

// NewFiberRouter mounts go-router on app. Plain fiber middleware added to
// app with Use before the routes keeps running ahead of them.
func NewFiberRouter(app *fiber.App) router.Router[*fiber.App] {
	srv := router.NewFiberAdapter(func(*fiber.App) *fiber.App {
		return app
	})
	return srv.Router()
}

// NotFoundHandler answers unknown API routes. It is plain fiber so it can
// be mounted with app.Use after every route.
func NotFoundHandler(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(APIResponse{
		Success: false,
		Message: msgEndpointNotFound,
		Path:    c.OriginalURL(),
	})
}
