package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

const (
	msgRegisterFailed      = "Failed to create account. Please try again."
	msgLoginFailed         = "Login failed. Please try again."
	msgProfileFailed       = "Failed to fetch profile"
	msgProfileUpdateFailed = "Failed to update profile"
	msgLoginMissingFields  = "Email/phone and password are required"
)

// certificateLocalsKey holds the path saved by CertificateUpload
const certificateLocalsKey = "auth.certificate_path"

// AuthControllerRoutes are the paths relative to the auth group
type AuthControllerRoutes struct {
	Register string
	Login    string
	Profile  string
	Logout   string
}

// AuthController serves the account endpoints
type AuthController struct {
	Debug     bool
	Logger    Logger
	Service   *AccountService
	Auther    *RouteAuthenticator
	Uploads   *CertificateStore
	Routes    *AuthControllerRoutes
	Responder *ErrorResponder
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(ac *AuthController) *AuthController {
		if logger != nil {
			ac.Logger = logger
		}
		return ac
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(ac *AuthController) *AuthController {
		ac.Debug = debug
		return ac
	}
}

func WithCertificateStore(store *CertificateStore) AuthControllerOption {
	return func(ac *AuthController) *AuthController {
		if store != nil {
			ac.Uploads = store
		}
		return ac
	}
}

func WithControllerRoutes(routes *AuthControllerRoutes) AuthControllerOption {
	return func(ac *AuthController) *AuthController {
		if routes != nil {
			ac.Routes = routes
		}
		return ac
	}
}

func NewAuthController(service *AccountService, auther *RouteAuthenticator, opts ...AuthControllerOption) *AuthController {
	if service == nil {
		panic("Missing AccountService in auth controller...")
	}

	if auther == nil {
		panic("Missing RouteAuthenticator in auth controller...")
	}

	c := &AuthController{
		Logger:  defLogger{},
		Service: service,
		Auther:  auther,
		Uploads: NewCertificateStore(""),
		Routes: &AuthControllerRoutes{
			Register: "/register",
			Login:    "/login",
			Profile:  "/profile",
			Logout:   "/logout",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	c.Responder = NewErrorResponder(c.Debug, c.Logger)

	return c
}

// RegisterAuthRoutes mounts the account endpoints on app. Rate limits and
// CertificateUpload are plain fiber middleware and are mounted by the
// caller ahead of these routes.
func RegisterAuthRoutes[T any](app router.Router[T], controller *AuthController) {
	protected := controller.Auther.ProtectedRoute()

	app.Post(controller.Routes.Register, controller.Register).
		SetName("auth.register")
	app.Post(controller.Routes.Login, controller.Login).
		SetName("auth.login")

	app.Get(controller.Routes.Profile, controller.Profile, protected).
		SetName("auth.profile.get")
	app.Put(controller.Routes.Profile, controller.UpdateProfile, protected).
		SetName("auth.profile.put")
	app.Post(controller.Routes.Logout, controller.Logout, protected).
		SetName("auth.logout")
}

// Register accepts JSON or a multipart form with an optional certificate
func (a *AuthController) Register(ctx router.Context) error {
	msg := RegisterAccountMessage{}
	if err := ctx.Bind(&msg); err != nil {
		return a.Responder.Respond(ctx, NewValidationError("form", "Invalid request body", nil), "")
	}
	msg.CertificatePath, _ = ctx.Locals(certificateLocalsKey).(string)

	if a.Debug {
		a.Logger.Debug("register payload", "payload", print.MaybePrettyJSON(redactRegistration(msg)))
	}

	user, token, err := a.Service.Register(ctx.Context(), msg)
	if err != nil {
		return a.Responder.Respond(ctx, err, msgRegisterFailed)
	}

	return ctx.JSON(fiber.StatusCreated, APIResponse{
		Success: true,
		Message: "Account created successfully. Welcome, " + user.Name + "!",
		User:    user,
		Token:   token,
	})
}

// Login exchanges credentials for a token
func (a *AuthController) Login(ctx router.Context) error {
	msg := LoginAccountMessage{}
	if err := ctx.Bind(&msg); err != nil {
		return a.Responder.Respond(ctx, NewValidationError("form", "Invalid request body", nil), "")
	}

	if strings.TrimSpace(msg.EmailOrPhone) == "" || msg.Password == "" {
		return ctx.JSON(router.StatusBadRequest, APIResponse{
			Success: false,
			Message: msgLoginMissingFields,
		})
	}

	user, token, err := a.Service.Login(ctx.Context(), msg)
	if err != nil {
		return a.Responder.Respond(ctx, err, msgLoginFailed)
	}

	return ctx.JSON(router.StatusOK, APIResponse{
		Success: true,
		Message: "Login successful",
		User:    user,
		Token:   token,
	})
}

// Profile returns the authenticated account
func (a *AuthController) Profile(ctx router.Context) error {
	id, err := CurrentAccountID(ctx)
	if err != nil {
		return a.Responder.Respond(ctx, err, msgProfileFailed)
	}

	user, err := a.Service.Profile(ctx.Context(), id)
	if err != nil {
		return a.Responder.Respond(ctx, err, msgProfileFailed)
	}

	return ctx.JSON(router.StatusOK, APIResponse{
		Success: true,
		Data:    map[string]any{"user": user},
	})
}

// UpdateProfile changes name and location of the authenticated account
func (a *AuthController) UpdateProfile(ctx router.Context) error {
	id, err := CurrentAccountID(ctx)
	if err != nil {
		return a.Responder.Respond(ctx, err, msgProfileUpdateFailed)
	}

	msg := UpdateProfileMessage{}
	if err := ctx.Bind(&msg); err != nil {
		return a.Responder.Respond(ctx, NewValidationError("form", "Invalid request body", nil), "")
	}

	user, err := a.Service.UpdateProfile(ctx.Context(), id, msg)
	if err != nil {
		return a.Responder.Respond(ctx, err, msgProfileUpdateFailed)
	}

	return ctx.JSON(router.StatusOK, APIResponse{
		Success: true,
		Message: "Profile updated successfully",
		Data:    map[string]any{"user": user},
	})
}

// Logout is acknowledged only. Clients discard the token.
func (a *AuthController) Logout(ctx router.Context) error {
	return ctx.JSON(router.StatusOK, APIResponse{
		Success: true,
		Message: "Logged out successfully",
	})
}

// CertificateUpload saves the multipart certificate before Register runs
// and removes it again when registration does not succeed.
func (a *AuthController) CertificateUpload() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
			return c.Next()
		}

		fh, err := c.FormFile(CertificateFormField)
		if err != nil {
			// no file in the form
			return c.Next()
		}

		path, err := a.Uploads.Save(c, fh)
		if err != nil {
			return err
		}
		c.Locals(certificateLocalsKey, path)

		err = c.Next()
		if err != nil || c.Response().StatusCode() >= fiber.StatusBadRequest {
			a.cleanup(path)
		}
		return err
	}
}

func (a *AuthController) cleanup(path string) {
	if err := a.Uploads.Remove(path); err != nil {
		a.Logger.Warn("failed to remove uploaded certificate", "path", path, "error", err)
	}
}

func redactRegistration(msg RegisterAccountMessage) RegisterAccountMessage {
	if msg.Password != "" {
		msg.Password = "********"
	}
	return msg
}
