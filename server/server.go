package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/goliatone/go-router"
	auth "github.com/hungerlink/go-auth"
	"github.com/hungerlink/go-auth/config"
	"github.com/hungerlink/go-auth/marketplace"
	"github.com/hungerlink/go-auth/ratelimit"
	"github.com/hungerlink/go-auth/repository"
)

// Options wires the API. Config and Repos are required.
type Options struct {
	Config *config.BaseConfig
	Repos  repository.Manager
	// Logger returns a named logger. DefaultLogger is used when nil.
	Logger           func(name string) auth.Logger
	ActivitySink     auth.ActivitySink
	LimiterStorage   fiber.Storage
	Hasher           auth.PasswordHasher
	Clock            func() time.Time
	DisableAccessLog bool
}

// Server holds the fiber app, the router mounted on it and the services
// behind it
type Server struct {
	App         *fiber.App
	Router      router.Router[*fiber.App]
	Accounts    *auth.AccountService
	Tokens      *auth.TokenService
	Marketplace *marketplace.Service
}

func (o Options) logger(name string) auth.Logger {
	if o.Logger == nil {
		return auth.DefaultLogger()
	}
	if l := o.Logger(name); l != nil {
		return l
	}
	return auth.DefaultLogger()
}

// New builds the fiber app with every route mounted under /api
func New(opts Options) *Server {
	if opts.Config == nil {
		panic("server: missing config")
	}
	if opts.Repos == nil {
		panic("server: missing repository manager")
	}
	opts.Repos.MustValidate()

	cfg := opts.Config

	tokens := auth.NewTokenServiceFromConfig(cfg, opts.logger("auth:tokens"))

	accounts := auth.NewAccountServiceFromConfig(opts.Repos.Accounts(), tokens, *cfg).
		WithLogger(opts.logger("auth:service")).
		WithActivitySink(opts.ActivitySink)
	if opts.Hasher != nil {
		accounts.WithHasher(opts.Hasher)
	}
	if opts.Clock != nil {
		accounts.WithClock(opts.Clock)
		tokens.WithClock(opts.Clock)
	}

	responder := auth.NewErrorResponder(cfg.IsDevelopment(), opts.logger("http"))

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: responder.Handler(),
		BodyLimit:    cfg.HTTP.BodyLimit,
	})

	app.Use(recover.New(recover.Config{EnableStackTrace: cfg.IsDevelopment()}))
	app.Use(helmet.New(helmet.Config{CrossOriginResourcePolicy: "cross-origin"}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.HTTP.FrontendURL,
		AllowCredentials: true,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Content-Type,Authorization",
	}))
	if !opts.DisableAccessLog {
		app.Use(fiberlogger.New())
	}

	app.Static("/uploads", cfg.Uploads.Dir)

	auther := auth.NewHTTPAuthenticator(verifier(cfg, tokens, opts), cfg).WithLogger(opts.logger("auth:http"))

	authCtrl := auth.NewAuthController(accounts, auther,
		auth.WithControllerLogger(opts.logger("auth:ctrl")),
		auth.WithControllerDebug(cfg.IsDevelopment()),
		auth.WithCertificateStore(auth.NewCertificateStore(cfg.Uploads.Dir).WithMaxSize(cfg.Uploads.MaxSize)),
	)

	// fiber middleware runs in registration order, so limits and uploads
	// are mounted before the router adds its routes
	app.Use("/api", ratelimit.API(cfg.HTTP.RateMax, cfg.HTTP.RateWindow, opts.LimiterStorage))
	authLimiter := ratelimit.Auth(cfg.HTTP.AuthRateMax, cfg.HTTP.RateWindow, opts.LimiterStorage)
	app.Use("/api/auth"+authCtrl.Routes.Login, authLimiter)
	app.Use("/api/auth"+authCtrl.Routes.Register, authLimiter, authCtrl.CertificateUpload())

	r := auth.NewFiberRouter(app)
	api := r.Group("/api")
	api.Get("/health", auth.HealthHandler(cfg.App.Environment)).SetName("health")

	auth.RegisterAuthRoutes(api.Group("/auth"), authCtrl)

	market := marketplace.NewService(opts.Repos.Donations(), opts.Repos.Requests()).
		WithLogger(opts.logger("marketplace")).
		WithTimeout(cfg.GetOperationTimeout())
	marketCtrl := marketplace.NewController(market, auther, responder)
	marketplace.RegisterDonationRoutes(api.Group("/donations"), marketCtrl)
	marketplace.RegisterRequestRoutes(api.Group("/requests"), marketCtrl)

	app.Use("/api", auth.NotFoundHandler)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(auth.APIResponse{
			Success: false,
			Message: "Route not found",
		})
	})

	return &Server{
		App:         app,
		Router:      r,
		Accounts:    accounts,
		Tokens:      tokens,
		Marketplace: market,
	}
}

// verifier accepts tokens signed with the current key and, while they age
// out, with any retired key listed in auth.previous_keys
func verifier(cfg *config.BaseConfig, current *auth.TokenService, opts Options) auth.TokenVerifier {
	if len(cfg.Auth.PreviousKeys) == 0 {
		return current
	}

	verifiers := []auth.TokenVerifier{current}
	for _, key := range cfg.Auth.PreviousKeys {
		if key == "" {
			continue
		}
		old := auth.NewTokenService([]byte(key), cfg.GetTokenExpiration(), cfg.GetIssuer(), cfg.GetAudience(), opts.logger("auth:tokens"))
		if opts.Clock != nil {
			old.WithClock(opts.Clock)
		}
		verifiers = append(verifiers, old)
	}
	return auth.NewMultiTokenVerifier(verifiers...)
}
