package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	auth "github.com/hungerlink/go-auth"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. HUNGERLINK_HTTP_PORT
const EnvPrefix = "HUNGERLINK"

const EnvironmentDevelopment = "development"

type App struct {
	Name        string `mapstructure:"name" json:"name"`
	Environment string `mapstructure:"environment" json:"environment"`
	Debug       bool   `mapstructure:"debug" json:"debug"`
	LogLevel    string `mapstructure:"log_level" json:"log_level"`
}

type HTTP struct {
	Port        string        `mapstructure:"port" json:"port"`
	FrontendURL string        `mapstructure:"frontend_url" json:"frontend_url"`
	BodyLimit   int           `mapstructure:"body_limit" json:"body_limit"`
	RateMax     int           `mapstructure:"rate_max" json:"rate_max"`
	AuthRateMax int           `mapstructure:"auth_rate_max" json:"auth_rate_max"`
	RateWindow  time.Duration `mapstructure:"rate_window" json:"rate_window"`
}

type Auth struct {
	SigningKey       string        `mapstructure:"signing_key" json:"-"`
	PreviousKeys     []string      `mapstructure:"previous_keys" json:"-"`
	TokenExpiration  int           `mapstructure:"token_expiration" json:"token_expiration"`
	Issuer           string        `mapstructure:"issuer" json:"issuer"`
	Audience         []string      `mapstructure:"audience" json:"audience"`
	ContextKey       string        `mapstructure:"context_key" json:"context_key"`
	TokenLookup      string        `mapstructure:"token_lookup" json:"token_lookup"`
	AuthScheme       string        `mapstructure:"auth_scheme" json:"auth_scheme"`
	MaxLoginAttempts int           `mapstructure:"max_login_attempts" json:"max_login_attempts"`
	LockoutDuration  time.Duration `mapstructure:"lockout_duration" json:"lockout_duration"`
	PasswordCost     int           `mapstructure:"password_cost" json:"password_cost"`
	DeterministicIDs bool          `mapstructure:"deterministic_ids" json:"deterministic_ids"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout" json:"operation_timeout"`
}

type Persistence struct {
	Driver   string `mapstructure:"driver" json:"driver"`
	DSN      string `mapstructure:"dsn" json:"-"`
	Database string `mapstructure:"database" json:"database"`
}

type Redis struct {
	URL    string `mapstructure:"url" json:"-"`
	Prefix string `mapstructure:"prefix" json:"prefix"`
}

type Broker struct {
	URL      string `mapstructure:"url" json:"-"`
	Exchange string `mapstructure:"exchange" json:"exchange"`
}

type Uploads struct {
	Dir     string `mapstructure:"dir" json:"dir"`
	MaxSize int64  `mapstructure:"max_size" json:"max_size"`
}

// BaseConfig is the full service configuration
type BaseConfig struct {
	App         App         `mapstructure:"app" json:"app"`
	HTTP        HTTP        `mapstructure:"http" json:"http"`
	Auth        Auth        `mapstructure:"auth" json:"auth"`
	Persistence Persistence `mapstructure:"persistence" json:"persistence"`
	Redis       Redis       `mapstructure:"redis" json:"redis"`
	Broker      Broker      `mapstructure:"broker" json:"broker"`
	Uploads     Uploads     `mapstructure:"uploads" json:"uploads"`
}

var _ auth.Config = BaseConfig{}

var defaults = map[string]any{
	"app.name":                "hungerlink",
	"app.environment":         EnvironmentDevelopment,
	"app.debug":               false,
	"app.log_level":           "info",
	"http.port":               "5000",
	"http.frontend_url":       "http://localhost:5173",
	"http.body_limit":         10 << 20,
	"http.rate_max":           100,
	"http.auth_rate_max":      100,
	"http.rate_window":        "15m",
	"auth.signing_key":        "",
	"auth.previous_keys":      []string{},
	"auth.token_expiration":   24 * 7,
	"auth.issuer":             "hungerlink",
	"auth.audience":           []string{"hungerlink"},
	"auth.context_key":        "user",
	"auth.token_lookup":       "header:Authorization",
	"auth.auth_scheme":        "Bearer",
	"auth.max_login_attempts": auth.DefaultMaxLoginAttempts,
	"auth.lockout_duration":   auth.DefaultLockoutDuration.String(),
	"auth.password_cost":      12,
	"auth.deterministic_ids":  false,
	"auth.operation_timeout":  auth.DefaultOperationTimeout.String(),
	"persistence.driver":      auth.DriverSQLite,
	"persistence.dsn":         "file:hungerlink.db?cache=shared",
	"persistence.database":    "hungerlink",
	"redis.url":               "",
	"redis.prefix":            "hungerlink:rate_limit",
	"broker.url":              "",
	"broker.exchange":         "hungerlink.activity",
	"uploads.dir":             "uploads",
	"uploads.max_size":        auth.DefaultMaxCertificateSize,
}

// aliases keeps the plain variable names the web client deployment uses
var aliases = map[string]string{
	"app.environment":   "NODE_ENV",
	"http.port":         "PORT",
	"http.frontend_url": "FRONTEND_URL",
	"auth.signing_key":  "JWT_SECRET",
}

// Load reads .env, then the optional config file at path, then the
// environment. Later sources win.
func Load(path string) (*BaseConfig, error) {
	if err := godotenv.Load(); err != nil && !isNotExist(err) {
		return nil, err
	}

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, env := range aliases {
		full := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, full, env); err != nil {
			return nil, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &BaseConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// IsDevelopment reports whether detailed errors may be shown
func (c BaseConfig) IsDevelopment() bool {
	return strings.EqualFold(c.App.Environment, EnvironmentDevelopment)
}

func (c BaseConfig) Validate() error {
	err := validation.ValidateStruct(&c.Persistence,
		validation.Field(&c.Persistence.Driver,
			validation.Required,
			validation.In(auth.DriverSQLite, auth.DriverPostgres, "mongo"),
		),
	)
	if err != nil {
		return err
	}

	keyRules := []validation.Rule{}
	if !c.IsDevelopment() {
		keyRules = append(keyRules,
			validation.Required.Error("signing key is required outside development"),
			validation.Length(32, 0),
		)
	}

	err = validation.ValidateStruct(&c.Auth,
		validation.Field(&c.Auth.SigningKey, keyRules...),
		validation.Field(&c.Auth.MaxLoginAttempts, validation.Min(1)),
		validation.Field(&c.Auth.PasswordCost, validation.Min(4), validation.Max(31)),
	)
	if err != nil {
		return err
	}

	return validation.ValidateStruct(&c.HTTP,
		validation.Field(&c.HTTP.Port, validation.Required),
		validation.Field(&c.HTTP.FrontendURL, validation.Required),
	)
}
