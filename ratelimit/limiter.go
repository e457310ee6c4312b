package ratelimit

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

const (
	DefaultWindow   = 15 * time.Minute
	DefaultMax      = 100
	DefaultAuthMax  = 100
	MessageAPI      = "Too many requests from this IP, please try again later."
	MessageAuthOnly = "Too many authentication attempts, please try again later."
)

// Config sets up a per IP limiter
type Config struct {
	Max     int
	Window  time.Duration
	Message string
	// Storage is in memory when nil
	Storage fiber.Storage
	// Next skips the limiter when it returns true
	Next         func(c *fiber.Ctx) bool
	KeyGenerator func(c *fiber.Ctx) string
}

func (c Config) withDefaults() Config {
	if c.Max <= 0 {
		c.Max = DefaultMax
	}
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.Message == "" {
		c.Message = MessageAPI
	}
	if c.KeyGenerator == nil {
		c.KeyGenerator = func(c *fiber.Ctx) string {
			return c.IP()
		}
	}
	return c
}

// New returns a fixed window limiter answering 429 with a JSON envelope
func New(cfg Config) fiber.Handler {
	cfg = cfg.withDefaults()

	return limiter.New(limiter.Config{
		Next:         cfg.Next,
		Max:          cfg.Max,
		Expiration:   cfg.Window,
		KeyGenerator: cfg.KeyGenerator,
		Storage:      cfg.Storage,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"message": cfg.Message,
			})
		},
	})
}

// API limits every /api request
func API(max int, window time.Duration, storage fiber.Storage) fiber.Handler {
	return New(Config{Max: max, Window: window, Message: MessageAPI, Storage: storage})
}

// Auth limits the register and login endpoints. Its counters use their own
// key space so they do not share the API window.
func Auth(max int, window time.Duration, storage fiber.Storage) fiber.Handler {
	return New(Config{
		Max:     max,
		Window:  window,
		Message: MessageAuthOnly,
		Storage: storage,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "auth:" + c.IP()
		},
	})
}
