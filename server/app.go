package server

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"

	"listings/utils"
)

// AppOptions configures CreateFiberApp
type AppOptions struct {
	StartTime  time.Time
	ReadyState *ReadyState
	// Prefork forks one child per worker that share the listening socket
	Prefork    bool
	Production bool

	// AllowedOrigins enables CORS for the listed origins when non-empty
	AllowedOrigins []string
}

// CreateFiberApp creates the Fiber application with the shared middleware
// stack and the health endpoints registered.
func CreateFiberApp(opts AppOptions) *fiber.App {
	if opts.StartTime.IsZero() {
		opts.StartTime = time.Now()
	}

	app := fiber.New(fiber.Config{
		AppName:               "listings",
		Prefork:               opts.Prefork,
		DisableStartupMessage: true,
		BodyLimit:             512 * 1024,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		IdleTimeout:           2 * time.Minute,
		// Proxy header trust follows TRUST_PROXY_HEADERS
		EnableTrustedProxyCheck: utils.TrustProxyHeaders.Load(),
		ProxyHeader:             fiber.HeaderXForwardedFor,
		TrustedProxies: []string{
			"10.0.0.0/8",
			"172.16.0.0/12",
			"192.168.0.0/16",
			"fd00::/8",
			"::1",
			"127.0.0.1",
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			message := "Internal Server Error"

			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
				message = e.Message
			} else {
				// Server errors are logged, never exposed
				utils.LogRequestError(c, "HTTP_ERROR", err)
			}

			return c.Status(code).JSON(fiber.Map{"error": message})
		},
	})

	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, e interface{}) {
			utils.LogRequestError(c, "PANIC RECOVERED", fmt.Errorf("%v", e),
				"user_agent", c.Get(fiber.HeaderUserAgent))
		},
	}))

	// Request ID middleware for error correlation
	app.Use(func(c *fiber.Ctx) error {
		requestID := c.Get(fiber.HeaderXRequestID)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.New().String()
		}
		c.Locals("request_id", requestID)
		c.Set(fiber.HeaderXRequestID, requestID)
		return c.Next()
	})

	app.Use(logger.New(logger.Config{
		Output: utils.InfoWriter(),
		Format: "${locals:request_id} ${status} - ${method} ${path} - ${ip} - ${latency}",
	}))

	app.Use(helmet.New(helmet.Config{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge: func() int {
			if opts.Production {
				return 31536000
			}
			return 0
		}(),
		HSTSPreloadEnabled: opts.Production,
		ContentSecurityPolicy: "default-src 'self'; " +
			"img-src 'self' data: https:; " +
			"object-src 'none'; " +
			"frame-ancestors 'none'; " +
			"base-uri 'self'; " +
			"form-action 'self'",
		ReferrerPolicy: "strict-origin-when-cross-origin",
	}))

	if len(opts.AllowedOrigins) > 0 {
		app.Use(cors.New(cors.Config{
			AllowOrigins:  strings.Join(opts.AllowedOrigins, ","),
			AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Request-ID",
			AllowMethods:  "GET, POST, PUT, DELETE, OPTIONS",
			ExposeHeaders: "X-Request-ID",
			MaxAge:        600,
		}))
	}

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	RegisterHealthRoutes(app.Group("/api/v1"), opts.StartTime, opts.ReadyState)

	return app
}
