package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"listings/cache"
	"listings/config"
	"listings/database"
	"listings/server"
	"listings/services"
	"listings/store"
	"listings/utils"
	feed "listings/websocket"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var workers, port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Long: `Runs the HTTP server on BIND_ADDRESS:PORT. With more than one worker the
server forks that many processes sharing the listening socket.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := opts.cfg
			if cmd.Flags().Changed("workers") {
				if workers < 1 {
					return errors.New("--workers must be at least 1")
				}
				cfg.Workers = workers
			}
			if cmd.Flags().Changed("port") {
				if port < 1 || port > 65535 {
					return fmt.Errorf("--port %d out of range", port)
				}
				cfg.Port = port
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 3, "number of server processes, overrides WORKERS")
	cmd.Flags().IntVar(&port, "port", 8000, "listen port, overrides PORT")
	return cmd
}

// servesRequests reports whether this process handles requests. Under prefork
// the master only supervises its children.
func servesRequests(workers int) bool {
	return workers <= 1 || fiber.IsChild()
}

func runServe(ctx context.Context, cfg *config.Config) error {
	startTime := time.Now()
	opts := server.AppOptions{
		StartTime:  startTime,
		Prefork:    cfg.Workers > 1,
		Production: cfg.IsProduction(),

		AllowedOrigins: cfg.AllowedOrigins,
	}

	if !servesRequests(cfg.Workers) {
		return listen(ctx, server.CreateFiberApp(opts), cfg, startTime)
	}

	// Each worker holds its own pool
	pool, err := database.Open(ctx, cfg.DatabaseURL, database.PoolOptions{})
	if err != nil {
		return err
	}
	defer pool.Close()

	rdb := cache.NewClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	defer func() { _ = rdb.Close() }()

	readyState := server.NewReadyState(pool, rdb)
	go watchReadiness(ctx, readyState, pool, rdb, cfg.WaitInterval)

	propertyCache := cache.New(rdb, cache.Options{ListTTL: cfg.CacheTTL, DetailTTL: cfg.DetailCacheTTL})
	propertyService := services.NewPropertyService(store.NewPropertyStore(pool), propertyCache)
	adminService := services.NewAdminService(store.NewAdminStore(pool), services.AdminConfig{
		Username: cfg.DefaultAdminUsername,
		Email:    cfg.DefaultAdminEmail,
		Password: cfg.DefaultAdminPassword,
	}, nil)

	// Writes on any worker reach feed subscribers on every worker through Redis
	hub := feed.NewHub()
	go hub.Run()
	defer hub.Close()
	bus := feed.NewBus(rdb, hub)
	go runBus(ctx, bus, cfg.WaitInterval)
	propertyService.SetNotifier(bus)

	opts.ReadyState = readyState
	app := server.CreateFiberApp(opts)
	server.SetupRoutes(app, server.Dependencies{
		Properties:    propertyService,
		Auth:          adminService,
		Redis:         rdb,
		JWTSecret:     []byte(cfg.JWTSecret),
		TokenTTL:      cfg.TokenTTL,
		EnableMetrics: cfg.EnableMetrics,
		StaticRoot:    cfg.StaticRoot,
		Feed:          hub,
	})

	if cfg.EnableMetrics {
		services.StartCacheMetricsReporter(ctx, propertyCache, time.Minute)
	}

	return listen(ctx, app, cfg, startTime)
}

// listen serves app until ctx is cancelled
func listen(ctx context.Context, app *fiber.App, cfg *config.Config, startTime time.Time) error {
	go func() {
		<-ctx.Done()
		if !fiber.IsChild() {
			utils.LogInfo("Shutting down server")
		}
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			utils.LogError("Server shutdown failed", err)
		}
	}()

	return server.Serve(app, server.ServeOptions{
		Host:    cfg.BindAddress,
		Port:    cfg.Port,
		Workers: cfg.Workers,
	}, startTime)
}

// watchReadiness marks the schema and Redis ready once each check passes
func watchReadiness(ctx context.Context, rs *server.ReadyState, pool *pgxpool.Pool, rdb redis.UniversalClient, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if !rs.IsSchemaReady() {
			if ok, err := database.SchemaUpToDate(ctx, pool); err != nil {
				utils.LogDebug("Schema check failed", "error", err)
			} else if ok {
				rs.MarkSchemaReady()
			}
		}
		if !rs.IsRedisReady() {
			if err := rdb.Ping(ctx).Err(); err != nil {
				utils.LogDebug("Redis ping failed", "error", err)
			} else {
				rs.MarkRedisReady()
			}
		}
		if rs.IsFullyReady() {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// runBus keeps the feed subscription alive, resubscribing after Redis errors
func runBus(ctx context.Context, bus *feed.Bus, retry time.Duration) {
	if retry <= 0 {
		retry = time.Second
	}
	for {
		if err := bus.Run(ctx, nil); err != nil {
			utils.LogDebug("Property feed subscription failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(retry):
		}
	}
}
