package cli

import (
	"context"
	"io"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"

	"listings/cache"
	"listings/config"
	"listings/database"
	"listings/services"
	"listings/startup"
	"listings/store"
	"listings/utils"
)

// session lazily opens the connections a management command needs and
// implements each startup step on top of them.
type session struct {
	cfg  *config.Config
	fs   afero.Fs
	out  io.Writer
	pool *pgxpool.Pool
	rdb  *redis.Client
}

func newSession(cfg *config.Config, fs afero.Fs, out io.Writer) *session {
	return &session{cfg: cfg, fs: fs, out: out}
}

func (s *session) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.rdb != nil {
		_ = s.rdb.Close()
	}
}

func (s *session) db(ctx context.Context) (*pgxpool.Pool, error) {
	if s.pool != nil {
		return s.pool, nil
	}
	pool, err := database.Connect(ctx, s.cfg.DatabaseURL, database.PoolOptions{
		MaxConns:        4,
		ApplicationName: "listings-cli",
	})
	if err != nil {
		return nil, err
	}
	s.pool = pool
	return pool, nil
}

// cache returns the listings cache, or nil when Redis cannot be reached.
// Management commands still succeed without it.
func (s *session) cache(ctx context.Context) *cache.PropertyCache {
	if s.rdb == nil {
		rdb := cache.NewClient(s.cfg.RedisURL, s.cfg.RedisPassword, s.cfg.RedisDB)
		if err := rdb.Ping(ctx).Err(); err != nil {
			utils.LogWarn("Redis unavailable, cache will not be invalidated", "addr", s.cfg.RedisURL, "error", err)
			_ = rdb.Close()
			return nil
		}
		s.rdb = rdb
	}
	return cache.New(s.rdb, cache.Options{ListTTL: s.cfg.CacheTTL, DetailTTL: s.cfg.DetailCacheTTL})
}

func (s *session) waitForDatabase(ctx context.Context) error {
	return startup.WaitForTCP(ctx, "database", s.cfg.DBWaitAddr, s.cfg.WaitInterval, s.cfg.WaitTimeout)
}

func (s *session) waitForRedis(ctx context.Context) error {
	return startup.WaitForTCP(ctx, "redis", s.cfg.RedisWaitAddr, s.cfg.WaitInterval, s.cfg.WaitTimeout)
}

func (s *session) migrate(ctx context.Context) error {
	pool, err := s.db(ctx)
	if err != nil {
		return err
	}
	applied, err := database.Migrate(ctx, pool)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		printf(s.out, "No migrations to apply.\n")
		return nil
	}
	for _, version := range applied {
		_, _ = success.Fprintf(s.out, "  Applying %s... OK\n", version)
	}
	return nil
}

func (s *session) collectStatic(context.Context) error {
	copied, err := startup.CollectStatic(s.fs, s.cfg.StaticDirs, s.cfg.StaticRoot)
	if err != nil {
		return err
	}
	printf(s.out, "%d static files copied to '%s'.\n", copied, s.cfg.StaticRoot)
	return nil
}

func (s *session) adminService(ctx context.Context, cfg services.AdminConfig) (*services.AdminService, error) {
	pool, err := s.db(ctx)
	if err != nil {
		return nil, err
	}
	return services.NewAdminService(store.NewAdminStore(pool), cfg, s.out), nil
}

func (s *session) defaultAdminConfig() services.AdminConfig {
	return services.AdminConfig{
		Username:         s.cfg.DefaultAdminUsername,
		Email:            s.cfg.DefaultAdminEmail,
		Password:         s.cfg.DefaultAdminPassword,
		InsecurePassword: s.cfg.UsesDefaultAdminPassword(),
	}
}

func (s *session) createAdmin(ctx context.Context) error {
	svc, err := s.adminService(ctx, s.defaultAdminConfig())
	if err != nil {
		return err
	}
	_, err = svc.EnsureDefaultAdmin(ctx)
	return err
}

func (s *session) seedService(ctx context.Context) (*services.SeedService, error) {
	pool, err := s.db(ctx)
	if err != nil {
		return nil, err
	}
	return services.NewSeedService(store.NewPropertyStore(pool), s.cache(ctx), s.out), nil
}

func (s *session) seed(ctx context.Context) error {
	svc, err := s.seedService(ctx)
	if err != nil {
		return err
	}
	_, err = svc.SeedSamples(ctx)
	return err
}

func (s *session) seedCatalog(ctx context.Context) error {
	svc, err := s.seedService(ctx)
	if err != nil {
		return err
	}
	created, existing, err := svc.SeedCatalog(ctx)
	if err != nil {
		return err
	}
	utils.LogInfo("Catalog seeded", "created", created, "existing", existing)
	return nil
}

// pipeline is the full startup sequence, in order
func (s *session) pipeline() *startup.Pipeline {
	return startup.NewPipeline(
		startup.Step{Name: "wait-for-database", Run: s.waitForDatabase},
		startup.Step{Name: "wait-for-redis", Run: s.waitForRedis},
		startup.Step{Name: "migrate", Run: s.migrate},
		startup.Step{Name: "collectstatic", Run: s.collectStatic},
		startup.Step{Name: "createadmin", Run: s.createAdmin},
		startup.Step{Name: "seed", Run: s.seed},
	)
}
