package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"listings/startup"
)

func newWaitCmd(opts *rootOptions) *cobra.Command {
	var interval, timeout time.Duration

	cmd := &cobra.Command{
		Use:   "wait [name address]",
		Short: "Block until a TCP service accepts connections",
		Long: `Polls a TCP address until it accepts a connection.

With no arguments waits for the database and then Redis using DB_WAIT_ADDR and
REDIS_WAIT_ADDR. A timeout of 0 waits forever.`,
		Example: `  listings wait
  listings wait database db:5432 --timeout 2m`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("accepts 0 or 2 args, received %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if cmd.Flags().Changed("interval") {
				if interval <= 0 {
					return errors.New("--interval must be positive")
				}
				cfg.WaitInterval = interval
			}
			if cmd.Flags().Changed("timeout") {
				cfg.WaitTimeout = timeout
			}

			if len(args) == 2 {
				return startup.WaitForTCP(cmd.Context(), args[0], args[1], cfg.WaitInterval, cfg.WaitTimeout)
			}

			s := newSession(cfg, opts.fs, cmd.OutOrStdout())
			defer s.Close()
			if err := s.waitForDatabase(cmd.Context()); err != nil {
				return err
			}
			return s.waitForRedis(cmd.Context())
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", time.Second, "delay between connection attempts")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "give up after this long (0 waits forever)")
	return cmd
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database if needed and apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := newSession(opts.cfg, opts.fs, cmd.OutOrStdout())
			defer s.Close()
			return s.migrate(cmd.Context())
		},
	}
}

func newCollectStaticCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "collectstatic",
		Short: "Rebuild STATIC_ROOT from STATIC_DIRS",
		Long:  "Clears STATIC_ROOT and copies every file from STATIC_DIRS into it. Never prompts.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := newSession(opts.cfg, opts.fs, cmd.OutOrStdout())
			defer s.Close()
			return s.collectStatic(cmd.Context())
		},
	}
}

func newCreateAdminCmd(opts *rootOptions) *cobra.Command {
	var username, email, password string

	cmd := &cobra.Command{
		Use:   "createadmin",
		Short: "Create the default superuser unless it already exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := newSession(opts.cfg, opts.fs, cmd.OutOrStdout())
			defer s.Close()

			adminCfg := s.defaultAdminConfig()
			if cmd.Flags().Changed("username") {
				adminCfg.Username = username
			}
			if cmd.Flags().Changed("email") {
				adminCfg.Email = email
			}
			if cmd.Flags().Changed("password") {
				adminCfg.Password = password
				adminCfg.InsecurePassword = false
			}

			svc, err := s.adminService(cmd.Context(), adminCfg)
			if err != nil {
				return err
			}
			_, err = svc.EnsureDefaultAdmin(cmd.Context())
			return err
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "admin username (default DEFAULT_ADMIN_USERNAME)")
	cmd.Flags().StringVar(&email, "email", "", "admin email (default DEFAULT_ADMIN_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "admin password (default DEFAULT_ADMIN_PASSWORD)")
	return cmd
}

func newSeedCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the sample properties when the table is empty",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := newSession(opts.cfg, opts.fs, cmd.OutOrStdout())
			defer s.Close()
			return s.seed(cmd.Context())
		},
	}
}

func newSeedPropertiesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-properties",
		Short: "Create each catalogue property that does not exist yet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := newSession(opts.cfg, opts.fs, cmd.OutOrStdout())
			defer s.Close()
			return s.seedCatalog(cmd.Context())
		},
	}
}

func newStartupCmd(opts *rootOptions) *cobra.Command {
	var exec bool

	cmd := &cobra.Command{
		Use:   "startup",
		Short: "Run the full startup sequence",
		Long: `Waits for the database and Redis, applies migrations, collects static files,
creates the default admin and seeds sample data, in that order. The first
failing step aborts the sequence with exit code 1.

With --exec the process is then replaced by "SERVER_BINARY serve".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStartup(cmd.Context(), opts.cfg, opts.fs, cmd.OutOrStdout(), exec)
		},
	}

	cmd.Flags().BoolVar(&exec, "exec", false, "replace this process with the server when done")
	return cmd
}
