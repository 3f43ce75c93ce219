// Package cli implements the listings management commands and the container
// entrypoint on top of cobra.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"listings/config"
	"listings/startup"
	"listings/utils"
)

var (
	success = color.New(color.FgGreen)
	failure = color.New(color.FgRed, color.Bold)
)

// rootOptions is shared state populated before any subcommand runs
type rootOptions struct {
	cfg *config.Config
	fs  afero.Fs
}

// NewRootCmd builds the listings command tree
func NewRootCmd() *cobra.Command {
	return newRootCmd(&rootOptions{fs: afero.NewOsFs()})
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:           "listings",
		Short:         "Property listings service",
		Long:          "Property listings service: HTTP server, startup sequence and management commands",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			opts.cfg = cfg
			return nil
		},
	}

	root.AddCommand(
		newServeCmd(opts),
		newWaitCmd(opts),
		newMigrateCmd(opts),
		newCollectStaticCmd(opts),
		newCreateAdminCmd(opts),
		newSeedCmd(opts),
		newSeedPropertiesCmd(opts),
		newStartupCmd(opts),
	)
	return root
}

// loadConfig reads the environment and applies the process-wide settings
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	utils.InitLogging(cfg.LogFormat, cfg.Debug)
	utils.TrustProxyHeaders.Store(cfg.TrustProxyHeaders)
	return cfg, nil
}

// Execute runs the command line and exits with the resulting code
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	os.Exit(exit(os.Stderr, err))
}

// exit reports err and returns the process exit code
func exit(w io.Writer, err error) int {
	if err != nil {
		_, _ = failure.Fprintf(w, "Error: %v\n", err)
	}
	utils.SyncLogging()
	return startup.ExitCode(err)
}

func printf(w io.Writer, format string, args ...interface{}) {
	_, _ = fmt.Fprintf(w, format, args...)
}
