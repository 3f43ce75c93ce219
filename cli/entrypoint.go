package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/spf13/afero"

	"listings/config"
	"listings/startup"
	"listings/utils"
)

// handoff replaces the process with the server; swapped out in tests
var (
	defaultHandoff = startup.Handoff
	handoff        = defaultHandoff
)

// RunEntrypoint is the container entrypoint: the full startup sequence
// followed by exec of "SERVER_BINARY serve". It only returns on failure.
func RunEntrypoint(ctx context.Context, out io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return runStartup(ctx, cfg, afero.NewOsFs(), out, true)
}

// Exit reports err to w and returns the process exit code for it
func Exit(w io.Writer, err error) int {
	return exit(w, err)
}

func runStartup(ctx context.Context, cfg *config.Config, fs afero.Fs, out io.Writer, exec bool) error {
	if cfg.StartupDelay > 0 {
		utils.LogInfo("Applying startup delay", "delay", cfg.StartupDelay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.StartupDelay):
		}
	}

	s := newSession(cfg, fs, out)
	err := s.pipeline().Run(ctx)
	// Connections must not outlive the exec below.
	s.Close()
	if err != nil {
		return err
	}

	if !exec {
		return nil
	}
	return handoff(cfg.ServerBinary, []string{"serve"}, os.Environ())
}
