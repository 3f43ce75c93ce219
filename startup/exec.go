package startup

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"syscall"

	"listings/utils"
)

// execve replaces the current process image; swapped out in tests
var (
	defaultExecve = syscall.Exec
	execve        = defaultExecve
)

// Handoff replaces the current process with binary. It only returns on failure.
func Handoff(binary string, args, env []string) error {
	path := binary
	if !filepath.IsAbs(binary) {
		resolved, err := exec.LookPath(binary)
		if err != nil {
			return fmt.Errorf("failed to locate %s: %w", binary, err)
		}
		path = resolved
	}

	utils.LogInfo("Handing off to application server", "binary", path, "args", args)
	utils.SyncLogging()

	argv := append([]string{binary}, args...)
	if err := execve(path, argv, env); err != nil {
		return fmt.Errorf("failed to exec %s: %w", path, err)
	}
	return nil
}
