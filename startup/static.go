package startup

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"listings/utils"
)

// CollectStatic rebuilds root from the given source directories. root is removed
// first; files from later sources overwrite earlier ones at the same relative path.
// Missing sources are skipped. It returns the number of files copied.
func CollectStatic(fsys afero.Fs, sources []string, root string) (int, error) {
	if root == "" || filepath.Clean(root) == "/" || filepath.Clean(root) == "." {
		return 0, fmt.Errorf("refusing to clear static root %q", root)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve %s: %w", root, err)
	}
	for _, src := range sources {
		absSrc, err := filepath.Abs(src)
		if err != nil {
			return 0, fmt.Errorf("failed to resolve %s: %w", src, err)
		}
		if isWithin(absRoot, absSrc) {
			return 0, fmt.Errorf("static root %q must not be or contain static directory %q", root, src)
		}
	}

	if err := fsys.RemoveAll(root); err != nil {
		return 0, fmt.Errorf("failed to clear %s: %w", root, err)
	}
	if err := fsys.MkdirAll(root, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", root, err)
	}

	copied := 0
	for _, src := range sources {
		info, err := fsys.Stat(src)
		if errors.Is(err, os.ErrNotExist) {
			utils.LogWarn("Static directory does not exist, skipping", "dir", src)
			continue
		}
		if err != nil {
			return copied, fmt.Errorf("failed to stat %s: %w", src, err)
		}
		if !info.IsDir() {
			return copied, fmt.Errorf("static source %s is not a directory", src)
		}

		err = afero.Walk(fsys, src, func(path string, info fs.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				// Never copy root into itself when it sits inside a source.
				if abs, _ := filepath.Abs(path); abs == absRoot {
					return filepath.SkipDir
				}
				return nil
			}
			if !info.Mode().IsRegular() {
				return nil
			}

			rel, err := filepath.Rel(src, path)
			if err != nil {
				return err
			}
			if err := copyFile(fsys, path, filepath.Join(root, rel), info.Mode().Perm()); err != nil {
				return err
			}
			copied++
			return nil
		})
		if err != nil {
			return copied, fmt.Errorf("failed to collect %s: %w", src, err)
		}
	}

	return copied, nil
}

func copyFile(fsys afero.Fs, src, dst string, perm os.FileMode) error {
	if err := fsys.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	in, err := fsys.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := fsys.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// isWithin reports whether path is dir or lies below it
func isWithin(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
