package pkg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// EnsureDir creates dir with its parents unless it already exists. A file in
// its place is an error.
func EnsureDir(dir string, perm fs.FileMode) error {
	stat, err := os.Stat(dir)
	switch {
	case err == nil && stat.IsDir():
		return nil
	case err == nil:
		return fmt.Errorf("[%s] exists and is not a directory", dir)
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("stat [%s]: %w", dir, err)
	}

	if err := os.MkdirAll(dir, perm); err != nil {
		return fmt.Errorf("create [%s]: %w", dir, err)
	}
	return nil
}
