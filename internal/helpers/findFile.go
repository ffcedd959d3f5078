package helpers

import (
	"fmt"
	"os"
	"path/filepath"
)

// FindFile looks for name in each of the given directories, in order, and
// returns the absolute path of the first regular file found.
// An empty directory entry means the current working directory.
func FindFile(name string, dirs ...string) (string, error) {
	if len(dirs) == 0 {
		dirs = []string{""}
	}

	checked := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		candidate := name
		if dir != "" {
			candidate = filepath.Join(dir, name)
		}
		absPath, err := filepath.Abs(candidate)
		if err != nil {
			absPath = candidate
		}
		checked = append(checked, absPath)

		info, err := os.Stat(absPath)
		if err == nil && info.Mode().IsRegular() {
			return absPath, nil
		}
	}

	return "", fmt.Errorf("%w: %s (checked %v)", os.ErrNotExist, name, checked)
}
