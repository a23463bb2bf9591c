package fsutil

import (
	"os"
	"path/filepath"
)

// GetProjectRoot returns the directory holding go.mod. Tests run with the
// package dir as working dir, so walk up from there.
func GetProjectRoot() string {
	if root := os.Getenv("PROJECT_ROOT"); root != "" {
		return root
	}

	wd, err := os.Getwd()
	if err != nil {
		return "./"
	}

	for dir := wd; ; dir = filepath.Dir(dir) {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		if parent := filepath.Dir(dir); parent == dir {
			return "./"
		}
	}
}
