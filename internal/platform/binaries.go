package platform

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// ResolveExecutable finds name in PATH (or as a path) and returns its absolute location.
// Workers run with their working directory set to the output directory, so a
// relative program path would otherwise resolve against the wrong place.
func ResolveExecutable(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("downloader '%s' not found or not executable: %w", name, err)
	}

	if !filepath.IsAbs(path) {
		if path, err = filepath.Abs(path); err != nil {
			return "", err
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("downloader '%s' is a directory", name)
	}

	return path, nil
}
