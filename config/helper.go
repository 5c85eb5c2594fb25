package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/relloyd/batchetl/constants"
)

// DefaultPath returns ~/.batchetl/config.yaml.
func DefaultPath() string {
	return filepath.Join(constants.ConfigDirDefault, constants.ConfigFileDefault)
}

func expandPath(p string) (string, error) {
	e, err := homedir.Expand(p)
	if err != nil {
		return "", fmt.Errorf("error expanding path %q: %v", p, err)
	}
	return e, nil
}

// makeDir wll make the given directory if it does not already exist.
func makeDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating directory %v: %v", dir, err)
	}
	return nil
}

func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}
