package infra

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
)

// GetWorkDir expands base (which may start with ~), joins path to it and
// makes sure the directory exists.
func GetWorkDir(base string, path ...string) (string, error) {
	parts := append([]string{base}, path...)
	workDir, err := homedir.Expand(filepath.Join(parts...))
	if err != nil {
		return "", fmt.Errorf("expand work dir: %w", err)
	}
	if err = os.MkdirAll(workDir, os.ModePerm); err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}
	return workDir, nil
}
