// Package appdirs resolves and creates the directories the gateway keeps
// its state and logs in.
package appdirs

import (
	"fmt"
	"os"
	"path/filepath"
)

// AppName is the directory name used under the user's config and cache dirs.
const AppName = "AwalaGateway"

type Dirs struct {
	Data string
	Log  string
}

// Resolve fills in the default location of every directory not set in dirs.
func Resolve(dirs Dirs) (Dirs, error) {
	if dirs.Data == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return dirs, fmt.Errorf("failed to resolve data directory: %w", err)
		}
		dirs.Data = filepath.Join(base, AppName)
	}

	if dirs.Log == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return dirs, fmt.Errorf("failed to resolve log directory: %w", err)
		}
		dirs.Log = filepath.Join(base, AppName, "log")
	}

	return dirs, nil
}

// Create resolves dirs and makes sure every directory exists.
func Create(dirs Dirs) (Dirs, error) {
	dirs, err := Resolve(dirs)
	if err != nil {
		return dirs, err
	}

	for _, dir := range []string{dirs.Data, dirs.Log} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return dirs, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	return dirs, nil
}

// LogFile is the path of the log file of the given component.
func (d Dirs) LogFile(component string) string {
	return filepath.Join(d.Log, component+".log")
}
