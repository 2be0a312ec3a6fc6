// Package profile resolves and lays out per-profile state under ~/.spark.
package profile

import (
	"os"
	"path/filepath"
)

// HomeEnv overrides the base directory when set.
const HomeEnv = "SPARK_HOME"

// BaseDir returns $SPARK_HOME, or ~/.spark.
func BaseDir() string {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".spark")
}

// Dir returns the profile-specific directory.
func Dir(name string) string {
	return filepath.Join(BaseDir(), "profiles", name)
}

// DBPath returns the profile's analytics database path.
func DBPath(name string) string {
	return filepath.Join(Dir(name), "spark.db")
}

// LogDir returns the log directory for a profile.
func LogDir(name string) string {
	return filepath.Join(Dir(name), "logs")
}

// LogPath returns the chat client log file path.
func LogPath(name string) string {
	return filepath.Join(LogDir(name), "sparkchat.log")
}

// RecordingsDir returns where recorded clips would be kept.
func RecordingsDir(name string) string {
	return filepath.Join(Dir(name), "recordings")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// EnsureDir creates the profile directory tree with owner-only permissions.
func EnsureDir(name string) error {
	for _, d := range []string{Dir(name), LogDir(name), RecordingsDir(name)} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
