package config

import (
	"errors"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"
)

var ErrInvalidSize = errors.New("invalid size")

// appDataDir takes the operating system explicitly so tests can cover
// every platform.
func appDataDir(goos, appName string, roaming bool) string {
	appName = strings.TrimPrefix(appName, ".")
	if appName == "" {
		return "."
	}
	upper := string(unicode.ToUpper(rune(appName[0]))) + appName[1:]
	lower := string(unicode.ToLower(rune(appName[0]))) + appName[1:]

	var home string
	if usr, err := user.Current(); err == nil {
		home = usr.HomeDir
	}
	if home == "" {
		home = os.Getenv("HOME")
	}

	switch goos {
	case "windows":
		dir := os.Getenv("LOCALAPPDATA")
		if roaming || dir == "" {
			dir = os.Getenv("APPDATA")
		}
		if dir != "" {
			return filepath.Join(dir, upper)
		}
	case "darwin":
		if home != "" {
			return filepath.Join(home, "Library", "Application Support", upper)
		}
	case "plan9":
		if home != "" {
			return filepath.Join(home, lower)
		}
	default:
		if home != "" {
			return filepath.Join(home, "."+lower)
		}
	}
	return "."
}

// AppDataDir returns the per-user data directory of appName, e.g.
// ~/.massdigest on POSIX systems and %LOCALAPPDATA%\Massdigest on Windows.
func AppDataDir(appName string, roaming bool) string {
	return appDataDir(runtime.GOOS, appName, roaming)
}

// CleanAndExpandPath expands a leading ~ and environment variables.
func CleanAndExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "~") {
		home := os.Getenv("HOME")
		if usr, err := user.Current(); err == nil {
			home = usr.HomeDir
		}
		path = strings.Replace(path, "~", home, 1)
	}
	return filepath.Clean(os.ExpandEnv(path))
}

// ParseSize parses a byte count such as "4096", "64MiB" or "1 GB".
// SI suffixes are decimal, IEC suffixes binary.
func ParseSize(s string) (uint64, error) {
	n, err := humanize.ParseBytes(strings.TrimSpace(s))
	if err != nil {
		return 0, ErrInvalidSize
	}
	return n, nil
}
