package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"icebergtest/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigFileName is looked up in the working directory when no
	// --config flag is given.
	DefaultConfigFileName = "icebergtest.yaml"

	loaderSubsystem = "ConfigLoader"
)

// LoadSettings loads settings from the given file, layered over the defaults.
// An empty path means DefaultConfigFileName in the working directory; a
// missing default file is not an error. An explicitly named file must exist.
func LoadSettings(path string) (Settings, error) {
	settings := GetDefaultSettings()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFileName
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			logging.Debug(loaderSubsystem, "No %s found, using defaults", path)
			return settings, nil
		}
		return Settings{}, fmt.Errorf("error loading settings from %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("error loading settings from %s: %w", path, err)
	}

	// Relative database paths are anchored at the settings file.
	if explicit && settings.DatabaseDir != "" && !filepath.IsAbs(settings.DatabaseDir) {
		settings.DatabaseDir = filepath.Join(filepath.Dir(path), settings.DatabaseDir)
	}

	if err := settings.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid settings in %s: %w", path, err)
	}

	logging.Info(loaderSubsystem, "Loaded settings from %s", path)
	return settings, nil
}
