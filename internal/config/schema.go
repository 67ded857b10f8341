package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	currentVersion  = 1
	configFileName  = "config.toml"
	configFileMode  = 0o600
	configDirMode   = 0o700
	tempFilePattern = ".config-*.toml.tmp"
)

type fileSchema struct {
	Version int    `toml:"version"`
	Server  string `toml:"server,omitempty"`
}

func (f *fileSchema) applyDefaults() {
	if f.Version == 0 {
		f.Version = currentVersion
	}
}

func (f fileSchema) validateVersion() error {
	if f.Version > currentVersion {
		return fmt.Errorf("config file version %d is newer than supported version %d", f.Version, currentVersion)
	}
	return nil
}

// SetServer records the chosen booking server in config.toml, creating the
// file if needed. Writes go through a temp file and rename.
func SetServer(rootDir, server string) error {
	file, err := readSchema(rootDir)
	if err != nil {
		return err
	}

	file.Server = server
	return writeSchema(rootDir, file)
}

// StoredServer reports the server recorded in config.toml, if any.
func StoredServer(rootDir string) (string, error) {
	file, err := readSchema(rootDir)
	if err != nil {
		return "", err
	}
	return file.Server, nil
}

func readSchema(rootDir string) (fileSchema, error) {
	data, err := os.ReadFile(filepath.Join(rootDir, configFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileSchema{}, nil
		}
		return fileSchema{}, fmt.Errorf("read config file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode config file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}

	return file, nil
}

func writeSchema(rootDir string, file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(rootDir, configDirMode); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode config file: %w", err)
	}

	tempFile, err := os.CreateTemp(rootDir, tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp config file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp config file: %w", err)
	}

	if err := tempFile.Chmod(configFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp config file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp config file: %w", err)
	}

	if err := os.Rename(tempName, filepath.Join(rootDir, configFileName)); err != nil {
		return fmt.Errorf("replace config file: %w", err)
	}

	cleanup = false
	return nil
}
