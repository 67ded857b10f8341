// Package config resolves which booking server to talk to and where that
// server's local state lives. Every user of the library receives an
// explicit Config value; nothing here is ambient process state.
//
// Server resolution order: explicit override (flag) > REMLAB_SERVER env >
// config.toml > legacy single-line book_server file > built-in default.
// Each server gets its own directory under the root so identities for
// different booking servers never mix.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// DefaultServer is the booking server used when nothing else is configured.
const DefaultServer = "https://app.practable.io/ed0/book"

const (
	appDirName           = "remlab"
	serversDirName       = "servers"
	configName           = "config"
	configType           = "toml"
	serverKey            = "server"
	envPrefix            = "REMLAB"
	legacyServerFileName = "book_server"
)

type Options struct {
	// Server overrides every other source when non-empty.
	Server string
	// ConfigInCwd keeps per-server state in the working directory instead
	// of the user configuration directory. Useful for notebooks and CI.
	ConfigInCwd bool
	// RootDir overrides the configuration root; tests use this.
	RootDir string
}

type Config struct {
	Server    string
	RootDir   string
	ServerDir string
}

func Load(opts Options) (Config, error) {
	rootDir := opts.RootDir
	if rootDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve user config directory: %w", err)
		}
		rootDir = filepath.Join(base, appDirName)
	}

	cfg := viper.New()
	cfg.SetConfigName(configName)
	cfg.SetConfigType(configType)
	cfg.AddConfigPath(rootDir)
	cfg.SetEnvPrefix(envPrefix)
	if err := cfg.BindEnv(serverKey); err != nil {
		return Config{}, fmt.Errorf("bind server env: %w", err)
	}
	cfg.SetDefault(serverKey, fallbackServer(rootDir))

	if err := cfg.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	server := strings.TrimSpace(opts.Server)
	if server == "" {
		server = strings.TrimSpace(cfg.GetString(serverKey))
	}
	if server == "" {
		server = DefaultServer
	}

	serverDir, err := serverDir(rootDir, server, opts.ConfigInCwd)
	if err != nil {
		return Config{}, err
	}

	return Config{Server: server, RootDir: rootDir, ServerDir: serverDir}, nil
}

// fallbackServer honours the legacy single-line book_server file when no
// config.toml or environment override exists.
func fallbackServer(rootDir string) string {
	f, err := os.Open(filepath.Join(rootDir, legacyServerFileName))
	if err != nil {
		return DefaultServer
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	if scanner.Scan() {
		if server := strings.TrimSpace(scanner.Text()); server != "" {
			return server
		}
	}
	return DefaultServer
}

func serverDir(rootDir, server string, configInCwd bool) (string, error) {
	if configInCwd {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve working directory: %w", err)
		}
		return cwd, nil
	}

	slug, err := ServerSlug(server)
	if err != nil {
		return "", err
	}
	return filepath.Join(rootDir, serversDirName, slug), nil
}

// ServerSlug derives a filesystem-safe directory name from a server URL,
// so users of more than one booking server keep separate state.
func ServerSlug(server string) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("parse server url %q: %w", server, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("server url %q has no host", server)
	}

	slug := u.Host + u.Path
	slug = strings.ReplaceAll(slug, ".", "-")
	slug = strings.ReplaceAll(slug, "/", "-")
	slug = strings.ReplaceAll(slug, ":", "-")
	return strings.Trim(slug, "-"), nil
}
