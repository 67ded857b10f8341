package cmd

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/bewley/remlab-cli/internal/adapters/bookserver"
	"github.com/bewley/remlab-cli/internal/adapters/identity"
	"github.com/bewley/remlab-cli/internal/adapters/stream/ws"
	"github.com/bewley/remlab-cli/internal/application"
	"github.com/bewley/remlab-cli/internal/config"
	"github.com/bewley/remlab-cli/internal/ports"
)

// rootOptions carries the persistent flags; they must be parsed before the
// app can be wired, so wiring happens per command run.
type rootOptions struct {
	server    string
	cwdConfig bool
}

type app struct {
	cfg      config.Config
	booker   *application.Booker
	identity *identity.Store
	dialer   ws.Dialer
	logger   *slog.Logger
}

func wireApp(opts *rootOptions) (*app, error) {
	cfg, err := config.Load(config.Options{Server: opts.server, ConfigInCwd: opts.cwdConfig})
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	store := identity.NewStore(cfg.ServerDir)
	client := &bookserver.Client{
		BaseURL:    cfg.Server,
		HTTPClient: http.DefaultClient,
	}

	return &app{
		cfg:      cfg,
		booker:   application.NewBooker(client, store, ports.SystemClock{}, logger),
		identity: store,
		dialer:   ws.Dialer{Logger: logger},
		logger:   logger,
	}, nil
}
