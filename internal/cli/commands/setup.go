package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/datquest/docquery/internal/backend"
	"github.com/datquest/docquery/internal/cli/config"
	"github.com/datquest/docquery/internal/cli/output"
	"github.com/datquest/docquery/internal/page"
	"github.com/datquest/docquery/internal/session"
	"github.com/spf13/cobra"
)

// errNoCompany is returned by commands that need a selected company.
var errNoCompany = errors.New("no company selected: pass --company or run `docquery select company <name>`")

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg        *config.Config
	Logger     *slog.Logger
	Client     *backend.Client
	Store      session.Store
	Session    *session.Handle
	Controller *page.Controller
	Renderer   *output.Renderer
}

// NewCommandContext creates a CommandContext bound to the configured
// session, with its slots stored in the SQLite state database.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cc := NewCommandContextWithoutSession(cmd)

	store, err := session.OpenSQLite(commandContext(cmd), cc.Cfg.StatePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open session store: %w", err)
	}
	cc.bind(store)

	cleanup := func() {
		if err := store.Close(); err != nil {
			cc.Logger.Warn("failed to close session store", "path", cc.Cfg.StatePath, "error", err)
		}
	}
	return cc, cleanup, nil
}

// NewCommandContextWithoutSession creates a CommandContext with only the
// backend client and renderer. Useful for commands that don't touch session state.
func NewCommandContextWithoutSession(cmd *cobra.Command) *CommandContext {
	ctx := commandContext(cmd)
	cfg := config.GetConfig(ctx)
	logger := config.GetLogger(ctx)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Client:   newClient(cfg, logger),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}
}

func (cc *CommandContext) bind(store session.Store) {
	cc.Store = store
	cc.Session = session.NewHandle(store, cc.Cfg.Session)
	cc.Controller = page.New(cc.Client, cc.Session, page.WithLogger(cc.Logger))
}

func newClient(cfg *config.Config, logger *slog.Logger) *backend.Client {
	opts := []backend.Option{backend.WithLogger(logger)}
	if cfg.Timeout > 0 {
		opts = append(opts, backend.WithTimeout(cfg.Timeout))
	}
	return backend.New(cfg.BackendURL, opts...)
}

// commandContext returns cmd's context, never nil.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
