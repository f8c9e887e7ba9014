package commands

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/datquest/docquery/internal/cli/config"
	"github.com/datquest/docquery/internal/session"
	"github.com/datquest/docquery/internal/ui"
	"github.com/spf13/cobra"
)

// ServeOptions holds options for the serve command.
// --port and --store are read through the config as ui.port and ui.store.
type ServeOptions struct {
	Open bool
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the document page in the browser",
		Long: `Start a local web server with the upload-and-query page.

Each browser gets its own session (kept in a cookie). Sessions live in
memory unless ui.store is "sqlite", in which case they share the state
database with the CLI.`,
		Example: `  # Serve on the default port
  docquery serve

  # Serve on a custom port and open the browser
  docquery serve --port 3000 --open`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().Int("port", config.DefaultUIPort, "Port to serve on")
	cmd.Flags().String("store", config.StoreMemory, "Session store (memory|sqlite)")
	cmd.Flags().BoolVar(&opts.Open, "open", false, "Open the page in the default browser")

	_ = cmd.RegisterFlagCompletionFunc("store", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{config.StoreMemory, config.StoreSQLite}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	ctx := commandContext(cmd)
	cc := NewCommandContextWithoutSession(cmd)
	uiCfg := cc.Cfg.GetUIConfig()

	store, err := openUIStore(ctx, uiCfg.Store, cc.Cfg.StatePath)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			cc.Logger.Warn("failed to close session store", "error", err)
		}
	}()

	secret := uiCfg.SessionSecret
	if secret == "" {
		secret, err = generateSessionSecret()
		if err != nil {
			return err
		}
		cc.Logger.Debug("generated session secret; browser sessions end on restart")
	}

	server := ui.NewServer(ui.Config{
		Backend:       cc.Client,
		Store:         store,
		Port:          uiCfg.Port,
		SessionSecret: secret,
		Logger:        cc.Logger,
	})

	if opts.Open {
		go openBrowser(server.URL())
	}

	r := cc.Renderer
	r.Println(fmt.Sprintf("Serving %s (backend: %s)", server.URL(), cc.Client.BaseURL()))
	r.Muted("Press Ctrl+C to stop")

	return server.Serve(ctx)
}

// openUIStore opens the session store named by kind.
func openUIStore(ctx context.Context, kind, statePath string) (session.Store, error) {
	switch kind {
	case "", config.StoreMemory:
		return session.NewMemoryStore(0), nil
	case config.StoreSQLite:
		store, err := session.OpenSQLite(ctx, statePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open session store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown session store %q (want %s or %s)", kind, config.StoreMemory, config.StoreSQLite)
	}
}

// generateSessionSecret returns a random cookie signing key.
func generateSessionSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// openBrowser opens the default browser to the specified URL.
func openBrowser(url string) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url) //nolint:noctx
	case "linux":
		cmd = exec.Command("xdg-open", url) //nolint:noctx
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url) //nolint:noctx
	default:
		return
	}

	_ = cmd.Start()
}
