package commands

import (
	"fmt"

	"github.com/datquest/docquery/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewSessionCommand creates the session command.
func NewSessionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect or clear stored session state",
		Long: `Sessions hold the selected company, model name, model record id and
filename. The active session is chosen with --session (default "default").`,
		Args: cobra.NoArgs,
		RunE: runSessionShow,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the active session",
		Args:  cobra.NoArgs,
		RunE:  runSessionShow,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Clear the active session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := cc.Session.Clear(commandContext(cmd)); err != nil {
				return fmt.Errorf("failed to clear session: %w", err)
			}
			if cc.Renderer.EffectiveMode() == output.ModeJSON {
				return cc.Renderer.JSON(map[string]string{"cleared": cc.Session.ID()})
			}
			cc.Renderer.Success(fmt.Sprintf("Cleared session %s", cc.Session.ID()))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			ids, err := cc.Store.List(commandContext(cmd))
			if err != nil {
				return fmt.Errorf("failed to list sessions: %w", err)
			}

			r := cc.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				if ids == nil {
					ids = []string{}
				}
				return r.JSON(ids)
			}
			rows := make([][]string, 0, len(ids))
			for _, id := range ids {
				marker := ""
				if id == cc.Session.ID() {
					marker = "*"
				}
				rows = append(rows, []string{marker, id})
			}
			r.Table([]string{"", "Session"}, rows, "(no sessions)")
			return nil
		},
	})

	return cmd
}

func runSessionShow(cmd *cobra.Command, _ []string) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	sc, err := cc.Session.Load(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}
	return renderSession(cc.Renderer, cc.Session.ID(), sc)
}
