package commands

import (
	"fmt"

	"github.com/datquest/docquery/internal/backend"
	"github.com/datquest/docquery/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewHealthCommand creates the health command.
func NewHealthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the backend is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContextWithoutSession(cmd)

			status, err := cc.Client.Health(commandContext(cmd))
			if err != nil {
				return fmt.Errorf("backend %s is unhealthy: %w", cc.Client.BaseURL(), err)
			}

			r := cc.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(map[string]string{"backend": cc.Client.BaseURL(), "status": status})
			}
			r.Success(fmt.Sprintf("%s: %s", cc.Client.BaseURL(), status))
			return nil
		},
	}
}

// NewFilesCommand creates the files command.
func NewFilesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "files",
		Short: "List files stored by the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContextWithoutSession(cmd)

			files, err := cc.Client.UploadedFiles(commandContext(cmd))
			if err != nil {
				return fmt.Errorf("failed to list files: %w", err)
			}
			return renderFiles(cc.Renderer, files)
		},
	}
}

// NewRemoveFileCommand creates the remove-file command.
func NewRemoveFileCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-file <name>",
		Short: "Remove a stored file from the backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContextWithoutSession(cmd)

			res, err := cc.Client.RemoveFile(commandContext(cmd), args[0])
			if err != nil {
				if detail, ok := backend.Detail(err); ok && detail != "" {
					return fmt.Errorf("failed to remove %s: %s", args[0], detail)
				}
				return fmt.Errorf("failed to remove %s: %w", args[0], err)
			}

			r := cc.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(res)
			}
			r.Success(res.Message)
			return renderFiles(r, res.Files)
		},
	}
}

func renderFiles(r *output.Renderer, files []string) error {
	if r.EffectiveMode() == output.ModeJSON {
		if files == nil {
			files = []string{}
		}
		return r.JSON(files)
	}
	rows := make([][]string, 0, len(files))
	for _, f := range files {
		rows = append(rows, []string{f})
	}
	r.Table([]string{"File"}, rows, "(no files)")
	return nil
}
