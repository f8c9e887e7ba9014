package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/datquest/docquery/internal/cli/output"
	"github.com/datquest/docquery/internal/page"
	"github.com/spf13/cobra"
)

// UploadOptions holds options for the upload command.
type UploadOptions struct {
	Company string
	Model   string
}

// NewUploadCommand creates the upload command.
func NewUploadCommand() *cobra.Command {
	opts := &UploadOptions{}

	cmd := &cobra.Command{
		Use:   "upload <file.pdf>",
		Short: "Upload a PDF for a company and model",
		Long: `Upload a PDF document to the backend, tagged with a company name and a
product/model code.

On success the returned record becomes the session's current company and
model, so follow-up questions are scoped to it.`,
		Example: `  # Upload a manual
  docquery upload manual.pdf --company Acme --model X1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpload(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Company, "company", "c", "", "Company name")
	cmd.Flags().StringVarP(&opts.Model, "model", "m", "", "Product/model code")

	return cmd
}

func runUpload(cmd *cobra.Command, path string, opts *UploadOptions) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := commandContext(cmd)

	var file *page.FileInput
	if path != "" {
		f, err := os.Open(path) //nolint:gosec // user-supplied upload path
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer func() { _ = f.Close() }()
		file = &page.FileInput{Name: filepath.Base(path), Content: f}
	}

	if err := cc.Controller.HandleUpload(ctx, page.UploadForm{
		File:    file,
		Company: opts.Company,
		Model:   opts.Model,
	}); err != nil {
		return err
	}

	st := cc.Controller.Snapshot()
	r := cc.Renderer

	if r.EffectiveMode() == output.ModeJSON {
		if err := r.JSON(struct {
			Status  page.Message  `json:"status"`
			Session sessionOutput `json:"session"`
		}{st.UploadStatus, newSessionOutput(cc.Session.ID(), cc.Controller.Session(ctx))}); err != nil {
			return err
		}
		return st.UploadStatus.Err()
	}

	if err := renderMessage(r, st.UploadStatus); err != nil {
		return err
	}
	if st.UploadStatus.Tone == page.ToneSuccess {
		r.Println("")
		if err := renderSession(r, cc.Session.ID(), cc.Controller.Session(ctx)); err != nil {
			return err
		}
	}
	return st.UploadStatus.Err()
}
