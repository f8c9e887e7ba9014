package commands

import (
	"fmt"
	"strings"

	"github.com/datquest/docquery/internal/page"
	"github.com/spf13/cobra"
)

// AskOptions holds options for the ask command.
type AskOptions struct {
	Company string
	Model   string
}

// NewAskCommand creates the ask command.
func NewAskCommand() *cobra.Command {
	opts := &AskOptions{}

	cmd := &cobra.Command{
		Use:   "ask <question...>",
		Short: "Ask a question about the uploaded documents",
		Long: `Ask a question scoped to the session's company and model. Arguments are
joined with spaces. --company and --model select before asking and are
remembered by the session.`,
		Example: `  docquery ask What is the rated voltage?
  docquery ask --company Acme --model X1 "How do I reset it?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Company, "company", "c", "", "Select this company first")
	cmd.Flags().StringVarP(&opts.Model, "model", "m", "", "Select this model (or record id) first")

	return cmd
}

func runAsk(cmd *cobra.Command, question string, opts *AskOptions) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := commandContext(cmd)
	ctrl := cc.Controller

	if opts.Company != "" {
		if err := ctrl.OnCompanySelected(ctx, opts.Company); err != nil {
			return err
		}
	} else if err := ctrl.Bootstrap(ctx); err != nil {
		return err
	}

	if opts.Model != "" {
		if _, ok := ctrl.Snapshot().Models.Find(opts.Model); !ok {
			return fmt.Errorf("unknown model %q for company %s", opts.Model, ctrl.Session(ctx).Company)
		}
		if err := ctrl.OnModelSelected(ctx, opts.Model); err != nil {
			return err
		}
	}

	if !ctrl.Snapshot().QueryEnabled {
		return errNoCompany
	}

	if err := ctrl.HandleQuery(ctx, page.QueryForm{Question: question}); err != nil {
		return err
	}

	out := ctrl.Snapshot().Output
	if err := renderMessage(cc.Renderer, out); err != nil {
		return err
	}
	return out.Err()
}
