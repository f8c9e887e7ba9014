package commands

import (
	"fmt"

	"github.com/datquest/docquery/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewCompaniesCommand creates the companies command.
func NewCompaniesCommand() *cobra.Command {
	var current bool

	cmd := &cobra.Command{
		Use:   "companies",
		Short: "List companies with uploaded documents",
		Long: `List the companies known to the backend. The session's selected
company is marked with *.`,
		Example: `  docquery companies
  docquery companies --current
  docquery companies -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if current {
				return runCurrentCompany(cmd)
			}
			return runCompanies(cmd)
		},
	}

	cmd.Flags().BoolVar(&current, "current", false, "Show the backend's current company instead")

	return cmd
}

func runCompanies(cmd *cobra.Command) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	cc.Controller.RefreshCompanies(commandContext(cmd))
	return renderDropdown(cc.Renderer, "Companies", cc.Controller.Snapshot().Companies, false, "(no companies)")
}

func runCurrentCompany(cmd *cobra.Command) error {
	cc := NewCommandContextWithoutSession(cmd)

	name, err := cc.Client.CurrentCompany(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to get current company: %w", err)
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(map[string]string{"company_name": name})
	}
	r.Println(orDash(name))
	return nil
}

// NewModelsCommand creates the models command.
func NewModelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "models [company]",
		Short: "List the models documented for a company",
		Long: `List the product/model documents uploaded for a company. Without an
argument the session's company is used. The session's model is marked with *.`,
		Example: `  docquery models
  docquery models Acme`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := commandContext(cmd)
			company := cc.Controller.Session(ctx).Company
			if len(args) == 1 {
				company = args[0]
			}
			if company == "" {
				return errNoCompany
			}

			cc.Controller.RefreshModels(ctx, company)
			return renderDropdown(cc.Renderer, "Models for "+company, cc.Controller.Snapshot().Models, true, "(no models)")
		},
	}
}

// NewSelectCommand creates the select command.
func NewSelectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select",
		Short: "Select the session's company or model",
		Long: `Select the company or model that questions are scoped to. The choice is
stored in the session and used by ask and shell.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "company [name]",
		Short: "Select a company",
		Long: `Select a company. Without a name, pick one from the company list
(requires a terminal).`,
		Example: `  docquery select company Acme
  docquery select company ""   # clear
  docquery select company      # pick from the list`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelectCompany(cmd, args)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "model [model|record-id]",
		Short: "Select a model of the session's company",
		Long: `Select a model of the session's company. Without an argument, pick
one from the model list (requires a terminal).`,
		Example: `  docquery select model X1
  docquery select model 65f0c1d2e3
  docquery select model        # pick from the list`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelectModel(cmd, args)
		},
	})

	return cmd
}

func runSelectCompany(cmd *cobra.Command, args []string) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := commandContext(cmd)
	ctrl := cc.Controller

	var name string
	if len(args) == 0 {
		ctrl.RefreshCompanies(ctx)
		picked, ok, err := chooseOption(cmd, "Select company", ctrl.Snapshot().Companies, "company")
		if err != nil {
			return err
		}
		if !ok {
			cc.Renderer.Muted("Selection cancelled")
			return nil
		}
		name = picked
	} else {
		name = args[0]
		if name != "" {
			ctrl.RefreshCompanies(ctx)
			companies := ctrl.Snapshot().Companies
			if _, ok := companies.Find(name); !ok && len(companies.Choices()) > 0 {
				return fmt.Errorf("unknown company %q", name)
			}
		}
	}

	if err := ctrl.OnCompanySelected(ctx, name); err != nil {
		return err
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(newSessionOutput(cc.Session.ID(), ctrl.Session(ctx)))
	}
	if name == "" {
		r.Success("Cleared company selection")
		return nil
	}
	r.Success(fmt.Sprintf("Selected company %s", name))
	return renderDropdown(r, "Models", ctrl.Snapshot().Models, true, "(no models)")
}

func runSelectModel(cmd *cobra.Command, args []string) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := commandContext(cmd)
	ctrl := cc.Controller

	company := ctrl.Session(ctx).Company
	if company == "" {
		return errNoCompany
	}
	ctrl.RefreshModels(ctx, company)

	var key string
	if len(args) == 0 {
		picked, ok, err := chooseOption(cmd, "Select model of "+company, ctrl.Snapshot().Models, "model")
		if err != nil {
			return err
		}
		if !ok {
			cc.Renderer.Muted("Selection cancelled")
			return nil
		}
		key = picked
	} else {
		key = args[0]
	}
	if _, ok := ctrl.Snapshot().Models.Find(key); !ok || key == "" {
		return fmt.Errorf("unknown model %q for company %s", key, company)
	}

	if err := ctrl.OnModelSelected(ctx, key); err != nil {
		return err
	}

	r := cc.Renderer
	sc := ctrl.Session(ctx)
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(newSessionOutput(cc.Session.ID(), sc))
	}
	r.Success(fmt.Sprintf("Selected model %s (%s)", sc.ModelName, orDash(sc.Filename)))
	return nil
}
