package page

import (
	"context"
	"errors"
	"fmt"
)

// Action names a user-triggered page event.
type Action string

// Page actions.
const (
	ActionBootstrap        Action = "bootstrap"
	ActionUpload           Action = "upload"
	ActionRefreshCompanies Action = "refresh-companies"
	ActionRefreshModels    Action = "refresh-models"
	ActionSelectCompany    Action = "select-company"
	ActionSelectModel      Action = "select-model"
	ActionQuery            Action = "query"
)

// ErrUnknownAction is returned by Dispatch for unregistered actions.
var ErrUnknownAction = errors.New("unknown page action")

// Input carries the form values an action reads. Each action uses only the
// fields relevant to it.
type Input struct {
	Upload  UploadForm
	Query   QueryForm
	Company string
	Model   string
}

type handlerFunc func(c *Controller, ctx context.Context, in Input) error

var handlers = map[Action]handlerFunc{
	ActionBootstrap: func(c *Controller, ctx context.Context, _ Input) error {
		return c.Bootstrap(ctx)
	},
	ActionUpload: func(c *Controller, ctx context.Context, in Input) error {
		return c.HandleUpload(ctx, in.Upload)
	},
	ActionRefreshCompanies: func(c *Controller, ctx context.Context, _ Input) error {
		c.RefreshCompanies(ctx)
		return nil
	},
	ActionRefreshModels: func(c *Controller, ctx context.Context, in Input) error {
		c.RefreshModels(ctx, in.Company)
		return nil
	},
	ActionSelectCompany: func(c *Controller, ctx context.Context, in Input) error {
		return c.OnCompanySelected(ctx, in.Company)
	},
	ActionSelectModel: func(c *Controller, ctx context.Context, in Input) error {
		return c.OnModelSelected(ctx, in.Model)
	},
	ActionQuery: func(c *Controller, ctx context.Context, in Input) error {
		return c.HandleQuery(ctx, in.Query)
	},
}

// Actions returns the registered action names.
func Actions() []Action {
	return []Action{
		ActionBootstrap,
		ActionUpload,
		ActionRefreshCompanies,
		ActionRefreshModels,
		ActionSelectCompany,
		ActionSelectModel,
		ActionQuery,
	}
}

// Dispatch runs the handler registered for action.
func (c *Controller) Dispatch(ctx context.Context, action Action, in Input) error {
	h, ok := handlers[action]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	c.logger.Debug("page action", "action", action, "session", c.session.ID())
	return h(c, ctx, in)
}
