package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: invalid value %q (%s)", configKeyFor(fe.Namespace()), fmt.Sprint(fe.Value()), fe.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

var fieldKeys = map[string]string{
	"Config.BackendURL":       "backend_url",
	"Config.Session":          "session",
	"Config.StatePath":        "state_path",
	"Config.OutputFormat":     "output",
	"Config.Timeout":          "timeout",
	"Config.UI.Port":          "ui.port",
	"Config.UI.Store":         "ui.store",
	"Config.UI.SessionSecret": "ui.session_secret",
}

func configKeyFor(namespace string) string {
	if k, ok := fieldKeys[namespace]; ok {
		return k
	}
	return namespace
}
