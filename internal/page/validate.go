package page

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type uploadFields struct {
	File    string `validate:"required"`
	Company string `validate:"required"`
	Model   string `validate:"required"`
}

// validateUpload returns the inline message for a missing upload field, or
// "" when the form is complete. company and model must already be trimmed.
func validateUpload(file *FileInput, company, model string) string {
	fields := uploadFields{Company: company, Model: model}
	if file != nil {
		fields.File = file.Name
	}

	err := validate.Struct(fields)
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return MsgEnterCompany
	}
	for _, fe := range verrs {
		if fe.Field() == "File" {
			return MsgSelectFile
		}
	}
	return MsgEnterCompany
}
