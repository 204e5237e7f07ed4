// Package changeform validates a status change before submission, mirroring
// the server's rules so that an invalid change never issues a request.
package changeform

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/nkiryanov/statusboard/internal/api"
	"github.com/nkiryanov/statusboard/internal/models"
)

var validate = validator.New()

func init() {
	// Report on the json tag instead of the Go field name
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation("future", validateFuture)
}

func validateFuture(fl validator.FieldLevel) bool {
	t, ok := fl.Field().Interface().(time.Time)
	if !ok {
		return false
	}
	return t.After(time.Now())
}

// Form is a pending status change. HasEndTime comes from the selected catalog
// entry and drives the conditional planned-end requirement.
type Form struct {
	StatusID       int64      `json:"status_id" validate:"required"`
	HasEndTime     bool       `json:"-"`
	PlannedEndTime *time.Time `json:"planned_end_time" validate:"required_if=HasEndTime true,omitempty,future"`
	Notes          string     `json:"notes" validate:"max=1000"`
}

// NewForm binds the selected status to a form.
func NewForm(status models.Status) Form {
	return Form{
		StatusID:   status.ID,
		HasEndTime: status.HasEndTime,
	}
}

// Validate returns field-keyed messages for everything wrong with the form,
// or nil when it may be submitted.
func (f Form) Validate() map[string]string {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}

	fields := make(map[string]string)
	for _, fieldError := range err.(validator.ValidationErrors) {
		var message string
		switch fieldError.Tag() {
		case "required":
			message = "Це поле обов'язкове"
		case "required_if":
			message = "Обраний статус потребує планового часу завершення"
		case "future":
			message = "Плановий час завершення має бути в майбутньому"
		case "max":
			message = "Значення задовге"
		default:
			message = "Некоректне значення"
		}
		fields[fieldError.Field()] = message
	}
	return fields
}

// Request converts a validated form into the wire payload.
func (f Form) Request() api.ChangeStatusRequest {
	return api.ChangeStatusRequest{
		StatusID:       f.StatusID,
		Notes:          f.Notes,
		PlannedEndTime: f.PlannedEndTime,
	}
}
