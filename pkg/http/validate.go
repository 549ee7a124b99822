package http

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = newValidator()

// newValidator reports fields by their wire name (query, then json tag), so
// clients see "max_events" rather than "MaxEvents".
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"query", "json"} {
			name := strings.Split(f.Tag.Get(tag), ",")[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
	return v
}

// ReadAndValidateRequest binds query/body into req, applies defaults, and validates.
// It returns a []ValidationError payload on failure, nil otherwise.
func ReadAndValidateRequest(c echo.Context, req interface{}) interface{} {
	if err := c.Bind(req); err != nil {
		return toValidationErrors(err)
	}
	if errs := DefaultAndValidate(c.Request().Context(), req); errs != nil {
		return errs
	}
	return nil
}

// DefaultAndValidate applies `default` tags and runs `validate` rules on v.
// Used for payloads that do not come through echo, e.g. queued jobs.
func DefaultAndValidate(ctx context.Context, v interface{}) []ValidationError {
	if err := defaults.Set(v); err != nil {
		return toValidationErrors(err)
	}
	if err := validate.StructCtx(ctx, v); err != nil {
		return toValidationErrors(err)
	}
	return nil
}

func toValidationErrors(err error) []ValidationError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]ValidationError, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, ValidationError{
				Code:    "ERR_" + strings.ToUpper(fe.Tag()),
				Field:   fe.Field(),
				Message: fieldMessage(fe),
				Params:  fieldParams(fe),
			})
		}
		return out
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return []ValidationError{{Code: "ERR_BIND", Message: fmt.Sprintf("%v", he.Message)}}
	}
	return []ValidationError{{Code: "ERR_UNKNOWN", Message: err.Error()}}
}

var tagMessages = map[string]string{
	"gt":   "%s must be greater than %s",
	"gte":  "%s must be at least %s",
	"lt":   "%s must be less than %s",
	"lte":  "%s must be at most %s",
	"len":  "%s must have length %s",
	"dive": "%s has an invalid element",
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	countable := fe.Kind() == reflect.Slice || fe.Kind() == reflect.String

	switch tag := fe.Tag(); {
	case tag == "required":
		return fmt.Sprintf("%s is required", field)
	case tag == "min" && countable:
		return fmt.Sprintf("%s needs at least %s items", field, fe.Param())
	case tag == "max" && countable:
		return fmt.Sprintf("%s allows at most %s items", field, fe.Param())
	case tag == "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case tag == "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case tag == "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		if format, ok := tagMessages[tag]; ok {
			return fmt.Sprintf(format, field, fe.Param())
		}
		return fmt.Sprintf("%s failed validation: %s", field, tag)
	}
}

func fieldParams(fe validator.FieldError) map[string]interface{} {
	switch fe.Tag() {
	case "min", "gte":
		return map[string]interface{}{"min": fe.Param()}
	case "max", "lte":
		return map[string]interface{}{"max": fe.Param()}
	case "gt", "lt", "len":
		return map[string]interface{}{"value": fe.Param()}
	case "oneof":
		return map[string]interface{}{"options": strings.Split(fe.Param(), " ")}
	}
	return nil
}
