// Package validate checks request structs against their validate tags and
// turns failures into user-facing validation errors.
package validate

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/suteetoe/leasedesk/internal/apperror"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json names so messages match the request body
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Struct validates s. Rule failures become an apperror.Validation listing
// every failed field.
func Struct(ctx context.Context, s interface{}) error {
	err := validate.StructCtx(ctx, s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperror.Validation(err.Error())
	}
	return apperror.Validation(Message(verrs))
}

// Message renders field errors as "field: rule" pairs
func Message(verrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: failed '%s=%s'", field, fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s: failed '%s'", field, fe.Tag()))
		}
	}
	return "invalid request: " + strings.Join(parts, "; ")
}
