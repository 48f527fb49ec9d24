// Package validation runs struct-tag validation and reports failures as
// apperr validation errors keyed by json field name.
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"surfshop/internal/domain/apperr"
)

var (
	datePattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	// calendar_date: YYYY-MM-DD
	_ = v.RegisterValidation("calendar_date", func(fl validator.FieldLevel) bool {
		return datePattern.MatchString(fl.Field().String())
	})
	// clock_time: HH:MM, 24h
	_ = v.RegisterValidation("clock_time", func(fl validator.FieldLevel) bool {
		return clockPattern.MatchString(fl.Field().String())
	})
	return v
}

// Struct validates s against its `validate` tags.
// PRE: s is a struct or pointer to struct
// POST: Returns nil or an *apperr.Error of kind validation listing failed fields
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return apperr.Validation("invalid input: %v", err)
	}
	fields := make(map[string]string, len(ve))
	names := make([]string, 0, len(ve))
	for _, fe := range ve {
		fields[fe.Field()] = fe.Tag()
		names = append(names, fe.Field()+" ("+fe.Tag()+")")
	}
	sort.Strings(names)
	return apperr.ValidationFields("invalid input: "+strings.Join(names, ", "), fields)
}
