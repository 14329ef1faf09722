package service

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"studenthub/internal/model"
)

// validate reads the same `binding` tags gin checks when it binds a request, so
// inputs built outside HTTP follow the same rules.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	v.RegisterTagNameFunc(JSONFieldName)
	return v
}

// JSONFieldName reports a struct field by its JSON name.
func JSONFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

func validateInput(in interface{}) error {
	if err := validate.Struct(in); err != nil {
		return FieldError(err)
	}
	return nil
}

// FieldError turns the first failed rule of a validator error into a
// *model.ValidationError. Other errors are returned unchanged.
func FieldError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	return model.Invalid(fe.Field(), describeRule(fe))
}

func describeRule(fe validator.FieldError) string {
	unit := ""
	if fe.Kind() == reflect.String {
		unit = " characters"
	}
	switch fe.Tag() {
	case "required":
		return "required"
	case "email":
		return "not a valid email address"
	case "url":
		return "not a valid URL"
	case "min":
		return "must be at least " + fe.Param() + unit
	case "max":
		return "must be at most " + fe.Param() + unit
	}
	return "failed the " + fe.Tag() + " rule"
}
