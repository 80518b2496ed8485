package dto

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) ToMap() map[string]string {
	return map[string]string{e.Field: e.Message}
}

func ToMap(errs []ValidationError) map[string]string {
	result := make(map[string]string)
	for _, e := range errs {
		result[e.Field] = e.Message
	}
	return result
}

func ToResponse(errs []ValidationError) string {
	var msgs []string
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

var validate = newValidator()

// newValidator reports fields by their json names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// check runs the struct tags of v and converts the failures.
func check(v interface{}) []ValidationError {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []ValidationError{{Field: "body", Message: err.Error()}}
	}

	errs := make([]ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		errs = append(errs, ValidationError{Field: fieldPath(fe), Message: message(fe)})
	}
	return errs
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "url":
		return "invalid URL format"
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}
