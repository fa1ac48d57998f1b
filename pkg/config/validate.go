package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/getmockd/netmonkey/pkg/monkey"
)

// ValidationError reports a single invalid field.
type ValidationError struct {
	Field   string // e.g. "faults[0].code"
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks field constraints and the rules that span fields.
// All problems are returned joined; each is a *ValidationError.
func (f *File) Validate() error {
	var errs []error

	if err := structValidator().Struct(f); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			errs = append(errs, &ValidationError{
				Field:   strings.TrimPrefix(fe.Namespace(), "File."),
				Message: tagMessage(fe),
			})
		}
	}

	names := make(map[string]int, len(f.Faults))
	for i := range f.Faults {
		fault := &f.Faults[i]
		path := fmt.Sprintf("faults[%d]", i)

		if fault.Name != "" {
			if prev, dup := names[fault.Name]; dup {
				errs = append(errs, &ValidationError{
					Field:   path + ".name",
					Message: fmt.Sprintf("duplicate name %q (also faults[%d])", fault.Name, prev),
				})
			} else {
				names[fault.Name] = i
			}
		}
		errs = append(errs, fault.crossCheck(path)...)
	}

	return errors.Join(errs...)
}

func (fault *Fault) crossCheck(path string) []error {
	var errs []error

	if _, err := monkey.ParseMethod(fault.Method); err != nil {
		errs = append(errs, &ValidationError{Field: path + ".method", Message: err.Error()})
	}

	if fault.URL != "" {
		if _, err := monkey.NewRule(monkey.RuleSpec{URL: fault.URL}); err != nil {
			errs = append(errs, &ValidationError{Field: path + ".url", Message: err.Error()})
		}
	}

	if fault.Code != 0 && fault.Type != FaultCode {
		errs = append(errs, &ValidationError{Field: path + ".code", Message: "only valid for code faults"})
	}

	switch {
	case fault.Type == FaultLatency:
		d, err := time.ParseDuration(fault.Delay)
		switch {
		case err != nil:
			errs = append(errs, &ValidationError{Field: path + ".delay", Message: err.Error()})
		case d <= 0:
			errs = append(errs, &ValidationError{Field: path + ".delay", Message: "must be positive"})
		}
	case fault.Delay != "":
		errs = append(errs, &ValidationError{Field: path + ".delay", Message: "only valid for latency faults"})
	}

	return errs
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "eq":
		return fmt.Sprintf("unsupported value %q, expected %q", fmt.Sprint(fe.Value()), fe.Param())
	case "url":
		return "must be an absolute URL"
	case "gte":
		return "must be >= " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

// delay returns the parsed latency; only valid after Validate.
func (fault *Fault) delay() time.Duration {
	d, _ := time.ParseDuration(fault.Delay)
	return d
}
