package validation

import (
	"fmt"
	"strings"

	errors "github.com/frahmantamala/habilitation-management/internal"
)

type ValidatorFunc func(interface{}) *errors.ValidationError

type FieldValidator struct {
	FieldName  string
	Value      interface{}
	Validators []ValidatorFunc
}

// ValidationBuilder accumulates per-field rules and reports every failure at
// once, so clients see the full list rather than the first offender.
type ValidationBuilder struct {
	fields []FieldValidator
}

func NewValidator() *ValidationBuilder {
	return &ValidationBuilder{
		fields: make([]FieldValidator, 0),
	}
}

func (v *ValidationBuilder) Field(name string, value interface{}) *FieldValidator {
	fv := FieldValidator{
		FieldName:  name,
		Value:      value,
		Validators: make([]ValidatorFunc, 0),
	}
	v.fields = append(v.fields, fv)
	return &v.fields[len(v.fields)-1]
}

func (fv *FieldValidator) Required() *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.ValidationError {
		switch v := value.(type) {
		case string:
			if strings.TrimSpace(v) == "" {
				return &errors.ValidationError{
					Field:   fv.FieldName,
					Message: fmt.Sprintf("%s is required", fv.FieldName),
				}
			}
		case *string:
			if v == nil || strings.TrimSpace(*v) == "" {
				return &errors.ValidationError{
					Field:   fv.FieldName,
					Message: fmt.Sprintf("%s is required", fv.FieldName),
				}
			}
		case int64:
			if v == 0 {
				return &errors.ValidationError{
					Field:   fv.FieldName,
					Message: fmt.Sprintf("%s is required", fv.FieldName),
				}
			}
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) Email() *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.ValidationError {
		v, ok := value.(string)
		if !ok || v == "" {
			return nil
		}
		at := strings.Index(v, "@")
		if at <= 0 || at == len(v)-1 || strings.ContainsAny(v, " \t") || !strings.Contains(v[at:], ".") {
			return &errors.ValidationError{
				Field:   fv.FieldName,
				Message: fmt.Sprintf("%s must be a valid email address", fv.FieldName),
				Value:   v,
			}
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) MinLength(min int) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.ValidationError {
		if v, ok := value.(string); ok && v != "" && len(v) < min {
			return &errors.ValidationError{
				Field:   fv.FieldName,
				Message: fmt.Sprintf("%s must be at least %d characters", fv.FieldName, min),
			}
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) MaxLength(max int) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.ValidationError {
		if v, ok := value.(string); ok && len(v) > max {
			return &errors.ValidationError{
				Field:   fv.FieldName,
				Message: fmt.Sprintf("%s must not exceed %d characters", fv.FieldName, max),
			}
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) OneOf(allowed ...string) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.ValidationError {
		v, ok := value.(string)
		if !ok || v == "" {
			return nil
		}
		for _, a := range allowed {
			if v == a {
				return nil
			}
		}
		return &errors.ValidationError{
			Field:   fv.FieldName,
			Message: fmt.Sprintf("%s must be one of: %s", fv.FieldName, strings.Join(allowed, ", ")),
			Value:   v,
		}
	})
	return fv
}

func (fv *FieldValidator) Custom(validator ValidatorFunc) *FieldValidator {
	fv.Validators = append(fv.Validators, validator)
	return fv
}

// Validate runs every rule and returns a single AppError carrying all the
// field failures, or nil.
func (v *ValidationBuilder) Validate() *errors.AppError {
	var fieldErrors []errors.ValidationError

	for _, field := range v.fields {
		for _, validator := range field.Validators {
			if ferr := validator(field.Value); ferr != nil {
				fieldErrors = append(fieldErrors, *ferr)
			}
		}
	}

	if len(fieldErrors) > 0 {
		return errors.NewValidationFieldErrors(fieldErrors)
	}
	return nil
}
