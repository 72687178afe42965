package validation

import (
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"unicode/utf8"

	errors "github.com/frahmantamala/credential-vault/internal"
	"github.com/frahmantamala/credential-vault/internal/core/ids"
)

type ValidatorFunc func(interface{}) *errors.AppError

type FieldValidator struct {
	FieldName  string
	Value      interface{}
	Validators []ValidatorFunc
}

type ValidationBuilder struct {
	fields []*FieldValidator
}

func NewValidator() *ValidationBuilder {
	return &ValidationBuilder{
		fields: make([]*FieldValidator, 0),
	}
}

func (v *ValidationBuilder) Field(name string, value interface{}) *FieldValidator {
	fv := &FieldValidator{
		FieldName:  name,
		Value:      value,
		Validators: make([]ValidatorFunc, 0),
	}
	v.fields = append(v.fields, fv)
	return fv
}

func (fv *FieldValidator) fail(message string, code errors.ErrorCode) *errors.AppError {
	return errors.NewValidationFieldError(fv.FieldName, message, code)
}

func stringValue(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case *string:
		if v == nil {
			return "", false
		}
		return *v, true
	}
	return "", false
}

func (fv *FieldValidator) Required() *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		switch v := value.(type) {
		case string:
			if strings.TrimSpace(v) == "" {
				return fv.fail(fmt.Sprintf("%s is required", fv.FieldName), errors.ErrCodeValidationFailed)
			}
		case int:
			if v == 0 {
				return fv.fail(fmt.Sprintf("%s is required", fv.FieldName), errors.ErrCodeValidationFailed)
			}
		case *string:
			if v == nil || strings.TrimSpace(*v) == "" {
				return fv.fail(fmt.Sprintf("%s is required", fv.FieldName), errors.ErrCodeValidationFailed)
			}
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) MinInt(min int) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := value.(int); ok && v < min {
			return fv.fail(fmt.Sprintf("%s must be at least %d", fv.FieldName, min), errors.ErrCodeValidationFailed)
		}
		return nil
	})
	return fv
}

// MinLength and MaxLength count runes and skip absent optional values.
func (fv *FieldValidator) MinLength(min int) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := stringValue(value); ok {
			if utf8.RuneCountInString(strings.TrimSpace(v)) < min {
				message := fmt.Sprintf("%s must be at least %d characters", fv.FieldName, min)
				return fv.fail(message, errors.ErrCodeValidationFailed)
			}
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) MaxLength(max int) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := stringValue(value); ok {
			if utf8.RuneCountInString(v) > max {
				message := fmt.Sprintf("%s must not exceed %d characters", fv.FieldName, max)
				return fv.fail(message, errors.ErrCodeValidationFailed)
			}
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) Email() *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := stringValue(value); ok && v != "" {
			addr, err := mail.ParseAddress(v)
			if err != nil || addr.Address != v {
				return fv.fail(fmt.Sprintf("%s must be a valid email", fv.FieldName), errors.ErrCodeValidationFailed)
			}
		}
		return nil
	})
	return fv
}

// URI requires an absolute URI with a scheme and host.
func (fv *FieldValidator) URI() *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := stringValue(value); ok && v != "" {
			u, err := url.ParseRequestURI(v)
			if err != nil || u.Scheme == "" || u.Host == "" {
				return fv.fail(fmt.Sprintf("%s must be a valid uri", fv.FieldName), errors.ErrCodeValidationFailed)
			}
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) OneOf(allowed ...string) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := stringValue(value); ok && v != "" {
			for _, a := range allowed {
				if v == a {
					return nil
				}
			}
			message := fmt.Sprintf("%s must be one of [%s]", fv.FieldName, strings.Join(allowed, ", "))
			return fv.fail(message, errors.ErrCodeValidationFailed)
		}
		return nil
	})
	return fv
}

// ID checks identifier format when a value is present.
func (fv *FieldValidator) ID() *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := stringValue(value); ok && v != "" && !ids.Valid(v) {
			return fv.fail(fmt.Sprintf("%s is not a valid id", fv.FieldName), errors.ErrCodeInvalidID)
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) Custom(validator func(interface{}) *errors.AppError) *FieldValidator {
	fv.Validators = append(fv.Validators, validator)
	return fv
}

// Validate runs every field and returns one aggregated error; the first failure per field wins.
func (v *ValidationBuilder) Validate() *errors.AppError {
	var validationErrors []errors.ValidationError

	for _, field := range v.fields {
		for _, validator := range field.Validators {
			err := validator(field.Value)
			if err == nil {
				continue
			}
			if details, ok := err.Details.(errors.ValidationErrors); ok {
				validationErrors = append(validationErrors, details.Errors...)
			} else {
				validationErrors = append(validationErrors, errors.ValidationError{
					Field:   field.FieldName,
					Message: err.Message,
					Code:    string(err.Code),
				})
			}
			break
		}
	}

	if len(validationErrors) > 0 {
		return errors.NewValidationError("Validation failed", errors.ErrCodeValidationFailed).
			WithDetails(errors.ValidationErrors{Errors: validationErrors})
	}

	return nil
}

// ValidateID is the common "validate id format" step before a lookup.
func ValidateID(field, id string) *errors.AppError {
	if !ids.Valid(id) {
		return errors.NewValidationFieldError(field, fmt.Sprintf("%s is not a valid id", field), errors.ErrCodeInvalidID)
	}
	return nil
}
