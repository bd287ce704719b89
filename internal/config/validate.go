package config

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	vOnce sync.Once
	v     *validator.Validate
)

func validate() *validator.Validate {
	vOnce.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		// report koanf keys, which are what users type
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			if tag := fld.Tag.Get("koanf"); tag != "" && tag != "-" {
				return tag
			}
			return fld.Name
		})
		_ = v.RegisterValidation("promname", isPromName)
		_ = v.RegisterValidation("ascending", isAscending)
	})
	return v
}

var promName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// isPromName accepts Prometheus metric and label name fragments.
func isPromName(fl validator.FieldLevel) bool {
	return promName.MatchString(fl.Field().String())
}

// isAscending accepts a float slice whose values strictly increase, as histogram buckets must.
func isAscending(fl validator.FieldLevel) bool {
	buckets, ok := fl.Field().Interface().([]float64)
	if !ok {
		return false
	}
	for i := 1; i < len(buckets); i++ {
		if buckets[i] <= buckets[i-1] {
			return false
		}
	}
	return true
}

// Validate checks every field and joins the failures into one ErrInvalidConfig.
func (c *Config) Validate() error {
	err := validate().Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg := fe.Field() + " fails " + fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		msgs = append(msgs, fmt.Sprintf("%s (got %v)", msg, fe.Value()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}
