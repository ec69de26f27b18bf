package validator

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"fieldwork/internal/pkg/apperror"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate returns field -> failed tag for v, or nil when v is valid.
func Validate(v interface{}) map[string]string {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"_": err.Error()}
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return fields
}

// Check wraps Validate into an apperror.ErrInvalidInput listing the
// offending fields in a stable order.
func Check(v interface{}) error {
	fields := Validate(v)
	if len(fields) == 0 {
		return nil
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s (%s)", name, fields[name]))
	}
	return fmt.Errorf("%w: %s", apperror.ErrInvalidInput, strings.Join(parts, ", "))
}
