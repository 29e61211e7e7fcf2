package validation

import (
	"math"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/transcriptcheck/errors"
)

var (
	validate *validator.Validate
	once     sync.Once
)

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "mapstructure"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name != "" && name != "-" {
					return name
				}
			}
			return toSnakeCase(fld.Name)
		})
		_ = validate.RegisterValidation("weights", validateWeights)
		_ = validate.RegisterValidation("window", validateWindow)
	})
	return validate
}

// Validate validates a struct using its `validate` tags.
func Validate(s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.Validation("validation failed").WithCause(err)
	}

	fieldErrors := make([]FieldError, 0, len(validationErrors))
	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		fieldName := namespacePath(e.Namespace())
		message := formatValidationError(e)
		fieldErrors = append(fieldErrors, FieldError{Field: fieldName, Message: message})
		messages = append(messages, fieldName+": "+message)
	}

	return errors.Validation(strings.Join(messages, "; ")).
		WithDetail("fields", fieldErrors)
}

// WeightsSumToOne reports whether the members of w add up to a value that
// rounds to 1. This is deliberately loose: [0.3, 0.3] passes.
func WeightsSumToOne(w []float64) bool {
	sum := 0.0
	for _, v := range w {
		sum += v
	}
	return math.Round(sum) == 1
}

// WeightsInRange reports whether every member of w lies in [0, 1].
func WeightsInRange(w []float64) bool {
	for _, v := range w {
		if v < 0 || v > 1 || math.IsNaN(v) {
			return false
		}
	}
	return true
}

func validateWeights(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.Slice && field.Kind() != reflect.Array {
		return false
	}
	if field.Len() != 2 {
		return false
	}
	w := make([]float64, field.Len())
	for i := range w {
		w[i] = field.Index(i).Float()
	}
	return WeightsInRange(w) && WeightsSumToOne(w)
}

func validateWindow(fl validator.FieldLevel) bool {
	field := fl.Field()
	if (field.Kind() != reflect.Slice && field.Kind() != reflect.Array) || field.Len() != 2 {
		return false
	}
	start, end := field.Index(0).Float(), field.Index(1).Float()
	return start >= 0 && end >= start
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "url":
		return "must be a valid URL"
	case "uuid":
		return "must be a valid UUID"
	case "oneof":
		return "must be one of: " + e.Param()
	case "weights":
		return "must be two weights in [0,1] that sum to 1"
	case "window":
		return "must be a [start, end] pair with 0 <= start <= end"
	default:
		return "is invalid"
	}
}

// namespacePath drops the root struct name: Config.validator.score_threshold
// becomes validator.score_threshold.
func namespacePath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func toSnakeCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteRune('_')
		}
		if r >= 'A' && r <= 'Z' {
			result.WriteRune(r + 32)
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}
