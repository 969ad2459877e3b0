package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/giantswarm/mcp-opensearch/internal/dispatch"
)

// tagPairs validates that a slice holds an even number of items.
const tagPairs = "pairs"

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Registration only fails for an empty tag or a nil function.
	_ = v.RegisterValidation(tagPairs, func(fl validator.FieldLevel) bool {
		field := fl.Field()
		switch field.Kind() {
		case reflect.Slice, reflect.Array:
			return field.Len()%2 == 0
		default:
			return false
		}
	})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// bind decodes args into a new T and validates it. All failures are
// returned as *dispatch.ArgumentError.
func bind[T any](v *validator.Validate, args map[string]any) (*T, error) {
	if args == nil {
		args = map[string]any{}
	}

	raw, err := json.Marshal(args)
	if err != nil {
		return nil, &dispatch.ArgumentError{Fields: []dispatch.FieldError{
			{Field: "arguments", Reason: err.Error()},
		}}
	}

	out := new(T)
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, &dispatch.ArgumentError{Fields: []dispatch.FieldError{decodeFieldError(err)}}
	}

	if err := v.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, &dispatch.ArgumentError{Fields: []dispatch.FieldError{
				{Field: "arguments", Reason: err.Error()},
			}}
		}
		fields := make([]dispatch.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, dispatch.FieldError{
				Field:  fe.Field(),
				Reason: validationReason(fe),
			})
		}
		return nil, &dispatch.ArgumentError{Fields: fields}
	}

	return out, nil
}

func decodeFieldError(err error) dispatch.FieldError {
	var ute *json.UnmarshalTypeError
	if errors.As(err, &ute) && ute.Field != "" {
		return dispatch.FieldError{
			Field:  ute.Field,
			Reason: fmt.Sprintf("expected %s, got %s", jsonTypeName(ute.Type), ute.Value),
		}
	}
	return dispatch.FieldError{Field: "arguments", Reason: err.Error()}
}

func jsonTypeName(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	default:
		return t.String()
	}
}

func validationReason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.Slice || fe.Kind() == reflect.Map {
			return fmt.Sprintf("must contain at least %s items", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case tagPairs:
		if v := reflect.ValueOf(fe.Value()); v.Kind() == reflect.Slice || v.Kind() == reflect.Array {
			return fmt.Sprintf("must contain an even number of items, got %d", v.Len())
		}
		return "must be an array with an even number of items"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
