package contracts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

var (
	validate = newValidator()

	bearerPattern = regexp.MustCompile(`^Bearer\s+\S.*$`)
	quotedField   = regexp.MustCompile(`'([^']+)'`)
	numberField   = regexp.MustCompile(`json\.Number into ([^:\s]+)`)
	timeType      = reflect.TypeOf(time.Time{})
	numberType    = reflect.TypeOf(json.Number(""))
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return Role(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("status", func(fl validator.FieldLevel) bool {
		return Status(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("bearer", func(fl validator.FieldLevel) bool {
		return bearerPattern.MatchString(fl.Field().String())
	})
	return v
}

// Refinement checks a whole decoded value after field validation and reports
// problems against specific field paths.
type Refinement[T any] func(v *T) []FieldError

// Schema parses untrusted input into T. Parsing applies defaults for absent
// keys, decodes, validates every field and finally runs whole-object
// refinements; every problem found is reported in a single *ValidationError.
type Schema[T any] struct {
	name     string
	coerce   bool
	defaults map[string]any
	messages map[string]string
	refines  []Refinement[T]
	required []string
}

// NewSchema creates a schema for T. Non-pointer fields whose validate tag does
// not contain omitempty are required to be present in the input.
func NewSchema[T any](name string) *Schema[T] {
	s := &Schema[T]{
		name:     name,
		defaults: map[string]any{},
		messages: map[string]string{},
	}
	var zero T
	t := reflect.TypeOf(zero)
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		switch f.Type.Kind() {
		case reflect.Ptr, reflect.Interface, reflect.Map:
			continue
		}
		if strings.Contains(f.Tag.Get("validate"), "omitempty") {
			continue
		}
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			continue
		}
		s.required = append(s.required, name)
	}
	return s
}

// Name identifies the schema in error messages.
func (s *Schema[T]) Name() string { return s.name }

// Default sets the wire value used when key is absent from the input.
func (s *Schema[T]) Default(key string, value any) *Schema[T] {
	s.defaults[key] = value
	return s
}

// Coerce allows string input for numeric and boolean fields, as found in URL
// query strings.
func (s *Schema[T]) Coerce() *Schema[T] {
	s.coerce = true
	return s
}

// Message overrides the message reported when field fails rule.
func (s *Schema[T]) Message(field, rule, message string) *Schema[T] {
	s.messages[field+"."+rule] = message
	return s
}

// Refine adds a whole-object check that runs after field validation.
func (s *Schema[T]) Refine(r Refinement[T]) *Schema[T] {
	s.refines = append(s.refines, r)
	return s
}

// MustParse is Parse for inputs known to be valid, such as fixtures.
func (s *Schema[T]) MustParse(input any) T {
	v, err := s.Parse(input)
	if err != nil {
		panic(err)
	}
	return v
}

// Parse validates input and returns the normalized value. Input may be JSON
// bytes, a map, url.Values, or a T (or *T) that is re-validated.
func (s *Schema[T]) Parse(input any) (T, error) {
	var zero T

	raw, err := toMap(input)
	if err != nil {
		return zero, &ValidationError{Schema: s.name, Errors: []FieldError{{
			Rule:    "type",
			Message: fmt.Sprintf("%s: %v", s.name, err),
		}}}
	}

	for k, v := range s.defaults {
		if isAbsent(raw, k) {
			raw[k] = v
		}
	}

	var errs []FieldError
	failed := map[string]bool{}

	for _, field := range s.required {
		if isAbsent(raw, field) {
			failed[field] = true
			errs = append(errs, s.fieldError(field, "required", ""))
		}
	}

	var out T
	for _, de := range s.decode(raw, &out) {
		if failed[rootField(de.Field)] {
			continue
		}
		failed[rootField(de.Field)] = true
		errs = append(errs, de)
	}

	if err := validate.Struct(&out); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return zero, fmt.Errorf("validating %s: %w", s.name, err)
		}
		for _, fe := range verrs {
			field := fieldPath(fe.Namespace())
			if failed[rootField(field)] {
				continue
			}
			errs = append(errs, s.fieldError(field, fe.Tag(), fe.Param()))
		}
	}

	for _, refine := range s.refines {
		errs = append(errs, refine(&out)...)
	}

	if len(errs) > 0 {
		return zero, &ValidationError{Schema: s.name, Errors: errs}
	}
	return out, nil
}

func (s *Schema[T]) decode(raw map[string]any, out *T) []FieldError {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           out,
		WeaklyTypedInput: s.coerce,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			strictNumberHook(s.coerce),
			stringToTimeHook,
		),
	})
	if err != nil {
		return []FieldError{{Rule: "type", Message: err.Error()}}
	}
	if err := dec.Decode(raw); err != nil {
		var merr *mapstructure.Error
		msgs := []string{err.Error()}
		if errors.As(err, &merr) {
			msgs = merr.Errors
		}
		out := make([]FieldError, 0, len(msgs))
		for _, msg := range msgs {
			field := ""
			if m := quotedField.FindStringSubmatch(msg); m != nil {
				field = m[1]
			} else if m := numberField.FindStringSubmatch(msg); m != nil {
				field = m[1]
			}
			out = append(out, s.fieldError(field, "type", ""))
		}
		return out
	}
	return nil
}

func (s *Schema[T]) fieldError(field, rule, param string) FieldError {
	msg, ok := s.messages[field+"."+rule]
	if !ok {
		msg = defaultMessage(field, rule, param)
	}
	return FieldError{Field: field, Rule: rule, Message: msg}
}

func defaultMessage(field, rule, param string) string {
	label := field
	if label == "" {
		label = "value"
	}
	switch rule {
	case "required":
		return label + " is required"
	case "type":
		return label + " has an invalid type"
	case "email":
		return "invalid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", label, param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", label, param)
	case "gte":
		return fmt.Sprintf("%s must be at least %s", label, param)
	case "lte":
		return fmt.Sprintf("%s must be at most %s", label, param)
	case "eq":
		return fmt.Sprintf("%s must be %s", label, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", label, strings.ReplaceAll(param, " ", ", "))
	case "role":
		return label + " must be one of: admin, developer, user"
	case "status":
		return label + " must be one of: active, inactive, pending, suspended"
	case "bearer":
		return "invalid token format"
	}
	return fmt.Sprintf("%s failed %s", label, rule)
}

// fieldPath drops the struct name validator puts in front of every namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func rootField(path string) string {
	if i := strings.IndexAny(path, ".["); i >= 0 {
		return path[:i]
	}
	return path
}

func isAbsent(m map[string]any, key string) bool {
	v, ok := m[key]
	return !ok || v == nil
}

func toMap(input any) (map[string]any, error) {
	switch v := input.(type) {
	case nil:
		return nil, errors.New("expected an object, got nothing")
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = val
		}
		return out, nil
	case url.Values:
		out := make(map[string]any, len(v))
		for k, vals := range v {
			if len(vals) == 0 || vals[0] == "" {
				continue
			}
			out[k] = vals[0]
		}
		return out, nil
	case []byte:
		return decodeJSONObject(v)
	case json.RawMessage:
		return decodeJSONObject(v)
	}

	rv := reflect.ValueOf(input)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, errors.New("expected an object, got nil")
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct && rv.Kind() != reflect.Map {
		return nil, fmt.Errorf("expected an object, got %s", rv.Kind())
	}
	b, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}
	return decodeJSONObject(b)
}

func decodeJSONObject(b []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("expected a JSON object: %w", err)
	}
	if out == nil {
		return nil, errors.New("expected a JSON object, got null")
	}
	return out, nil
}

// strictNumberHook rejects fractional numbers for integer fields and, unless
// the schema coerces, JSON numbers for string fields.
func strictNumberHook(coerce bool) mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		switch {
		case from == numberType && to.Kind() == reflect.String && to != numberType && !coerce:
			return nil, fmt.Errorf("expected a string, got number %v", data)
		case isFloat(from.Kind()) && isInteger(to.Kind()):
			if f := reflect.ValueOf(data).Float(); f != math.Trunc(f) {
				return nil, fmt.Errorf("expected an integer, got %v", f)
			}
		}
		return data, nil
	}
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

func isInteger(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

// stringToTimeHook accepts RFC 3339 timestamps and the zone-less ISO-8601 form
// the API server emits, which is read as UTC.
func stringToTimeHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != timeType || from.Kind() != reflect.String {
		return data, nil
	}
	s := reflect.ValueOf(data).String()
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05.999999999", s, time.UTC); err == nil {
		return t, nil
	}
	return nil, fmt.Errorf("invalid ISO-8601 datetime %q", s)
}
