package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"slices"
)

// JSON is a JSON Schema node.
type JSON struct {
	Type        string          `json:"type,omitempty"`
	Description string          `json:"description,omitempty"`
	Properties  map[string]JSON `json:"properties,omitempty"`
	Required    []string        `json:"required,omitempty"`
	Items       *JSON           `json:"items,omitempty"`
	Enum        []any           `json:"enum,omitempty"`
	Default     any             `json:"default,omitempty"`
	Minimum     *float64        `json:"minimum,omitempty"`
	Maximum     *float64        `json:"maximum,omitempty"`
	MinLength   *int            `json:"minLength,omitempty"`
	MinItems    *int            `json:"minItems,omitempty"`
	Pattern     string          `json:"pattern,omitempty"`
	Format      string          `json:"format,omitempty"`
}

// Any accepts every value.
func Any() JSON { return JSON{} }

// String accepts strings.
func String() JSON { return JSON{Type: "string"} }

// NonEmptyString accepts strings of at least one byte.
func NonEmptyString() JSON {
	one := 1
	return JSON{Type: "string", MinLength: &one}
}

// StringEnum accepts one of values.
func StringEnum(values ...string) JSON {
	enum := make([]any, len(values))
	for i, v := range values {
		enum[i] = v
	}
	return JSON{Type: "string", Enum: enum}
}

// Int accepts integers.
func Int() JSON { return JSON{Type: "integer"} }

// IntRange accepts integers in [min, max].
func IntRange(min, max int) JSON {
	lo, hi := float64(min), float64(max)
	return JSON{Type: "integer", Minimum: &lo, Maximum: &hi}
}

// IntMin accepts integers of at least min.
func IntMin(min int) JSON {
	lo := float64(min)
	return JSON{Type: "integer", Minimum: &lo}
}

// Number accepts any number.
func Number() JSON { return JSON{Type: "number"} }

// Bool accepts booleans.
func Bool() JSON { return JSON{Type: "boolean"} }

// Array accepts lists whose items match items.
func Array(items JSON) JSON { return JSON{Type: "array", Items: &items} }

// NonEmptyArray accepts lists with at least one item matching items.
func NonEmptyArray(items JSON) JSON {
	one := 1
	return JSON{Type: "array", Items: &items, MinItems: &one}
}

// Object accepts maps and structs with the given properties.
func Object(properties map[string]JSON, required ...string) JSON {
	return JSON{Type: "object", Properties: properties, Required: required}
}

// Enum accepts one of values, compared with reflect.DeepEqual.
func Enum(values ...any) JSON { return JSON{Enum: values} }

// WithDesc returns a copy of s with a description.
func (s JSON) WithDesc(desc string) JSON {
	s.Description = desc
	return s
}

// WithDefault returns a copy of s with a default value.
func (s JSON) WithDefault(v any) JSON {
	s.Default = v
	return s
}

// Validate reports the first way value fails to match s.
func (s JSON) Validate(value any) error {
	if value == nil {
		if s.Type != "" {
			return fmt.Errorf("expected %s, got nil", s.Type)
		}
		return nil
	}

	switch s.Type {
	case "":
	case "string":
		if err := s.validateString(value); err != nil {
			return err
		}
	case "integer":
		n, ok := number(value)
		if !ok {
			return fmt.Errorf("expected integer, got %T", value)
		}
		if n != math.Trunc(n) {
			return fmt.Errorf("expected integer, got %v", value)
		}
		if err := s.validateRange(n); err != nil {
			return err
		}
	case "number":
		n, ok := number(value)
		if !ok {
			return fmt.Errorf("expected number, got %T", value)
		}
		if err := s.validateRange(n); err != nil {
			return err
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("expected boolean, got %T", value)
		}
	case "array":
		if err := s.validateArray(value); err != nil {
			return err
		}
	case "object":
		if err := s.validateObject(value); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported schema type %q", s.Type)
	}

	if len(s.Enum) > 0 && !slices.ContainsFunc(s.Enum, func(e any) bool { return reflect.DeepEqual(e, value) }) {
		return fmt.Errorf("value %v is not one of %v", value, s.Enum)
	}
	return nil
}

func (s JSON) validateString(value any) error {
	str, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	if s.MinLength != nil && len(str) < *s.MinLength {
		return fmt.Errorf("string length %d is below minimum %d", len(str), *s.MinLength)
	}
	if s.Pattern != "" {
		re, err := regexp.Compile(s.Pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern %q: %w", s.Pattern, err)
		}
		if !re.MatchString(str) {
			return fmt.Errorf("string %q does not match %s", str, s.Pattern)
		}
	}
	return nil
}

func (s JSON) validateRange(n float64) error {
	if s.Minimum != nil && n < *s.Minimum {
		return fmt.Errorf("value %v is below minimum %v", n, *s.Minimum)
	}
	if s.Maximum != nil && n > *s.Maximum {
		return fmt.Errorf("value %v is above maximum %v", n, *s.Maximum)
	}
	return nil
}

func (s JSON) validateArray(value any) error {
	v := reflect.ValueOf(value)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return fmt.Errorf("expected array, got %T", value)
	}
	if s.MinItems != nil && v.Len() < *s.MinItems {
		return fmt.Errorf("array has %d items, minimum is %d", v.Len(), *s.MinItems)
	}
	if s.Items == nil {
		return nil
	}
	for i := range v.Len() {
		if err := s.Items.Validate(v.Index(i).Interface()); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}

func (s JSON) validateObject(value any) error {
	obj, ok := value.(map[string]any)
	if !ok {
		v := reflect.Indirect(reflect.ValueOf(value))
		if v.Kind() != reflect.Map && v.Kind() != reflect.Struct {
			return fmt.Errorf("expected object, got %T", value)
		}
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encode object: %w", err)
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return fmt.Errorf("decode object: %w", err)
		}
	}

	for _, name := range s.Required {
		if _, ok := obj[name]; !ok {
			return fmt.Errorf("required field %s is missing", name)
		}
	}
	for name, val := range obj {
		prop, ok := s.Properties[name]
		if !ok {
			continue
		}
		if err := prop.Validate(val); err != nil {
			return fmt.Errorf("property %s: %w", name, err)
		}
	}
	return nil
}

func number(value any) (float64, bool) {
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	default:
		return 0, false
	}
}
