package schema

import (
	"reflect"
	"strings"
	"time"
)

// FromType derives a schema from the Go type of v. Struct fields use their
// json names; fields without omitempty are required and a `description` tag
// becomes the property description.
func FromType(v any) JSON {
	if v == nil {
		return JSON{}
	}
	return fromType(reflect.TypeOf(v))
}

var timeType = reflect.TypeFor[time.Time]()

func fromType(t reflect.Type) JSON {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == timeType {
		return JSON{Type: "string", Format: "date-time"}
	}

	switch t.Kind() {
	case reflect.Struct:
		return fromStruct(t)
	case reflect.Slice, reflect.Array:
		return Array(fromType(t.Elem()))
	case reflect.Map:
		return JSON{Type: "object"}
	case reflect.String:
		return String()
	case reflect.Bool:
		return Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Int()
	case reflect.Float32, reflect.Float64:
		return Number()
	default:
		return JSON{}
	}
}

func fromStruct(t reflect.Type) JSON {
	s := JSON{Type: "object", Properties: make(map[string]JSON)}
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		if name == "" {
			name = f.Name
		}

		prop := fromType(f.Type)
		if desc := f.Tag.Get("description"); desc != "" {
			prop.Description = desc
		}
		s.Properties[name] = prop
		if !strings.Contains(","+opts+",", ",omitempty,") {
			s.Required = append(s.Required, name)
		}
	}
	return s
}
