package recordstore

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/zero-day-ai/graphkit/taxonomy"
)

// plain converts values to types the encoders understand.
func plain(r Record) map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		switch v := v.(type) {
		case *taxonomy.SemanticType:
			out[k] = v.String()
		case int:
			out[k] = float64(v)
		case int64:
			out[k] = float64(v)
		default:
			out[k] = v
		}
	}
	return out
}

// MarshalJSON encodes the store as an array of objects.
func (s *Store) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Plain())
}

// UnmarshalJSON replaces the contents of s. The cursor is reset.
func (s *Store) UnmarshalJSON(data []byte) error {
	var rows []Record
	if err := json.Unmarshal(data, &rows); err != nil {
		return fmt.Errorf("decode record store: %w", err)
	}
	for i, r := range rows {
		if r == nil {
			rows[i] = Record{}
		}
	}
	s.records = rows
	s.Reset()
	return nil
}

// ToProto encodes the store as a list of structs.
func (s *Store) ToProto() (*structpb.ListValue, error) {
	list := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(s.records))}
	for i, r := range s.records {
		st, err := structpb.NewStruct(plain(r))
		if err != nil {
			return nil, fmt.Errorf("encode record %d: %w", i, err)
		}
		list.Values = append(list.Values, structpb.NewStructValue(st))
	}
	return list, nil
}

// FromProto decodes a list produced by ToProto.
func FromProto(list *structpb.ListValue) (*Store, error) {
	s := New()
	for i, v := range list.GetValues() {
		st := v.GetStructValue()
		if st == nil {
			return nil, fmt.Errorf("decode record %d: not a struct", i)
		}
		s.Append(st.AsMap())
	}
	return s, nil
}

// Plain returns the records as maps holding only strings, numbers and
// booleans, in the form JSON and protobuf encoders accept.
func (s *Store) Plain() []map[string]any {
	rows := make([]map[string]any, len(s.records))
	for i, r := range s.records {
		rows[i] = plain(r)
	}
	return rows
}

// FromValue builds a store from a *Store, a []Record, a []map[string]any or
// a []any of maps as decoded from JSON. A *Store is returned as is.
func FromValue(v any) (*Store, error) {
	switch v := v.(type) {
	case *Store:
		return v, nil
	case []Record:
		s := New()
		for _, r := range v {
			s.Append(r)
		}
		return s, nil
	case []map[string]any:
		s := New()
		for _, r := range v {
			s.Append(r)
		}
		return s, nil
	case []any:
		s := New()
		for i, item := range v {
			r, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("record %d: expected object, got %T", i, item)
			}
			s.Append(r)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported record list %T", v)
	}
}
