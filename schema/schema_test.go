package schema

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		schema  JSON
		value   any
		wantErr bool
	}{
		{"any nil", Any(), nil, false},
		{"any value", Any(), 3, false},
		{"typed nil", String(), nil, true},
		{"string", String(), "x", false},
		{"string wrong type", String(), 1, true},
		{"non-empty string", NonEmptyString(), "", true},
		{"pattern", JSON{Type: "string", Pattern: `^\d+$`}, "12", false},
		{"pattern mismatch", JSON{Type: "string", Pattern: `^\d+$`}, "a", true},
		{"int", Int(), 3, false},
		{"int from json", Int(), float64(3), false},
		{"int fraction", Int(), 3.5, true},
		{"int wrong type", Int(), "3", true},
		{"int range low", IntRange(1, 5), 0, true},
		{"int range high", IntRange(1, 5), 6, true},
		{"int range inside", IntRange(1, 5), uint8(5), false},
		{"int min", IntMin(2), 1, true},
		{"number", Number(), 0.5, false},
		{"bool", Bool(), true, false},
		{"bool wrong type", Bool(), "true", true},
		{"array", Array(String()), []any{"a", "b"}, false},
		{"array typed", Array(String()), []string{"a"}, false},
		{"array bad item", Array(String()), []any{"a", 1}, true},
		{"array not a list", Array(String()), "a", true},
		{"non-empty array", NonEmptyArray(String()), []any{}, true},
		{"enum", StringEnum("a", "b"), "b", false},
		{"enum miss", StringEnum("a", "b"), "c", true},
		{"untyped enum", Enum(1, "x"), 1, false},
		{"unknown type", JSON{Type: "date"}, "x", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schema.Validate(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_Object(t *testing.T) {
	s := Object(map[string]JSON{
		"n":     IntMin(1),
		"types": NonEmptyArray(String()),
	}, "n")

	assert.NoError(t, s.Validate(map[string]any{"n": 2, "types": []any{"Person"}, "extra": true}))
	assert.ErrorContains(t, s.Validate(map[string]any{"types": []any{"Person"}}), "required field n")
	assert.ErrorContains(t, s.Validate(map[string]any{"n": 0}), "property n")
	assert.Error(t, s.Validate([]any{1}))

	type params struct {
		N int `json:"n"`
	}
	assert.NoError(t, s.Validate(params{N: 4}))
	assert.NoError(t, s.Validate(&params{N: 4}))
	assert.Error(t, s.Validate(params{N: 0}))
}

func TestWithHelpers(t *testing.T) {
	s := Int().WithDesc("vertex count").WithDefault(10)
	assert.Equal(t, "vertex count", s.Description)
	assert.Equal(t, 10, s.Default)
	assert.Empty(t, Int().Description, "helpers return copies")
}

func TestMarshal(t *testing.T) {
	data, err := json.Marshal(Object(map[string]JSON{"n": IntRange(1, 2)}, "n"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"object","properties":{"n":{"type":"integer","minimum":1,"maximum":2}},"required":["n"]}`, string(data))
}

func TestFromType(t *testing.T) {
	type inner struct {
		Name string `json:"name"`
	}
	type result struct {
		Count    int       `json:"count" description:"how many"`
		Ratio    float64   `json:"ratio,omitempty"`
		Tags     []string  `json:"tags"`
		Inner    *inner    `json:"inner,omitempty"`
		Meta     map[string]any
		When     time.Time `json:"when"`
		Skipped  bool      `json:"-"`
		internal int
	}

	s := FromType(result{})
	assert.Equal(t, "object", s.Type)
	assert.ElementsMatch(t, []string{"count", "tags", "Meta", "when"}, s.Required)
	assert.Equal(t, "how many", s.Properties["count"].Description)
	assert.Equal(t, "integer", s.Properties["count"].Type)
	assert.Equal(t, "number", s.Properties["ratio"].Type)
	assert.Equal(t, "string", s.Properties["tags"].Items.Type)
	assert.Equal(t, "object", s.Properties["inner"].Type)
	assert.Equal(t, "date-time", s.Properties["when"].Format)
	assert.NotContains(t, s.Properties, "Skipped")
	assert.NotContains(t, s.Properties, "internal")

	assert.Equal(t, JSON{}, FromType(nil))
	assert.NoError(t, s.Validate(result{Tags: []string{}, Meta: map[string]any{}}))
}
