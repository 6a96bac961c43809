// Package schema describes and validates plugin parameters and results with
// a subset of JSON Schema.
//
//	params := schema.Object(map[string]schema.JSON{
//		"n":                schema.IntRange(2, 1_000_000).WithDesc("vertices to create"),
//		"transaction_type": schema.StringEnum("Correlation", "Communication"),
//	}, "n")
//	err := params.Validate(map[string]any{"n": 10})
//
// Values decoded from JSON carry numbers as float64; integer schemas accept
// whole floats for that reason.
package schema
