// Package schema checks the shape of a state before a tool consumes it.
//
// A Schema maps state keys to Types. Keys are required unless wrapped in
// Optional. Numbers are accepted the way JSON and YAML decoders produce them:
// an Int may arrive as a whole float64.
//
//	input := schema.Schema{
//	    "code":      schema.String(),
//	    "threshold": schema.Optional(schema.Float()),
//	}
//	if err := schema.Validate(input, state); err != nil {
//	    // schema.ValidationErrors(err) lists every failing key
//	}
//
// Schemas can also be spelled as type strings ("string", "int", "[string]",
// "?float") in configuration files and parsed with ParseTypeMap.
package schema
