// Package jsonschema generates JSON Schema documents from Go types by
// reflection. It is used to describe tool inputs to the model provider.
//
// Field names follow the json tag. A field is required unless it is a pointer
// or tagged omitempty; `jsonschema:"required"` forces it. The jsonschema tag
// also accepts description=... and enum=... entries.
package jsonschema
