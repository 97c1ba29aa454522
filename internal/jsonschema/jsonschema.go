package jsonschema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Schema is the subset of JSON Schema needed to declare tool arguments.
type Schema struct {
	Type        string             `json:"type,omitempty"`
	Description string             `json:"description,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	// Items is set for array types.
	Items                *Schema `json:"items,omitempty"`
	AdditionalProperties any     `json:"additionalProperties,omitempty"`
	Enum                 []any   `json:"enum,omitempty"`
}

// GenerateJSONSchema builds the schema of T. Self-referencing struct types are
// cut at the first repetition and rendered as a plain object.
func GenerateJSONSchema[T any]() (*Schema, error) {
	return generate(reflect.TypeFor[T](), map[reflect.Type]bool{})
}

func generate(t reflect.Type, visiting map[reflect.Type]bool) (*Schema, error) {
	switch t.Kind() {
	case reflect.Ptr:
		return generate(t.Elem(), visiting)
	case reflect.String:
		return &Schema{Type: "string"}, nil
	case reflect.Bool:
		return &Schema{Type: "boolean"}, nil
	case reflect.Float32, reflect.Float64:
		return &Schema{Type: "number"}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: "integer"}, nil
	case reflect.Slice, reflect.Array:
		items, err := generate(t.Elem(), visiting)
		if err != nil {
			return nil, err
		}
		return &Schema{Type: "array", Items: items}, nil
	case reflect.Map:
		values, err := generate(t.Elem(), visiting)
		if err != nil {
			return nil, err
		}
		return &Schema{Type: "object", AdditionalProperties: values}, nil
	case reflect.Struct:
		if visiting[t] {
			return &Schema{Type: "object"}, nil
		}
		visiting[t] = true
		defer delete(visiting, t)
		return generateStruct(t, visiting)
	default:
		return &Schema{Type: "object"}, nil
	}
}

func generateStruct(t reflect.Type, visiting map[reflect.Type]bool) (*Schema, error) {
	schema := &Schema{Type: "object", Properties: map[string]*Schema{}}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		name, omitEmpty, skip := jsonName(field)
		if skip {
			continue
		}

		fieldSchema, err := generate(field.Type, visiting)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}

		requiredByTag, err := applyTag(field.Type, field.Tag.Get("jsonschema"), fieldSchema)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}

		schema.Properties[name] = fieldSchema
		if requiredByTag || (field.Type.Kind() != reflect.Ptr && !omitEmpty) {
			schema.Required = append(schema.Required, name)
		}
	}

	return schema, nil
}

func jsonName(field reflect.StructField) (name string, omitEmpty bool, skip bool) {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}

	name = field.Name
	parts := strings.Split(tag, ",")
	if parts[0] != "" {
		name = parts[0]
	}
	for _, opt := range parts[1:] {
		if opt == "omitempty" || opt == "omitzero" {
			omitEmpty = true
		}
	}
	return name, omitEmpty, false
}

// applyTag handles description=..., enum=... and required. A description may
// contain commas; everything after "description=" up to the next known key
// belongs to it.
func applyTag(fieldType reflect.Type, tag string, schema *Schema) (bool, error) {
	if tag == "" {
		return false, nil
	}

	for fieldType.Kind() == reflect.Ptr {
		fieldType = fieldType.Elem()
	}

	required := false
	for _, item := range splitTag(tag) {
		key, value, hasValue := strings.Cut(item, "=")
		switch {
		case key == "required" && !hasValue:
			required = true
		case key == "description":
			schema.Description = value
		case key == "enum":
			enumValue, err := convertEnum(fieldType, value)
			if err != nil {
				return false, err
			}
			schema.Enum = append(schema.Enum, enumValue)
		}
	}
	return required, nil
}

func splitTag(tag string) []string {
	var items []string
	for _, part := range strings.Split(tag, ",") {
		key, _, _ := strings.Cut(part, "=")
		known := key == "required" || key == "description" || key == "enum"
		if !known && len(items) > 0 && strings.HasPrefix(items[len(items)-1], "description=") {
			items[len(items)-1] += "," + part
			continue
		}
		items = append(items, part)
	}
	return items
}

func convertEnum(fieldType reflect.Type, value string) (any, error) {
	switch fieldType.Kind() {
	case reflect.String:
		return value, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse enum value %q as integer: %w", value, err)
		}
		return v, nil
	case reflect.Float32, reflect.Float64:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("parse enum value %q as number: %w", value, err)
		}
		return v, nil
	case reflect.Bool:
		v, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("parse enum value %q as bool: %w", value, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("enum tag unsupported for field type %v", fieldType)
	}
}

// JsonString returns the compact JSON form of the schema, or the indented
// form when indent is true.
func (s *Schema) JsonString(indent ...bool) (string, error) {
	var (
		data []byte
		err  error
	)
	if len(indent) > 0 && indent[0] {
		data, err = json.MarshalIndent(s, "", "  ")
	} else {
		data, err = json.Marshal(s)
	}
	if err != nil {
		return "", fmt.Errorf("failed to marshal schema to JSON: %w", err)
	}
	return string(data), nil
}

func (s *Schema) String() string {
	out, err := s.JsonString()
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return out
}
