package parse

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ParseStringAs parses content into T.
//
// Strings, bools and numbers are converted directly. Every other type is
// decoded as JSON; on failure the JSON is repaired and decoded again, and as
// a last resort schema-shaped wrappers such as {"type":"string","value":"x"}
// are unwrapped.
//
//	input, err := ParseStringAs[SearchInput](`{query: 'golang channels'}`)
func ParseStringAs[T any](content string) (T, error) {
	var result T
	target := reflect.ValueOf(&result).Elem()

	switch target.Kind() {
	case reflect.String:
		if unwrapped, err := tryUnwrapPrimitive(content); err == nil {
			target.SetString(unwrapped)
		} else {
			target.SetString(content)
		}
		return result, nil

	case reflect.Bool:
		v, err := parsePrimitive(content, strconv.ParseBool)
		if err != nil {
			return result, fmt.Errorf("failed to parse content as bool: %w", err)
		}
		target.SetBool(v)
		return result, nil

	case reflect.Float32, reflect.Float64:
		v, err := parsePrimitive(content, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
		if err != nil {
			return result, fmt.Errorf("failed to parse content as float: %w", err)
		}
		target.SetFloat(v)
		return result, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, err := parsePrimitive(content, func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) })
		if err != nil {
			return result, fmt.Errorf("failed to parse content as int: %w", err)
		}
		target.SetInt(v)
		return result, nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err := parsePrimitive(content, func(s string) (uint64, error) { return strconv.ParseUint(s, 10, 64) })
		if err != nil {
			return result, fmt.Errorf("failed to parse content as uint: %w", err)
		}
		target.SetUint(v)
		return result, nil
	}

	err := json.Unmarshal([]byte(content), &result)
	if err == nil {
		return result, nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(content)
	if repairErr != nil {
		return result, fmt.Errorf("failed to unmarshal content as %T and failed to repair JSON: %w (repair error: %v)", result, err, repairErr)
	}

	result = *new(T)
	if err = json.Unmarshal([]byte(repaired), &result); err == nil {
		return result, nil
	}

	if unwrapped, unwrapErr := unwrapSchemaValues(repaired); unwrapErr == nil {
		result = *new(T)
		if json.Unmarshal([]byte(unwrapped), &result) == nil {
			return result, nil
		}
	}

	return result, fmt.Errorf("failed to unmarshal repaired JSON as %T: %w (repaired: %s)", result, err, repaired)
}

func parsePrimitive[V any](content string, conv func(string) (V, error)) (V, error) {
	v, err := conv(strings.TrimSpace(content))
	if err == nil {
		return v, nil
	}
	if unwrapped, unwrapErr := tryUnwrapPrimitive(content); unwrapErr == nil {
		if v, convErr := conv(unwrapped); convErr == nil {
			return v, nil
		}
	}
	return v, err
}

// tryUnwrapPrimitive extracts the value of a {"type": ..., "value": ...} object.
func tryUnwrapPrimitive(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "{") {
		return "", fmt.Errorf("not a schema-wrapped value")
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(trimmed), &data); err != nil {
		return "", err
	}
	value, ok := schemaWrapped(data)
	if !ok {
		return "", fmt.Errorf("not a schema-wrapped value")
	}

	switch v := value.(type) {
	case string:
		return v, nil
	case float64, bool:
		return fmt.Sprintf("%v", v), nil
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(encoded), nil
	}
}

func schemaWrapped(m map[string]any) (any, bool) {
	if len(m) != 2 {
		return nil, false
	}
	if _, hasType := m["type"]; !hasType {
		return nil, false
	}
	value, hasValue := m["value"]
	return value, hasValue
}

// unwrapSchemaValues rewrites {"q": {"type": "string", "value": "x"}} into {"q": "x"}.
func unwrapSchemaValues(jsonStr string) (string, error) {
	var data any
	if err := json.Unmarshal([]byte(jsonStr), &data); err != nil {
		return "", err
	}
	encoded, err := json.Marshal(recursiveUnwrap(data))
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func recursiveUnwrap(data any) any {
	switch v := data.(type) {
	case map[string]any:
		if value, ok := schemaWrapped(v); ok {
			return recursiveUnwrap(value)
		}
		out := make(map[string]any, len(v))
		for key, val := range v {
			out[key] = recursiveUnwrap(val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = recursiveUnwrap(val)
		}
		return out
	default:
		return data
	}
}
