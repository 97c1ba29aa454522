// Package parse converts model-produced strings into Go values.
//
// Models frequently emit slightly malformed JSON for tool arguments (single
// quotes, trailing commas, unquoted keys). [ParseStringAs] repairs such input
// with jsonrepair before giving up.
package parse
