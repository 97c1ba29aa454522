package utils

// Ptr returns a pointer to v. It avoids a temporary variable when the address
// of a literal must be passed where a pointer is expected.
//
// Example:
//
//	cfg := ai.GenerationConfig{Temperature: utils.Ptr(0.0)}
func Ptr[T any](v T) *T {
	return &v
}
