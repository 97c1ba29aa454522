// Package tool provides typed tools that a language model can invoke.
//
// [NewTool] binds a name and description to a Go function and derives the
// input JSON schema from the function's input type. [GenericTool] hides the
// type parameters so tools can be stored in a [Catalog] and dispatched by name.
package tool
