// Package utils provides shared low-level helpers for the webresearch
// internals: a synchronous JSON POST helper used by model providers, deferred
// close logging, string truncation for log previews and whitespace
// normalisation for extracted page text.
package utils
