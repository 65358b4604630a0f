package scriptkotlin

import (
	"fmt"
	"strings"
)

// GenerationError is returned when a jar generator callback fails.
//
// The cache entry for Key is left in its prior state; no partial artifact
// is visible at the cache path.
type GenerationError struct {
	// Key is the cache key whose generation failed.
	Key CacheKey

	// Err is the underlying failure.
	Err error
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	return fmt.Sprintf("generating %q: %v", string(e.Key), e.Err)
}

// Unwrap returns the underlying error.
func (e *GenerationError) Unwrap() error { return e.Err }

// TransformError is returned when a jar entry could not be rewritten into a
// valid class. The whole transform aborts; no partial output is exposed.
type TransformError struct {
	// Entry is the jar entry name that failed to transform.
	Entry string

	// Err is the underlying failure.
	Err error
}

// Error implements the error interface.
func (e *TransformError) Error() string {
	return fmt.Sprintf("transforming entry %q: %v", e.Entry, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransformError) Unwrap() error { return e.Err }

// MalformedClassError is returned when class-file introspection cannot
// parse an entry's bytecode.
type MalformedClassError struct {
	// Reason describes what was wrong with the class file.
	Reason string
}

// Error implements the error interface.
func (e *MalformedClassError) Error() string {
	return "malformed class file: " + e.Reason
}

// CompilationError is returned when the external compiler rejects the
// generated source. This indicates a defect in the generation logic and is
// never expected in normal operation.
type CompilationError struct {
	// Compiler is the name of the compiler that failed.
	Compiler string

	// Output holds the captured compiler output lines.
	Output []string

	// Err is the underlying process error, if any.
	Err error
}

// Error implements the error interface.
//
// The format mirrors build-tool diagnostics: the compiler name and cause
// first, then the full compiler output for debugging.
func (e *CompilationError) Error() string {
	var prefix string
	if e.Err != nil {
		prefix = fmt.Sprintf("%s compilation failed: %v", e.Compiler, e.Err)
	} else {
		prefix = fmt.Sprintf("%s compilation failed", e.Compiler)
	}

	output := strings.Join(e.Output, "\n")
	if output != "" {
		return prefix + "\n\nCompiler output:\n" + output
	}
	return prefix
}

// Unwrap returns the underlying error.
func (e *CompilationError) Unwrap() error { return e.Err }

// CacheCommitError is returned when the atomic move of a generated artifact
// into its final path could not complete, for example across volumes or due
// to permissions.
type CacheCommitError struct {
	// Path is the final artifact path that could not be committed.
	Path string

	// Err is the underlying rename failure.
	Err error
}

// Error implements the error interface.
func (e *CacheCommitError) Error() string {
	return fmt.Sprintf("committing %q: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *CacheCommitError) Unwrap() error { return e.Err }
