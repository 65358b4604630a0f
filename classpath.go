package scriptkotlin

import "path/filepath"

// ClassPath is an ordered, immutable sequence of file-system artifacts,
// typically jar files.
//
// Construction removes duplicate paths while preserving the first
// occurrence, so a classpath never lists the same artifact twice.
// All derivation methods (Filter, Plus) return new values; a ClassPath
// handed to a consumer is never mutated.
type ClassPath struct {
	files []string
}

// NewClassPath creates a ClassPath from the given file paths.
//
// The input slice is copied and de-duplicated; empty paths are dropped.
func NewClassPath(files []string) ClassPath {
	seen := make(map[string]struct{}, len(files))
	result := make([]string, 0, len(files))

	for _, file := range files {
		if file == "" {
			continue
		}
		if _, ok := seen[file]; ok {
			continue
		}
		seen[file] = struct{}{}
		result = append(result, file)
	}

	return ClassPath{files: result}
}

// Files returns a copy of the ordered file list.
func (cp ClassPath) Files() []string {
	return append([]string{}, cp.files...)
}

// Len returns the number of artifacts on the classpath.
func (cp ClassPath) Len() int {
	return len(cp.files)
}

// Filter returns a new ClassPath containing only the files whose base name
// satisfies pred. Order is preserved.
func (cp ClassPath) Filter(pred func(name string) bool) ClassPath {
	var result []string
	for _, file := range cp.files {
		if pred(filepath.Base(file)) {
			result = append(result, file)
		}
	}
	return ClassPath{files: result}
}

// Plus returns the concatenation of cp and other, de-duplicated with cp's
// entries taking precedence.
func (cp ClassPath) Plus(other ClassPath) ClassPath {
	return NewClassPath(append(cp.Files(), other.files...))
}
