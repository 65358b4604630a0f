package scriptkotlin

import "strings"

// MatchesPrefix checks if a filename starts with any of the given prefixes.
//
// This is the selection rule for supporting jars: registry entries are
// picked by stable name prefixes (e.g. "kotlin-stdlib",
// "gradle-script-kotlin") rather than exact versioned names.
//
//	MatchesPrefix("kotlin-stdlib-1.0.jar", "kotlin-stdlib") // true
//	MatchesPrefix("gradle-core.jar", "kotlin-stdlib")       // false
func MatchesPrefix(filename string, prefixes ...string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(filename, prefix) {
			return true
		}
	}
	return false
}

// MatchesExtension checks if a filename has any of the given extensions,
// case-insensitively and with or without the leading dot.
//
//	MatchesExtension("gradle-api-3.0.jar", ".jar") // true
//	MatchesExtension("gradle-api-3.0.jar", "zip")  // false
func MatchesExtension(filename string, extensions ...string) bool {
	for _, ext := range extensions {
		if strings.HasSuffix(strings.ToLower(filename), strings.ToLower(ext)) {
			return true
		}
	}
	return false
}
