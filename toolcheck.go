package scriptkotlin

import (
	"fmt"
	"os/exec"
	"strings"
)

// ToolChecker is an optional interface for compilers that require external
// tools.
//
// Compilers implement it to declare their toolchain dependencies so callers
// (and the CompilerFactory) can fail fast with a useful message instead of
// a mid-generation exec error.
//
// # Consumer Usage
//
//	if checker, ok := compiler.(ToolChecker); ok {
//	    if err := checker.CheckTools(); err != nil {
//	        return fmt.Errorf("compiler tools missing: %w", err)
//	    }
//	}
//
// # Thread Safety
//
// Implementations should be thread-safe as they may be called concurrently.
type ToolChecker interface {
	// RequiredTools returns the list of tools this compiler needs.
	RequiredTools() []ToolRequirement

	// CheckTools verifies that all required tools are available.
	//
	// Returns nil if all required tools are found, or an error describing
	// which tools are missing. Optional tools don't cause errors if missing.
	CheckTools() error
}

// ToolRequirement describes one external tool dependency.
//
// Examples:
//
//	ToolRequirement{Name: "kotlinc", Purpose: "Kotlin compiler launcher"}
//	ToolRequirement{Name: "java", Alternatives: []string{"java.exe"}, Purpose: "JVM"}
type ToolRequirement struct {
	// Name is the primary tool binary name (e.g., "kotlinc", "java").
	Name string

	// Alternatives are alternative binary names that can satisfy this
	// requirement. If any alternative is found, the requirement is met.
	Alternatives []string

	// Optional indicates this tool won't cause an error if missing.
	Optional bool

	// Purpose is a human-readable description of why this tool is needed.
	Purpose string
}

// CheckToolAvailable checks if a tool is available in the system PATH.
func CheckToolAvailable(tool string) error {
	_, err := exec.LookPath(tool)
	if err != nil {
		return fmt.Errorf("%s not found in PATH", tool)
	}
	return nil
}

// CheckRequiredTools verifies all required tools are available.
//
// The primary name is checked first, then each alternative in order.
// Optional tools never fail the check. All missing required tools are
// reported in a single error.
func CheckRequiredTools(requirements []ToolRequirement) error {
	var missingTools []string

	for _, req := range requirements {
		found := CheckToolAvailable(req.Name) == nil

		if !found {
			for _, alt := range req.Alternatives {
				if CheckToolAvailable(alt) == nil {
					found = true
					break
				}
			}
		}

		if !found && !req.Optional {
			if req.Purpose != "" {
				missingTools = append(missingTools, fmt.Sprintf("%s (%s)", req.Name, req.Purpose))
			} else {
				missingTools = append(missingTools, req.Name)
			}
		}
	}

	if len(missingTools) == 0 {
		return nil
	}
	if len(missingTools) == 1 {
		return fmt.Errorf("%s not found in PATH", missingTools[0])
	}
	return fmt.Errorf("missing required tools: %s", strings.Join(missingTools, ", "))
}
