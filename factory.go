package scriptkotlin

import (
	"fmt"
	"strings"
)

// CompilerFactory manages the registration and selection of Kotlin
// compilers.
//
// The factory keeps an ordered registry of Compiler implementations and
// picks the first whose toolchain is actually present, so a host works
// unchanged whether a full Kotlin distribution or only a compiler jar is
// installed.
//
// # Usage
//
//	factory := scriptkotlin.NewCompilerFactory()
//	factory.Register(&scriptkotlin.CompilerJarCompiler{CompilerJar: jarPath})
//
//	compiler, err := factory.CompilerFor()
//
// # Thread Safety
//
// CompilerFactory is NOT thread-safe for registration. Register all
// compilers before concurrent use; after that, reads are safe.
type CompilerFactory struct {
	compilers []Compiler
}

// NewCompilerFactory creates a factory with the standard kotlinc launcher
// compiler registered. Additional compilers (for example a
// CompilerJarCompiler pointing at a bundled compiler jar) are registered by
// the host.
func NewCompilerFactory() *CompilerFactory {
	factory := &CompilerFactory{}
	factory.Register(&KotlincCompiler{})
	return factory
}

// Register adds a compiler to the factory.
//
// Compilers are tried in registration order. Not thread-safe; register all
// compilers before concurrent use.
func (f *CompilerFactory) Register(compiler Compiler) {
	f.compilers = append(f.compilers, compiler)
}

// ListCompilers returns a copy of all registered compilers.
func (f *CompilerFactory) ListCompilers() []Compiler {
	return append([]Compiler{}, f.compilers...)
}

// CompilerFor returns the first registered compiler whose toolchain is
// available.
//
// Compilers that don't implement ToolChecker are assumed available. If no
// compiler's tools can be found, the error lists each compiler and why it
// was skipped.
func (f *CompilerFactory) CompilerFor() (Compiler, error) {
	if len(f.compilers) == 0 {
		return nil, fmt.Errorf("no compilers registered")
	}

	var reasons []string
	for _, compiler := range f.compilers {
		checker, ok := compiler.(ToolChecker)
		if !ok {
			return compiler, nil
		}
		if err := checker.CheckTools(); err != nil {
			reasons = append(reasons, fmt.Sprintf("%s: %v", compiler.Name(), err))
			continue
		}
		return compiler, nil
	}

	return nil, fmt.Errorf("no usable Kotlin compiler found: %s", strings.Join(reasons, "; "))
}
