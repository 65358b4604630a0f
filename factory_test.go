package scriptkotlin

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// alwaysAvailableCompiler implements Compiler without ToolChecker, so the
// factory treats it as usable.
type alwaysAvailableCompiler struct{}

func (alwaysAvailableCompiler) Name() string { return "Always" }

func (alwaysAvailableCompiler) CompileToDirectory(context.Context, string, string, ClassPath) (*CompileResult, error) {
	return &CompileResult{Success: true}, nil
}

func TestNewCompilerFactoryRegistersKotlinc(t *testing.T) {
	factory := NewCompilerFactory()

	compilers := factory.ListCompilers()
	require.Len(t, compilers, 1)
	assert.Equal(t, "Kotlinc", compilers[0].Name())
}

func TestCompilerFactoryRegisterAndList(t *testing.T) {
	factory := NewCompilerFactory()
	factory.Register(&CompilerJarCompiler{CompilerJar: "/dist/kotlin-compiler.jar"})

	compilers := factory.ListCompilers()
	require.Len(t, compilers, 2)

	// The returned slice is a copy.
	compilers[0] = nil
	assert.NotNil(t, factory.ListCompilers()[0])
}

func TestCompilerForSkipsUnavailableToolchains(t *testing.T) {
	dir := t.TempDir()

	factory := &CompilerFactory{}
	factory.Register(&KotlincCompiler{KotlincPath: filepath.Join(dir, "missing-kotlinc")})
	factory.Register(alwaysAvailableCompiler{})

	compiler, err := factory.CompilerFor()
	require.NoError(t, err)
	assert.Equal(t, "Always", compiler.Name())
}

func TestCompilerForAllUnavailable(t *testing.T) {
	dir := t.TempDir()

	factory := &CompilerFactory{}
	factory.Register(&KotlincCompiler{KotlincPath: filepath.Join(dir, "missing-kotlinc")})
	factory.Register(&CompilerJarCompiler{CompilerJar: filepath.Join(dir, "missing.jar")})

	_, err := factory.CompilerFor()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Kotlinc")
	assert.Contains(t, err.Error(), "KotlinCompilerJar")
}

func TestCompilerForEmptyFactory(t *testing.T) {
	factory := &CompilerFactory{}
	_, err := factory.CompilerFor()
	require.Error(t, err)
}
