package scriptkotlin

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// CompileResult contains the output and status of one compiler invocation.
type CompileResult struct {
	// Success is true if compilation completed without errors.
	Success bool

	// Output holds the captured stdout/stderr lines from the compiler.
	Output []string
}

// Compiler turns one generated Kotlin source file into class files.
//
// Implementations drive an external toolchain; the generation pipeline
// treats them as an opaque capability. Failures surface as
// *CompilationError; a compiler rejecting generated source indicates a
// defect in the generation logic, never an expected condition.
//
// Implementations should be stateless and safe for concurrent use.
type Compiler interface {
	// Name returns the human-readable compiler name, used in error
	// messages and logs.
	Name() string

	// CompileToDirectory compiles sourceFile against the reference
	// classPath, producing class files under outputDir.
	//
	// Returns:
	//   - CompileResult with Success=true on success
	//   - CompileResult with Success=false plus a *CompilationError on failure
	CompileToDirectory(ctx context.Context, outputDir, sourceFile string, classPath ClassPath) (*CompileResult, error)
}

// KotlincCompiler compiles via the kotlinc launcher script.
//
// This is the default compiler when a Kotlin distribution is installed.
type KotlincCompiler struct {
	// KotlincPath overrides the launcher; empty means "kotlinc" from PATH.
	KotlincPath string

	// ExtraArgs are appended to every invocation, before the source file.
	ExtraArgs []string

	// Logger receives invocation diagnostics; nil disables logging.
	Logger *zap.Logger
}

// Name returns the compiler name.
func (c *KotlincCompiler) Name() string {
	return "Kotlinc"
}

// RequiredTools returns the tools needed by this compiler.
func (c *KotlincCompiler) RequiredTools() []ToolRequirement {
	if c.KotlincPath != "" {
		return nil
	}
	return []ToolRequirement{
		{Name: "kotlinc", Purpose: "Kotlin compiler launcher"},
	}
}

// CheckTools verifies the Kotlin toolchain is available.
func (c *KotlincCompiler) CheckTools() error {
	if c.KotlincPath != "" {
		if _, err := os.Stat(c.KotlincPath); err != nil {
			return fmt.Errorf("kotlinc launcher %s: %w", c.KotlincPath, err)
		}
		return nil
	}
	return CheckRequiredTools(c.RequiredTools())
}

// CompileToDirectory implements Compiler.
func (c *KotlincCompiler) CompileToDirectory(ctx context.Context, outputDir, sourceFile string, classPath ClassPath) (*CompileResult, error) {
	launcher := c.KotlincPath
	if launcher == "" {
		launcher = "kotlinc"
	}

	args := []string{"-d", outputDir}
	args = append(args, classPathArgs(classPath)...)
	args = append(args, c.ExtraArgs...)
	args = append(args, sourceFile)

	return runCompiler(ctx, c.Name(), c.Logger, outputDir, launcher, args)
}

// CompilerJarCompiler compiles by running the Kotlin compiler jar on a plain
// JVM. Used when only kotlin-compiler.jar is on disk, with no launcher
// scripts installed.
type CompilerJarCompiler struct {
	// CompilerJar is the path to kotlin-compiler.jar. Required.
	CompilerJar string

	// JavaPath overrides the JVM binary; empty means "java" from PATH.
	JavaPath string

	// Logger receives invocation diagnostics; nil disables logging.
	Logger *zap.Logger
}

const k2jvmMainClass = "org.jetbrains.kotlin.cli.jvm.K2JVMCompiler"

// Name returns the compiler name.
func (c *CompilerJarCompiler) Name() string {
	return "KotlinCompilerJar"
}

// RequiredTools returns the tools needed by this compiler.
func (c *CompilerJarCompiler) RequiredTools() []ToolRequirement {
	if c.JavaPath != "" {
		return nil
	}
	return []ToolRequirement{
		{Name: "java", Purpose: "JVM to host the Kotlin compiler"},
	}
}

// CheckTools verifies that a JVM and the compiler jar are available.
func (c *CompilerJarCompiler) CheckTools() error {
	if c.CompilerJar == "" {
		return fmt.Errorf("compiler jar path not configured")
	}
	if _, err := os.Stat(c.CompilerJar); err != nil {
		return fmt.Errorf("compiler jar %s: %w", c.CompilerJar, err)
	}
	if c.JavaPath != "" {
		if _, err := os.Stat(c.JavaPath); err != nil {
			return fmt.Errorf("java binary %s: %w", c.JavaPath, err)
		}
		return nil
	}
	return CheckRequiredTools(c.RequiredTools())
}

// CompileToDirectory implements Compiler.
func (c *CompilerJarCompiler) CompileToDirectory(ctx context.Context, outputDir, sourceFile string, classPath ClassPath) (*CompileResult, error) {
	java := c.JavaPath
	if java == "" {
		java = "java"
	}

	args := []string{"-cp", c.CompilerJar, k2jvmMainClass, "-d", outputDir}
	args = append(args, classPathArgs(classPath)...)
	args = append(args, sourceFile)

	return runCompiler(ctx, c.Name(), c.Logger, outputDir, java, args)
}

// classPathArgs renders the -classpath flag pair, or nothing for an empty
// classpath.
func classPathArgs(classPath ClassPath) []string {
	if classPath.Len() == 0 {
		return nil
	}
	joined := strings.Join(classPath.Files(), string(os.PathListSeparator))
	return []string{"-classpath", joined}
}

// runCompiler executes one compiler process, capturing combined output.
func runCompiler(ctx context.Context, name string, logger *zap.Logger, outputDir, bin string, args []string) (*CompileResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return &CompileResult{}, &CompilationError{Compiler: name, Err: err}
	}

	logger.Debug("invoking compiler",
		zap.String("compiler", name),
		zap.String("bin", bin),
		zap.Strings("args", args))

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = filepath.Dir(outputDir)

	output, err := cmd.CombinedOutput()
	lines := strings.Split(strings.TrimRight(string(output), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		lines = nil
	}

	result := &CompileResult{Output: lines}
	if err != nil {
		logger.Warn("compilation failed",
			zap.String("compiler", name),
			zap.Error(err))
		return result, &CompilationError{Compiler: name, Output: lines, Err: err}
	}

	result.Success = true
	return result, nil
}
