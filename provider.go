package scriptkotlin

import (
	"archive/zip"
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// DependencyResolver resolves the build tool's own API dependency (the
// "self-resolving" dependency) to a set of files. Exactly one of them is
// expected to be the base API jar, recognized by its name prefix.
type DependencyResolver interface {
	ResolveAPIDependency() ([]string, error)
}

// ClassPathRegistry is the host build tool's registry of named classpath
// groups, queried for the supporting-jars group.
type ClassPathRegistry interface {
	ClassPathNamed(name string) ClassPath
}

// Config holds the naming conventions the provider operates under. Zero
// fields are filled from DefaultConfig.
type Config struct {
	// APIPackagePrefix selects API class entries, internal form with a
	// trailing slash (e.g. "org/gradle/api/").
	APIPackagePrefix string

	// BaseAPIJarPrefix recognizes the base API jar among the resolved
	// dependency files (e.g. "gradle-api-").
	BaseAPIJarPrefix string

	// APIJarKey and ExtensionsJarKey are the cache keys (and so the logical
	// artifact names) of the two derived jars.
	APIJarKey        CacheKey
	ExtensionsJarKey CacheKey

	// ExtensionsPackage is the Kotlin package of the generated extensions.
	ExtensionsPackage string

	// RegistryGroup is the named classpath group holding candidate
	// supporting jars.
	RegistryGroup string

	// SupportingJarPrefixes select supporting jars from the registry group
	// by base-name prefix.
	SupportingJarPrefixes []string
}

// DefaultConfig returns the stock naming conventions.
func DefaultConfig() Config {
	return Config{
		APIPackagePrefix:      "org/gradle/api/",
		BaseAPIJarPrefix:      "gradle-api-",
		APIJarKey:             "script-kotlin-api",
		ExtensionsJarKey:      "script-kotlin-extensions",
		ExtensionsPackage:     DefaultExtensionsPackage,
		RegistryGroup:         "GRADLE_EXTENSIONS",
		SupportingJarPrefixes: []string{"kotlin-stdlib", "kotlin-reflect", "gradle-script-kotlin"},
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.APIPackagePrefix == "" {
		c.APIPackagePrefix = def.APIPackagePrefix
	}
	if c.BaseAPIJarPrefix == "" {
		c.BaseAPIJarPrefix = def.BaseAPIJarPrefix
	}
	if c.APIJarKey == "" {
		c.APIJarKey = def.APIJarKey
	}
	if c.ExtensionsJarKey == "" {
		c.ExtensionsJarKey = def.ExtensionsJarKey
	}
	if c.ExtensionsPackage == "" {
		c.ExtensionsPackage = def.ExtensionsPackage
	}
	if c.RegistryGroup == "" {
		c.RegistryGroup = def.RegistryGroup
	}
	if c.SupportingJarPrefixes == nil {
		c.SupportingJarPrefixes = def.SupportingJarPrefixes
	}
	return c
}

// ProviderOptions wires a ClassPathProvider with its collaborators.
type ProviderOptions struct {
	// Resolver resolves the base API dependency. Required.
	Resolver DependencyResolver

	// Registry supplies the supporting-jars group. Required for
	// SupportingJars; CompilationClassPath works without it.
	Registry ClassPathRegistry

	// Cache stores the two derived jars. Required.
	Cache JarCache

	// Compiler compiles the generated extension source. Required.
	Compiler Compiler

	// Config customizes naming conventions; zero fields use defaults.
	Config Config

	// Logger receives pipeline diagnostics; nil disables logging.
	Logger *zap.Logger
}

// ClassPathProvider assembles the script DSL classpath views.
//
// Each view is computed once, lazily, on first access and memoized for the
// provider's lifetime. Concurrent first accesses coordinate through a single
// initialization per view; generation itself is deterministic and
// cache-backed, so recomputation across provider instances is harmless.
type ClassPathProvider struct {
	resolver DependencyResolver
	registry ClassPathRegistry
	cache    JarCache
	compiler Compiler
	cfg      Config
	logger   *zap.Logger

	compileOnce sync.Once
	compileCP   ClassPath
	compileErr  error

	extOnce sync.Once
	extCP   ClassPath
	extErr  error

	supportOnce sync.Once
	supportCP   ClassPath
}

// NewClassPathProvider creates a provider from the given options.
func NewClassPathProvider(opts ProviderOptions) *ClassPathProvider {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassPathProvider{
		resolver: opts.Resolver,
		registry: opts.Registry,
		cache:    opts.Cache,
		compiler: opts.Compiler,
		cfg:      opts.Config.withDefaults(),
		logger:   logger,
	}
}

// CompilationClassPath returns the full generated classpath: the resolved
// API dependency files with the base API jar replaced by the stripped API
// jar and the extensions jar. All other resolved files pass through
// unchanged.
//
// The first call runs the generation pipeline (or hits the jar cache); the
// result is memoized.
func (p *ClassPathProvider) CompilationClassPath(ctx context.Context) (ClassPath, error) {
	p.compileOnce.Do(func() {
		p.compileCP, p.compileErr = p.assemble(ctx)
	})
	return p.compileCP, p.compileErr
}

// ExtensionsClassPath returns the extensions-only subset of the compilation
// classpath, selected by the extensions artifact's logical name prefix.
func (p *ClassPathProvider) ExtensionsClassPath(ctx context.Context) (ClassPath, error) {
	p.extOnce.Do(func() {
		full, err := p.CompilationClassPath(ctx)
		if err != nil {
			p.extErr = err
			return
		}
		prefix := string(p.cfg.ExtensionsJarKey)
		p.extCP = full.Filter(func(name string) bool {
			return MatchesPrefix(name, prefix)
		})
	})
	return p.extCP, p.extErr
}

// SupportingJars returns the library and runtime jars the DSL needs at
// script compile time, selected from the registry group by name prefix.
// Independent of the jar generation pipeline.
func (p *ClassPathProvider) SupportingJars() ClassPath {
	p.supportOnce.Do(func() {
		group := p.registry.ClassPathNamed(p.cfg.RegistryGroup)
		p.supportCP = group.Filter(func(name string) bool {
			return MatchesPrefix(name, p.cfg.SupportingJarPrefixes...)
		})
	})
	return p.supportCP
}

func (p *ClassPathProvider) assemble(ctx context.Context) (ClassPath, error) {
	files, err := p.resolver.ResolveAPIDependency()
	if err != nil {
		return ClassPath{}, fmt.Errorf("resolving API dependency: %w", err)
	}

	var out []string
	for _, file := range files {
		// The base API jar is recognized by name prefix; sibling artifacts
		// with the same prefix (poms, source archives) pass through.
		base := filepath.Base(file)
		if !MatchesPrefix(base, p.cfg.BaseAPIJarPrefix) || !MatchesExtension(base, ".jar") {
			out = append(out, file)
			continue
		}

		// Both derived jars come from this exact base jar within this
		// single assembly pass.
		p.logger.Info("deriving script kotlin jars", zap.String("base", file))

		apiJar, err := p.strippedAPIJar(file)
		if err != nil {
			return ClassPath{}, err
		}
		extJar, err := p.extensionsJar(ctx, file)
		if err != nil {
			return ClassPath{}, err
		}
		out = append(out, apiJar, extJar)
	}

	return NewClassPath(out), nil
}

func (p *ClassPathProvider) strippedAPIJar(baseJar string) (string, error) {
	return p.cache.Obtain(p.cfg.APIJarKey, func(outputFile string) error {
		return TransformJar(baseJar, outputFile,
			func(name string) bool { return IsAPIClassEntry(name, p.cfg.APIPackagePrefix) },
			ConflictsWithExtension)
	})
}

func (p *ClassPathProvider) extensionsJar(ctx context.Context, baseJar string) (string, error) {
	return p.cache.Obtain(p.cfg.ExtensionsJarKey, func(outputFile string) error {
		return p.runGeneration(outputFile, generationSteps{
			GenerateSource: func(sourceFile string) error {
				return p.writeExtensionSource(baseJar, sourceFile)
			},
			Compile: func(classesDir, sourceFile string) error {
				result, err := p.compiler.CompileToDirectory(ctx, classesDir, sourceFile, NewClassPath([]string{baseJar}))
				if err != nil {
					return err
				}
				p.logger.Debug("extensions compiled",
					zap.Int("outputLines", len(result.Output)))
				return nil
			},
			Archive: ZipTo,
		})
	})
}

// generationSteps is the extensions pipeline: synthesize source, compile it,
// archive the class files.
type generationSteps struct {
	// GenerateSource writes the extension declarations to sourceFile.
	GenerateSource func(sourceFile string) error

	// Compile turns sourceFile into class files under classesDir.
	Compile func(classesDir, sourceFile string) error

	// Archive zips classesDir into outputFile.
	Archive func(outputFile, classesDir string) error
}

// runGeneration executes the three generation steps in a scratch directory
// next to outputFile (same volume as the final cache path), removing it on
// every exit path.
func (p *ClassPathProvider) runGeneration(outputFile string, steps generationSteps) error {
	workDir, err := os.MkdirTemp(filepath.Dir(outputFile), "script-kotlin-gen-")
	if err != nil {
		return fmt.Errorf("creating work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	sourceFile := filepath.Join(workDir, "extensions.kt")
	classesDir := filepath.Join(workDir, "classes")

	if err := steps.GenerateSource(sourceFile); err != nil {
		return err
	}
	if err := steps.Compile(classesDir, sourceFile); err != nil {
		return err
	}
	return steps.Archive(outputFile, classesDir)
}

// writeExtensionSource introspects every API class in the base jar and
// writes one Kotlin source file with the generated extension functions.
func (p *ClassPathProvider) writeExtensionSource(baseJar, sourceFile string) error {
	reader, err := zip.OpenReader(baseJar)
	if err != nil {
		return fmt.Errorf("opening base API jar: %w", err)
	}
	defer reader.Close()

	out, err := os.Create(sourceFile)
	if err != nil {
		return fmt.Errorf("creating source file: %w", err)
	}
	defer out.Close()

	buffered := bufio.NewWriter(out)
	writer := NewExtensionWriter(buffered, p.cfg.ExtensionsPackage)

	total := 0
	for _, entry := range reader.File {
		if !IsAPIClassEntry(entry.Name, p.cfg.APIPackagePrefix) {
			continue
		}

		rc, err := entry.Open()
		if err != nil {
			return &TransformError{Entry: entry.Name, Err: err}
		}
		node, err := ClassNodeFor(rc)
		rc.Close()
		if err != nil {
			return &TransformError{Entry: entry.Name, Err: err}
		}

		n, err := writer.WriteExtensionsFor(node)
		if err != nil {
			return err
		}
		total += n
	}

	if err := writer.Finish(); err != nil {
		return err
	}
	if err := buffered.Flush(); err != nil {
		return err
	}

	p.logger.Debug("extension source generated",
		zap.String("file", sourceFile),
		zap.Int("extensions", total))
	return out.Close()
}
