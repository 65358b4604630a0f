package scriptkotlin

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	files []string
	calls int
}

func (r *fakeResolver) ResolveAPIDependency() ([]string, error) {
	r.calls++
	return r.files, nil
}

type fakeRegistry struct {
	groups map[string]ClassPath
}

func (r fakeRegistry) ClassPathNamed(name string) ClassPath {
	return r.groups[name]
}

// fakeCompiler stands in for the external Kotlin toolchain: it records the
// generated source and drops one class file into the output directory.
type fakeCompiler struct {
	sources    []string
	classPaths []ClassPath
	calls      int
}

func (c *fakeCompiler) Name() string { return "Fake" }

func (c *fakeCompiler) CompileToDirectory(_ context.Context, outputDir, sourceFile string, classPath ClassPath) (*CompileResult, error) {
	c.calls++
	c.classPaths = append(c.classPaths, classPath)

	source, err := os.ReadFile(sourceFile)
	if err != nil {
		return nil, &CompilationError{Compiler: c.Name(), Err: err}
	}
	c.sources = append(c.sources, string(source))

	pkgDir := filepath.Join(outputDir, "org", "gradle", "script", "lang", "kotlin")
	if err := os.MkdirAll(pkgDir, 0o755); err != nil {
		return nil, &CompilationError{Compiler: c.Name(), Err: err}
	}
	if err := os.WriteFile(filepath.Join(pkgDir, "ExtensionsKt.class"), []byte{0xCA, 0xFE}, 0o644); err != nil {
		return nil, &CompilationError{Compiler: c.Name(), Err: err}
	}
	return &CompileResult{Success: true}, nil
}

func writeBaseAPIJar(t *testing.T, dir string) string {
	t.Helper()

	fooClass := buildTestClass("org/gradle/api/Foo", accPublic,
		testMethod{
			name:  "apply",
			desc:  "(Lorg/gradle/api/Action;)V",
			sig:   "(Lorg/gradle/api/Action<Lorg/gradle/api/Task;>;)V",
			flags: accPublic,
		},
	)

	jar := filepath.Join(dir, "gradle-api-3.0.jar")
	buildTestJar(t, jar, []jarEntry{
		{"META-INF/MANIFEST.MF", []byte("Manifest-Version: 1.0\n")},
		{"org/gradle/api/Foo.class", fooClass},
	})
	return jar
}

func newTestProvider(t *testing.T, resolver *fakeResolver, compiler Compiler) *ClassPathProvider {
	t.Helper()

	cache, err := NewDirectoryJarCache(filepath.Join(t.TempDir(), "cache"), nil)
	require.NoError(t, err)

	return NewClassPathProvider(ProviderOptions{
		Resolver: resolver,
		Registry: fakeRegistry{},
		Cache:    cache,
		Compiler: compiler,
	})
}

func TestCompilationClassPathEndToEnd(t *testing.T) {
	dir := t.TempDir()
	baseJar := writeBaseAPIJar(t, dir)
	libA := filepath.Join(dir, "lib-a.jar")
	libB := filepath.Join(dir, "lib-b.jar")

	resolver := &fakeResolver{files: []string{libA, baseJar, libB}}
	compiler := &fakeCompiler{}
	provider := newTestProvider(t, resolver, compiler)

	cp, err := provider.CompilationClassPath(context.Background())
	require.NoError(t, err)

	files := cp.Files()
	require.Len(t, files, 4, "base jar replaced by two derived jars")
	assert.Equal(t, libA, files[0])
	assert.Equal(t, "script-kotlin-api.jar", filepath.Base(files[1]))
	assert.Equal(t, "script-kotlin-extensions.jar", filepath.Base(files[2]))
	assert.Equal(t, libB, files[3])

	ext, err := provider.ExtensionsClassPath(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, ext.Len())
	assert.Equal(t, "script-kotlin-extensions.jar", filepath.Base(ext.Files()[0]))

	// The compiler saw the generated source and the base jar as reference
	// classpath.
	require.Equal(t, 1, compiler.calls)
	require.Len(t, compiler.sources, 1)
	assert.Contains(t, compiler.sources[0], "package org.gradle.script.lang.kotlin")
	assert.Contains(t, compiler.sources[0],
		"fun org.gradle.api.Foo.apply(f: (org.gradle.api.Task) -> Unit) = apply(Action { f(it) })")
	assert.Equal(t, []string{baseJar}, compiler.classPaths[0].Files())

	// Stripped API jar: Foo lost its conflicting method, resources kept.
	stripped := readJarEntries(t, files[1])
	node, err := ClassNodeFor(bytes.NewReader(stripped["org/gradle/api/Foo.class"]))
	require.NoError(t, err)
	assert.Empty(t, node.Methods)
	assert.Contains(t, stripped, "META-INF/MANIFEST.MF")

	// Extensions jar holds the compiled class files under the target
	// package path.
	extensions := readJarEntries(t, files[2])
	assert.Contains(t, extensions, "org/gradle/script/lang/kotlin/ExtensionsKt.class")
}

func TestCompilationClassPathIsMemoized(t *testing.T) {
	dir := t.TempDir()
	resolver := &fakeResolver{files: []string{writeBaseAPIJar(t, dir)}}
	compiler := &fakeCompiler{}
	provider := newTestProvider(t, resolver, compiler)

	first, err := provider.CompilationClassPath(context.Background())
	require.NoError(t, err)
	second, err := provider.CompilationClassPath(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.Files(), second.Files())
	assert.Equal(t, 1, resolver.calls)
	assert.Equal(t, 1, compiler.calls)
}

func TestWarmCacheSkipsGeneration(t *testing.T) {
	dir := t.TempDir()
	baseJar := writeBaseAPIJar(t, dir)

	cache, err := NewDirectoryJarCache(filepath.Join(dir, "cache"), nil)
	require.NoError(t, err)

	build := func(compiler *fakeCompiler) ClassPath {
		provider := NewClassPathProvider(ProviderOptions{
			Resolver: &fakeResolver{files: []string{baseJar}},
			Registry: fakeRegistry{},
			Cache:    cache,
			Compiler: compiler,
		})
		cp, err := provider.CompilationClassPath(context.Background())
		require.NoError(t, err)
		return cp
	}

	cold := &fakeCompiler{}
	first := build(cold)
	require.Equal(t, 1, cold.calls)

	warm := &fakeCompiler{}
	second := build(warm)
	assert.Zero(t, warm.calls, "warm cache serves both jars without regenerating")
	assert.Equal(t, first.Files(), second.Files())
}

func TestGeneratedJarsAreIdempotent(t *testing.T) {
	dir := t.TempDir()
	baseJar := writeBaseAPIJar(t, dir)

	generate := func(cacheDir string) (api, ext []byte) {
		cache, err := NewDirectoryJarCache(cacheDir, nil)
		require.NoError(t, err)

		provider := NewClassPathProvider(ProviderOptions{
			Resolver: &fakeResolver{files: []string{baseJar}},
			Registry: fakeRegistry{},
			Cache:    cache,
			Compiler: &fakeCompiler{},
		})
		cp, err := provider.CompilationClassPath(context.Background())
		require.NoError(t, err)
		require.Equal(t, 2, cp.Len())

		api, err = os.ReadFile(cp.Files()[0])
		require.NoError(t, err)
		ext, err = os.ReadFile(cp.Files()[1])
		require.NoError(t, err)
		return api, ext
	}

	apiFirst, extFirst := generate(filepath.Join(dir, "cache-one"))
	apiSecond, extSecond := generate(filepath.Join(dir, "cache-two"))

	assert.Equal(t, apiFirst, apiSecond, "stripped API jar is byte-identical across runs")
	assert.Equal(t, extFirst, extSecond, "extensions jar is byte-identical across runs")
}

func TestSupportingJars(t *testing.T) {
	registry := fakeRegistry{groups: map[string]ClassPath{
		"GRADLE_EXTENSIONS": NewClassPath([]string{
			"/dist/kotlin-stdlib-1.0.jar",
			"/dist/gradle-core.jar",
			"/dist/gradle-script-kotlin-runtime.jar",
		}),
	}}

	provider := NewClassPathProvider(ProviderOptions{
		Resolver: &fakeResolver{},
		Registry: registry,
		Compiler: &fakeCompiler{},
	})

	jars := provider.SupportingJars()
	assert.Equal(t, []string{
		"/dist/kotlin-stdlib-1.0.jar",
		"/dist/gradle-script-kotlin-runtime.jar",
	}, jars.Files())

	// Memoized: the same view comes back on repeat access.
	assert.Equal(t, jars.Files(), provider.SupportingJars().Files())
}

func TestCompilationFailureAbortsAssembly(t *testing.T) {
	dir := t.TempDir()
	resolver := &fakeResolver{files: []string{writeBaseAPIJar(t, dir)}}

	failing := &failingCompiler{}
	provider := newTestProvider(t, resolver, failing)

	_, err := provider.CompilationClassPath(context.Background())

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, CacheKey("script-kotlin-extensions"), genErr.Key)

	var compErr *CompilationError
	assert.ErrorAs(t, err, &compErr)
}

type failingCompiler struct{}

func (c *failingCompiler) Name() string { return "Failing" }

func (c *failingCompiler) CompileToDirectory(context.Context, string, string, ClassPath) (*CompileResult, error) {
	return &CompileResult{Output: []string{"error: boom"}},
		&CompilationError{Compiler: "Failing", Output: []string{"error: boom"}}
}

func TestExtensionsClassPathPropagatesFailure(t *testing.T) {
	provider := newTestProvider(t,
		&fakeResolver{files: []string{"/missing/gradle-api-3.0.jar"}},
		&fakeCompiler{})

	_, err := provider.ExtensionsClassPath(context.Background())
	require.Error(t, err)
}

func TestAssemblyIgnoresNonJarBaseArtifacts(t *testing.T) {
	dir := t.TempDir()
	baseJar := writeBaseAPIJar(t, dir)
	pom := filepath.Join(dir, "gradle-api-3.0.pom")

	compiler := &fakeCompiler{}
	provider := newTestProvider(t, &fakeResolver{files: []string{pom, baseJar}}, compiler)

	cp, err := provider.CompilationClassPath(context.Background())
	require.NoError(t, err)

	files := cp.Files()
	require.Len(t, files, 3)
	assert.Equal(t, pom, files[0], "prefix-matched non-jar passes through untouched")
	assert.Equal(t, "script-kotlin-api.jar", filepath.Base(files[1]))
	assert.Equal(t, "script-kotlin-extensions.jar", filepath.Base(files[2]))
	assert.Equal(t, 1, compiler.calls)
}

func TestAssemblyWithoutBaseJarPassesFilesThrough(t *testing.T) {
	provider := newTestProvider(t,
		&fakeResolver{files: []string{"/libs/plain-a.jar", "/libs/plain-b.jar"}},
		&fakeCompiler{})

	cp, err := provider.CompilationClassPath(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"/libs/plain-a.jar", "/libs/plain-b.jar"}, cp.Files())
}

func TestGeneratedSourceWithoutEligibleMethods(t *testing.T) {
	dir := t.TempDir()

	// Only a class with no Action-accepting methods.
	quiet := buildTestClass("org/gradle/api/Quiet", accPublic,
		testMethod{name: "getName", desc: "()Ljava/lang/String;", flags: accPublic},
	)
	jar := filepath.Join(dir, "gradle-api-3.0.jar")
	buildTestJar(t, jar, []jarEntry{{"org/gradle/api/Quiet.class", quiet}})

	compiler := &fakeCompiler{}
	provider := newTestProvider(t, &fakeResolver{files: []string{jar}}, compiler)

	cp, err := provider.CompilationClassPath(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, cp.Len())

	// The source file is still a valid Kotlin file: header only.
	require.Len(t, compiler.sources, 1)
	assert.True(t, strings.HasPrefix(compiler.sources[0], "package org.gradle.script.lang.kotlin\n"))
	assert.NotContains(t, compiler.sources[0], "fun ")
}
