// Package scriptkotlin generates and caches the classpath for a Kotlin-based
// build-tool scripting DSL.
//
// From the build tool's own API jar the package derives two artifacts:
//   - a stripped API jar, with methods that would clash with generated
//     extension functions removed at the class-file level
//   - an extensions jar, containing Kotlin extension functions synthesized
//     from the API classes and compiled against the original jar
//
// Both artifacts are cache-backed and produced atomically, so concurrent
// readers never observe a partially written jar.
//
// # Basic Usage
//
// Wire a provider with the host build tool's collaborators and ask it for
// the classpath views:
//
//	cache, err := scriptkotlin.NewDirectoryJarCache(cacheDir, logger)
//	if err != nil {
//	    return err
//	}
//
//	compiler, err := scriptkotlin.NewCompilerFactory().CompilerFor()
//	if err != nil {
//	    return err
//	}
//
//	provider := scriptkotlin.NewClassPathProvider(scriptkotlin.ProviderOptions{
//	    Resolver: resolver,
//	    Registry: registry,
//	    Cache:    cache,
//	    Compiler: compiler,
//	})
//
//	classPath, err := provider.CompilationClassPath(ctx)
//
// # Architecture
//
// The generation pipeline is:
//
//	DependencyResolver (base API jar)
//	├── TransformJar      → stripped API jar (method removal)
//	└── ExtensionWriter   → Kotlin source
//	    └── Compiler      → class files
//	        └── ZipTo     → extensions jar
//
// The two derived jars are stored in a JarCache keyed by stable logical
// names, and the provider memoizes each classpath view for its lifetime.
//
// # External Collaborators
//
// Dependency resolution, the classpath registry, and the Kotlin compiler
// are owned by the host build tool; this package talks to them through the
// DependencyResolver, ClassPathRegistry and Compiler interfaces.
//
// # Requirements
//
// Requires Go 1.25 or later. The exec-based compilers need a JVM toolchain
// (kotlinc, or java plus a Kotlin compiler jar) on the PATH.
package scriptkotlin
