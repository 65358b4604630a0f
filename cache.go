package scriptkotlin

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// CacheKey is the stable logical name of one derived artifact, for example
// "script-kotlin-api". Keys identify artifacts across runs; staleness policy
// belongs to the cache implementation.
type CacheKey string

// JarGenerator deterministically produces a jar's content at the given
// output path. It must write complete, valid content or return an error;
// it is invoked at most once per cache miss.
type JarGenerator func(outputFile string) error

// JarCache maps cache keys to generated jar files.
//
// Implementations decide validity/staleness on their own; the core only
// supplies a generator per key. No cross-process mutual exclusion is
// required: generation is deterministic and idempotent, so if concurrent
// callers race on one key, last-writer-wins is acceptable.
type JarCache interface {
	// Obtain returns the path of the artifact for key, invoking generate
	// first if no valid entry exists. A failed generation leaves the entry
	// in its prior state and returns a *GenerationError.
	Obtain(key CacheKey, generate JarGenerator) (string, error)
}

// DirectoryJarCache is a JarCache storing artifacts as <dir>/<key>.jar.
//
// An existing file is considered a valid entry; invalidation is the host's
// concern (remove the file). Committed lookups are memoized in a small LRU
// so repeated Obtain calls skip the stat.
type DirectoryJarCache struct {
	dir    string
	memo   *lru.Cache[CacheKey, string]
	logger *zap.Logger
}

const cacheMemoSize = 64

// NewDirectoryJarCache creates a cache rooted at dir, creating the directory
// if needed. A nil logger disables logging.
func NewDirectoryJarCache(dir string, logger *zap.Logger) (*DirectoryJarCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	memo, err := lru.New[CacheKey, string](cacheMemoSize)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &DirectoryJarCache{dir: dir, memo: memo, logger: logger}, nil
}

// Obtain implements JarCache.
func (c *DirectoryJarCache) Obtain(key CacheKey, generate JarGenerator) (string, error) {
	if path, ok := c.memo.Get(key); ok {
		return path, nil
	}

	path := filepath.Join(c.dir, string(key)+".jar")

	if _, err := os.Stat(path); err == nil {
		c.logger.Debug("jar cache hit", zap.String("key", string(key)))
		c.memo.Add(key, path)
		return path, nil
	}

	c.logger.Info("jar cache miss, generating", zap.String("key", string(key)))

	if err := GenerateAtomically(path, generate); err != nil {
		var commitErr *CacheCommitError
		if errors.As(err, &commitErr) {
			return "", err
		}
		return "", &GenerationError{Key: key, Err: err}
	}

	c.logger.Debug("jar cache entry committed",
		zap.String("key", string(key)),
		zap.String("path", path))
	c.memo.Add(key, path)
	return path, nil
}
