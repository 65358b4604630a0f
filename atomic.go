package scriptkotlin

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// pendingTemps tracks temporary artifacts that survived a failed commit,
// for the best-effort end-of-process sweep.
var (
	pendingTempsMu sync.Mutex
	pendingTemps   map[string]struct{}
)

func scheduleTempCleanup(path string) {
	pendingTempsMu.Lock()
	defer pendingTempsMu.Unlock()
	if pendingTemps == nil {
		pendingTemps = make(map[string]struct{})
	}
	pendingTemps[path] = struct{}{}
}

func unscheduleTempCleanup(path string) {
	pendingTempsMu.Lock()
	defer pendingTempsMu.Unlock()
	delete(pendingTemps, path)
}

// CleanupTempArtifacts removes any temporary artifacts left behind by failed
// generations. Hosts should call it at process end as a safety net; every
// failure path already attempts eager removal.
func CleanupTempArtifacts() {
	pendingTempsMu.Lock()
	paths := make([]string, 0, len(pendingTemps))
	for path := range pendingTemps {
		paths = append(paths, path)
	}
	pendingTemps = nil
	pendingTempsMu.Unlock()

	for _, path := range paths {
		_ = os.Remove(path)
	}
}

// GenerateAtomically produces outputFile through a temporary file and an
// atomic rename.
//
// The temporary file is created in the same directory as outputFile so the
// final os.Rename stays within one volume, which is what makes the move
// atomic. On success outputFile contains exactly what generate wrote; on
// failure outputFile is untouched and the temporary file is removed (eagerly,
// plus the CleanupTempArtifacts sweep if eager removal fails).
//
// This is the sole path by which cache-backed artifacts are produced.
func GenerateAtomically(outputFile string, generate func(tmpFile string) error) error {
	dir := filepath.Dir(outputFile)
	base := filepath.Base(outputFile)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, base+".tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	scheduleTempCleanup(tmpName)

	// The generator receives a path, not an open handle.
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		unscheduleTempCleanup(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := generate(tmpName); err != nil {
		_ = os.Remove(tmpName)
		unscheduleTempCleanup(tmpName)
		return err
	}

	if err := os.Rename(tmpName, outputFile); err != nil {
		_ = os.Remove(tmpName)
		unscheduleTempCleanup(tmpName)
		return &CacheCommitError{Path: outputFile, Err: err}
	}
	unscheduleTempCleanup(tmpName)

	return nil
}
