package scriptkotlin

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Entries written by ZipTo and rewritten by TransformJar carry a fixed
// timestamp so output is reproducible across runs.
var zipEpoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// TransformJar streams the jar at src into dst, rewriting the class entries
// selected by selectEntry: in a public class, any method matching conflicts
// is excised from the method table while the rest of the class is preserved.
// Non-public classes never clash with generated extensions and are left
// alone. All other entries, and selected entries with no matching methods,
// are copied byte-for-byte in their original compressed form.
//
// Given the same input and predicates the output is byte-identical. A
// malformed selected class aborts the whole transform with a
// *TransformError; partial output never reaches a final cache path because
// all cache-backed generation runs under GenerateAtomically.
func TransformJar(src, dst string, selectEntry func(name string) bool, conflicts func(Method) bool) error {
	reader, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("opening source jar: %w", err)
	}
	defer reader.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating output jar: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)

	for _, entry := range reader.File {
		if selectEntry(entry.Name) {
			if err := transformClassEntry(zw, entry, conflicts); err != nil {
				zw.Close()
				return err
			}
			continue
		}
		if err := copyRawEntry(zw, entry); err != nil {
			zw.Close()
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalizing output jar: %w", err)
	}
	return out.Close()
}

func transformClassEntry(zw *zip.Writer, entry *zip.File, conflicts func(Method) bool) error {
	rc, err := entry.Open()
	if err != nil {
		return &TransformError{Entry: entry.Name, Err: err}
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return &TransformError{Entry: entry.Name, Err: err}
	}

	parsed, err := parseClass(data)
	if err != nil {
		return &TransformError{Entry: entry.Name, Err: err}
	}

	// Extensions are only generated for public classes, so only public
	// classes are stripped; a non-public class keeps all its methods.
	if parsed.accessFlags&accPublic == 0 {
		return copyRawEntry(zw, entry)
	}

	rewritten, removed := parsed.removeMethods(conflicts)

	// Untouched classes keep their original compressed bytes.
	if removed == 0 {
		return copyRawEntry(zw, entry)
	}

	header := &zip.FileHeader{
		Name:     entry.Name,
		Method:   zip.Deflate,
		Modified: zipEpoch,
	}
	w, err := zw.CreateHeader(header)
	if err != nil {
		return &TransformError{Entry: entry.Name, Err: err}
	}
	if _, err := w.Write(rewritten); err != nil {
		return &TransformError{Entry: entry.Name, Err: err}
	}
	return nil
}

// copyRawEntry copies one entry without recompressing, preserving its header
// and compressed payload exactly.
func copyRawEntry(zw *zip.Writer, entry *zip.File) error {
	rr, err := entry.OpenRaw()
	if err != nil {
		return &TransformError{Entry: entry.Name, Err: err}
	}

	header := entry.FileHeader
	w, err := zw.CreateRaw(&header)
	if err != nil {
		return &TransformError{Entry: entry.Name, Err: err}
	}
	if _, err := io.Copy(w, rr); err != nil {
		return &TransformError{Entry: entry.Name, Err: err}
	}
	return nil
}

// ZipTo archives the contents of dir into a single jar at outputFile.
//
// Entry names are slash-separated paths relative to dir, written in lexical
// order with a fixed timestamp, so runs over identical inputs produce
// byte-identical archives. Directories are not written as entries.
func ZipTo(outputFile, dir string) error {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return fmt.Errorf("walking %s: %w", dir, err)
	}
	sort.Strings(files)

	out, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, name := range files {
		if err := zipFile(zw, dir, name); err != nil {
			zw.Close()
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalizing archive: %w", err)
	}
	return out.Close()
}

func zipFile(zw *zip.Writer, dir, name string) error {
	in, err := os.Open(filepath.Join(dir, filepath.FromSlash(name)))
	if err != nil {
		return err
	}
	defer in.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: zipEpoch,
	})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, in)
	return err
}
