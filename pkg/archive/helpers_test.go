package archive

import (
	"bytes"
	"hash/crc32"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
)

// writeTree creates files under root from a map of '/'-separated relative
// paths to contents.
func writeTree(t testing.TB, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("Failed to create parent of %s: %v", path, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", path, err)
		}
	}
}

// readTree returns everything under root keyed by '/'-separated relative
// path. Directories map to "" under a key with a trailing slash.
func readTree(t testing.TB, root string) map[string]string {
	t.Helper()
	tree := map[string]string{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			tree[rel+"/"] = ""
			return nil
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		tree[rel] = string(b)
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to walk %s: %v", root, err)
	}
	return tree
}

func entryNames(t testing.TB, zipPath string) []string {
	t.Helper()
	entries, err := List(zipPath)
	if err != nil {
		t.Fatalf("List(%s): %v", zipPath, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	return names
}

// rawEntry is written with CreateRaw: stored, no data descriptor.
type rawEntry struct {
	name    string
	content string
	crc     *uint32 // overrides the computed checksum
}

// buildZip assembles an archive by hand. Entries with a nil raw are written
// through CreateHeader with Deflate.
func buildZip(t testing.TB, deflated map[string]string, order []string, raw ...rawEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			t.Fatalf("CreateHeader(%s): %v", name, err)
		}
		if _, err := w.Write([]byte(deflated[name])); err != nil {
			t.Fatalf("Write(%s): %v", name, err)
		}
	}
	for _, r := range raw {
		sum := crc32.ChecksumIEEE([]byte(r.content))
		if r.crc != nil {
			sum = *r.crc
		}
		w, err := zw.CreateRaw(&zip.FileHeader{
			Name:               r.name,
			Method:             zip.Store,
			CRC32:              sum,
			CompressedSize64:   uint64(len(r.content)),
			UncompressedSize64: uint64(len(r.content)),
		})
		if err != nil {
			t.Fatalf("CreateRaw(%s): %v", r.name, err)
		}
		if _, err := w.Write([]byte(r.content)); err != nil {
			t.Fatalf("Write(%s): %v", r.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return buf.Bytes()
}

func writeZip(t testing.TB, path string, data []byte) string {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

func unzipStreamPath(zipPath, dest string) error {
	f, err := os.Open(zipPath)
	if err != nil {
		return err
	}
	defer f.Close()
	return UnzipStream(f, dest)
}
