package archive

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"zipdir/pkg/fserr"
	"zipdir/pkg/logging"
)

// ZipFile writes the archive of roots to output, creating or truncating it
// and any missing parent directories. Options are checked before output is
// touched, so a bad method or level leaves an existing file as it was.
// Output must not lie inside one of the roots.
func ZipFile(output string, roots []string, opts ...Option) (err error) {
	o := newOptions(opts)
	if _, err := compressor(o.method, o.level); err != nil {
		return fserr.New(fserr.ErrArchiveWrite, fserr.OpHeader, output, err)
	}
	if err := checkOutside(output, roots); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fserr.New(fserr.ErrArchiveWrite, fserr.OpMkdir, filepath.Dir(output), err)
	}
	f, err := os.Create(output)
	if err != nil {
		return fserr.New(fserr.ErrArchiveWrite, fserr.OpCreate, output, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = multierr.Append(err, fserr.New(fserr.ErrArchiveWrite, fserr.OpClose, output, cerr))
		}
	}()
	return Zip(f, roots, opts...)
}

// Zip writes to w a zip archive holding every file under roots. Each entry
// is named by its path relative to its root's parent directory.
//
// w is not closed. On success the archive is complete, central directory
// included. On failure the entries written so far remain in w.
func Zip(w io.Writer, roots []string, opts ...Option) error {
	o := newOptions(opts)
	o.logger.Debug("start zip", zap.Strings("roots", roots), zap.String("method", MethodName(o.method)))

	comp, err := compressor(o.method, o.level)
	if err != nil {
		return fserr.New(fserr.ErrArchiveWrite, fserr.OpHeader, "", err)
	}

	zw := zip.NewWriter(w)
	if comp != nil {
		zw.RegisterCompressor(o.method, comp)
	}

	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return fserr.New(fserr.ErrEntryIO, fserr.OpStat, root, err)
		}
		if err := o.addToZip(zw, anchorOf(abs), abs); err != nil {
			// keep whatever was already written
			_ = zw.Flush()
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fserr.New(fserr.ErrArchiveWrite, fserr.OpFinish, "", err)
	}
	o.logger.Debug("end zip", zap.Strings("roots", roots))
	return nil
}

// checkOutside rejects an output file inside one of roots, which the walk
// would otherwise read back while writing it.
func checkOutside(output string, roots []string) error {
	out, err := filepath.Abs(output)
	if err != nil {
		return fserr.New(fserr.ErrArchiveWrite, fserr.OpCreate, output, err)
	}
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return fserr.New(fserr.ErrEntryIO, fserr.OpStat, root, err)
		}
		if rel, err := filepath.Rel(abs, out); err == nil && filepath.IsLocal(rel) {
			return fserr.New(fserr.ErrArchiveWrite, fserr.OpCreate, output,
				fmt.Errorf("output is inside root %s", root))
		}
	}
	return nil
}

// anchorOf returns the parent directory of root with a trailing separator.
// Filesystem roots already end in one.
func anchorOf(root string) string {
	parent := filepath.Dir(root)
	if !strings.HasSuffix(parent, string(filepath.Separator)) {
		parent += string(filepath.Separator)
	}
	return parent
}

// addToZip adds path, recursively for directories, naming entries relative
// to anchor. Directories produce no entries of their own.
func (o *options) addToZip(zw *zip.Writer, anchor, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fserr.New(fserr.ErrEntryIO, fserr.OpStat, path, err)
	}

	if info.IsDir() {
		children, err := os.ReadDir(path)
		if err != nil {
			return fserr.New(fserr.ErrEntryIO, fserr.OpReadDir, path, err)
		}
		for _, c := range children {
			if err := o.addToZip(zw, anchor, filepath.Join(path, c.Name())); err != nil {
				return err
			}
		}
		return nil
	}

	return o.addFile(zw, SanitizeName(path[len(anchor):], o.failsafe), path, info)
}

func (o *options) addFile(zw *zip.Writer, name, path string, info fs.FileInfo) error {
	if len(name) > maxNameLen {
		return fserr.New(fserr.ErrArchiveWrite, fserr.OpHeader, name, fserr.ErrNameTooLong)
	}
	o.logger.Debug("adding leaf", logging.Entry(name), logging.Path(path))

	f, err := os.Open(path)
	if err != nil {
		return fserr.New(fserr.ErrEntryIO, fserr.OpOpen, path, err)
	}
	defer f.Close()

	ew, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   o.method,
		Modified: info.ModTime(),
	})
	if err != nil {
		return fserr.New(fserr.ErrArchiveWrite, fserr.OpHeader, name, err)
	}

	n, err := io.Copy(o.progress.Wrap(ew), f)
	if err != nil {
		return fserr.New(fserr.ErrEntryIO, fserr.OpCopy, path, err)
	}
	o.metrics.EntryEncoded(n)
	return nil
}

// SanitizeName rewrites a relative host path into an entry name: em dashes
// become failsafe and every backslash becomes '/'. The backslash rewrite is
// a compatibility shim, not an escaping scheme: on hosts where '\' is a legal
// file name character it turns into a directory separator.
func SanitizeName(rel string, failsafe rune) string {
	name := strings.ReplaceAll(rel, string(emDash), string(failsafe))
	return strings.ReplaceAll(name, `\`, "/")
}

// TreeSize returns the total size of the regular files under roots.
// Unreadable entries are skipped.
func TreeSize(roots []string) uint64 {
	var total uint64
	for _, root := range roots {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			if info, err := d.Info(); err == nil {
				total += uint64(info.Size())
			}
			return nil
		})
	}
	return total
}
