package archive

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"
	"go.uber.org/multierr"

	"zipdir/pkg/fserr"
	"zipdir/pkg/logging"
)

// Unzip extracts the archive at zipPath into dest, creating dest if needed.
// The archive file is always closed before returning.
func Unzip(zipPath, dest string, opts ...Option) (err error) {
	o := newOptions(opts)
	o.logger.Debug("start unzip", logging.Archive(zipPath), logging.Path(dest))

	rc, err := openReader(zipPath)
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Close(rc))

	registerDecompressors(&rc.Reader)
	if err := o.extractAll(rc.File, dest); err != nil {
		return err
	}
	o.logger.Debug("end unzip", logging.Archive(zipPath), logging.Path(dest))
	return nil
}

// UnzipReaderAt extracts the size-byte archive readable from r into dest.
func UnzipReaderAt(r io.ReaderAt, size int64, dest string, opts ...Option) error {
	o := newOptions(opts)
	zr, err := zip.NewReader(r, size)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return fserr.New(fserr.ErrArchiveRead, fserr.OpOpen, "", err)
	}
	registerDecompressors(zr)
	return o.extractAll(zr.File, dest)
}

// openReader opens zipPath for random access. Insecure entry names are
// reported per entry during extraction rather than for the whole archive.
func openReader(zipPath string) (*zip.ReadCloser, error) {
	rc, err := zip.OpenReader(zipPath)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, fserr.New(fserr.ErrArchiveRead, fserr.OpOpen, zipPath, err)
	}
	return rc, nil
}

func (o *options) extractAll(files []*zip.File, dest string) error {
	dest, err := prepareDest(dest)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := o.extract(dest, f.Name, f.FileInfo().IsDir(), f.Open); err != nil {
			return err
		}
	}
	return nil
}

func prepareDest(dest string) (string, error) {
	abs, err := filepath.Abs(dest)
	if err != nil {
		return "", fserr.New(fserr.ErrDirectoryCreation, fserr.OpStat, dest, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return "", fserr.New(fserr.ErrDirectoryCreation, fserr.OpMkdir, abs, err)
	}
	return abs, nil
}

// targetPath maps an entry name onto dest. Names that would land outside
// dest are rejected.
func targetPath(dest, name string) (string, error) {
	local := filepath.FromSlash(name)
	if !filepath.IsLocal(local) {
		return "", fserr.New(fserr.ErrArchiveRead, fserr.OpHeader, name, fserr.ErrUnsafePath)
	}
	return filepath.Join(dest, local), nil
}

// extract materialises one entry. open is only called for files that are
// going to be written.
func (o *options) extract(dest, name string, isDir bool, open func() (io.ReadCloser, error)) error {
	target, err := targetPath(dest, name)
	if err != nil {
		return err
	}

	if isDir {
		// explicit entries are the only way empty directories come back
		o.logger.Debug("extracting directory", logging.Entry(name), logging.Path(target))
		if err := os.MkdirAll(target, 0o755); err != nil {
			return fserr.New(fserr.ErrDirectoryCreation, fserr.OpMkdir, target, err)
		}
		o.metrics.DirDecoded()
		return nil
	}

	o.logger.Debug("extracting leaf", logging.Entry(name), logging.Path(target))

	// a file's parent need not appear as an entry of its own
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fserr.New(fserr.ErrDirectoryCreation, fserr.OpMkdir, filepath.Dir(target), err)
	}

	if _, err := os.Lstat(target); err == nil {
		if !o.overwrite(target) {
			o.logger.Debug("collision filtered", logging.Path(target))
			o.metrics.CollisionSkipped()
			return nil
		}
		o.logger.Debug("collision over-written", logging.Path(target))
	} else if !errors.Is(err, os.ErrNotExist) {
		return fserr.New(fserr.ErrEntryIO, fserr.OpStat, target, err)
	}

	return o.writeEntry(name, target, open)
}

func (o *options) writeEntry(name, target string, open func() (io.ReadCloser, error)) (err error) {
	src, err := open()
	if err != nil {
		return fserr.New(fserr.ErrArchiveRead, fserr.OpOpen, name, err)
	}
	defer src.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fserr.New(fserr.ErrEntryIO, fserr.OpCreate, target, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fserr.New(fserr.ErrEntryIO, fserr.OpClose, target, cerr)
		}
	}()

	n, err := io.Copy(o.progress.Wrap(out), src)
	if err != nil {
		kind := fserr.ErrEntryIO
		if errors.Is(err, zip.ErrChecksum) || errors.Is(err, zip.ErrFormat) {
			kind = fserr.ErrArchiveRead
		}
		return fserr.New(kind, fserr.OpCopy, target, err)
	}
	o.metrics.FileDecoded(n)
	return nil
}

// List returns the entries of the archive at zipPath in stored order.
func List(zipPath string) (entries []Entry, err error) {
	rc, err := openReader(zipPath)
	if err != nil {
		return nil, err
	}
	defer multierr.AppendInvoke(&err, multierr.Close(rc))

	entries = make([]Entry, 0, len(rc.File))
	for _, f := range rc.File {
		entries = append(entries, Entry{
			Name:           f.Name,
			IsDir:          f.FileInfo().IsDir(),
			Size:           f.UncompressedSize64,
			CompressedSize: f.CompressedSize64,
			Method:         f.Method,
			Modified:       f.Modified,
		})
	}
	return entries, nil
}

// ContentSize returns the total uncompressed size of the archive's entries.
func ContentSize(zipPath string) (uint64, error) {
	entries, err := List(zipPath)
	if err != nil {
		return 0, err
	}
	var total uint64
	for _, e := range entries {
		total += e.Size
	}
	return total, nil
}
