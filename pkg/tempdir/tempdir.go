// Package tempdir creates uniquely named empty directories and removes them,
// with everything under them, when released.
package tempdir

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"zipdir/pkg/fserr"
	"zipdir/pkg/logging"
	"zipdir/pkg/metrics"
)

// Default naming used by New.
const (
	DefaultPrefix = "TempDirectory"
	DefaultSuffix = ".tmpdir"
)

// removeFile is os.Remove, swapped in tests to simulate undeletable entries.
var removeFile = os.Remove

// resolvePath is canonical, swapped in tests to fail after the placeholder
// exists.
var resolvePath = canonical

// Dir is a temp directory owned by the caller until Release.
type Dir struct {
	path    string
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// Option configures Acquire.
type Option func(*Dir)

// WithLogger sets the logger used for acquisition and release.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dir) {
		d.logger = l
	}
}

// WithMetrics sets the counters updated on acquisition and release.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dir) {
		d.metrics = m
	}
}

// New acquires a temp directory with the default prefix and suffix in the
// system temp location.
func New(opts ...Option) (*Dir, error) {
	return Acquire(DefaultPrefix, DefaultSuffix, "", opts...)
}

// Acquire reserves a unique name "<prefix><random><suffix>" in location the
// way a temp file would be reserved, deletes the placeholder file and creates
// an empty directory at that exact path. An empty location means the system
// temp directory.
func Acquire(prefix, suffix, location string, opts ...Option) (*Dir, error) {
	d := &Dir{}
	for _, o := range opts {
		o(d)
	}
	d.logger = logging.OrNop(d.logger)

	f, err := os.CreateTemp(location, prefix+"*"+suffix)
	if err != nil {
		return nil, fserr.New(fserr.ErrReservation, fserr.OpCreateTemp, filepath.Join(location, prefix+"*"+suffix), err)
	}
	placeholder := f.Name()
	if err := f.Close(); err != nil {
		_ = os.Remove(placeholder)
		return nil, fserr.New(fserr.ErrReservation, fserr.OpClose, placeholder, err)
	}

	path, err := resolvePath(placeholder)
	if err != nil {
		_ = os.Remove(placeholder)
		return nil, fserr.New(fserr.ErrReservation, fserr.OpStat, placeholder, err)
	}
	if err := os.Remove(path); err != nil {
		return nil, fserr.New(fserr.ErrReservation, fserr.OpRemove, path, err)
	}
	if err := os.Mkdir(path, 0o700); err != nil {
		return nil, fserr.New(fserr.ErrDirectoryCreation, fserr.OpMkdir, path, err)
	}
	d.path = path

	d.metrics.TempDirAcquired()
	d.logger.Debug("created temp directory",
		zap.String("prefix", prefix),
		zap.String("suffix", suffix),
		zap.String("location", location),
		logging.Path(path))
	return d, nil
}

// canonical returns the absolute path of p with symlinks resolved, so that
// /tmp style links do not leak into entry names computed from it.
func canonical(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

// Path returns the directory's absolute path.
func (d *Dir) Path() string {
	return d.path
}

// Join returns elem joined under the directory.
func (d *Dir) Join(elem ...string) string {
	return filepath.Join(append([]string{d.path}, elem...)...)
}

// Children returns the absolute paths of the directory's immediate children,
// in lexical order.
func (d *Dir) Children() ([]string, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, fserr.New(fserr.ErrEntryIO, fserr.OpReadDir, d.path, err)
	}
	children := make([]string, 0, len(entries))
	for _, e := range entries {
		children = append(children, filepath.Join(d.path, e.Name()))
	}
	return children, nil
}

// Release removes the directory and everything under it. It stops at the
// first entry that cannot be removed; see RemoveTree.
func (d *Dir) Release() error {
	err := RemoveTree(d.path)
	d.metrics.TempDirReleased(err)
	if err != nil {
		d.logger.Error("unable to delete temp directory", logging.Path(d.path), zap.Error(err))
		return err
	}
	d.logger.Debug("deleted temp directory", logging.Path(d.path))
	return nil
}

func (d *Dir) String() string {
	return d.path
}
