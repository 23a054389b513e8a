// Package zipdir binds a temp directory to a zip archive on disk.
//
// Open acquires the directory and, by default, extracts the archive into it
// when the archive exists. Callers work on the directory with ordinary
// filesystem calls. Close writes the directory back to the archive, by
// default, and removes the directory.
package zipdir

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"zipdir/pkg/archive"
	"zipdir/pkg/logging"
	"zipdir/pkg/metrics"
	"zipdir/pkg/tempdir"
)

// Temp directory naming used by Open.
const (
	DefaultPrefix = "ZipDirectory"
	DefaultSuffix = ".zip.tmpdir"
)

// ErrClosed is returned by operations on a closed Dir.
var ErrClosed = errors.New("zipdir: directory already closed")

// Dir is a temp directory kept in correspondence with an archive file.
// A Dir is not safe for concurrent use.
type Dir struct {
	tmp     *tempdir.Dir
	archive string
	persist bool
	closed  bool

	encode []archive.Option
	decode []archive.Option
	logger *zap.Logger
}

type config struct {
	extract  *bool
	persist  bool
	prefix   string
	suffix   string
	location string
	encode   []archive.Option
	decode   []archive.Option
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// Option configures Open.
type Option func(*config)

// WithExtract sets whether Open extracts the archive. The default is to
// extract when the archive file exists.
func WithExtract(extract bool) Option {
	return func(c *config) {
		c.extract = &extract
	}
}

// WithPersist sets whether Close writes the directory to the archive.
// The default is true.
func WithPersist(persist bool) Option {
	return func(c *config) {
		c.persist = persist
	}
}

// WithTempPattern overrides the temp directory name prefix and suffix.
func WithTempPattern(prefix, suffix string) Option {
	return func(c *config) {
		c.prefix = prefix
		c.suffix = suffix
	}
}

// WithLocation creates the temp directory under dir instead of the system
// temp location.
func WithLocation(dir string) Option {
	return func(c *config) {
		c.location = dir
	}
}

// WithEncodeOptions sets the options used whenever the directory is written
// to the archive.
func WithEncodeOptions(opts ...archive.Option) Option {
	return func(c *config) {
		c.encode = append(c.encode, opts...)
	}
}

// WithDecodeOptions sets the options used whenever the archive is extracted
// into the directory. The overwrite policy is always the one chosen by Open
// or Pull.
func WithDecodeOptions(opts ...archive.Option) Option {
	return func(c *config) {
		c.decode = append(c.decode, opts...)
	}
}

// WithLogger sets the logger for the directory and the archive operations.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithMetrics sets the counters for the directory and the archive
// operations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// Open acquires a temp directory bound to archivePath and, if extraction is
// enabled, extracts the archive into it. If extraction fails the temp directory is released before
// returning, and a release failure is reported along with the extract
// failure.
func Open(archivePath string, opts ...Option) (*Dir, error) {
	c := &config{
		persist: true,
		prefix:  DefaultPrefix,
		suffix:  DefaultSuffix,
	}
	for _, o := range opts {
		o(c)
	}
	c.logger = logging.OrNop(c.logger)

	extract := false
	if c.extract != nil {
		extract = *c.extract
	} else if _, err := os.Stat(archivePath); err == nil {
		extract = true
	}

	tmp, err := tempdir.Acquire(c.prefix, c.suffix, c.location,
		tempdir.WithLogger(c.logger), tempdir.WithMetrics(c.metrics))
	if err != nil {
		return nil, err
	}

	common := []archive.Option{archive.WithLogger(c.logger), archive.WithMetrics(c.metrics)}
	d := &Dir{
		tmp:     tmp,
		archive: archivePath,
		persist: c.persist,
		encode:  append(append([]archive.Option{}, common...), c.encode...),
		decode:  append(append([]archive.Option{}, common...), c.decode...),
		logger:  c.logger,
	}

	if extract {
		if err := d.pull(archive.AlwaysOverwrite); err != nil {
			return nil, multierr.Append(err, tmp.Release())
		}
	}
	d.logger.Debug("opened archive directory",
		logging.Archive(archivePath), logging.Path(tmp.Path()),
		zap.Bool("extracted", extract), zap.Bool("persist", c.persist))
	return d, nil
}

// Path returns the temp directory's absolute path.
func (d *Dir) Path() string {
	return d.tmp.Path()
}

// Archive returns the bound archive path.
func (d *Dir) Archive() string {
	return d.archive
}

// Pull extracts the archive into the directory. Existing files are replaced
// unless a policy is given.
func (d *Dir) Pull(policy ...archive.OverwritePolicy) error {
	if d.closed {
		return ErrClosed
	}
	p := archive.AlwaysOverwrite
	if len(policy) > 0 && policy[0] != nil {
		p = policy[0]
	}
	return d.pull(p)
}

func (d *Dir) pull(policy archive.OverwritePolicy) error {
	opts := append(append([]archive.Option{}, d.decode...), archive.WithOverwrite(policy))
	return archive.Unzip(d.archive, d.tmp.Path(), opts...)
}

// Push writes the directory's current contents to the archive, replacing it.
// Each top-level child of the directory is a root, so entry names are
// relative to the directory itself.
func (d *Dir) Push() error {
	if d.closed {
		return ErrClosed
	}
	return d.push()
}

func (d *Dir) push() error {
	roots, err := d.tmp.Children()
	if err != nil {
		return err
	}
	return archive.ZipFile(d.archive, roots, d.encode...)
}

// Close persists the directory if configured to, then releases it. The
// release runs even when persisting fails and both failures are returned.
// Close on a closed Dir returns nil.
func (d *Dir) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true

	var err error
	if d.persist {
		if perr := d.push(); perr != nil {
			d.logger.Error("unable to persist archive directory",
				logging.Archive(d.archive), logging.Path(d.tmp.Path()), zap.Error(perr))
			err = multierr.Append(err, fmt.Errorf("persist %s: %w", d.archive, perr))
		}
	}
	return multierr.Append(err, d.tmp.Release())
}

func (d *Dir) String() string {
	return d.tmp.Path() + " -> " + d.archive
}
