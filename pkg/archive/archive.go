// Package archive transcodes filesystem trees to and from zip archives.
//
// Zip writes every file reachable from a set of roots as one entry named
// relative to the root's parent directory, always with '/' separators.
// Directories are never written as entries, so a directory without files is
// lost on the way through an archive.
//
// Unzip and UnzipReaderAt extract an archive through its central directory;
// UnzipStream walks local headers of a plain io.Reader. All three process
// entries in stored order, create missing parent directories, and consult an
// OverwritePolicy before replacing an existing file. A failure stops the run
// where it happened: entries already extracted stay on disk.
package archive

import (
	"time"

	"github.com/klauspost/compress/flate"
	"go.uber.org/zap"

	"zipdir/pkg/logging"
	"zipdir/pkg/metrics"
	"zipdir/pkg/progress"
)

// DefaultFailsafeChar replaces U+2014 (em dash) in entry names.
const DefaultFailsafeChar = '-'

// emDash does not survive some host filesystems' zip tools.
const emDash = '—'

// maxNameLen is the zip format's limit on an encoded entry name.
const maxNameLen = 1<<16 - 1

// Entry describes one stored archive entry.
type Entry struct {
	Name           string    // '/'-separated path within the archive
	IsDir          bool      // directory marker entry
	Size           uint64    // uncompressed size
	CompressedSize uint64    // stored size
	Method         uint16    // compression method
	Modified       time.Time // modification time recorded in the entry
}

// OverwritePolicy decides whether an existing file at path may be replaced
// during extraction. It is consulted for file/file collisions only.
//
// Extraction waits for the policy to return. A policy that prompts a user
// blocks the whole extraction; callers that need to stay responsive must
// pass a policy that decides on its own.
type OverwritePolicy func(path string) bool

// AlwaysOverwrite replaces every existing file.
func AlwaysOverwrite(string) bool { return true }

// NeverOverwrite keeps every existing file.
func NeverOverwrite(string) bool { return false }

type options struct {
	failsafe  rune
	method    uint16
	level     int
	overwrite OverwritePolicy
	logger    *zap.Logger
	metrics   *metrics.Metrics
	progress  *progress.Tracker
}

// Option configures Zip and Unzip calls. Options that do not apply to a
// call are ignored.
type Option func(*options)

func newOptions(opts []Option) *options {
	o := &options{
		failsafe:  DefaultFailsafeChar,
		method:    MethodDeflate,
		level:     flate.DefaultCompression,
		overwrite: AlwaysOverwrite,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logging.OrNop(o.logger)
	if o.overwrite == nil {
		o.overwrite = AlwaysOverwrite
	}
	if o.failsafe == 0 {
		o.failsafe = DefaultFailsafeChar
	}
	return o
}

// WithFailsafeChar sets the character that replaces em dashes in entry names.
func WithFailsafeChar(r rune) Option {
	return func(o *options) {
		o.failsafe = r
	}
}

// WithMethod sets the compression method of written entries.
func WithMethod(method uint16) Option {
	return func(o *options) {
		o.method = method
	}
}

// WithLevel sets the compression level for Deflate and Zstd entries. Zip's
// own Deflate scale is used: -1 is the default, 0 to 9 trade speed for size.
func WithLevel(level int) Option {
	return func(o *options) {
		o.level = level
	}
}

// WithOverwrite sets the policy consulted when an extracted file already
// exists. The default is AlwaysOverwrite.
func WithOverwrite(p OverwritePolicy) Option {
	return func(o *options) {
		o.overwrite = p
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics sets the counters to update.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithProgress counts uncompressed payload bytes into t.
func WithProgress(t *progress.Tracker) Option {
	return func(o *options) {
		o.progress = t
	}
}
