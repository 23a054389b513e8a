// Package lib collects the zipdir entry points for callers that want a single
// import. It re-exports the archive and zipdir packages.
package lib

import (
	"zipdir/pkg/archive"
	"zipdir/pkg/zipdir"
)

// DefaultFailsafeChar re-exported from archive
const DefaultFailsafeChar = archive.DefaultFailsafeChar

// Entry re-exported from archive
type Entry = archive.Entry

// OverwritePolicy re-exported from archive
type OverwritePolicy = archive.OverwritePolicy

// Option re-exported from archive
type Option = archive.Option

// Directory re-exported from zipdir
type Directory = zipdir.Dir

// Re-export the stock overwrite policies
var (
	AlwaysOverwrite OverwritePolicy = archive.AlwaysOverwrite
	NeverOverwrite  OverwritePolicy = archive.NeverOverwrite
)

// Compress writes the files under input to the archive output.
func Compress(input, output string, opts ...Option) error {
	return archive.ZipFile(output, []string{input}, opts...)
}

// Decompress extracts the archive input into dest.
func Decompress(input, dest string, opts ...Option) error {
	return archive.Unzip(input, dest, opts...)
}

// OpenDirectory is a wrapper around zipdir.Open
func OpenDirectory(archivePath string, opts ...zipdir.Option) (*Directory, error) {
	return zipdir.Open(archivePath, opts...)
}
