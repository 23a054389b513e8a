package archive

import (
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression methods understood by this package.
const (
	MethodStore   = zip.Store
	MethodDeflate = zip.Deflate
	MethodZstd    = uint16(zstd.ZipMethodWinZip)

	// MethodLZ4 stores LZ4 frames under a private method id. Archives using
	// it can only be read back by this package.
	MethodLZ4 uint16 = 0x4c34
)

var methodNames = map[string]uint16{
	"store":   MethodStore,
	"deflate": MethodDeflate,
	"zstd":    MethodZstd,
	"lz4":     MethodLZ4,
}

// ParseMethod maps a method name (store, deflate, zstd, lz4) to its id.
func ParseMethod(name string) (uint16, error) {
	m, ok := methodNames[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("unknown compression method %q", name)
	}
	return m, nil
}

// MethodName returns the name of a method id, or its number.
func MethodName(method uint16) string {
	for name, m := range methodNames {
		if m == method {
			return name
		}
	}
	return fmt.Sprintf("method(%d)", method)
}

// CheckLevel reports whether level can be used with method. Deflate takes
// -2 (Huffman only) to 9, Zstd -1 (its default) or 1 to 22. Store and LZ4
// ignore the level.
func CheckLevel(method uint16, level int) error {
	switch method {
	case MethodDeflate:
		if level < flate.HuffmanOnly || level > flate.BestCompression {
			return fmt.Errorf("invalid deflate level %d, want %d to %d", level, flate.HuffmanOnly, flate.BestCompression)
		}
	case MethodZstd:
		if level != flate.DefaultCompression && (level < 1 || level > 22) {
			return fmt.Errorf("invalid zstd level %d, want -1 or 1 to 22", level)
		}
	}
	return nil
}

// compressor returns the writer factory for method at level. Store needs
// none and returns nil.
func compressor(method uint16, level int) (zip.Compressor, error) {
	if err := CheckLevel(method, level); err != nil {
		return nil, err
	}
	switch method {
	case MethodStore:
		return nil, nil
	case MethodDeflate:
		return func(w io.Writer) (io.WriteCloser, error) {
			return flate.NewWriter(w, level)
		}, nil
	case MethodZstd:
		if level == flate.DefaultCompression {
			return zstd.ZipCompressor(), nil
		}
		return zstd.ZipCompressor(zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level))), nil
	case MethodLZ4:
		return func(w io.Writer) (io.WriteCloser, error) {
			return lz4.NewWriter(w), nil
		}, nil
	default:
		return nil, fmt.Errorf("unsupported compression method %d", method)
	}
}

// decompressors returns the reader factories for every supported method
// except Store.
func decompressors() map[uint16]zip.Decompressor {
	return map[uint16]zip.Decompressor{
		MethodDeflate: func(r io.Reader) io.ReadCloser {
			return flate.NewReader(r)
		},
		MethodZstd: zstd.ZipDecompressor(),
		MethodLZ4: func(r io.Reader) io.ReadCloser {
			return io.NopCloser(lz4.NewReader(r))
		},
	}
}

func registerDecompressors(r *zip.Reader) {
	for method, d := range decompressors() {
		r.RegisterDecompressor(method, d)
	}
}
