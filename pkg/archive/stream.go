package archive

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"strings"

	"github.com/klauspost/compress/zip"

	"zipdir/pkg/fserr"
	"zipdir/pkg/logging"
)

const (
	sigLocalFile      = 0x04034b50
	sigCentralDir     = 0x02014b50
	sigEndCentral     = 0x06054b50
	sigZip64End       = 0x06064b50
	sigDataDescriptor = 0x08074b50

	localHeaderLen = 26 // after the signature
	zip64ExtraID   = 0x0001

	flagEncrypted      = 0x1
	flagDataDescriptor = 0x8

	uint32max = 1<<32 - 1
)

// UnzipStream extracts a zip archive read sequentially from r into dest.
//
// Entries are taken from their local headers in stored order and each
// payload is consumed, and its CRC checked, before the next header is read.
// The walk ends at the central directory, and input that ends before it is
// reported as truncated. r is never closed, though bytes
// past the end of the last entry may have been buffered out of it.
//
// An entry followed by a data descriptor has no size in its header; such
// entries can only be read when Deflate compressed. Others fail with
// fserr.ErrStreamUnsupported.
func UnzipStream(r io.Reader, dest string, opts ...Option) error {
	o := newOptions(opts)
	o.logger.Debug("start unzip stream", logging.Path(dest))

	dest, err := prepareDest(dest)
	if err != nil {
		return err
	}

	sr := newStreamReader(r)
	for {
		e, err := sr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fserr.New(fserr.ErrArchiveRead, fserr.OpHeader, "", err)
		}
		open := func() (io.ReadCloser, error) { return io.NopCloser(e), nil }
		if err := o.extract(dest, e.Name, e.IsDir, open); err != nil {
			return err
		}
	}

	o.logger.Debug("end unzip stream", logging.Path(dest))
	return nil
}

// streamReader walks the local file headers of a zip stream.
type streamReader struct {
	br   *countingReader
	dec  map[uint16]zip.Decompressor
	cur  *streamEntry
	done bool
}

func newStreamReader(r io.Reader) *streamReader {
	return &streamReader{
		br:  &countingReader{r: bufio.NewReader(r)},
		dec: decompressors(),
	}
}

// streamEntry is the payload of one entry. Reading it to io.EOF verifies the
// size and checksum.
type streamEntry struct {
	Name  string
	IsDir bool

	flags  uint16
	method uint16
	crc    uint32
	csize  uint64
	usize  uint64
	zip64  bool

	sr      *streamReader
	payload io.Reader     // compressed bytes
	rc      io.ReadCloser // decompressed bytes
	start   uint64        // compressed offset of the payload
	hash    hash.Hash32
	n       uint64
	err     error
}

// Next advances to the next entry, draining the current one first. It
// returns io.EOF once the central directory is reached.
func (sr *streamReader) Next() (*streamEntry, error) {
	if sr.done {
		return nil, io.EOF
	}
	if sr.cur != nil {
		if _, err := io.Copy(io.Discard, sr.cur); err != nil {
			return nil, err
		}
		sr.cur = nil
	}

	// a stream that stops before the central directory is truncated, even
	// when it stops on an entry boundary
	var sig [4]byte
	if _, err := io.ReadFull(sr.br, sig[:]); err != nil {
		return nil, fmt.Errorf("reading signature: %w", unexpected(err))
	}
	switch binary.LittleEndian.Uint32(sig[:]) {
	case sigLocalFile:
	case sigCentralDir, sigEndCentral, sigZip64End:
		sr.done = true
		return nil, io.EOF
	default:
		return nil, zip.ErrFormat
	}

	e, err := sr.readHeader()
	if err != nil {
		return nil, err
	}
	sr.cur = e
	return e, nil
}

func (sr *streamReader) readHeader() (*streamEntry, error) {
	var buf [localHeaderLen]byte
	if _, err := io.ReadFull(sr.br, buf[:]); err != nil {
		return nil, fmt.Errorf("reading local header: %w", unexpected(err))
	}
	b := readBuf(buf[:])
	b.uint16() // version needed
	e := &streamEntry{sr: sr, hash: crc32.NewIEEE()}
	e.flags = b.uint16()
	e.method = b.uint16()
	b.uint32() // modified time and date
	e.crc = b.uint32()
	e.csize = uint64(b.uint32())
	e.usize = uint64(b.uint32())
	nameLen := int(b.uint16())
	extraLen := int(b.uint16())

	name := make([]byte, nameLen)
	if _, err := io.ReadFull(sr.br, name); err != nil {
		return nil, fmt.Errorf("reading entry name: %w", unexpected(err))
	}
	e.Name = string(name)
	e.IsDir = strings.HasSuffix(e.Name, "/")

	extra := make([]byte, extraLen)
	if _, err := io.ReadFull(sr.br, extra); err != nil {
		return nil, fmt.Errorf("reading extra field of %q: %w", e.Name, unexpected(err))
	}
	e.readZip64(extra)

	if e.flags&flagEncrypted != 0 {
		return nil, fmt.Errorf("%q is encrypted: %w", e.Name, fserr.ErrStreamUnsupported)
	}
	if err := e.open(); err != nil {
		return nil, err
	}
	return e, nil
}

// readZip64 takes 64-bit sizes from a zip64 extra field when the header
// holds the 0xFFFFFFFF placeholders.
func (e *streamEntry) readZip64(extra []byte) {
	b := readBuf(extra)
	for len(b) >= 4 {
		id := b.uint16()
		size := int(b.uint16())
		if len(b) < size {
			return
		}
		field := readBuf(b[:size])
		b = b[size:]
		if id != zip64ExtraID {
			continue
		}
		e.zip64 = true
		if e.usize == uint32max && len(field) >= 8 {
			e.usize = field.uint64()
		}
		if e.csize == uint32max && len(field) >= 8 {
			e.csize = field.uint64()
		}
	}
}

// open sets up the payload readers. Without a data descriptor the header
// gives the compressed size. With one, only self-terminating payloads can be
// delimited: Deflate streams, and the empty payload of a stored directory.
func (e *streamEntry) open() error {
	e.start = e.sr.br.n
	if e.flags&flagDataDescriptor == 0 {
		e.payload = io.LimitReader(e.sr.br, int64(e.csize))
	} else {
		switch {
		case e.method == MethodDeflate:
			// flate stops exactly at the end of the stream on an io.ByteReader
			e.payload = e.sr.br
		case e.method == MethodStore && e.IsDir:
			e.payload = io.LimitReader(e.sr.br, 0)
		default:
			return fmt.Errorf("%q (%s with data descriptor): %w",
				e.Name, MethodName(e.method), fserr.ErrStreamUnsupported)
		}
	}

	if e.method == MethodStore {
		e.rc = io.NopCloser(e.payload)
		return nil
	}
	dec, ok := e.sr.dec[e.method]
	if !ok {
		return fmt.Errorf("%q: %w", e.Name, zip.ErrAlgorithm)
	}
	e.rc = dec(e.payload)
	return nil
}

func (e *streamEntry) Read(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.rc.Read(p)
	e.hash.Write(p[:n])
	e.n += uint64(n)
	if err == io.EOF {
		err = e.finish()
		if err == nil {
			err = io.EOF
		}
	}
	if err != nil {
		e.err = err
	}
	return n, err
}

// finish consumes what follows the payload and checks size and CRC.
func (e *streamEntry) finish() error {
	if err := e.rc.Close(); err != nil {
		return err
	}

	if e.flags&flagDataDescriptor == 0 {
		// skip compressed bytes the decompressor did not need
		if _, err := io.Copy(io.Discard, e.payload); err != nil {
			return unexpected(err)
		}
	} else if err := e.readDataDescriptor(); err != nil {
		return err
	}

	if e.n != e.usize {
		return fmt.Errorf("%q: size %d, header says %d: %w", e.Name, e.n, e.usize, zip.ErrFormat)
	}
	// a zero CRC in the header with no descriptor means "not recorded"
	if e.crc != 0 && e.hash.Sum32() != e.crc {
		return fmt.Errorf("%q: %w", e.Name, zip.ErrChecksum)
	}
	return nil
}

func (e *streamEntry) readDataDescriptor() error {
	compressed := e.sr.br.n - e.start
	wide := e.zip64 || e.n >= uint32max || compressed >= uint32max

	var sig [4]byte
	if _, err := io.ReadFull(e.sr.br, sig[:]); err != nil {
		return unexpected(err)
	}
	crc := binary.LittleEndian.Uint32(sig[:])
	if crc == sigDataDescriptor {
		if _, err := io.ReadFull(e.sr.br, sig[:]); err != nil {
			return unexpected(err)
		}
		crc = binary.LittleEndian.Uint32(sig[:])
	}

	size := 8
	if wide {
		size = 16
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(e.sr.br, buf); err != nil {
		return unexpected(err)
	}
	b := readBuf(buf)
	if wide {
		e.csize = b.uint64()
		e.usize = b.uint64()
	} else {
		e.csize = uint64(b.uint32())
		e.usize = uint64(b.uint32())
	}
	e.crc = crc
	if e.csize != compressed {
		return fmt.Errorf("%q: compressed size %d, descriptor says %d: %w", e.Name, compressed, e.csize, zip.ErrFormat)
	}
	return nil
}

func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// countingReader counts bytes consumed from a bufio.Reader while keeping its
// io.ByteReader behaviour, which the flate decompressor relies on to not
// read past the end of a stream.
type countingReader struct {
	r *bufio.Reader
	n uint64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += uint64(n)
	return n, err
}

func (c *countingReader) ReadByte() (byte, error) {
	b, err := c.r.ReadByte()
	if err == nil {
		c.n++
	}
	return b, err
}

type readBuf []byte

func (b *readBuf) uint16() uint16 {
	v := binary.LittleEndian.Uint16(*b)
	*b = (*b)[2:]
	return v
}

func (b *readBuf) uint32() uint32 {
	v := binary.LittleEndian.Uint32(*b)
	*b = (*b)[4:]
	return v
}

func (b *readBuf) uint64() uint64 {
	v := binary.LittleEndian.Uint64(*b)
	*b = (*b)[8:]
	return v
}
