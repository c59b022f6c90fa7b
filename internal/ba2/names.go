package ba2

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// NameReader walks the name table of an archive, one name per record.
//
// Names are stored back to back with no index, so they can only be read in
// record order. A NameReader is a cursor over that sequence and must not be
// shared between goroutines; each pass over the archive needs its own.
//
// GNRL names carry a base-128 length prefix and start with a separator
// character that is dropped. DX10 names carry a uint16 length prefix.
type NameReader struct {
	r      io.ReaderAt
	size   int64
	offset int64 // absolute offset of the next name
	read   int
	count  int
	kind   Kind
}

// NewNameReader returns a cursor positioned at the start of the name table.
// count is the number of records in the archive.
func NewNameReader(r io.ReaderAt, size, offset int64, count int, kind Kind) *NameReader {
	return &NameReader{
		r:      r,
		size:   size,
		offset: offset,
		count:  count,
		kind:   kind,
	}
}

// Offset returns the absolute offset of the next name.
func (n *NameReader) Offset() int64 { return n.offset }

// Remaining returns how many names are left to read.
func (n *NameReader) Remaining() int { return n.count - n.read }

// Next decodes the next name and advances the cursor past it.
// The returned path uses forward slashes.
func (n *NameReader) Next() (string, error) {
	if n.read >= n.count {
		return "", fmt.Errorf("%w: all %d names already read", ErrNameRange, n.count)
	}

	length, width, err := n.readPrefix()
	if err != nil {
		return "", fmt.Errorf("%w: name %d at offset %d: %v", ErrDecode, n.read, n.offset, err)
	}

	start := n.offset + width
	if length > uint64(n.size-start) {
		return "", fmt.Errorf("%w: name %d at offset %d declares %d bytes, %d available",
			ErrDecode, n.read, n.offset, length, n.size-start)
	}

	buf := make([]byte, length)
	if read, err := n.r.ReadAt(buf, start); read < len(buf) {
		return "", fmt.Errorf("failed to read name %d: %w", n.read, err)
	}
	if !utf8.Valid(buf) {
		return "", fmt.Errorf("%w: name %d at offset %d is not valid UTF-8", ErrDecode, n.read, n.offset)
	}

	name := string(buf)
	if n.kind == KindGeneral {
		// leading separator placeholder
		_, sz := utf8.DecodeRuneInString(name)
		name = name[sz:]
	}

	n.offset = start + int64(length)
	n.read++

	return NormalizePath(name), nil
}

// readPrefix decodes the length prefix at the cursor and returns the length
// and the prefix width in bytes.
func (n *NameReader) readPrefix() (uint64, int64, error) {
	avail := n.size - n.offset
	if avail <= 0 {
		return 0, 0, io.ErrUnexpectedEOF
	}

	switch n.kind {
	case KindGeneral:
		buf := make([]byte, min(avail, MaxVarintLen))
		read, err := n.r.ReadAt(buf, n.offset)
		if read == 0 && err != nil {
			return 0, 0, err
		}
		length, width, err := ReadUvarint(buf[:read])
		if err != nil {
			return 0, 0, err
		}
		return length, int64(width), nil

	case KindTexture:
		if avail < 2 {
			return 0, 0, io.ErrUnexpectedEOF
		}
		var buf [2]byte
		if read, err := n.r.ReadAt(buf[:], n.offset); read < len(buf) {
			return 0, 0, err
		}
		return uint64(binary.LittleEndian.Uint16(buf[:])), 2, nil

	default:
		return 0, 0, fmt.Errorf("unknown archive type %q", n.kind)
	}
}

// NormalizePath converts a back-slash delimited archive path to forward slashes.
func NormalizePath(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}
