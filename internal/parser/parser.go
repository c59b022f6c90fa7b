package parser

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/ossyrian/ba2extract/internal/ba2"
	"github.com/ossyrian/ba2extract/internal/dds"
)

// Options controls how an archive is opened.
type Options struct {
	// Name identifies the archive in log output.
	Name string
	// Logger receives diagnostics. slog.Default() is used when nil.
	Logger *slog.Logger
	// StrictFormats turns textures with unsupported pixel formats into
	// iteration errors instead of skipping them.
	StrictFormats bool
}

// Archive is the parsed record index of a BA2 archive.
// Payloads and names are read from the underlying ReaderAt on demand.
// An Archive is immutable after Open and safe for concurrent use.
type Archive struct {
	r      io.ReaderAt
	size   int64
	logger *slog.Logger

	header      ba2.Header
	compression ba2.Compression
	strict      bool

	// exactly one of these is populated, selected by header.Kind()
	files    []ba2.FileRecord
	textures []ba2.TextureRecord
}

// Detect reports whether r starts with a BA2 header.
// It reads exactly ba2.HeaderSize bytes and fails with ba2.ErrShortHeader if
// fewer are available.
func Detect(r io.Reader) (bool, error) {
	h, err := ba2.ReadHeader(r)
	if err != nil {
		return false, err
	}
	return h.Valid(), nil
}

// Parse opens an archive held entirely in memory.
func Parse(data []byte, opts Options) (*Archive, error) {
	return Open(bytes.NewReader(data), int64(len(data)), opts)
}

// Open reads the header and record table of the size-byte archive in r.
// Every record's payload span is checked against size before Open returns.
func Open(r io.ReaderAt, size int64, opts Options) (*Archive, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Name != "" {
		logger = logger.With("archive", opts.Name)
	}

	a := &Archive{
		r:      r,
		size:   size,
		logger: logger,
		strict: opts.StrictFormats,
	}

	br := bufio.NewReader(io.NewSectionReader(r, 0, size))
	if err := a.readHeader(br); err != nil {
		return nil, err
	}
	if err := a.readRecords(br); err != nil {
		return nil, err
	}

	logger.Info("opened archive",
		"version", a.header.Version,
		"type", a.Kind(),
		"records", a.Len(),
		"compression", a.compression,
		"name_table_offset", a.header.NameTableOffset,
	)

	return a, nil
}

func (a *Archive) readHeader(br io.Reader) error {
	h, err := ba2.ReadHeader(br)
	if err != nil {
		return err
	}
	if !h.Valid() {
		return fmt.Errorf("%w: magic %q, version %d", ba2.ErrFormatMismatch, h.Magic, h.Version)
	}
	if h.NameTableOffset > uint64(a.size) {
		return fmt.Errorf("%w: name table offset %d beyond archive size %d",
			ba2.ErrStructural, h.NameTableOffset, a.size)
	}

	method, err := ba2.ReadExtendedHeader(br, h)
	if err != nil {
		return fmt.Errorf("%w: %w", ba2.ErrStructural, err)
	}
	switch method {
	case ba2.CompressionZlib, ba2.CompressionLZ4:
	default:
		return fmt.Errorf("%w: unknown compression method %d", ba2.ErrStructural, method)
	}

	a.header = *h
	a.compression = method

	a.logger.Debug("read header",
		"magic", string(h.Magic[:]),
		"version", h.Version,
		"type", h.Kind(),
		"file_count", h.FileCount,
	)
	return nil
}

func (a *Archive) readRecords(br io.Reader) error {
	count := int(a.header.FileCount)

	switch a.header.Kind() {
	case ba2.KindGeneral:
		a.files = make([]ba2.FileRecord, 0, min(count, int(a.size/ba2.FileRecordSize)))
		for i := 0; i < count; i++ {
			rec, err := ba2.ReadFileRecord(br)
			if err != nil {
				return structuralError(i, err)
			}
			if err := a.checkSpan(rec.Offset, rec.StoredSize()); err != nil {
				return structuralError(i, err)
			}
			a.files = append(a.files, rec)
		}

	case ba2.KindTexture:
		a.textures = make([]ba2.TextureRecord, 0, min(count, int(a.size/ba2.TextureHeaderSize)))
		for i := 0; i < count; i++ {
			rec, err := ba2.ReadTextureRecord(br)
			if err != nil {
				return structuralError(i, err)
			}
			if err := a.checkChunks(rec.Chunks); err != nil {
				return structuralError(i, err)
			}
			a.textures = append(a.textures, rec)
		}

	default:
		return fmt.Errorf("%w: unknown archive type %q", ba2.ErrStructural, a.header.Kind())
	}

	return nil
}

func (a *Archive) checkChunks(chunks []ba2.TextureChunk) error {
	for j, c := range chunks {
		if c.StartMip > c.EndMip {
			return fmt.Errorf("chunk %d has mip range %d-%d", j, c.StartMip, c.EndMip)
		}
		if j > 0 && uint32(c.StartMip) != uint32(chunks[j-1].EndMip)+1 {
			return fmt.Errorf("chunk %d starts at mip %d, previous chunk ended at mip %d",
				j, c.StartMip, chunks[j-1].EndMip)
		}
		if err := a.checkSpan(c.Offset, c.StoredSize()); err != nil {
			return fmt.Errorf("chunk %d: %w", j, err)
		}
	}
	return nil
}

// checkSpan verifies that n bytes at offset lie inside the archive.
// Callers pass the stored size, not max(packed, unpacked): a packed entry's
// unpacked size says nothing about archive bytes.
func (a *Archive) checkSpan(offset, n uint64) error {
	size := uint64(a.size)
	if offset > size || n > size-offset {
		return fmt.Errorf("payload [%d, %d) exceeds archive size %d", offset, offset+n, size)
	}
	return nil
}

func structuralError(index int, err error) error {
	return &ba2.RecordError{Index: index, Err: fmt.Errorf("%w: %w", ba2.ErrStructural, err)}
}

// Header returns a copy of the archive header.
func (a *Archive) Header() ba2.Header { return a.header }

// Kind returns the archive's container type.
func (a *Archive) Kind() ba2.Kind { return a.header.Kind() }

// Compression returns the compression method used by packed payloads.
func (a *Archive) Compression() ba2.Compression { return a.compression }

// StrictFormats reports whether unsupported pixel formats are errors.
func (a *Archive) StrictFormats() bool { return a.strict }

// Len returns the number of records.
func (a *Archive) Len() int {
	if a.Kind() == ba2.KindTexture {
		return len(a.textures)
	}
	return len(a.files)
}

// FileRecord returns record i of a GNRL archive.
func (a *Archive) FileRecord(i int) (ba2.FileRecord, bool) {
	if i < 0 || i >= len(a.files) {
		return ba2.FileRecord{}, false
	}
	return a.files[i], true
}

// TextureRecord returns record i of a DX10 archive.
func (a *Archive) TextureRecord(i int) (ba2.TextureRecord, bool) {
	if i < 0 || i >= len(a.textures) {
		return ba2.TextureRecord{}, false
	}
	rec := a.textures[i]
	rec.Chunks = slices.Clone(rec.Chunks)
	return rec, true
}

// StoredSize returns the number of archive bytes occupied by record i.
func (a *Archive) StoredSize(i int) uint64 {
	if rec, ok := a.FileRecord(i); ok {
		return rec.StoredSize()
	}
	var n uint64
	if i >= 0 && i < len(a.textures) {
		for _, c := range a.textures[i].Chunks {
			n += c.StoredSize()
		}
	}
	return n
}

// Names resolves every record name in order with a fresh name table cursor.
func (a *Archive) Names() ([]string, error) {
	nr := a.newNameReader()
	names := make([]string, 0, a.Len())
	for i := 0; i < a.Len(); i++ {
		name, err := nr.Next()
		if err != nil {
			return nil, &ba2.RecordError{Index: i, Err: err}
		}
		names = append(names, name)
	}
	return names, nil
}

func (a *Archive) newNameReader() *ba2.NameReader {
	return ba2.NewNameReader(a.r, a.size, int64(a.header.NameTableOffset), a.Len(), a.Kind())
}

// TextureInfo converts a DX10 record header into DDS metadata.
func TextureInfo(h ba2.TextureHeader) dds.Texture {
	return dds.Texture{
		Width:    uint32(h.Width),
		Height:   uint32(h.Height),
		MipCount: uint32(h.MipCount),
		Format:   dds.Format(h.Format),
		Cubemap:  h.IsCubemap(),
	}
}

// Extract returns the contents of record i. GNRL payloads are inflated if
// packed; DX10 records become a complete DDS file. Textures with a pixel format
// that has no DDS mapping fail with dds.ErrUnsupportedFormat.
func (a *Archive) Extract(i int) ([]byte, error) {
	if i < 0 || i >= a.Len() {
		return nil, fmt.Errorf("record index %d out of range [0, %d)", i, a.Len())
	}

	var (
		data []byte
		err  error
	)
	if a.Kind() == ba2.KindTexture {
		data, err = a.extractTexture(a.textures[i])
	} else {
		data, err = a.extractFile(a.files[i])
	}
	if err != nil {
		return nil, &ba2.RecordError{Index: i, Err: err}
	}
	return data, nil
}

func (a *Archive) extractFile(rec ba2.FileRecord) ([]byte, error) {
	return a.readPayload(rec.Offset, rec.PackedSize, rec.UnpackedSize)
}

func (a *Archive) extractTexture(rec ba2.TextureRecord) ([]byte, error) {
	header, err := dds.Encode(TextureInfo(rec.Header))
	if err != nil {
		return nil, err
	}

	// sized from bytes actually present in the archive; declared unpacked
	// sizes are not trusted until each chunk inflates to them
	stored := uint64(len(header))
	for _, c := range rec.Chunks {
		stored += c.StoredSize()
	}

	out := make([]byte, 0, stored)
	out = append(out, header...)
	for j, c := range rec.Chunks {
		data, err := a.readPayload(c.Offset, c.PackedSize, c.UnpackedSize)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", j, err)
		}
		out = append(out, data...)
	}
	return out, nil
}

// readPayload reads a stored payload, or reads and inflates a packed one.
func (a *Archive) readPayload(offset uint64, packed, unpacked uint32) ([]byte, error) {
	n := unpacked
	if packed > 0 {
		n = packed
	}

	buf := make([]byte, n)
	if read, err := a.r.ReadAt(buf, int64(offset)); read < len(buf) {
		return nil, fmt.Errorf("failed to read payload at offset %d: %w", offset, err)
	}
	if packed == 0 {
		return buf, nil
	}
	return ba2.Decompress(a.compression, buf, unpacked)
}
