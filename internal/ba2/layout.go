package ba2

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Header is the fixed header at the start of every BA2 archive.
type Header struct {
	Magic           [4]byte // "BTDX" for valid archives
	Version         uint32
	Type            [4]byte // "GNRL" or "DX10"
	FileCount       uint32
	NameTableOffset uint64 // absolute offset of the name table
}

// Kind returns the container type tag as a Kind.
func (h *Header) Kind() Kind {
	return Kind(trimTag(h.Type))
}

// Valid reports whether the header carries the BA2 magic and a usable version.
func (h *Header) Valid() bool {
	return h.Magic == Magic && h.Version >= 1
}

// HasExtendedHeader reports whether reserved header fields follow the fixed header.
// Versions 2 and 3 carry them; version 3 also declares a compression method.
func (h *Header) HasExtendedHeader() bool {
	return h.Version == 2 || h.Version == 3
}

// FileRecord describes one file of a GNRL archive.
type FileRecord struct {
	NameHash     uint32
	Ext          [4]byte
	DirHash      uint32
	Flags        uint32
	Offset       uint64 // absolute offset of the payload
	PackedSize   uint32 // 0 if the payload is stored uncompressed
	UnpackedSize uint32
	Align        uint32
}

// Extension returns the file extension tag without padding.
func (f *FileRecord) Extension() string { return trimTag(f.Ext) }

// StoredSize is the number of payload bytes the record occupies in the archive.
func (f *FileRecord) StoredSize() uint64 {
	if f.PackedSize > 0 {
		return uint64(f.PackedSize)
	}
	return uint64(f.UnpackedSize)
}

// TextureHeader is the fixed part of a DX10 record.
type TextureHeader struct {
	NameHash        uint32
	Ext             [4]byte
	DirHash         uint32
	Unknown0        uint8
	ChunkCount      uint8
	ChunkHeaderSize uint16
	Height          uint16
	Width           uint16
	MipCount        uint8
	Format          uint8 // DXGI_FORMAT code
	Tile            uint16
}

// Extension returns the file extension tag without padding.
func (t *TextureHeader) Extension() string { return trimTag(t.Ext) }

// IsCubemap reports whether the record is tagged as a cubemap.
func (t *TextureHeader) IsCubemap() bool { return t.Tile == CubemapTag }

// TextureChunk is one independently compressed mip range of a texture.
type TextureChunk struct {
	Offset       uint64
	PackedSize   uint32
	UnpackedSize uint32
	StartMip     uint16
	EndMip       uint16
	Align        uint32
}

// StoredSize is the number of bytes the chunk occupies in the archive.
func (c *TextureChunk) StoredSize() uint64 {
	if c.PackedSize > 0 {
		return uint64(c.PackedSize)
	}
	return uint64(c.UnpackedSize)
}

// TextureRecord is a DX10 record together with its chunk list.
type TextureRecord struct {
	Header TextureHeader
	Chunks []TextureChunk
}

// ReadHeader reads the fixed archive header from r.
// It reads exactly HeaderSize bytes and does not validate the contents.
func ReadHeader(r io.Reader) (*Header, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: need %d bytes", ErrShortHeader, HeaderSize)
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	h := &Header{}
	if err := binary.Read(bytes.NewReader(buf[:]), binary.LittleEndian, h); err != nil {
		return nil, fmt.Errorf("failed to decode header: %w", err)
	}
	return h, nil
}

// ReadExtendedHeader reads the reserved fields that follow the fixed header in
// version 2 and 3 archives and returns the declared compression method.
func ReadExtendedHeader(r io.Reader, h *Header) (Compression, error) {
	if !h.HasExtendedHeader() {
		return CompressionZlib, nil
	}

	var reserved [2]uint32
	if err := binary.Read(r, binary.LittleEndian, &reserved); err != nil {
		return 0, fmt.Errorf("failed to read extended header: %w", err)
	}
	if h.Version != 3 {
		return CompressionZlib, nil
	}

	var method Compression
	if err := binary.Read(r, binary.LittleEndian, &method); err != nil {
		return 0, fmt.Errorf("failed to read compression method: %w", err)
	}
	return method, nil
}

// ReadFileRecord reads one GNRL record from r.
func ReadFileRecord(r io.Reader) (FileRecord, error) {
	var rec FileRecord
	if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
		return rec, fmt.Errorf("failed to read file record: %w", err)
	}
	return rec, nil
}

// ReadTextureRecord reads one DX10 record and its chunk list from r.
func ReadTextureRecord(r io.Reader) (TextureRecord, error) {
	var rec TextureRecord
	if err := binary.Read(r, binary.LittleEndian, &rec.Header); err != nil {
		return rec, fmt.Errorf("failed to read texture header: %w", err)
	}

	rec.Chunks = make([]TextureChunk, rec.Header.ChunkCount)
	for i := range rec.Chunks {
		if err := binary.Read(r, binary.LittleEndian, &rec.Chunks[i]); err != nil {
			return rec, fmt.Errorf("failed to read texture chunk %d: %w", i, err)
		}
	}
	return rec, nil
}

// trimTag strips the NUL padding of a four-character tag.
func trimTag(tag [4]byte) string {
	return string(bytes.TrimRight(tag[:], "\x00"))
}
