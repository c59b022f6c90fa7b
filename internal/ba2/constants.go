package ba2

// Magic is the magic number identifying BA2 archives ("BTDX")
var Magic = [4]byte{'B', 'T', 'D', 'X'}

// Kind is the container type tag stored in the archive header.
// It selects the record shape for the whole archive.
type Kind string

const (
	// KindGeneral archives ("GNRL") hold arbitrary files, one payload per record.
	KindGeneral Kind = "GNRL"
	// KindTexture archives ("DX10") hold textures split into mip chunks.
	KindTexture Kind = "DX10"
)

// Compression is the payload compression method of an archive.
// Only version 3 archives declare it; every other version uses zlib.
type Compression uint32

const (
	// CompressionZlib is zlib-wrapped DEFLATE, used by every version.
	CompressionZlib Compression = 0
	// CompressionLZ4 is the raw LZ4 block format of version 3 archives.
	CompressionLZ4 Compression = 3
)

func (c Compression) String() string {
	switch c {
	case CompressionZlib:
		return "zlib"
	case CompressionLZ4:
		return "lz4"
	default:
		return "unknown"
	}
}

const (
	// HeaderSize is the size of the fixed archive header.
	HeaderSize = 24
	// FileRecordSize is the size of one GNRL record.
	FileRecordSize = 36
	// TextureHeaderSize is the size of a DX10 record before its chunks.
	TextureHeaderSize = 24
	// TextureChunkSize is the size of one DX10 chunk entry.
	TextureChunkSize = 24

	// CubemapTag marks a texture record as a cubemap.
	CubemapTag = 2049
)
