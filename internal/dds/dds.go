// Package dds builds DirectDraw Surface headers for raw texture data.
package dds

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Magic starts every DDS file ("DDS ")
var Magic = [4]byte{'D', 'D', 'S', ' '}

const (
	// HeaderSize is the size of the legacy DDS_HEADER.
	HeaderSize = 124
	// HeaderDX10Size is the size of the DDS_HEADER_DXT10 extension.
	HeaderDX10Size = 20

	pixelFormatSize = 32
)

// DDS_HEADER.dwFlags
const (
	FlagCaps        = 0x1
	FlagHeight      = 0x2
	FlagWidth       = 0x4
	FlagPitch       = 0x8
	FlagPixelFormat = 0x1000
	FlagMipMapCount = 0x20000
	FlagLinearSize  = 0x80000
	FlagDepth       = 0x800000
)

// DDS_PIXELFORMAT.dwFlags
const (
	PFAlphaPixels = 0x1
	PFAlpha       = 0x2
	PFFourCC      = 0x4
	PFRGB         = 0x40
)

// DDS_HEADER.dwCaps and dwCaps2
const (
	CapsComplex = 0x8
	CapsTexture = 0x1000
	CapsMipMap  = 0x400000

	Caps2Cubemap          = 0x200
	Caps2CubemapPositiveX = 0x400
	Caps2CubemapNegativeX = 0x800
	Caps2CubemapPositiveY = 0x1000
	Caps2CubemapNegativeY = 0x2000
	Caps2CubemapPositiveZ = 0x4000
	Caps2CubemapNegativeZ = 0x8000

	Caps2CubemapAllFaces = Caps2Cubemap |
		Caps2CubemapPositiveX | Caps2CubemapNegativeX |
		Caps2CubemapPositiveY | Caps2CubemapNegativeY |
		Caps2CubemapPositiveZ | Caps2CubemapNegativeZ
)

// ResourceDimensionTexture2D is D3D10_RESOURCE_DIMENSION_TEXTURE2D.
const ResourceDimensionTexture2D = 3

// ErrUnsupportedFormat means the DXGI format has no DDS header mapping.
var ErrUnsupportedFormat = errors.New("unsupported pixel format")

// PixelFormat is DDS_PIXELFORMAT.
type PixelFormat struct {
	Size        uint32
	Flags       uint32
	FourCC      uint32
	RGBBitCount uint32
	RBitMask    uint32
	GBitMask    uint32
	BBitMask    uint32
	ABitMask    uint32
}

// Header is DDS_HEADER, the 124 bytes following the magic.
type Header struct {
	Size              uint32
	Flags             uint32
	Height            uint32
	Width             uint32
	PitchOrLinearSize uint32
	Depth             uint32
	MipMapCount       uint32
	Reserved1         [11]uint32
	PixelFormat       PixelFormat
	Caps              uint32
	Caps2             uint32
	Caps3             uint32
	Caps4             uint32
	Reserved2         uint32
}

// HeaderDX10 is DDS_HEADER_DXT10, present when the pixel format FourCC is "DX10".
type HeaderDX10 struct {
	DXGIFormat        uint32
	ResourceDimension uint32
	MiscFlag          uint32
	ArraySize         uint32
	MiscFlags2        uint32
}

// Texture is the metadata needed to describe a texture in a DDS header.
type Texture struct {
	Width    uint32
	Height   uint32
	MipCount uint32
	Format   Format
	Cubemap  bool
}

// FourCC packs four characters into a little-endian code.
func FourCC(a, b, c, d byte) uint32 {
	return uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24
}

// NewHeader builds the DDS header for t. The extension header is nil unless
// the format can only be identified through DXGI.
func NewHeader(t Texture) (Header, *HeaderDX10, error) {
	entry, ok := formats[t.Format]
	if !ok {
		return Header{}, nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, t.Format)
	}

	pitch, err := linearSize(entry.pitch, t.Width, t.Height)
	if err != nil {
		return Header{}, nil, err
	}

	h := Header{
		Size: HeaderSize,
		Flags: FlagCaps | FlagHeight | FlagWidth | FlagPixelFormat |
			FlagMipMapCount | FlagLinearSize,
		Height:            t.Height,
		Width:             t.Width,
		PitchOrLinearSize: pitch,
		MipMapCount:       t.MipCount,
		PixelFormat:       entry.pixelFormat,
		Caps:              CapsComplex | CapsTexture | CapsMipMap,
	}
	if t.Cubemap {
		h.Caps2 = Caps2CubemapAllFaces
	}

	if !entry.dx10 {
		return h, nil, nil
	}
	return h, &HeaderDX10{
		DXGIFormat:        uint32(t.Format),
		ResourceDimension: ResourceDimensionTexture2D,
		ArraySize:         1,
	}, nil
}

// Encode returns the magic, header and optional extension header for t,
// ready to be followed by pixel data.
func Encode(t Texture) ([]byte, error) {
	h, dx10, err := NewHeader(t)
	if err != nil {
		return nil, err
	}

	buf := bytes.NewBuffer(make([]byte, 0, len(Magic)+HeaderSize+HeaderDX10Size))
	buf.Write(Magic[:])
	if err := binary.Write(buf, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("failed to encode header: %w", err)
	}
	if dx10 != nil {
		if err := binary.Write(buf, binary.LittleEndian, dx10); err != nil {
			return nil, fmt.Errorf("failed to encode DX10 header: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// DataOffset returns where pixel data starts in a file produced by Encode.
func DataOffset(t Texture) int {
	n := len(Magic) + HeaderSize
	if entry, ok := formats[t.Format]; ok && entry.dx10 {
		n += HeaderDX10Size
	}
	return n
}

func linearSize(kind pitchKind, width, height uint32) (uint32, error) {
	size := uint64(width) * uint64(height)
	switch kind {
	case pitchHalf:
		size /= 2
	case pitchQuad:
		size *= 4
	}
	if size > math.MaxUint32 {
		return 0, fmt.Errorf("linear size of %dx%d texture overflows uint32", width, height)
	}
	return uint32(size), nil
}
