package dds

import "fmt"

// Format is a DXGI_FORMAT code.
type Format uint8

const (
	FormatR8UNorm       Format = 61
	FormatBC1UNorm      Format = 71
	FormatBC2UNorm      Format = 74
	FormatBC3UNorm      Format = 77
	FormatBC5UNorm      Format = 83
	FormatB8G8R8A8UNorm Format = 87
	FormatBC7UNorm      Format = 98
	FormatBC7UNormSRGB  Format = 99
)

// formatNames is the DXGI_FORMAT enumeration, indexed by code.
var formatNames = [...]string{
	"UNKNOWN",
	"R32G32B32A32_TYPELESS", "R32G32B32A32_FLOAT", "R32G32B32A32_UINT", "R32G32B32A32_SINT",
	"R32G32B32_TYPELESS", "R32G32B32_FLOAT", "R32G32B32_UINT", "R32G32B32_SINT",
	"R16G16B16A16_TYPELESS", "R16G16B16A16_FLOAT", "R16G16B16A16_UNORM", "R16G16B16A16_UINT",
	"R16G16B16A16_SNORM", "R16G16B16A16_SINT",
	"R32G32_TYPELESS", "R32G32_FLOAT", "R32G32_UINT", "R32G32_SINT",
	"R32G8X24_TYPELESS", "D32_FLOAT_S8X24_UINT", "R32_FLOAT_X8X24_TYPELESS", "X32_TYPELESS_G8X24_UINT",
	"R10G10B10A2_TYPELESS", "R10G10B10A2_UNORM", "R10G10B10A2_UINT", "R11G11B10_FLOAT",
	"R8G8B8A8_TYPELESS", "R8G8B8A8_UNORM", "R8G8B8A8_UNORM_SRGB", "R8G8B8A8_UINT",
	"R8G8B8A8_SNORM", "R8G8B8A8_SINT",
	"R16G16_TYPELESS", "R16G16_FLOAT", "R16G16_UNORM", "R16G16_UINT", "R16G16_SNORM", "R16G16_SINT",
	"R32_TYPELESS", "D32_FLOAT", "R32_FLOAT", "R32_UINT", "R32_SINT",
	"R24G8_TYPELESS", "D24_UNORM_S8_UINT", "R24_UNORM_X8_TYPELESS", "X24_TYPELESS_G8_UINT",
	"R8G8_TYPELESS", "R8G8_UNORM", "R8G8_UINT", "R8G8_SNORM", "R8G8_SINT",
	"R16_TYPELESS", "R16_FLOAT", "D16_UNORM", "R16_UNORM", "R16_UINT", "R16_SNORM", "R16_SINT",
	"R8_TYPELESS", "R8_UNORM", "R8_UINT", "R8_SNORM", "R8_SINT", "A8_UNORM", "R1_UNORM",
	"R9G9B9E5_SHAREDEXP", "R8G8_B8G8_UNORM", "G8R8_G8B8_UNORM",
	"BC1_TYPELESS", "BC1_UNORM", "BC1_UNORM_SRGB",
	"BC2_TYPELESS", "BC2_UNORM", "BC2_UNORM_SRGB",
	"BC3_TYPELESS", "BC3_UNORM", "BC3_UNORM_SRGB",
	"BC4_TYPELESS", "BC4_UNORM", "BC4_SNORM",
	"BC5_TYPELESS", "BC5_UNORM", "BC5_SNORM",
	"B5G6R5_UNORM", "B5G5R5A1_UNORM", "B8G8R8A8_UNORM", "B8G8R8X8_UNORM",
	"R10G10B10_XR_BIAS_A2_UNORM", "B8G8R8A8_TYPELESS", "B8G8R8A8_UNORM_SRGB",
	"B8G8R8X8_TYPELESS", "B8G8R8X8_UNORM_SRGB",
	"BC6H_TYPELESS", "BC6H_UF16", "BC6H_SF16",
	"BC7_TYPELESS", "BC7_UNORM", "BC7_UNORM_SRGB",
	"AYUV", "Y410", "Y416", "NV12", "P010", "P016", "420_OPAQUE", "YUY2", "Y210", "Y216",
	"NV11", "AI44", "IA44", "P8", "A8P8", "B4G4R4A4_UNORM",
}

func (f Format) String() string {
	if int(f) < len(formatNames) {
		return "DXGI_FORMAT_" + formatNames[f]
	}
	return fmt.Sprintf("DXGI_FORMAT(%d)", uint8(f))
}

// pitchKind selects how dwPitchOrLinearSize is derived from the dimensions.
type pitchKind int

const (
	pitchHalf pitchKind = iota // 4 bits per pixel block formats
	pitchFull
	pitchQuad // 32-bit uncompressed formats
)

type formatInfo struct {
	pixelFormat PixelFormat
	pitch       pitchKind
	dx10        bool
}

// formats maps every supported DXGI code to its legacy pixel format block.
// Formats absent from this table cannot be given a DDS header.
var formats = map[Format]formatInfo{
	FormatBC1UNorm: {
		pixelFormat: fourCCFormat(FourCC('D', 'X', 'T', '1')),
		pitch:       pitchHalf,
	},
	FormatBC2UNorm: {
		pixelFormat: fourCCFormat(FourCC('D', 'X', 'T', '3')),
		pitch:       pitchFull,
	},
	FormatBC3UNorm: {
		pixelFormat: fourCCFormat(FourCC('D', 'X', 'T', '5')),
		pitch:       pitchFull,
	},
	FormatBC5UNorm: {
		pixelFormat: fourCCFormat(FourCC('A', 'T', 'I', '2')),
		pitch:       pitchFull,
	},
	FormatBC7UNorm: {
		pixelFormat: fourCCFormat(FourCC('D', 'X', '1', '0')),
		pitch:       pitchFull,
		dx10:        true,
	},
	FormatBC7UNormSRGB: {
		pixelFormat: fourCCFormat(FourCC('D', 'X', '1', '0')),
		pitch:       pitchFull,
		dx10:        true,
	},
	FormatB8G8R8A8UNorm: {
		pixelFormat: PixelFormat{
			Size:        pixelFormatSize,
			Flags:       PFAlphaPixels | PFRGB,
			RGBBitCount: 32,
			RBitMask:    0x00ff0000,
			GBitMask:    0x0000ff00,
			BBitMask:    0x000000ff,
			ABitMask:    0xff000000,
		},
		pitch: pitchQuad,
	},
	FormatR8UNorm: {
		pixelFormat: PixelFormat{
			Size:        pixelFormatSize,
			Flags:       PFRGB,
			RGBBitCount: 8,
			RBitMask:    0x000000ff,
		},
		pitch: pitchFull,
	},
}

// Supported reports whether f has a DDS header mapping.
func (f Format) Supported() bool {
	_, ok := formats[f]
	return ok
}

func fourCCFormat(code uint32) PixelFormat {
	return PixelFormat{
		Size:   pixelFormatSize,
		Flags:  PFFourCC,
		FourCC: code,
	}
}
