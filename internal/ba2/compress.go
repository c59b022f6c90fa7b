package ba2

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/pierrec/lz4/v4"
)

// Decompress inflates a packed payload with the given method.
// The output must be exactly unpackedSize bytes long; anything else is reported
// as ErrDecompression.
func Decompress(method Compression, packed []byte, unpackedSize uint32) ([]byte, error) {
	switch method {
	case CompressionZlib:
		return inflateZlib(packed, unpackedSize)
	case CompressionLZ4:
		return inflateLZ4(packed, unpackedSize)
	default:
		return nil, fmt.Errorf("%w: unknown compression method %d", ErrDecompression, method)
	}
}

func inflateZlib(packed []byte, unpackedSize uint32) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(packed))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
	}
	defer zr.Close()

	// one extra byte so an oversized stream is detected without inflating all of it
	out, err := io.ReadAll(io.LimitReader(zr, int64(unpackedSize)+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
	}
	if len(out) != int(unpackedSize) {
		return nil, fmt.Errorf("%w: inflated to %d bytes, expected %d",
			ErrDecompression, len(out), unpackedSize)
	}
	return out, nil
}

func inflateLZ4(packed []byte, unpackedSize uint32) ([]byte, error) {
	if uint64(unpackedSize) > maxLZ4Output(len(packed)) {
		return nil, fmt.Errorf("%w: %d packed bytes cannot inflate to %d",
			ErrDecompression, len(packed), unpackedSize)
	}

	out := make([]byte, unpackedSize)
	n, err := lz4.UncompressBlock(packed, out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
	}
	if n != int(unpackedSize) {
		return nil, fmt.Errorf("%w: inflated to %d bytes, expected %d",
			ErrDecompression, n, unpackedSize)
	}
	return out, nil
}

// maxLZ4Output bounds what an LZ4 block of n bytes can expand to. A length
// extension byte of 255 is the densest encoding, so no block inflates by more
// than 255x plus a small constant.
func maxLZ4Output(n int) uint64 {
	return uint64(n)*255 + 16
}
