package parser_test

import (
	"bytes"
	"encoding/binary"
	"io"
	"log/slog"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/pierrec/lz4/v4"

	"github.com/ossyrian/ba2extract/internal/ba2"
	"github.com/ossyrian/ba2extract/internal/parser"
)

// genFile is a GNRL entry to place in a test archive
type genFile struct {
	name     string // stored with a leading back-slash
	data     []byte
	compress bool
}

// texChunk is one mip range of a test texture
type texChunk struct {
	data     []byte
	compress bool
	startMip uint16
	endMip   uint16
}

// texFile is a DX10 entry to place in a test archive
type texFile struct {
	name   string
	width  uint16
	height uint16
	mips   uint8
	format uint8
	tile   uint16
	chunks []texChunk
}

func quietOptions() parser.Options {
	return parser.Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// headerBytes encodes the fixed header plus the extended header for versions 2 and 3
func headerBytes(version uint32, kind ba2.Kind, count int, namesOffset int) []byte {
	buf := new(bytes.Buffer)
	buf.Write(ba2.Magic[:])
	binary.Write(buf, binary.LittleEndian, version)
	buf.WriteString(string(kind))
	binary.Write(buf, binary.LittleEndian, uint32(count))
	binary.Write(buf, binary.LittleEndian, uint64(namesOffset))
	switch version {
	case 2:
		buf.Write(make([]byte, 8))
	case 3:
		buf.Write(make([]byte, 8))
		binary.Write(buf, binary.LittleEndian, uint32(ba2.CompressionLZ4))
	}
	return buf.Bytes()
}

func extendedSize(version uint32) int {
	switch version {
	case 2:
		return 8
	case 3:
		return 12
	default:
		return 0
	}
}

// pack compresses data the way an archive of the given version would
func pack(t *testing.T, version uint32, data []byte) []byte {
	t.Helper()
	if version == 3 {
		dst := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, dst, nil)
		if err != nil || n == 0 {
			t.Fatalf("lz4 compress: n=%d err=%v", n, err)
		}
		return dst[:n]
	}

	buf := new(bytes.Buffer)
	zw := zlib.NewWriter(buf)
	if _, err := zw.Write(data); err != nil {
		t.Fatalf("zlib write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zlib close: %v", err)
	}
	return buf.Bytes()
}

// buildGeneral lays out header, records, payloads and name table in that order
func buildGeneral(t *testing.T, version uint32, files ...genFile) []byte {
	t.Helper()

	recordsEnd := ba2.HeaderSize + extendedSize(version) + len(files)*ba2.FileRecordSize
	payload := new(bytes.Buffer)
	records := make([]ba2.FileRecord, len(files))
	for i, f := range files {
		stored := f.data
		var packed uint32
		if f.compress {
			stored = pack(t, version, f.data)
			packed = uint32(len(stored))
		}
		records[i] = ba2.FileRecord{
			NameHash:     uint32(i),
			Ext:          [4]byte{'b', 'i', 'n', 0},
			Offset:       uint64(recordsEnd + payload.Len()),
			PackedSize:   packed,
			UnpackedSize: uint32(len(f.data)),
			Align:        0xBAADF00D,
		}
		payload.Write(stored)
	}

	namesOffset := recordsEnd + payload.Len()
	buf := bytes.NewBuffer(headerBytes(version, ba2.KindGeneral, len(files), namesOffset))
	binary.Write(buf, binary.LittleEndian, records)
	buf.Write(payload.Bytes())

	var names []byte
	for _, f := range files {
		name := `\` + f.name
		names = ba2.AppendUvarint(names, uint64(len(name)))
		names = append(names, name...)
	}
	buf.Write(names)
	return buf.Bytes()
}

// buildTexture lays out header, texture records with chunks, chunk payloads and name table
func buildTexture(t *testing.T, version uint32, files ...texFile) []byte {
	t.Helper()

	recordsEnd := ba2.HeaderSize + extendedSize(version)
	for _, f := range files {
		recordsEnd += ba2.TextureHeaderSize + len(f.chunks)*ba2.TextureChunkSize
	}

	payload := new(bytes.Buffer)
	records := new(bytes.Buffer)
	for i, f := range files {
		binary.Write(records, binary.LittleEndian, ba2.TextureHeader{
			NameHash:        uint32(i),
			Ext:             [4]byte{'d', 'd', 's', 0},
			ChunkCount:      uint8(len(f.chunks)),
			ChunkHeaderSize: ba2.TextureChunkSize,
			Height:          f.height,
			Width:           f.width,
			MipCount:        f.mips,
			Format:          f.format,
			Tile:            f.tile,
		})
		for _, c := range f.chunks {
			stored := c.data
			var packed uint32
			if c.compress {
				stored = pack(t, version, c.data)
				packed = uint32(len(stored))
			}
			binary.Write(records, binary.LittleEndian, ba2.TextureChunk{
				Offset:       uint64(recordsEnd + payload.Len()),
				PackedSize:   packed,
				UnpackedSize: uint32(len(c.data)),
				StartMip:     c.startMip,
				EndMip:       c.endMip,
				Align:        0xBAADF00D,
			})
			payload.Write(stored)
		}
	}

	namesOffset := recordsEnd + payload.Len()
	buf := bytes.NewBuffer(headerBytes(version, ba2.KindTexture, len(files), namesOffset))
	buf.Write(records.Bytes())
	buf.Write(payload.Bytes())
	for _, f := range files {
		buf.Write(binary.LittleEndian.AppendUint16(nil, uint16(len(f.name))))
		buf.WriteString(f.name)
	}
	return buf.Bytes()
}

// collect runs a full iteration and returns the files and the terminal error
func collect(a *parser.Archive) ([]parser.File, *parser.FileIterator) {
	it := a.Files()
	var files []parser.File
	for it.Next() {
		files = append(files, it.File())
	}
	return files, it
}
