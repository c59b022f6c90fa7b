package ba2_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/ossyrian/ba2extract/internal/ba2"
)

func generalNames(names ...string) []byte {
	var b []byte
	for _, n := range names {
		b = ba2.AppendUvarint(b, uint64(len(n)))
		b = append(b, n...)
	}
	return b
}

func textureNames(names ...string) []byte {
	var b []byte
	for _, n := range names {
		b = binary.LittleEndian.AppendUint16(b, uint16(len(n)))
		b = append(b, n...)
	}
	return b
}

func TestNameReaderGeneral(t *testing.T) {
	prefix := []byte("junk")
	table := generalNames(`\meshes\a.nif`, `/sound/b.wav`, `\é.txt`)
	data := append(prefix, table...)

	nr := ba2.NewNameReader(bytes.NewReader(data), int64(len(data)), int64(len(prefix)), 3, ba2.KindGeneral)

	want := []string{"meshes/a.nif", "sound/b.wav", "é.txt"}
	for i, w := range want {
		got, err := nr.Next()
		if err != nil {
			t.Fatalf("Next() #%d failed: %v", i, err)
		}
		if got != w {
			t.Errorf("Next() #%d = %q, want %q", i, got, w)
		}
	}
	if nr.Offset() != int64(len(data)) {
		t.Errorf("Offset() = %d, want %d", nr.Offset(), len(data))
	}
	if nr.Remaining() != 0 {
		t.Errorf("Remaining() = %d, want 0", nr.Remaining())
	}
}

func TestNameReaderGeneralLongName(t *testing.T) {
	// 200 bytes needs a two-byte length prefix
	long := "\\" + string(bytes.Repeat([]byte("a"), 199))
	data := generalNames(long, `\b`)

	nr := ba2.NewNameReader(bytes.NewReader(data), int64(len(data)), 0, 2, ba2.KindGeneral)

	got, err := nr.Next()
	if err != nil {
		t.Fatalf("Next() failed: %v", err)
	}
	if len(got) != 199 {
		t.Errorf("len(Next()) = %d, want 199", len(got))
	}
	if nr.Offset() != 202 {
		t.Errorf("Offset() = %d, want 202", nr.Offset())
	}
	if got, _ := nr.Next(); got != "b" {
		t.Errorf("second Next() = %q, want %q", got, "b")
	}
}

func TestNameReaderTexture(t *testing.T) {
	data := textureNames(`textures\a_d.dds`, `textures\sub\b_n.dds`)

	nr := ba2.NewNameReader(bytes.NewReader(data), int64(len(data)), 0, 2, ba2.KindTexture)

	for _, want := range []string{"textures/a_d.dds", "textures/sub/b_n.dds"} {
		got, err := nr.Next()
		if err != nil {
			t.Fatalf("Next() failed: %v", err)
		}
		if got != want {
			t.Errorf("Next() = %q, want %q", got, want)
		}
	}
}

func TestNameReaderErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		kind    ba2.Kind
		count   int
		wantErr error
	}{
		{
			name:    "declared length past end",
			data:    append(ba2.AppendUvarint(nil, 50), `\short`...),
			kind:    ba2.KindGeneral,
			count:   1,
			wantErr: ba2.ErrDecode,
		},
		{
			name:    "texture length past end",
			data:    append([]byte{0xFF, 0x00}, "abc"...),
			kind:    ba2.KindTexture,
			count:   1,
			wantErr: ba2.ErrDecode,
		},
		{
			name:    "invalid utf-8",
			data:    generalNames("\\\xff\xfe"),
			kind:    ba2.KindGeneral,
			count:   1,
			wantErr: ba2.ErrDecode,
		},
		{
			name:    "truncated varint",
			data:    []byte{0x80, 0x80},
			kind:    ba2.KindGeneral,
			count:   1,
			wantErr: ba2.ErrDecode,
		},
		{
			name:    "truncated uint16 prefix",
			data:    []byte{0x01},
			kind:    ba2.KindTexture,
			count:   1,
			wantErr: ba2.ErrDecode,
		},
		{
			name:    "empty table",
			data:    []byte{},
			kind:    ba2.KindTexture,
			count:   1,
			wantErr: ba2.ErrDecode,
		},
		{
			name:    "no names left",
			data:    textureNames("a"),
			kind:    ba2.KindTexture,
			count:   0,
			wantErr: ba2.ErrNameRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nr := ba2.NewNameReader(bytes.NewReader(tt.data), int64(len(tt.data)), 0, tt.count, tt.kind)
			_, err := nr.Next()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Next() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNameReaderRangeAfterLastName(t *testing.T) {
	data := textureNames("a", "b")
	nr := ba2.NewNameReader(bytes.NewReader(data), int64(len(data)), 0, 1, ba2.KindTexture)

	if _, err := nr.Next(); err != nil {
		t.Fatalf("Next() failed: %v", err)
	}
	if _, err := nr.Next(); !errors.Is(err, ba2.ErrNameRange) {
		t.Fatalf("Next() error = %v, want %v", err, ba2.ErrNameRange)
	}
}

func TestNormalizePath(t *testing.T) {
	if got := ba2.NormalizePath(`a\b\c.txt`); got != "a/b/c.txt" {
		t.Errorf("NormalizePath() = %q", got)
	}
}
