package protocol

import (
	"math"
	"testing"
)

func TestEncodeDecodeUvarint(t *testing.T) {
	tests := []struct {
		name  string
		value uint64
		bytes int
	}{
		{"zero", 0, 1},
		{"one", 1, 1},
		{"max_1byte", 127, 1},
		{"min_2byte", 128, 2},
		{"max_2byte", 16383, 2},
		{"min_3byte", 16384, 3},
		{"max_uint32", math.MaxUint32, 5},
		{"max_uint64", math.MaxUint64, 10},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			buf := AppendUvarint(nil, tc.value)
			n := len(buf)
			if n != tc.bytes || UvarintLen(tc.value) != tc.bytes {
				t.Errorf("AppendUvarint(%d) = %d bytes, want %d", tc.value, n, tc.bytes)
			}
			if n > MaxVarintLen {
				t.Errorf("AppendUvarint(%d) = %d bytes, over MaxVarintLen", tc.value, n)
			}

			decoded, read := DecodeUvarint(buf[:n])
			if read != n || decoded != tc.value {
				t.Errorf("DecodeUvarint = (%d, %d), want (%d, %d)", decoded, read, tc.value, n)
			}
		})
	}
}

func TestDecodeUvarintErrors(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want int
	}{
		{"empty", nil, -1},
		{"truncated", []byte{0x80, 0x80}, -1},
		{"eleven bytes", []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x01}, -2},
		{"bits past 64", []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x02}, -2},
	}
	for _, tc := range tests {
		if _, n := DecodeUvarint(tc.buf); n != tc.want {
			t.Errorf("%s: DecodeUvarint read = %d, want %d", tc.name, n, tc.want)
		}
	}
}

func FuzzDecodeUvarint(f *testing.F) {
	f.Add([]byte{0x00})
	f.Add([]byte{0x80, 0x01})
	f.Add([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x01})

	f.Fuzz(func(t *testing.T, data []byte) {
		v, n := DecodeUvarint(data)
		if n <= 0 {
			return
		}
		back, m := DecodeUvarint(AppendUvarint(nil, v))
		if back != v || m != UvarintLen(v) {
			t.Errorf("re-encoding %d decoded as (%d, %d)", v, back, m)
		}
	})
}
