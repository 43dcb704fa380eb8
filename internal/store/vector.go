package store

import (
	"encoding/binary"
	"math"
)

// Embeddings are persisted as little-endian float32 sequences. The
// layout must round-trip byte-exact: DecodeVector(EncodeVector(v)) == v
// and EncodeVector(DecodeVector(b)) == b for well-formed b.

// EncodeVector serializes a vector to its on-disk byte layout.
func EncodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeVector deserializes a vector from its on-disk byte layout.
// Trailing bytes that do not form a full float32 are ignored.
func DecodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

// Dot computes the dot product of two equal-length vectors. For
// unit-normalized vectors this is the cosine similarity.
func Dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
