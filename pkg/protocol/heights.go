package protocol

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/klauspost/compress/zstd"
)

var (
	heightEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	heightDecoder, _ = zstd.NewReader(nil)
)

// EncodeHeights packs heights as little-endian float32s and compresses them
// with zstd.
func EncodeHeights(heights []float64) []byte {
	raw := make([]byte, 4*len(heights))
	for i, h := range heights {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(float32(h)))
	}
	return heightEncoder.EncodeAll(raw, nil)
}

func DecodeHeights(data []byte) ([]float64, error) {
	raw, err := heightDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress heights: %w", err)
	}
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("height payload has %d bytes, not a multiple of 4", len(raw))
	}

	heights := make([]float64, len(raw)/4)
	for i := range heights {
		heights[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:])))
	}
	return heights, nil
}
