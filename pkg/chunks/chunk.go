package chunks

import (
	"encoding/binary"
	"math"

	"github.com/bytebullet/bytebullet/pkg/engine"

	"github.com/cespare/xxhash/v2"
)

type Chunk struct {
	Key        Key
	Mesh       *engine.Mesh
	Collidable bool

	heights  []float64
	digest   uint64
	released bool
}

// Heights returns a copy of the chunk's vertex heights taken when it was
// generated. It stays valid after the chunk is released.
func (c *Chunk) Heights() []float64 {
	heights := make([]float64, len(c.heights))
	copy(heights, c.heights)
	return heights
}

// Digest identifies the chunk's geometry so clients can reuse cached meshes.
func (c *Chunk) Digest() uint64 {
	return c.digest
}

func (c *Chunk) Released() bool {
	return c.released
}

func (c *Chunk) release() bool {
	if c.released {
		return false
	}
	c.released = true
	c.Mesh.Dispose()
	return true
}

// DigestHeights hashes the subdivision count followed by each height as the
// little-endian float32 clients receive, so a client can recompute it from
// the payload.
func DigestHeights(subdivisions int, heights []float64) uint64 {
	digest := xxhash.New()
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(subdivisions))
	digest.Write(buf[:])
	for _, h := range heights {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(float32(h)))
		digest.Write(buf[:])
	}
	return digest.Sum64()
}
