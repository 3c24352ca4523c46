package game

import (
	"sort"

	"github.com/bytebullet/bytebullet/pkg/chunks"
	"github.com/bytebullet/bytebullet/pkg/projectiles"
	"github.com/bytebullet/bytebullet/pkg/protocol"
)

// pendingChunk is a loaded chunk waiting to be sent. Its payload is encoded
// the first time a frame needs it and reused while frames are dropped.
type pendingChunk struct {
	chunk *chunks.Chunk
	data  *protocol.ChunkData
}

func (p *pendingChunk) payload() protocol.ChunkData {
	if p.data == nil {
		p.data = &protocol.ChunkData{
			X:            p.chunk.Key.X,
			Z:            p.chunk.Key.Z,
			Subdivisions: p.chunk.Mesh.Subdivisions(),
			Digest:       p.chunk.Digest(),
			Heights:      protocol.EncodeHeights(p.chunk.Heights()),
		}
	}
	return *p.data
}

// changes collects what happened since the client last received a frame.
// A key can be both unloaded and loaded; clients apply unloads first.
type changes struct {
	loaded    map[chunks.Key]*pendingChunk
	unloaded  map[chunks.Key]struct{}
	destroyed []protocol.DestroyedProjectile
}

func newChanges() *changes {
	c := &changes{}
	c.reset()
	return c
}

func (c *changes) reset() {
	c.loaded = make(map[chunks.Key]*pendingChunk)
	c.unloaded = make(map[chunks.Key]struct{})
	c.destroyed = nil
}

func (c *changes) chunkLoaded(chunk *chunks.Chunk) {
	c.loaded[chunk.Key] = &pendingChunk{chunk: chunk}
}

func (c *changes) chunkUnloaded(chunk *chunks.Chunk) {
	delete(c.loaded, chunk.Key)
	c.unloaded[chunk.Key] = struct{}{}
}

func (c *changes) projectileDestroyed(projectile *projectiles.Projectile) {
	c.destroyed = append(c.destroyed, protocol.DestroyedProjectile{
		ID:     projectile.ID,
		Reason: projectile.Reason.String(),
	})
}

func sortedKeys[V any](m map[chunks.Key]V) []chunks.Key {
	keys := make([]chunks.Key, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Z != keys[j].Z {
			return keys[i].Z < keys[j].Z
		}
		return keys[i].X < keys[j].X
	})
	return keys
}

func (c *changes) fill(message *protocol.FrameMessage) {
	for _, key := range sortedKeys(c.unloaded) {
		message.Unloaded = append(message.Unloaded, protocol.ChunkKey{X: key.X, Z: key.Z})
	}

	for _, key := range sortedKeys(c.loaded) {
		message.Loaded = append(message.Loaded, c.loaded[key].payload())
	}

	message.Destroyed = append(message.Destroyed, c.destroyed...)
}
