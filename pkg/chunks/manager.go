package chunks

import (
	"fmt"
	"sort"

	"github.com/bytebullet/bytebullet/pkg/engine"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/repeale/fp-go/option"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Target is anything the manager can stream chunks around.
type Target interface {
	WorldPosition() mgl64.Vec3
}

// Manager keeps the ground chunks around a target loaded. It owns its
// registry; nothing else creates or releases chunks.
type Manager struct {
	OnLoaded   engine.Observable[*Chunk]
	OnUnloaded engine.Observable[*Chunk]

	config Config
	scene  *engine.Scene
	target opt.Option[Target]
	loaded map[Key]*Chunk
	tick   *engine.Observer[engine.Frame]
	logger zerolog.Logger
}

func NewManager(scene *engine.Scene, config Config) *Manager {
	if config.Size <= 0 {
		config.Size = DefaultConfig().Size
	}
	if config.Subdivisions < 1 {
		config.Subdivisions = 1
	}
	return &Manager{
		config: config,
		scene:  scene,
		target: opt.None[Target](),
		loaded: make(map[Key]*Chunk),
		logger: log.With().Str("component", "chunks").Logger(),
	}
}

func (m *Manager) Logger() zerolog.Logger {
	return m.logger
}

func (m *Manager) SetLogger(logger zerolog.Logger) {
	m.logger = logger.With().Str("component", "chunks").Logger()
}

func (m *Manager) Config() Config {
	return m.config
}

// Start runs Update at the beginning of every frame.
func (m *Manager) Start(ticker engine.Ticker) {
	if m.tick != nil {
		m.tick.Remove()
	}
	m.tick = ticker.OnTick(func(engine.Frame) {
		m.Update()
	})
}

func (m *Manager) Follow(target Target) {
	if target == nil {
		m.Unfollow()
		return
	}
	m.target = opt.Some(target)
}

func (m *Manager) Unfollow() {
	m.target = opt.None[Target]()
}

func (m *Manager) Target() opt.Option[Target] {
	return m.target
}

// HeightAt is the terrain height at a world position, loaded or not.
func (m *Manager) HeightAt(x, z float64) float64 {
	return m.config.HeightAt(x, z)
}

// Required is the neighborhood that should be loaded around position.
func (m *Manager) Required(position mgl64.Vec3) []Key {
	return Neighborhood(KeyFor(position, m.config.Size), m.config.Range)
}

// Update loads every chunk in range of the target and releases the ones that
// fell out of range. Without a target, or while the target's position is not
// finite, it does nothing.
func (m *Manager) Update() {
	if opt.IsNone(m.target) {
		return
	}

	position := m.target.Value.WorldPosition()
	if !engine.Finite(position) {
		m.logger.Warn().Msgf("ignoring target at %v", position)
		return
	}
	required := make(map[Key]struct{})
	for _, key := range m.Required(position) {
		required[key] = struct{}{}
	}

	var stale []Key
	for key := range m.loaded {
		if _, ok := required[key]; !ok {
			stale = append(stale, key)
		}
	}
	sort.Slice(stale, func(i, j int) bool {
		return less(stale[i], stale[j])
	})
	for _, key := range stale {
		m.unload(key)
	}

	var missing []Key
	for key := range required {
		if _, ok := m.loaded[key]; !ok {
			missing = append(missing, key)
		}
	}
	sort.Slice(missing, func(i, j int) bool {
		return less(missing[i], missing[j])
	})
	for _, key := range missing {
		m.load(key)
	}

	if len(stale) > 0 || len(missing) > 0 {
		m.logger.Debug().
			Int("loaded", len(missing)).
			Int("unloaded", len(stale)).
			Int("total", len(m.loaded)).
			Msg("chunks updated")
	}
}

func (m *Manager) load(key Key) *Chunk {
	size := m.config.Size
	mesh := m.scene.CreateGround(fmt.Sprintf("chunk_%d_%d", key.X, key.Z), engine.GroundOptions{
		Width:        size,
		Depth:        size,
		Subdivisions: m.config.Subdivisions,
		Position:     mgl64.Vec3{float64(key.X) * size, 0, float64(key.Z) * size},
		Height:       m.config.HeightAt,
	})
	mesh.SetCollidable(true)

	chunk := &Chunk{
		Key:        key,
		Mesh:       mesh,
		Collidable: true,
	}
	chunk.heights = append([]float64(nil), mesh.Heights()...)
	chunk.digest = DigestHeights(m.config.Subdivisions, chunk.heights)

	// Anything else disposing the mesh still takes the chunk out of the registry.
	mesh.OnDispose.Add(func(*engine.Mesh) {
		m.forget(chunk)
	})

	m.loaded[key] = chunk
	m.OnLoaded.Notify(chunk)
	return chunk
}

func (m *Manager) unload(key Key) {
	chunk, ok := m.loaded[key]
	if !ok {
		return
	}
	chunk.release()
}

func (m *Manager) forget(chunk *Chunk) {
	chunk.released = true
	if current, ok := m.loaded[chunk.Key]; !ok || current != chunk {
		return
	}
	delete(m.loaded, chunk.Key)
	m.OnUnloaded.Notify(chunk)
}

func (m *Manager) Chunk(key Key) opt.Option[*Chunk] {
	chunk, ok := m.loaded[key]
	if !ok {
		return opt.None[*Chunk]()
	}
	return opt.Some(chunk)
}

// Keys returns the loaded keys in row order.
func (m *Manager) Keys() []Key {
	keys := make([]Key, 0, len(m.loaded))
	for key := range m.loaded {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return less(keys[i], keys[j])
	})
	return keys
}

func (m *Manager) Len() int {
	return len(m.loaded)
}

// Dispose releases every chunk and stops listening for frames.
func (m *Manager) Dispose() {
	if m.tick != nil {
		m.tick.Remove()
		m.tick = nil
	}
	for _, key := range m.Keys() {
		m.unload(key)
	}
	m.target = opt.None[Target]()
}
