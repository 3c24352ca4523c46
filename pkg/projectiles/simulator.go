package projectiles

import (
	"fmt"
	"sort"

	"github.com/bytebullet/bytebullet/pkg/engine"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/repeale/fp-go/option"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	// Distance in front of the origin a projectile spawns at.
	Offset float64 `json:"offset"`
	// Distance travelled per frame.
	Speed       float64 `json:"speed"`
	MaxDistance float64 `json:"maxDistance"`
	Diameter    float64 `json:"diameter"`
}

func DefaultConfig() Config {
	return Config{
		Offset:      0.8,
		Speed:       0.6,
		MaxDistance: 100,
		Diameter:    0.2,
	}
}

// Simulator owns every live projectile and moves them at a constant velocity
// once per frame.
type Simulator struct {
	// Fires exactly once per projectile, after it has been deregistered.
	OnDestroyed engine.Observable[*Projectile]

	config   Config
	scene    *engine.Scene
	template opt.Option[*engine.Mesh]
	camera   opt.Option[*engine.Camera]
	live     map[uint32]*Projectile
	nextID   uint32
	tick     *engine.Observer[engine.Frame]
	logger   zerolog.Logger
}

func NewSimulator(scene *engine.Scene, config Config) *Simulator {
	return &Simulator{
		config:   config,
		scene:    scene,
		template: opt.None[*engine.Mesh](),
		camera:   opt.None[*engine.Camera](),
		live:     make(map[uint32]*Projectile),
		logger:   log.With().Str("component", "projectiles").Logger(),
	}
}

func (s *Simulator) SetLogger(logger zerolog.Logger) {
	s.logger = logger.With().Str("component", "projectiles").Logger()
}

func (s *Simulator) Config() Config {
	return s.config
}

// CreateTemplate builds the hidden base sphere projectiles are cloned from.
func (s *Simulator) CreateTemplate() *engine.Mesh {
	return s.scene.CreateSphere("bullet", s.config.Diameter, mgl64.Vec3{0, -1000, 0})
}

// Init sets the base projectile and the camera shots are fired from. Fire
// does nothing until both are set.
func (s *Simulator) Init(template *engine.Mesh, camera *engine.Camera) {
	if template != nil {
		s.template = opt.Some(template)
	}
	if camera != nil {
		s.camera = opt.Some(camera)
	}
}

func (s *Simulator) Ready() bool {
	return opt.IsSome(s.template) && opt.IsSome(s.camera)
}

// Start runs Advance at the beginning of every frame.
func (s *Simulator) Start(ticker engine.Ticker) {
	if s.tick != nil {
		s.tick.Remove()
	}
	s.tick = ticker.OnTick(func(engine.Frame) {
		s.Advance()
	})
}

// Fire spawns a projectile at origin + direction*Offset moving
// direction*Speed per frame. The direction is used as given.
func (s *Simulator) Fire(origin, direction mgl64.Vec3) opt.Option[*Projectile] {
	if !s.Ready() || direction.Len() == 0 {
		return opt.None[*Projectile]()
	}

	s.nextID++
	position := origin.Add(direction.Mul(s.config.Offset))
	mesh := s.scene.CreateSphere(
		fmt.Sprintf("bullet_%d", s.nextID),
		s.template.Value.Radius()*2,
		position,
	)

	projectile := &Projectile{
		ID:        s.nextID,
		Position:  position,
		Velocity:  direction.Mul(s.config.Speed),
		Mesh:      mesh,
		alive:     true,
		simulator: s,
	}
	mesh.OnDispose.Add(func(*engine.Mesh) {
		s.destroy(projectile, ReasonDisposed)
	})
	s.live[projectile.ID] = projectile

	s.logger.Debug().
		Uint32("projectile", projectile.ID).
		Str("position", fmt.Sprintf("%.2f", position)).
		Msg("fired")

	return opt.Some(projectile)
}

// FireFromCamera fires along the camera's facing direction.
func (s *Simulator) FireFromCamera() opt.Option[*Projectile] {
	if opt.IsNone(s.camera) {
		return opt.None[*Projectile]()
	}
	camera := s.camera.Value
	return s.Fire(camera.Position, camera.Forward().Normalize())
}

// Advance moves every live projectile once and destroys the ones that end
// up farther than MaxDistance from the world origin.
func (s *Simulator) Advance() {
	for _, projectile := range s.Live() {
		if !projectile.alive {
			continue
		}

		projectile.Position = projectile.Position.Add(projectile.Velocity)
		projectile.Mesh.Position = projectile.Position
		projectile.Steps++

		if projectile.Position.Len() > s.config.MaxDistance {
			s.destroy(projectile, ReasonOutOfRange)
		}
	}
}

func (s *Simulator) destroy(projectile *Projectile, reason Reason) {
	if !projectile.alive {
		return
	}
	projectile.alive = false
	projectile.Reason = reason
	delete(s.live, projectile.ID)
	projectile.Mesh.Dispose()
	s.OnDestroyed.Notify(projectile)
}

// Live returns the live projectiles ordered by id.
func (s *Simulator) Live() []*Projectile {
	live := make([]*Projectile, 0, len(s.live))
	for _, projectile := range s.live {
		live = append(live, projectile)
	}
	sort.Slice(live, func(i, j int) bool {
		return live[i].ID < live[j].ID
	})
	return live
}

func (s *Simulator) Len() int {
	return len(s.live)
}

// Dispose destroys every live projectile and stops listening for frames.
func (s *Simulator) Dispose() {
	if s.tick != nil {
		s.tick.Remove()
		s.tick = nil
	}
	for _, projectile := range s.Live() {
		s.destroy(projectile, ReasonDisposed)
	}
}
