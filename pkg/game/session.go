package game

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/bytebullet/bytebullet/pkg/chunks"
	"github.com/bytebullet/bytebullet/pkg/config"
	"github.com/bytebullet/bytebullet/pkg/engine"
	"github.com/bytebullet/bytebullet/pkg/input"
	"github.com/bytebullet/bytebullet/pkg/player"
	"github.com/bytebullet/bytebullet/pkg/projectiles"
	"github.com/bytebullet/bytebullet/pkg/protocol"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrNoDisplaySurface = errors.New("no display surface")
	ErrInvalidCamera    = errors.New("invalid camera mode")
)

const (
	DEFAULT_TICK_RATE = 60
	INBOX_SIZE        = 64
)

// Spawn point of the first-person camera, relative to the marker box.
var spawnOffset = mgl64.Vec3{0, 0, -5}

// Session is one player's private world. All of its state is owned by the
// goroutine running Poll; other goroutines talk to it through Deliver and
// Frames.
type Session struct {
	id       uint32
	settings config.GameSettings
	touch    bool
	tickRate int
	interval time.Duration

	context   context.Context
	cancel    context.CancelFunc
	startTime time.Time

	scene       *engine.Scene
	camera      *engine.Camera
	marker      *engine.Mesh
	controller  *player.Controller
	chunks      *chunks.Manager
	projectiles *projectiles.Simulator
	mapper      *input.Mapper

	inbox  chan any
	frames chan protocol.FrameMessage

	pending *changes
	logger  zerolog.Logger
}

// NewSession builds the scene for a client that said hello. The client must
// report a display surface with a positive size.
func NewSession(ctx context.Context, id uint32, settings config.GameSettings, hello protocol.HelloMessage) (*Session, error) {
	viewport := input.Viewport{Width: hello.Width, Height: hello.Height}
	if !viewport.Valid() {
		return nil, fmt.Errorf("%w: viewport is %vx%v", ErrNoDisplaySurface, hello.Width, hello.Height)
	}

	modeName := settings.Camera
	if hello.Camera != "" {
		modeName = hello.Camera
	}
	mode, ok := engine.ParseCameraMode(modeName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCamera, modeName)
	}

	tickRate := settings.TickRate
	if tickRate <= 0 {
		tickRate = DEFAULT_TICK_RATE
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		id:        id,
		settings:  settings,
		touch:     hello.Touch,
		tickRate:  tickRate,
		interval:  time.Second / time.Duration(tickRate),
		context:   ctx,
		cancel:    cancel,
		startTime: time.Now(),
		scene:     engine.NewScene(),
		mapper:    input.NewMapper(viewport, settings.JumpKey),
		inbox:     make(chan any, INBOX_SIZE),
		frames:    make(chan protocol.FrameMessage, 1),
		pending:   newChanges(),
		logger:    log.With().Uint32("session", id).Logger(),
	}

	s.createScene(mode)
	return s, nil
}

func (s *Session) createScene(mode engine.CameraMode) {
	scene := s.scene

	s.chunks = chunks.NewManager(scene, s.settings.Chunks)
	s.chunks.SetLogger(s.logger)
	s.chunks.OnLoaded.Add(s.pending.chunkLoaded)
	s.chunks.OnUnloaded.Add(s.pending.chunkUnloaded)

	scene.CreateHemisphericLight("light", mgl64.Vec3{0, 1, 0}, 0.8)

	origin := mgl64.Vec3{0, s.chunks.HeightAt(0, 0), 0}
	s.marker = scene.CreateBox("player", 1, origin.Add(mgl64.Vec3{0, 0.5, 0}))
	s.marker.SetCollidable(true)

	switch mode {
	case engine.CameraOrbit:
		s.camera = engine.NewOrbitCamera("camera", math.Pi/2, math.Pi/3, 10, origin)
		s.chunks.Follow(s.marker)
	default:
		spawn := origin.Add(spawnOffset)
		spawn[1] = s.chunks.HeightAt(spawn.X(), spawn.Z()) + s.settings.Player.EllipsoidHeight
		s.camera = engine.NewFirstPersonCamera("camera", spawn)
		s.chunks.Follow(s.camera)
	}
	scene.Camera = s.camera

	s.controller = player.NewController(scene, s.camera, s.settings.Player)

	s.projectiles = projectiles.NewSimulator(scene, s.settings.Projectiles)
	s.projectiles.SetLogger(s.logger)
	s.projectiles.Init(s.projectiles.CreateTemplate(), s.camera)
	s.projectiles.OnDestroyed.Add(s.pending.projectileDestroyed)

	// Ground has to exist under the camera before the first frame.
	s.chunks.Update()

	s.controller.Start(scene)
	s.chunks.Start(scene)
	s.projectiles.Start(scene)
}

func (s *Session) ID() uint32 {
	return s.id
}

func (s *Session) Logger() zerolog.Logger {
	return s.logger
}

func (s *Session) Scene() *engine.Scene {
	return s.scene
}

func (s *Session) Camera() *engine.Camera {
	return s.camera
}

func (s *Session) Controller() *player.Controller {
	return s.controller
}

func (s *Session) Chunks() *chunks.Manager {
	return s.chunks
}

func (s *Session) Projectiles() *projectiles.Simulator {
	return s.projectiles
}

func (s *Session) Mapper() *input.Mapper {
	return s.mapper
}

func (s *Session) Started() time.Time {
	return s.startTime
}

func (s *Session) Uptime() time.Duration {
	return time.Since(s.startTime)
}

func (s *Session) Ctx() context.Context {
	return s.context
}

func (s *Session) Done() <-chan struct{} {
	return s.context.Done()
}

func (s *Session) IsDone() bool {
	return s.context.Err() != nil
}

func (s *Session) Cancel() {
	s.cancel()
}

// Welcome describes the session to a freshly connected client.
func (s *Session) Welcome() protocol.WelcomeMessage {
	chunkConfig := s.chunks.Config()
	welcome := protocol.WelcomeMessage{
		Op:       protocol.WelcomeOp,
		Session:  s.id,
		TickRate: s.tickRate,
		Camera:   s.camera.Mode.String(),
		Touch:    s.touch,
		JumpKey:  s.mapper.JumpKey(),
		Chunks: protocol.ChunkInfo{
			Size:         chunkConfig.Size,
			Range:        chunkConfig.Range,
			Subdivisions: chunkConfig.Subdivisions,
		},
	}

	for _, light := range s.scene.Lights {
		welcome.Lights = append(welcome.Lights, protocol.LightInfo{
			Name:      light.Name,
			Direction: light.Direction,
			Intensity: light.Intensity,
		})
	}

	welcome.Meshes = append(welcome.Meshes, protocol.MeshInfo{
		ID:       s.marker.ID,
		Name:     s.marker.Name,
		Kind:     s.marker.Kind.String(),
		Size:     1,
		Position: s.marker.Position,
	})
	return welcome
}

// Deliver queues a decoded client message for the session goroutine.
func (s *Session) Deliver(ctx context.Context, message any) error {
	if err := s.context.Err(); err != nil {
		return err
	}
	select {
	case s.inbox <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.context.Done():
		return s.context.Err()
	}
}

// Frames carries the state after each frame. A reader that falls behind
// misses frames, but the chunk and projectile changes they carried are
// folded into the next frame it does receive.
func (s *Session) Frames() <-chan protocol.FrameMessage {
	return s.frames
}

// Apply handles one client message. It must only be called from the
// goroutine that owns the session.
func (s *Session) Apply(message any) {
	switch message := message.(type) {
	case *protocol.PointerMessage:
		action := s.mapper.Pointer(input.PointerEvent{
			Device: input.Device(message.Device),
			Button: message.Button,
			X:      message.X,
			Y:      message.Y,
		})
		s.act(action)
	case *protocol.KeyMessage:
		s.act(s.mapper.Key(input.KeyEvent{Code: message.Code}))
	case *protocol.MoveMessage:
		s.controller.Move(message.Forward, message.Strafe)
	case *protocol.LookMessage:
		if !s.controller.Look(message.Yaw, message.Pitch) {
			s.logger.Warn().Msgf("ignoring look at %v, %v", message.Yaw, message.Pitch)
		}
	case *protocol.ResizeMessage:
		viewport := input.Viewport{Width: message.Width, Height: message.Height}
		if !viewport.Valid() {
			s.logger.Warn().Msgf("ignoring resize to %vx%v", message.Width, message.Height)
			return
		}
		s.mapper.Resize(viewport)
	case *protocol.HelloMessage:
		s.logger.Warn().Msg("client said hello twice")
	default:
		s.logger.Warn().Msgf("unexpected message %T", message)
	}
}

func (s *Session) act(action input.Action) {
	switch action {
	case input.ActionFire:
		s.projectiles.FireFromCamera()
	case input.ActionJump:
		s.controller.Jump()
	}
}

// Step renders one frame and returns the resulting state, including every
// change not yet delivered through Frames.
func (s *Session) Step() protocol.FrameMessage {
	frame := s.scene.Render(s.interval)
	return s.snapshot(frame.Number)
}

func (s *Session) snapshot(tick uint64) protocol.FrameMessage {
	message := protocol.FrameMessage{
		Op:   protocol.FrameOp,
		Tick: tick,
		Camera: protocol.CameraPose{
			Position: s.camera.Position,
			Yaw:      s.camera.Yaw,
			Pitch:    s.camera.Pitch,
		},
		Grounded: s.controller.IsGrounded(),
	}

	for _, projectile := range s.projectiles.Live() {
		message.Projectiles = append(message.Projectiles, protocol.ProjectileState{
			ID:       projectile.ID,
			Position: projectile.Position,
		})
	}

	s.pending.fill(&message)
	return message
}

func (s *Session) publish(frame protocol.FrameMessage) {
	select {
	case s.frames <- frame:
		s.pending.reset()
	default:
	}
}

// Poll runs the session until ctx is done or the session is cancelled, then
// releases the scene.
func (s *Session) Poll(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer s.dispose()

	s.logger.Info().Str("camera", s.camera.Mode.String()).Msg("session started")

	for {
		select {
		case message := <-s.inbox:
			s.Apply(message)
		case <-ticker.C:
			s.publish(s.Step())
		case <-ctx.Done():
			return
		case <-s.context.Done():
			return
		}
	}
}

func (s *Session) dispose() {
	s.cancel()
	s.controller.Stop()
	s.projectiles.Dispose()
	s.chunks.Dispose()
	s.scene.Dispose()
	s.logger.Info().
		Dur("uptime", s.Uptime()).
		Uint64("frames", s.scene.FrameNumber()).
		Msg("session ended")
}
