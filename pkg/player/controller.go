package player

import (
	"math"

	"github.com/bytebullet/bytebullet/pkg/engine"

	"github.com/go-gl/mathgl/mgl64"
)

type Config struct {
	// Length of the downward grounding probe.
	ProbeLength float64 `json:"probeLength"`
	// The probe must hit closer than this to count as grounded.
	GroundedThreshold float64 `json:"groundedThreshold"`
	JumpImpulse       float64 `json:"jumpImpulse"`
	// Per-frame horizontal speed.
	WalkSpeed        float64 `json:"walkSpeed"`
	Gravity          float64 `json:"gravity"`
	TerminalVelocity float64 `json:"terminalVelocity"`
	EllipsoidHeight  float64 `json:"ellipsoidHeight"`
}

func DefaultConfig() Config {
	return Config{
		ProbeLength:       1.2,
		GroundedThreshold: 1.0,
		JumpImpulse:       0.2,
		WalkSpeed:         0.15,
		Gravity:           -0.01,
		TerminalVelocity:  1.0,
		EllipsoidHeight:   0.9,
	}
}

// Controller turns movement intent into camera motion and gates jumping on
// ground contact.
type Controller struct {
	config Config
	scene  *engine.Scene
	camera *engine.Camera

	forward float64
	strafe  float64
	tick    *engine.Observer[engine.Frame]
}

func NewController(scene *engine.Scene, camera *engine.Camera, config Config) *Controller {
	camera.EllipsoidHeight = config.EllipsoidHeight
	return &Controller{
		config: config,
		scene:  scene,
		camera: camera,
	}
}

func (c *Controller) Camera() *engine.Camera {
	return c.camera
}

// Start integrates the camera at the beginning of every frame.
func (c *Controller) Start(ticker engine.Ticker) {
	if c.tick != nil {
		c.tick.Remove()
	}
	c.tick = ticker.OnTick(func(engine.Frame) {
		c.Step()
	})
}

func (c *Controller) Stop() {
	if c.tick != nil {
		c.tick.Remove()
		c.tick = nil
	}
}

// GroundDistance is the distance to the nearest collidable geometry below the
// camera, if it is within the probe length.
func (c *Controller) GroundDistance() (float64, bool) {
	ray := engine.NewRay(c.camera.Position, mgl64.Vec3{0, -1, 0}, c.config.ProbeLength)
	pick := c.scene.PickWithRay(ray, engine.Collidable)
	if !pick.Hit {
		return 0, false
	}
	return pick.Distance, true
}

func (c *Controller) IsGrounded() bool {
	distance, ok := c.GroundDistance()
	return ok && distance < c.config.GroundedThreshold
}

// Jump applies the jump impulse if the player is grounded and reports
// whether it did.
func (c *Controller) Jump() bool {
	if c.camera.Mode == engine.CameraOrbit || !c.IsGrounded() {
		return false
	}
	c.camera.VerticalVelocity = c.config.JumpImpulse
	return true
}

// Move sets the walking intent, each axis in [-1, 1]. It stays in effect
// until the next call.
func (c *Controller) Move(forward, strafe float64) {
	c.forward = clamp(forward)
	c.strafe = clamp(strafe)
}

// Look turns the camera and reports whether the angles were accepted.
func (c *Controller) Look(yaw, pitch float64) bool {
	return c.camera.Rotate(yaw, pitch)
}

// Step integrates one frame of walking, gravity and ground contact.
func (c *Controller) Step() {
	if c.camera.Mode == engine.CameraOrbit {
		return
	}

	forward := c.camera.Forward()
	forward[1] = 0
	if forward.Len() > 0 {
		forward = forward.Normalize()
	}

	walk := forward.Mul(c.forward).Add(c.camera.Right().Mul(c.strafe))
	if walk.Len() > 1 {
		walk = walk.Normalize()
	}

	c.camera.Integrate(
		c.scene,
		walk.Mul(c.config.WalkSpeed),
		c.config.Gravity,
		c.config.TerminalVelocity,
	)
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-1, math.Min(1, v))
}
