package engine

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

type CameraMode uint8

const (
	CameraFirstPerson CameraMode = iota
	CameraOrbit
)

func (m CameraMode) String() string {
	if m == CameraOrbit {
		return "orbit"
	}
	return "first-person"
}

func ParseCameraMode(value string) (CameraMode, bool) {
	switch value {
	case "first-person", "":
		return CameraFirstPerson, true
	case "orbit":
		return CameraOrbit, true
	}
	return CameraFirstPerson, false
}

// Camera uses the host engine's left-handed convention: +Y is up, yaw 0
// faces +Z and positive pitch looks down.
type Camera struct {
	Name string
	Mode CameraMode

	Position mgl64.Vec3
	Yaw      float64
	Pitch    float64

	// Orbit mode. Alpha is the longitudinal and Beta the latitudinal angle.
	Target mgl64.Vec3
	Alpha  float64
	Beta   float64
	Radius float64

	VerticalVelocity float64
	ApplyGravity     bool
	CheckCollisions  bool
	// Minimum distance kept between the camera and collidable geometry below it.
	EllipsoidHeight float64
}

func NewFirstPersonCamera(name string, position mgl64.Vec3) *Camera {
	return &Camera{
		Name:            name,
		Mode:            CameraFirstPerson,
		Position:        position,
		ApplyGravity:    true,
		CheckCollisions: true,
		EllipsoidHeight: 0.9,
	}
}

func NewOrbitCamera(name string, alpha, beta, radius float64, target mgl64.Vec3) *Camera {
	c := &Camera{
		Name:   name,
		Mode:   CameraOrbit,
		Target: target,
		Alpha:  alpha,
		Beta:   beta,
		Radius: radius,
	}
	c.updateOrbitPosition()
	return c
}

// Forward is the unit vector the camera is facing.
func (c *Camera) Forward() mgl64.Vec3 {
	if c.Mode == CameraOrbit {
		dir := c.Target.Sub(c.Position)
		if dir.Len() == 0 {
			return mgl64.Vec3{0, 0, 1}
		}
		return dir.Normalize()
	}

	cp := math.Cos(c.Pitch)
	return mgl64.Vec3{
		math.Sin(c.Yaw) * cp,
		-math.Sin(c.Pitch),
		math.Cos(c.Yaw) * cp,
	}
}

// Right is the horizontal unit vector to the camera's right.
func (c *Camera) Right() mgl64.Vec3 {
	return mgl64.Vec3{math.Cos(c.Yaw), 0, -math.Sin(c.Yaw)}
}

// Rotate sets the absolute look angles. In orbit mode yaw and pitch become
// alpha and beta and move the camera around its target. Non-finite angles
// are ignored and the camera keeps its orientation.
func (c *Camera) Rotate(yaw, pitch float64) bool {
	const pitchLimit = math.Pi / 2 * 0.99

	if !finite(yaw) || !finite(pitch) {
		return false
	}

	if c.Mode == CameraOrbit {
		c.Alpha = yaw
		c.Beta = clampFloat(pitch, 0.01, math.Pi-0.01)
		c.updateOrbitPosition()
		return true
	}

	c.Yaw = math.Mod(yaw, 2*math.Pi)
	c.Pitch = clampFloat(pitch, -pitchLimit, pitchLimit)
	return true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Finite reports whether every component of v is a real number.
func Finite(v mgl64.Vec3) bool {
	return finite(v.X()) && finite(v.Y()) && finite(v.Z())
}

func (c *Camera) updateOrbitPosition() {
	sb := math.Sin(c.Beta)
	c.Position = c.Target.Add(mgl64.Vec3{
		c.Radius * math.Cos(c.Alpha) * sb,
		c.Radius * math.Cos(c.Beta),
		c.Radius * math.Sin(c.Alpha) * sb,
	})
}

// Integrate moves the camera by displacement plus its vertical velocity,
// after adding gravity. With collisions enabled the camera is kept at
// least EllipsoidHeight above collidable geometry and a downward velocity is
// cancelled on contact. Orbit cameras do not move.
func (c *Camera) Integrate(scene *Scene, displacement mgl64.Vec3, gravity, terminal float64) {
	if c.Mode == CameraOrbit {
		return
	}

	if c.ApplyGravity {
		c.VerticalVelocity += gravity
		if terminal > 0 && c.VerticalVelocity < -terminal {
			c.VerticalVelocity = -terminal
		}
	}

	next := c.Position.Add(displacement)
	next[1] += c.VerticalVelocity

	if c.CheckCollisions && scene != nil {
		top := math.Max(c.Position.Y(), next.Y()) + c.EllipsoidHeight
		origin := mgl64.Vec3{next.X(), top, next.Z()}
		length := top - next.Y() + c.EllipsoidHeight
		pick := scene.PickWithRay(NewRay(origin, mgl64.Vec3{0, -1, 0}, length), Collidable)
		if pick.Hit {
			floor := pick.Point.Y() + c.EllipsoidHeight
			if next.Y() < floor {
				next[1] = floor
				if c.VerticalVelocity < 0 {
					c.VerticalVelocity = 0
				}
			}
		}
	}

	c.Position = next
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// WorldPosition lets the camera act as a follow target.
func (c *Camera) WorldPosition() mgl64.Vec3 {
	return c.Position
}
