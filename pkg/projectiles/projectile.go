package projectiles

import (
	"github.com/bytebullet/bytebullet/pkg/engine"

	"github.com/go-gl/mathgl/mgl64"
)

type Reason uint8

const (
	ReasonNone Reason = iota
	// Travelled past the maximum distance from the world origin.
	ReasonOutOfRange
	// Released by something other than the simulator.
	ReasonDisposed
)

func (r Reason) String() string {
	switch r {
	case ReasonOutOfRange:
		return "out-of-range"
	case ReasonDisposed:
		return "disposed"
	}
	return "none"
}

type Projectile struct {
	ID       uint32
	Position mgl64.Vec3
	// Added to Position once per frame.
	Velocity mgl64.Vec3
	Mesh     *engine.Mesh
	// Number of times the projectile has been advanced.
	Steps  int
	Reason Reason

	alive     bool
	simulator *Simulator
}

func (p *Projectile) Alive() bool {
	return p.alive
}

// Dispose removes the projectile before it runs out of range.
func (p *Projectile) Dispose() {
	p.simulator.destroy(p, ReasonDisposed)
}
