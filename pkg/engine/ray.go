package engine

import "github.com/go-gl/mathgl/mgl64"

type Ray struct {
	Origin    mgl64.Vec3
	Direction mgl64.Vec3
	Length    float64
}

// NewRay normalizes direction. A zero direction yields a ray that hits nothing.
func NewRay(origin, direction mgl64.Vec3, length float64) Ray {
	if direction.Len() > 0 {
		direction = direction.Normalize()
	}
	return Ray{
		Origin:    origin,
		Direction: direction,
		Length:    length,
	}
}

func (r Ray) At(t float64) mgl64.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

type PickingInfo struct {
	Hit      bool
	Distance float64
	Mesh     *Mesh
	Point    mgl64.Vec3
}
