package engine

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

type MeshKind uint8

const (
	MeshGround MeshKind = iota
	MeshSphere
	MeshBox
)

func (k MeshKind) String() string {
	switch k {
	case MeshGround:
		return "ground"
	case MeshSphere:
		return "sphere"
	case MeshBox:
		return "box"
	}
	return "unknown"
}

type Mesh struct {
	ID       uint32
	Name     string
	Kind     MeshKind
	Position mgl64.Vec3

	// Fires once, when the mesh is disposed.
	OnDispose Observable[*Mesh]

	checkCollisions bool
	disposed        bool
	scene           *Scene

	// ground
	width        float64
	depth        float64
	subdivisions int
	heights      []float64

	// sphere
	radius float64

	// box
	size mgl64.Vec3
}

func (m *Mesh) SetCollidable(enabled bool) {
	m.checkCollisions = enabled
}

func (m *Mesh) CheckCollisions() bool {
	return m.checkCollisions
}

func (m *Mesh) IsDisposed() bool {
	return m.disposed
}

// Dispose releases the mesh. Only the first call has any effect.
func (m *Mesh) Dispose() {
	if m.disposed {
		return
	}
	m.disposed = true
	if m.scene != nil {
		m.scene.removeMesh(m)
	}
	m.OnDispose.Notify(m)
	m.OnDispose.Clear()
	m.heights = nil
}

// Subdivisions is the number of grid cells per side of a ground mesh.
func (m *Mesh) Subdivisions() int {
	return m.subdivisions
}

// Heights returns the ground vertex heights, row-major along Z.
func (m *Mesh) Heights() []float64 {
	return m.heights
}

func (m *Mesh) Radius() float64 {
	return m.radius
}

func (m *Mesh) vertexLocal(i, j int) mgl64.Vec2 {
	return mgl64.Vec2{
		-m.width/2 + float64(i)*m.width/float64(m.subdivisions),
		-m.depth/2 + float64(j)*m.depth/float64(m.subdivisions),
	}
}

// HeightAt returns the ground surface height at a world position.
func (m *Mesh) HeightAt(x, z float64) (float64, bool) {
	if m.Kind != MeshGround || m.disposed {
		return 0, false
	}

	lx := x - m.Position.X() + m.width/2
	lz := z - m.Position.Z() + m.depth/2
	if lx < 0 || lz < 0 || lx > m.width || lz > m.depth {
		return 0, false
	}

	fx := lx / m.width * float64(m.subdivisions)
	fz := lz / m.depth * float64(m.subdivisions)
	i := clampInt(int(math.Floor(fx)), 0, m.subdivisions-1)
	j := clampInt(int(math.Floor(fz)), 0, m.subdivisions-1)
	tx := fx - float64(i)
	tz := fz - float64(j)

	stride := m.subdivisions + 1
	h00 := m.heights[j*stride+i]
	h10 := m.heights[j*stride+i+1]
	h01 := m.heights[(j+1)*stride+i]
	h11 := m.heights[(j+1)*stride+i+1]

	h0 := h00 + (h10-h00)*tx
	h1 := h01 + (h11-h01)*tx
	return m.Position.Y() + h0 + (h1-h0)*tz, true
}

func (m *Mesh) intersect(ray Ray) (float64, bool) {
	switch m.Kind {
	case MeshGround:
		return m.intersectGround(ray)
	case MeshSphere:
		return m.intersectSphere(ray)
	case MeshBox:
		return m.intersectBox(ray)
	}
	return 0, false
}

func (m *Mesh) intersectGround(ray Ray) (float64, bool) {
	d := ray.Direction
	o := ray.Origin

	if math.Abs(d.X()) < 1e-9 && math.Abs(d.Z()) < 1e-9 {
		h, ok := m.HeightAt(o.X(), o.Z())
		if !ok || d.Y() == 0 {
			return 0, false
		}
		t := (h - o.Y()) / d.Y()
		if t < 0 || t > ray.Length {
			return 0, false
		}
		return t, true
	}

	// March along the ray and refine the first sign change by bisection.
	cell := math.Min(m.width, m.depth) / float64(m.subdivisions)
	step := cell / 4
	if step <= 0 {
		return 0, false
	}

	offset := func(t float64) (float64, bool) {
		p := ray.At(t)
		h, ok := m.HeightAt(p.X(), p.Z())
		return p.Y() - h, ok
	}

	prevT := 0.0
	prev, prevOK := offset(0)
	for t := step; ; t += step {
		if t > ray.Length {
			t = ray.Length
		}
		cur, ok := offset(t)
		if ok && prevOK && (prev > 0) != (cur > 0) {
			lo, hi := prevT, t
			for i := 0; i < 32; i++ {
				mid := (lo + hi) / 2
				v, _ := offset(mid)
				if (v > 0) == (prev > 0) {
					lo = mid
				} else {
					hi = mid
				}
			}
			return hi, true
		}
		if ok && cur == 0 {
			return t, true
		}
		if t >= ray.Length {
			return 0, false
		}
		prevT, prev, prevOK = t, cur, ok
	}
}

func (m *Mesh) intersectSphere(ray Ray) (float64, bool) {
	oc := ray.Origin.Sub(m.Position)
	b := oc.Dot(ray.Direction)
	c := oc.Dot(oc) - m.radius*m.radius
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}
	sq := math.Sqrt(disc)
	t := -b - sq
	if t < 0 {
		t = -b + sq
	}
	if t < 0 || t > ray.Length {
		return 0, false
	}
	return t, true
}

func (m *Mesh) intersectBox(ray Ray) (float64, bool) {
	half := m.size.Mul(0.5)
	lo := m.Position.Sub(half)
	hi := m.Position.Add(half)

	tNear := math.Inf(-1)
	tFar := math.Inf(1)
	for axis := 0; axis < 3; axis++ {
		o := ray.Origin[axis]
		d := ray.Direction[axis]
		if math.Abs(d) < 1e-12 {
			if o < lo[axis] || o > hi[axis] {
				return 0, false
			}
			continue
		}
		t1 := (lo[axis] - o) / d
		t2 := (hi[axis] - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tNear = math.Max(tNear, t1)
		tFar = math.Min(tFar, t2)
		if tNear > tFar {
			return 0, false
		}
	}

	t := tNear
	if t < 0 {
		t = tFar
	}
	if t < 0 || t > ray.Length {
		return 0, false
	}
	return t, true
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (m *Mesh) WorldPosition() mgl64.Vec3 {
	return m.Position
}
