package engine

import (
	"sort"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// Frame is passed to every frame-begin observer.
type Frame struct {
	Number uint64
	Delta  time.Duration
}

// Ticker is the subscribe-to-tick capability the simulation depends on.
type Ticker interface {
	OnTick(callback func(Frame)) *Observer[Frame]
}

// Scene is a minimal in-memory stand-in for the host rendering engine's
// scene graph: it owns meshes, answers ray queries against collidable
// geometry and drives the frame-begin hook.
type Scene struct {
	OnBeforeRender Observable[Frame]

	Camera *Camera
	Lights []*HemisphericLight

	meshes map[uint32]*Mesh
	nextID uint32
	frame  uint64
}

var _ Ticker = (*Scene)(nil)

func NewScene() *Scene {
	return &Scene{
		meshes: make(map[uint32]*Mesh),
	}
}

func (s *Scene) OnTick(callback func(Frame)) *Observer[Frame] {
	return s.OnBeforeRender.Add(callback)
}

// Render runs one frame: it notifies the frame-begin observers and returns
// the frame it ran.
func (s *Scene) Render(delta time.Duration) Frame {
	s.frame++
	frame := Frame{
		Number: s.frame,
		Delta:  delta,
	}
	s.OnBeforeRender.Notify(frame)
	return frame
}

func (s *Scene) FrameNumber() uint64 {
	return s.frame
}

type GroundOptions struct {
	Width        float64
	Depth        float64
	Subdivisions int
	Position     mgl64.Vec3
	// Height returns the surface offset at a world position. Nil means flat.
	Height func(x, z float64) float64
}

// CreateGround builds a ground grid centred on opts.Position.
func (s *Scene) CreateGround(name string, opts GroundOptions) *Mesh {
	if opts.Subdivisions < 1 {
		opts.Subdivisions = 1
	}

	mesh := s.newMesh(name, MeshGround)
	mesh.Position = opts.Position
	mesh.width = opts.Width
	mesh.depth = opts.Depth
	mesh.subdivisions = opts.Subdivisions

	stride := opts.Subdivisions + 1
	mesh.heights = make([]float64, stride*stride)
	if opts.Height != nil {
		for j := 0; j < stride; j++ {
			for i := 0; i < stride; i++ {
				local := mesh.vertexLocal(i, j)
				mesh.heights[j*stride+i] = opts.Height(
					opts.Position.X()+local.X(),
					opts.Position.Z()+local.Y(),
				)
			}
		}
	}

	return mesh
}

func (s *Scene) CreateSphere(name string, diameter float64, position mgl64.Vec3) *Mesh {
	mesh := s.newMesh(name, MeshSphere)
	mesh.radius = diameter / 2
	mesh.Position = position
	return mesh
}

func (s *Scene) CreateBox(name string, size float64, position mgl64.Vec3) *Mesh {
	mesh := s.newMesh(name, MeshBox)
	mesh.size = mgl64.Vec3{size, size, size}
	mesh.Position = position
	return mesh
}

func (s *Scene) CreateHemisphericLight(name string, direction mgl64.Vec3, intensity float64) *HemisphericLight {
	light := &HemisphericLight{
		Name:      name,
		Direction: direction,
		Intensity: intensity,
	}
	s.Lights = append(s.Lights, light)
	return light
}

func (s *Scene) newMesh(name string, kind MeshKind) *Mesh {
	s.nextID++
	mesh := &Mesh{
		ID:    s.nextID,
		Name:  name,
		Kind:  kind,
		scene: s,
	}
	s.meshes[mesh.ID] = mesh
	return mesh
}

func (s *Scene) removeMesh(mesh *Mesh) {
	delete(s.meshes, mesh.ID)
}

func (s *Scene) Mesh(id uint32) *Mesh {
	return s.meshes[id]
}

// Meshes returns the live meshes ordered by id.
func (s *Scene) Meshes() []*Mesh {
	meshes := make([]*Mesh, 0, len(s.meshes))
	for _, mesh := range s.meshes {
		meshes = append(meshes, mesh)
	}
	sort.Slice(meshes, func(i, j int) bool {
		return meshes[i].ID < meshes[j].ID
	})
	return meshes
}

func (s *Scene) NumMeshes() int {
	return len(s.meshes)
}

// PickWithRay returns the nearest hit among meshes accepted by predicate.
// A nil predicate accepts every mesh.
func (s *Scene) PickWithRay(ray Ray, predicate func(*Mesh) bool) PickingInfo {
	best := PickingInfo{}
	if ray.Direction.Len() == 0 || ray.Length <= 0 {
		return best
	}
	for _, mesh := range s.meshes {
		if mesh.disposed {
			continue
		}
		if predicate != nil && !predicate(mesh) {
			continue
		}

		distance, ok := mesh.intersect(ray)
		if !ok {
			continue
		}

		if !best.Hit || distance < best.Distance {
			best = PickingInfo{
				Hit:      true,
				Distance: distance,
				Mesh:     mesh,
				Point:    ray.At(distance),
			}
		}
	}
	return best
}

// Collidable is the usual PickWithRay predicate.
func Collidable(mesh *Mesh) bool {
	return mesh.CheckCollisions()
}

// Dispose releases every mesh and detaches all frame observers.
func (s *Scene) Dispose() {
	for _, mesh := range s.Meshes() {
		mesh.Dispose()
	}
	s.OnBeforeRender.Clear()
}
