package engine

import (
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var down = mgl64.Vec3{0, -1, 0}

func flatGround(scene *Scene) *Mesh {
	ground := scene.CreateGround("ground", GroundOptions{
		Width:        20,
		Depth:        20,
		Subdivisions: 10,
	})
	ground.SetCollidable(true)
	return ground
}

func TestRenderNotifiesFrames(t *testing.T) {
	scene := NewScene()

	var frames []Frame
	observer := scene.OnTick(func(frame Frame) {
		frames = append(frames, frame)
	})

	scene.Render(time.Millisecond)
	scene.Render(2 * time.Millisecond)
	observer.Remove()
	scene.Render(time.Millisecond)

	require.Len(t, frames, 2)
	assert.Equal(t, uint64(1), frames[0].Number)
	assert.Equal(t, uint64(2), frames[1].Number)
	assert.Equal(t, 2*time.Millisecond, frames[1].Delta)
	assert.Equal(t, uint64(3), scene.FrameNumber())
}

func TestPickWithRay(t *testing.T) {
	scene := NewScene()
	ground := flatGround(scene)

	pick := scene.PickWithRay(NewRay(mgl64.Vec3{3, 0.99, -4}, down, 1.2), Collidable)
	require.True(t, pick.Hit)
	assert.InDelta(t, 0.99, pick.Distance, 1e-9)
	assert.Equal(t, ground, pick.Mesh)
	assert.InDelta(t, 0, pick.Point.Y(), 1e-9)

	// Too short
	pick = scene.PickWithRay(NewRay(mgl64.Vec3{3, 1.5, -4}, down, 1.2), Collidable)
	assert.False(t, pick.Hit)

	// Outside the ground
	pick = scene.PickWithRay(NewRay(mgl64.Vec3{30, 0.5, 0}, down, 1.2), Collidable)
	assert.False(t, pick.Hit)

	// Zero direction
	pick = scene.PickWithRay(Ray{Origin: mgl64.Vec3{0, 0.5, 0}, Length: 10}, nil)
	assert.False(t, pick.Hit)
}

func TestPickWithRayPredicate(t *testing.T) {
	scene := NewScene()
	ground := flatGround(scene)
	box := scene.CreateBox("box", 1, mgl64.Vec3{0, 0.5, 0})

	ray := NewRay(mgl64.Vec3{0, 5, 0}, down, 10)

	// The box is not collidable yet.
	pick := scene.PickWithRay(ray, Collidable)
	require.True(t, pick.Hit)
	assert.Equal(t, ground, pick.Mesh)
	assert.InDelta(t, 5, pick.Distance, 1e-9)

	box.SetCollidable(true)
	pick = scene.PickWithRay(ray, Collidable)
	require.True(t, pick.Hit)
	assert.Equal(t, box, pick.Mesh)
	assert.InDelta(t, 4, pick.Distance, 1e-9)

	// Without a predicate everything is considered.
	box.SetCollidable(false)
	pick = scene.PickWithRay(ray, nil)
	assert.Equal(t, box, pick.Mesh)
}

func TestPickSphere(t *testing.T) {
	scene := NewScene()
	sphere := scene.CreateSphere("bullet", 0.2, mgl64.Vec3{5, 0, 0})

	pick := scene.PickWithRay(NewRay(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 0, 0}, 10), nil)
	require.True(t, pick.Hit)
	assert.Equal(t, sphere, pick.Mesh)
	assert.InDelta(t, 4.9, pick.Distance, 1e-9)

	pick = scene.PickWithRay(NewRay(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{-1, 0, 0}, 10), nil)
	assert.False(t, pick.Hit)
}

func TestGroundHeights(t *testing.T) {
	scene := NewScene()
	height := func(x, z float64) float64 {
		return 0.5 * (math.Sin(x*0.1) + math.Cos(z*0.1)) / 2
	}
	ground := scene.CreateGround("hills", GroundOptions{
		Width:        20,
		Depth:        20,
		Subdivisions: 10,
		Position:     mgl64.Vec3{20, 0, -20},
		Height:       height,
	})
	ground.SetCollidable(true)

	require.Len(t, ground.Heights(), 11*11)

	// Vertices match the height function exactly.
	for _, p := range []mgl64.Vec2{{10, -30}, {20, -20}, {30, -10}, {12, -28}} {
		h, ok := ground.HeightAt(p.X(), p.Y())
		require.True(t, ok)
		assert.InDelta(t, height(p.X(), p.Y()), h, 1e-9)
	}

	_, ok := ground.HeightAt(0, 0)
	assert.False(t, ok)

	// A slanted ray lands on the surface.
	ray := NewRay(mgl64.Vec3{15, 3, -25}, mgl64.Vec3{1, -1, 0}, 20)
	pick := scene.PickWithRay(ray, Collidable)
	require.True(t, pick.Hit)
	surface, ok := ground.HeightAt(pick.Point.X(), pick.Point.Z())
	require.True(t, ok)
	assert.InDelta(t, surface, pick.Point.Y(), 1e-6)
}

func TestMeshDispose(t *testing.T) {
	scene := NewScene()
	ground := flatGround(scene)

	disposed := 0
	ground.OnDispose.Add(func(*Mesh) { disposed++ })

	ground.Dispose()
	ground.Dispose()

	assert.Equal(t, 1, disposed)
	assert.True(t, ground.IsDisposed())
	assert.Equal(t, 0, scene.NumMeshes())
	assert.Nil(t, scene.Mesh(ground.ID))

	pick := scene.PickWithRay(NewRay(mgl64.Vec3{0, 1, 0}, down, 2), nil)
	assert.False(t, pick.Hit)
}

func TestSceneDispose(t *testing.T) {
	scene := NewScene()
	flatGround(scene)
	scene.CreateBox("box", 1, mgl64.Vec3{})

	ticks := 0
	scene.OnTick(func(Frame) { ticks++ })

	assert.Len(t, scene.Meshes(), 2)
	scene.Dispose()
	scene.Render(0)

	assert.Equal(t, 0, scene.NumMeshes())
	assert.Equal(t, 0, ticks)
}

func TestCameraIntegrate(t *testing.T) {
	scene := NewScene()
	flatGround(scene)

	camera := NewFirstPersonCamera("camera", mgl64.Vec3{0, 0.9, 0})

	// Resting on the ground
	for i := 0; i < 10; i++ {
		camera.Integrate(scene, mgl64.Vec3{}, -0.01, 1)
	}
	assert.InDelta(t, 0.9, camera.Position.Y(), 1e-9)
	assert.Equal(t, 0.0, camera.VerticalVelocity)

	// Falling from above lands on the ground.
	camera.Position = mgl64.Vec3{1, 5, 1}
	for i := 0; i < 200; i++ {
		camera.Integrate(scene, mgl64.Vec3{}, -0.01, 1)
	}
	assert.InDelta(t, 0.9, camera.Position.Y(), 1e-9)

	// A jump leaves the ground then comes back.
	camera.VerticalVelocity = 0.2
	camera.Integrate(scene, mgl64.Vec3{}, -0.01, 1)
	assert.Greater(t, camera.Position.Y(), 0.9)

	// Walking moves horizontally.
	camera.Integrate(scene, mgl64.Vec3{0.5, 0, 0}, -0.01, 1)
	assert.InDelta(t, 1.5, camera.Position.X(), 1e-9)

	// Off the edge there is nothing to land on.
	camera.Position = mgl64.Vec3{50, 0.9, 0}
	camera.VerticalVelocity = 0
	for i := 0; i < 5; i++ {
		camera.Integrate(scene, mgl64.Vec3{}, -0.01, 1)
	}
	assert.Less(t, camera.Position.Y(), 0.9)
}

func TestCameraTerminalVelocity(t *testing.T) {
	camera := NewFirstPersonCamera("camera", mgl64.Vec3{0, 100, 0})
	for i := 0; i < 500; i++ {
		camera.Integrate(nil, mgl64.Vec3{}, -0.01, 1)
	}
	assert.Equal(t, -1.0, camera.VerticalVelocity)
}

func TestCameraForward(t *testing.T) {
	camera := NewFirstPersonCamera("camera", mgl64.Vec3{})

	forward := camera.Forward()
	assert.InDelta(t, 0, forward.X(), 1e-9)
	assert.InDelta(t, 1, forward.Z(), 1e-9)

	camera.Rotate(math.Pi/2, 0)
	forward = camera.Forward()
	assert.InDelta(t, 1, forward.X(), 1e-9)
	assert.InDelta(t, 0, forward.Z(), 1e-9)

	// Pitch is clamped short of straight down.
	camera.Rotate(0, math.Pi)
	assert.Less(t, camera.Pitch, math.Pi/2)
	assert.Less(t, camera.Forward().Y(), 0.0)
	assert.InDelta(t, 1, camera.Forward().Len(), 1e-9)
}

func TestCameraRotateRejectsNonFinite(t *testing.T) {
	camera := NewFirstPersonCamera("camera", mgl64.Vec3{})
	require.True(t, camera.Rotate(1, 0.25))

	assert.False(t, camera.Rotate(math.Inf(1), 0))
	assert.False(t, camera.Rotate(0, math.NaN()))
	assert.Equal(t, 1.0, camera.Yaw)
	assert.Equal(t, 0.25, camera.Pitch)

	orbit := NewOrbitCamera("orbit", math.Pi/2, math.Pi/3, 10, mgl64.Vec3{})
	before := orbit.Position
	assert.False(t, orbit.Rotate(math.NaN(), 1))
	assert.Equal(t, before, orbit.Position)

	assert.True(t, Finite(mgl64.Vec3{1, 2, 3}))
	assert.False(t, Finite(mgl64.Vec3{1, math.Inf(-1), 3}))
}

func TestOrbitCamera(t *testing.T) {
	camera := NewOrbitCamera("camera", math.Pi/2, math.Pi/3, 10, mgl64.Vec3{})

	assert.InDelta(t, 10, camera.Position.Len(), 1e-9)
	assert.InDelta(t, 5, camera.Position.Y(), 1e-9)
	assert.InDelta(t, 0, camera.Position.X(), 1e-9)

	forward := camera.Forward()
	assert.InDelta(t, 1, forward.Len(), 1e-9)
	assert.InDelta(t, -0.5, forward.Y(), 1e-9)

	before := camera.Position
	camera.Integrate(nil, mgl64.Vec3{1, 1, 1}, -0.01, 1)
	assert.Equal(t, before, camera.Position)

	mode, ok := ParseCameraMode("orbit")
	assert.True(t, ok)
	assert.Equal(t, CameraOrbit, mode)
	_, ok = ParseCameraMode("third-person")
	assert.False(t, ok)
}
