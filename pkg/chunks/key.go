package chunks

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Key is a chunk's integer grid coordinate.
type Key struct {
	X int
	Z int
}

func (k Key) String() string {
	return fmt.Sprintf("%d,%d", k.X, k.Z)
}

// KeyFor returns the chunk containing a world position.
func KeyFor(position mgl64.Vec3, size float64) Key {
	return Key{
		X: int(math.Floor(position.X() / size)),
		Z: int(math.Floor(position.Z() / size)),
	}
}

// Chebyshev is the distance between two keys in chunk units.
func (k Key) Chebyshev(other Key) int {
	dx := k.X - other.X
	if dx < 0 {
		dx = -dx
	}
	dz := k.Z - other.Z
	if dz < 0 {
		dz = -dz
	}
	if dx > dz {
		return dx
	}
	return dz
}

// Neighborhood lists the (2r+1)² keys within r of center, row by row.
func Neighborhood(center Key, r int) []Key {
	if r < 0 {
		return nil
	}
	keys := make([]Key, 0, (2*r+1)*(2*r+1))
	for z := center.Z - r; z <= center.Z+r; z++ {
		for x := center.X - r; x <= center.X+r; x++ {
			keys = append(keys, Key{X: x, Z: z})
		}
	}
	return keys
}

func less(a, b Key) bool {
	if a.Z != b.Z {
		return a.Z < b.Z
	}
	return a.X < b.X
}
