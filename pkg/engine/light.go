package engine

import "github.com/go-gl/mathgl/mgl64"

type HemisphericLight struct {
	Name      string
	Direction mgl64.Vec3
	Intensity float64
}
