package chunks

import "math"

type Config struct {
	// Side length of a chunk in world units.
	Size float64 `json:"size"`
	// Chunks loaded in each direction around the player's chunk.
	Range        int     `json:"range"`
	Subdivisions int     `json:"subdivisions"`
	Amplitude    float64 `json:"amplitude"`
	Frequency    float64 `json:"frequency"`
}

func DefaultConfig() Config {
	return Config{
		Size:         20,
		Range:        2,
		Subdivisions: 10,
		Amplitude:    0.5,
		Frequency:    0.1,
	}
}

// HeightAt is the terrain surface height at a world position. It depends on
// nothing but the position so a chunk always regenerates identically.
func (c Config) HeightAt(x, z float64) float64 {
	return c.Amplitude * (math.Sin(x*c.Frequency) + math.Cos(z*c.Frequency)) / 2
}
