package config

import (
	"github.com/bytebullet/bytebullet/pkg/chunks"
	"github.com/bytebullet/bytebullet/pkg/player"
	"github.com/bytebullet/bytebullet/pkg/projectiles"
)

type WebIngress struct {
	Port int `json:"port"`
	// Inbound messages per second allowed on one connection.
	MessageRate  float64 `json:"messageRate"`
	MessageBurst int     `json:"messageBurst"`
}

type ServerIngress struct {
	Web WebIngress `json:"web"`
}

type ServerSettings struct {
	Description string `json:"description"`
	// Zero means no limit.
	MaxSessions    int           `json:"maxSessions"`
	AssetDirectory string        `json:"assetDirectory"`
	Ingress        ServerIngress `json:"ingress"`
}

type GameSettings struct {
	TickRate    int                `json:"tickRate"`
	Camera      string             `json:"camera"`
	JumpKey     string             `json:"jumpKey"`
	Chunks      chunks.Config      `json:"chunks"`
	Projectiles projectiles.Config `json:"projectiles"`
	Player      player.Config      `json:"player"`
}

type TouchControls string

const (
	TouchControlsAuto   TouchControls = "auto"
	TouchControlsAlways TouchControls = "always"
	TouchControlsNever  TouchControls = "never"
)

// Injected into the static page.
type ClientSettings struct {
	Title         string        `json:"title"`
	TouchControls TouchControls `json:"touchControls"`
}

type Config struct {
	Server ServerSettings `json:"server"`
	Game   GameSettings   `json:"game"`
	Client ClientSettings `json:"client"`
}
