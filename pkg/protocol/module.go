package protocol

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// Server -> client
	WelcomeOp int = iota
	FrameOp
	ErrorOp
	// Client -> server
	HelloOp
	PointerOp
	KeyOp
	MoveOp
	LookOp
	ResizeOp
)

var ErrUnknownOp = errors.New("unknown message op")

type GenericMessage struct {
	Op int
}

// Sent by the client as soon as the socket opens. Nothing is simulated until
// it arrives.
type HelloMessage struct {
	Op     int // HelloOp
	Width  float64
	Height float64
	// Set by clients that show on-screen touch controls.
	Touch bool
	// "first-person" (default) or "orbit"
	Camera string
}

type PointerMessage struct {
	Op     int // PointerOp
	Device string
	Button int
	X      float64
	Y      float64
}

type KeyMessage struct {
	Op   int // KeyOp
	Code string
}

// Walking intent, each axis in [-1, 1]. Holds until the next MoveMessage.
type MoveMessage struct {
	Op      int // MoveOp
	Forward float64
	Strafe  float64
}

// Absolute orientation in radians.
type LookMessage struct {
	Op    int // LookOp
	Yaw   float64
	Pitch float64
}

type ResizeMessage struct {
	Op     int // ResizeOp
	Width  float64
	Height float64
}

type ChunkInfo struct {
	Size         float64
	Range        int
	Subdivisions int
}

type LightInfo struct {
	Name      string
	Direction mgl64.Vec3
	Intensity float64
}

type MeshInfo struct {
	ID       uint32
	Name     string
	Kind     string
	Size     float64
	Position mgl64.Vec3
}

type WelcomeMessage struct {
	Op       int // WelcomeOp
	Session  uint32
	TickRate int
	Camera   string
	Touch    bool
	JumpKey  string
	Chunks   ChunkInfo
	Lights   []LightInfo
	Meshes   []MeshInfo
}

type CameraPose struct {
	Position mgl64.Vec3
	Yaw      float64
	Pitch    float64
}

type ProjectileState struct {
	ID       uint32
	Position mgl64.Vec3
}

type DestroyedProjectile struct {
	ID     uint32
	Reason string
}

type ChunkKey struct {
	X int
	Z int
}

type ChunkData struct {
	X            int
	Z            int
	Subdivisions int
	Digest       uint64
	// See EncodeHeights.
	Heights []byte
}

// The state of the session after a frame, plus everything that changed
// during it.
type FrameMessage struct {
	Op          int // FrameOp
	Tick        uint64
	Camera      CameraPose
	Grounded    bool
	Projectiles []ProjectileState
	Destroyed   []DestroyedProjectile
	Loaded      []ChunkData
	Unloaded    []ChunkKey
}

type ErrorMessage struct {
	Op      int // ErrorOp
	Message string
}

func Encode(message any) ([]byte, error) {
	return cbor.Marshal(message)
}

// Decode returns a pointer to the message type named by the op.
func Decode(data []byte) (any, error) {
	var generic GenericMessage
	if err := cbor.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}

	var message any
	switch generic.Op {
	case WelcomeOp:
		message = &WelcomeMessage{}
	case FrameOp:
		message = &FrameMessage{}
	case ErrorOp:
		message = &ErrorMessage{}
	case HelloOp:
		message = &HelloMessage{}
	case PointerOp:
		message = &PointerMessage{}
	case KeyOp:
		message = &KeyMessage{}
	case MoveOp:
		message = &MoveMessage{}
	case LookOp:
		message = &LookMessage{}
	case ResizeOp:
		message = &ResizeMessage{}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownOp, generic.Op)
	}

	if err := cbor.Unmarshal(data, message); err != nil {
		return nil, fmt.Errorf("failed to decode op %d: %w", generic.Op, err)
	}
	return message, nil
}
