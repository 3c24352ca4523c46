package input

type Action uint8

const (
	ActionNone Action = iota
	ActionFire
	ActionJump
)

func (a Action) String() string {
	switch a {
	case ActionFire:
		return "fire"
	case ActionJump:
		return "jump"
	}
	return "none"
}

type Device string

const (
	DeviceMouse Device = "mouse"
	DeviceTouch Device = "touch"
	DevicePen   Device = "pen"
)

const (
	ButtonLeft = 0

	DefaultJumpKey = "Space"
)

type Viewport struct {
	Width  float64
	Height float64
}

func (v Viewport) Valid() bool {
	return v.Width > 0 && v.Height > 0
}

type PointerEvent struct {
	Device Device
	Button int
	// Screen coordinates, origin at the top left of the viewport.
	X float64
	Y float64
}

type KeyEvent struct {
	Code string
}

// Mapper translates raw input events into game actions. It holds no state
// besides the viewport size and the jump key.
type Mapper struct {
	viewport Viewport
	jumpKey  string
}

func NewMapper(viewport Viewport, jumpKey string) *Mapper {
	if jumpKey == "" {
		jumpKey = DefaultJumpKey
	}
	return &Mapper{
		viewport: viewport,
		jumpKey:  jumpKey,
	}
}

func (m *Mapper) Resize(viewport Viewport) {
	m.viewport = viewport
}

func (m *Mapper) Viewport() Viewport {
	return m.viewport
}

func (m *Mapper) JumpKey() string {
	return m.jumpKey
}

// Pointer fires on a left click, or on a touch that lands on the right half
// of the viewport. The left half is left to the movement controls.
func (m *Mapper) Pointer(event PointerEvent) Action {
	switch event.Device {
	case DeviceMouse:
		if event.Button == ButtonLeft {
			return ActionFire
		}
	case DeviceTouch, DevicePen:
		if m.viewport.Width > 0 && event.X >= m.viewport.Width/2 {
			return ActionFire
		}
	}
	return ActionNone
}

func (m *Mapper) Key(event KeyEvent) Action {
	if event.Code == m.jumpKey {
		return ActionJump
	}
	return ActionNone
}
