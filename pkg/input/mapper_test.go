package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPointerMouse(t *testing.T) {
	mapper := NewMapper(Viewport{Width: 800, Height: 600}, "")

	assert.Equal(t, ActionFire, mapper.Pointer(PointerEvent{Device: DeviceMouse, Button: ButtonLeft, X: 10}))
	assert.Equal(t, ActionFire, mapper.Pointer(PointerEvent{Device: DeviceMouse, Button: ButtonLeft, X: 790}))
	assert.Equal(t, ActionNone, mapper.Pointer(PointerEvent{Device: DeviceMouse, Button: 1}))
	assert.Equal(t, ActionNone, mapper.Pointer(PointerEvent{Device: DeviceMouse, Button: 2}))
	assert.Equal(t, ActionNone, mapper.Pointer(PointerEvent{Device: "gamepad"}))
}

func TestPointerTouchHalves(t *testing.T) {
	mapper := NewMapper(Viewport{Width: 800, Height: 600}, "")

	for _, device := range []Device{DeviceTouch, DevicePen} {
		assert.Equal(t, ActionNone, mapper.Pointer(PointerEvent{Device: device, X: 0, Y: 300}))
		assert.Equal(t, ActionNone, mapper.Pointer(PointerEvent{Device: device, X: 399.9, Y: 300}))
		assert.Equal(t, ActionFire, mapper.Pointer(PointerEvent{Device: device, X: 400, Y: 300}))
		assert.Equal(t, ActionFire, mapper.Pointer(PointerEvent{Device: device, X: 799, Y: 10}))
	}

	// The halves follow the viewport.
	mapper.Resize(Viewport{Width: 1200, Height: 600})
	assert.Equal(t, ActionNone, mapper.Pointer(PointerEvent{Device: DeviceTouch, X: 500}))
	assert.Equal(t, ActionFire, mapper.Pointer(PointerEvent{Device: DeviceTouch, X: 600}))

	// No viewport, no touch firing.
	mapper.Resize(Viewport{})
	assert.Equal(t, ActionNone, mapper.Pointer(PointerEvent{Device: DeviceTouch, X: 600}))
}

func TestKey(t *testing.T) {
	mapper := NewMapper(Viewport{Width: 800, Height: 600}, "")
	assert.Equal(t, DefaultJumpKey, mapper.JumpKey())
	assert.Equal(t, ActionJump, mapper.Key(KeyEvent{Code: "Space"}))
	assert.Equal(t, ActionNone, mapper.Key(KeyEvent{Code: "KeyW"}))
	assert.Equal(t, ActionNone, mapper.Key(KeyEvent{}))

	mapper = NewMapper(Viewport{}, "KeyJ")
	assert.Equal(t, ActionJump, mapper.Key(KeyEvent{Code: "KeyJ"}))
	assert.Equal(t, ActionNone, mapper.Key(KeyEvent{Code: "Space"}))
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "fire", ActionFire.String())
	assert.Equal(t, "jump", ActionJump.String())
	assert.Equal(t, "none", ActionNone.String())
}
