package core

type Button uint16

const (
	BUTTON_LEFT Button = iota
	BUTTON_RIGHT
	BUTTON_MIDDLE
	BUTTON_MAX_BUTTONS
)

// Key code definitions
type KeyCode uint16

const (
	KEY_UNKNOWN  KeyCode = 0x00
	KEY_ENTER    KeyCode = 0x0D
	KEY_TAB      KeyCode = 0x09
	KEY_ESCAPE   KeyCode = 0x1B
	KEY_SPACE    KeyCode = 0x20
	KEY_LEFT     KeyCode = 0x25
	KEY_UP       KeyCode = 0x26
	KEY_RIGHT    KeyCode = 0x27
	KEY_DOWN     KeyCode = 0x28
	KEY_A        KeyCode = 0x41
	KEY_D        KeyCode = 0x44
	KEY_E        KeyCode = 0x45
	KEY_Q        KeyCode = 0x51
	KEY_R        KeyCode = 0x52
	KEY_S        KeyCode = 0x53
	KEY_W        KeyCode = 0x57
	KEY_F1       KeyCode = 0x70
	KEY_LSHIFT   KeyCode = 0xA0
	KEY_LCONTROL KeyCode = 0xA2
)

type MouseState struct {
	X       int32
	Y       int32
	Buttons [BUTTON_MAX_BUTTONS]bool
}

type KeyboardState struct {
	Keys [256]bool
}

// Input holds the current and previous keyboard and mouse state and fires
// an event on every change.
type Input struct {
	bus              *EventBus
	keyboardCurrent  KeyboardState
	keyboardPrevious KeyboardState
	mouseCurrent     MouseState
	mousePrevious    MouseState
}

func NewInput(bus *EventBus) *Input {
	return &Input{bus: bus}
}

// Update copies current states to previous states. Call once per frame.
func (in *Input) Update() {
	in.keyboardPrevious = in.keyboardCurrent
	in.mousePrevious = in.mouseCurrent
}

func (in *Input) IsKeyDown(key KeyCode) bool  { return in.keyboardCurrent.Keys[key] }
func (in *Input) IsKeyUp(key KeyCode) bool    { return !in.keyboardCurrent.Keys[key] }
func (in *Input) WasKeyDown(key KeyCode) bool { return in.keyboardPrevious.Keys[key] }
func (in *Input) WasKeyUp(key KeyCode) bool   { return !in.keyboardPrevious.Keys[key] }

func (in *Input) IsButtonDown(button Button) bool  { return in.mouseCurrent.Buttons[button] }
func (in *Input) WasButtonDown(button Button) bool { return in.mousePrevious.Buttons[button] }

func (in *Input) MousePosition() (int32, int32) {
	return in.mouseCurrent.X, in.mouseCurrent.Y
}

func (in *Input) PreviousMousePosition() (int32, int32) {
	return in.mousePrevious.X, in.mousePrevious.Y
}

func (in *Input) ProcessKey(key KeyCode, pressed bool) {
	if in.keyboardCurrent.Keys[key] == pressed {
		return
	}
	in.keyboardCurrent.Keys[key] = pressed

	code := EVENT_CODE_KEY_RELEASED
	if pressed {
		code = EVENT_CODE_KEY_PRESSED
	}
	ctx := EventContext{}
	ctx.Data.U16[0] = uint16(key)
	in.fire(code, ctx)
}

func (in *Input) ProcessButton(button Button, pressed bool) {
	if in.mouseCurrent.Buttons[button] == pressed {
		return
	}
	in.mouseCurrent.Buttons[button] = pressed

	code := EVENT_CODE_BUTTON_RELEASED
	if pressed {
		code = EVENT_CODE_BUTTON_PRESSED
	}
	ctx := EventContext{}
	ctx.Data.U16[0] = uint16(button)
	in.fire(code, ctx)
}

func (in *Input) ProcessMouseMove(x, y int32) {
	if in.mouseCurrent.X == x && in.mouseCurrent.Y == y {
		return
	}
	in.mouseCurrent.X = x
	in.mouseCurrent.Y = y

	ctx := EventContext{}
	ctx.Data.I32[0] = x
	ctx.Data.I32[1] = y
	in.fire(EVENT_CODE_MOUSE_MOVED, ctx)
}

func (in *Input) fire(code SystemEventCode, ctx EventContext) {
	if in.bus != nil {
		in.bus.Fire(code, in, ctx)
	}
}
