package core

import "testing"

func TestInputKeyTransitions(t *testing.T) {
	bus := NewEventBus()
	var pressed, released int
	bus.Register(EVENT_CODE_KEY_PRESSED, "test", func(code SystemEventCode, sender, listener interface{}, data EventContext) bool {
		if KeyCode(data.Data.U16[0]) == KEY_W {
			pressed++
		}
		return true
	})
	bus.Register(EVENT_CODE_KEY_RELEASED, "test", func(code SystemEventCode, sender, listener interface{}, data EventContext) bool {
		released++
		return true
	})

	in := NewInput(bus)
	in.ProcessKey(KEY_W, true)
	in.ProcessKey(KEY_W, true)
	if pressed != 1 {
		t.Fatalf("repeated press fired %d events", pressed)
	}
	if !in.IsKeyDown(KEY_W) || in.WasKeyDown(KEY_W) {
		t.Fatal("unexpected key state before update")
	}

	in.Update()
	in.ProcessKey(KEY_W, false)
	if !in.WasKeyDown(KEY_W) || !in.IsKeyUp(KEY_W) || released != 1 {
		t.Fatal("unexpected key state after release")
	}
}

func TestInputMouseMove(t *testing.T) {
	in := NewInput(nil)
	in.ProcessMouseMove(10, 20)
	in.Update()
	in.ProcessMouseMove(15, 25)

	x, y := in.MousePosition()
	px, py := in.PreviousMousePosition()
	if x != 15 || y != 25 || px != 10 || py != 20 {
		t.Fatalf("got (%d,%d) prev (%d,%d)", x, y, px, py)
	}
}
