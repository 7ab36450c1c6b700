package core

import (
	"reflect"
	"sync"
)

// EventContext carries the payload of a fired event.
type EventContext struct {
	Data struct {
		I32 [4]int32
		U32 [4]uint32
		F32 [4]float32
		U16 [8]uint16
	}
}

// System internal event codes. Application should use codes beyond 255.
type SystemEventCode int

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT SystemEventCode = 0x01

	// u16 key_code = Data.U16[0]
	EVENT_CODE_KEY_PRESSED SystemEventCode = 0x02

	// u16 key_code = Data.U16[0]
	EVENT_CODE_KEY_RELEASED SystemEventCode = 0x03

	// u16 button = Data.U16[0]
	EVENT_CODE_BUTTON_PRESSED  SystemEventCode = 0x04
	EVENT_CODE_BUTTON_RELEASED SystemEventCode = 0x05

	// i32 x = Data.I32[0], i32 y = Data.I32[1]
	EVENT_CODE_MOUSE_MOVED SystemEventCode = 0x06

	// Framebuffer resized. u32 width = Data.U32[0], u32 height = Data.U32[1]
	EVENT_CODE_RESIZED SystemEventCode = 0x08

	// A shader binary changed on disk. The path is passed as the sender.
	EVENT_CODE_SHADER_CHANGED SystemEventCode = 0x09

	MAX_EVENT_CODE SystemEventCode = 0xFF
)

// Should return true if handled.
type FnOnEvent func(code SystemEventCode, sender interface{}, listener interface{}, data EventContext) bool

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

// EventBus dispatches events to listeners in registration order.
type EventBus struct {
	mu         sync.RWMutex
	registered map[SystemEventCode][]*registeredEvent
}

func NewEventBus() *EventBus {
	return &EventBus{registered: make(map[SystemEventCode][]*registeredEvent)}
}

// Register listens for code. A duplicate listener/callback pair is rejected.
func (b *EventBus) Register(code SystemEventCode, listener interface{}, onEvent FnOnEvent) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.registered[code] {
		if e.listener == listener && sameFunc(e.callback, onEvent) {
			LogWarn("event %d: listener already registered", code)
			return false
		}
	}
	b.registered[code] = append(b.registered[code], &registeredEvent{listener: listener, callback: onEvent})
	return true
}

func (b *EventBus) Unregister(code SystemEventCode, listener interface{}, onEvent FnOnEvent) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	events := b.registered[code]
	for i, e := range events {
		if e.listener == listener && sameFunc(e.callback, onEvent) {
			b.registered[code] = append(events[:i], events[i+1:]...)
			return true
		}
	}
	return false
}

// Fire stops at the first listener that reports the event as handled.
func (b *EventBus) Fire(code SystemEventCode, sender interface{}, context EventContext) bool {
	b.mu.RLock()
	events := append([]*registeredEvent(nil), b.registered[code]...)
	b.mu.RUnlock()
	for _, e := range events {
		if e.callback(code, sender, e.listener, context) {
			return true
		}
	}
	return false
}

func (b *EventBus) Shutdown() {
	b.mu.Lock()
	b.registered = make(map[SystemEventCode][]*registeredEvent)
	b.mu.Unlock()
}

func sameFunc(a, b FnOnEvent) bool {
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}
