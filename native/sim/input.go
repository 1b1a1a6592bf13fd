package sim

import "github.com/wippyai/scriptlib/vec"

type inputState struct {
	keys     map[int32]bool
	buttons  map[int32]bool
	mouse    vec.Vector2
	delta    vec.Vector2
	scrollDY float64
}

func newInputState() inputState {
	return inputState{
		keys:    make(map[int32]bool),
		buttons: make(map[int32]bool),
	}
}

// SetKey sets the down state of a key code.
func (e *Engine) SetKey(code int32, down bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if down {
		e.input.keys[code] = true
	} else {
		delete(e.input.keys, code)
	}
}

// SetMouseButton sets the down state of a mouse button code.
func (e *Engine) SetMouseButton(code int32, down bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if down {
		e.input.buttons[code] = true
	} else {
		delete(e.input.buttons, code)
	}
}

// MoveMouse sets the cursor position and records the delta from the last one.
func (e *Engine) MoveMouse(to vec.Vector2) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.input.delta = vec.Vector2{X: to.X - e.input.mouse.X, Y: to.Y - e.input.mouse.Y}
	e.input.mouse = to
}

// Scroll sets the scroll delta of the current frame.
func (e *Engine) Scroll(dy float64) {
	e.mu.Lock()
	e.input.scrollDY = dy
	e.mu.Unlock()
}

// ClearInput releases all keys and buttons and zeroes per-frame deltas.
func (e *Engine) ClearInput() {
	e.mu.Lock()
	defer e.mu.Unlock()
	mouse := e.input.mouse
	e.input = newInputState()
	e.input.mouse = mouse
}

func (e *Engine) KeyDown(code int32) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.input.keys[code]
}

func (e *Engine) MouseButtonDown(code int32) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.input.buttons[code]
}

func (e *Engine) MousePosition() vec.Vector2 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.input.mouse
}

func (e *Engine) MouseDelta() vec.Vector2 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.input.delta
}

func (e *Engine) ScrollDelta() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.input.scrollDY
}

// Level is the severity of a captured script log line.
type Level uint8

const (
	LevelTrace Level = iota
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "trace"
	case LevelWarn:
		return "warn"
	default:
		return "error"
	}
}

// LogLine is one captured script log line.
type LogLine struct {
	Level   Level
	Message string
}

func (e *Engine) Trace(msg string) { e.log(LevelTrace, msg) }
func (e *Engine) Warn(msg string)  { e.log(LevelWarn, msg) }
func (e *Engine) Error(msg string) { e.log(LevelError, msg) }

func (e *Engine) log(l Level, msg string) {
	e.mu.Lock()
	e.logs = append(e.logs, LogLine{Level: l, Message: msg})
	e.mu.Unlock()
}

// Logs returns the captured log lines.
func (e *Engine) Logs() []LogLine {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]LogLine(nil), e.logs...)
}
