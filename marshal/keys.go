package marshal

import (
	"strings"

	"github.com/wippyai/scriptlib/errors"
)

// Key is a keyboard key code. The numeric values mirror the engine's external
// keyboard code table and are the wire contract: new keys are appended, never
// renumbered.
type Key int32

const (
	KeyUnknown      Key = 1
	KeySpace        Key = 32
	KeyApostrophe   Key = 39
	KeyComma        Key = 44
	KeyMinus        Key = 45
	KeyPeriod       Key = 46
	KeySlash        Key = 47
	KeyNum0         Key = 48
	KeyNum1         Key = 49
	KeyNum2         Key = 50
	KeyNum3         Key = 51
	KeyNum4         Key = 52
	KeyNum5         Key = 53
	KeyNum6         Key = 54
	KeyNum7         Key = 55
	KeyNum8         Key = 56
	KeyNum9         Key = 57
	KeySemicolon    Key = 59
	KeyEqual        Key = 61
	KeyA            Key = 65
	KeyB            Key = 66
	KeyC            Key = 67
	KeyD            Key = 68
	KeyE            Key = 69
	KeyF            Key = 70
	KeyG            Key = 71
	KeyH            Key = 72
	KeyI            Key = 73
	KeyJ            Key = 74
	KeyK            Key = 75
	KeyL            Key = 76
	KeyM            Key = 77
	KeyN            Key = 78
	KeyO            Key = 79
	KeyP            Key = 80
	KeyQ            Key = 81
	KeyR            Key = 82
	KeyS            Key = 83
	KeyT            Key = 84
	KeyU            Key = 85
	KeyV            Key = 86
	KeyW            Key = 87
	KeyX            Key = 88
	KeyY            Key = 89
	KeyZ            Key = 90
	KeyLeftBracket  Key = 91
	KeyBackslash    Key = 92
	KeyRightBracket Key = 93
	KeyGraveAccent  Key = 96
	KeyWorld1       Key = 161
	KeyWorld2       Key = 162
	KeyEscape       Key = 256
	KeyEnter        Key = 257
	KeyTab          Key = 258
	KeyBackspace    Key = 259
	KeyInsert       Key = 260
	KeyDelete       Key = 261
	KeyRight        Key = 262
	KeyLeft         Key = 263
	KeyDown         Key = 264
	KeyUp           Key = 265
	KeyPageUp       Key = 266
	KeyPageDown     Key = 267
	KeyHome         Key = 268
	KeyEnd          Key = 269
	KeyCapsLock     Key = 280
	KeyScrollLock   Key = 281
	KeyNumLock      Key = 282
	KeyPrintScreen  Key = 283
	KeyPause        Key = 284
	KeyF1           Key = 290
	KeyF2           Key = 291
	KeyF3           Key = 292
	KeyF4           Key = 293
	KeyF5           Key = 294
	KeyF6           Key = 295
	KeyF7           Key = 296
	KeyF8           Key = 297
	KeyF9           Key = 298
	KeyF10          Key = 299
	KeyF11          Key = 300
	KeyF12          Key = 301
	KeyF13          Key = 302
	KeyF14          Key = 303
	KeyF15          Key = 304
	KeyF16          Key = 305
	KeyF17          Key = 306
	KeyF18          Key = 307
	KeyF19          Key = 308
	KeyF20          Key = 309
	KeyF21          Key = 310
	KeyF22          Key = 311
	KeyF23          Key = 312
	KeyF24          Key = 313
	KeyF25          Key = 314
	KeyKP0          Key = 320
	KeyKP1          Key = 321
	KeyKP2          Key = 322
	KeyKP3          Key = 323
	KeyKP4          Key = 324
	KeyKP5          Key = 325
	KeyKP6          Key = 326
	KeyKP7          Key = 327
	KeyKP8          Key = 328
	KeyKP9          Key = 329
	KeyKPDecimal    Key = 330
	KeyKPDivide     Key = 331
	KeyKPMultiply   Key = 332
	KeyKPSubtract   Key = 333
	KeyKPAdd        Key = 334
	KeyKPEnter      Key = 335
	KeyKPEqual      Key = 336
	KeyLeftShift    Key = 340
	KeyLeftControl  Key = 341
	KeyLeftAlt      Key = 342
	KeyLeftSuper    Key = 343
	KeyRightShift   Key = 344
	KeyRightControl Key = 345
	KeyRightAlt     Key = 346
	KeyRightSuper   Key = 347
	KeyMenu         Key = 348

	// KeyCount is the highest valid key code.
	KeyCount = KeyMenu
)

var keyNames = map[Key]string{
	KeyUnknown:      "UNKNOWN",
	KeySpace:        "SPACE",
	KeyApostrophe:   "APOSTROPHE",
	KeyComma:        "COMMA",
	KeyMinus:        "MINUS",
	KeyPeriod:       "PERIOD",
	KeySlash:        "SLASH",
	KeyNum0:         "NUM_0",
	KeyNum1:         "NUM_1",
	KeyNum2:         "NUM_2",
	KeyNum3:         "NUM_3",
	KeyNum4:         "NUM_4",
	KeyNum5:         "NUM_5",
	KeyNum6:         "NUM_6",
	KeyNum7:         "NUM_7",
	KeyNum8:         "NUM_8",
	KeyNum9:         "NUM_9",
	KeySemicolon:    "SEMICOLON",
	KeyEqual:        "EQUAL",
	KeyA:            "A",
	KeyB:            "B",
	KeyC:            "C",
	KeyD:            "D",
	KeyE:            "E",
	KeyF:            "F",
	KeyG:            "G",
	KeyH:            "H",
	KeyI:            "I",
	KeyJ:            "J",
	KeyK:            "K",
	KeyL:            "L",
	KeyM:            "M",
	KeyN:            "N",
	KeyO:            "O",
	KeyP:            "P",
	KeyQ:            "Q",
	KeyR:            "R",
	KeyS:            "S",
	KeyT:            "T",
	KeyU:            "U",
	KeyV:            "V",
	KeyW:            "W",
	KeyX:            "X",
	KeyY:            "Y",
	KeyZ:            "Z",
	KeyLeftBracket:  "LEFT_BRACKET",
	KeyBackslash:    "BACKSLASH",
	KeyRightBracket: "RIGHT_BRACKET",
	KeyGraveAccent:  "GRAVE_ACCENT",
	KeyWorld1:       "WORLD_1",
	KeyWorld2:       "WORLD_2",
	KeyEscape:       "ESCAPE",
	KeyEnter:        "ENTER",
	KeyTab:          "TAB",
	KeyBackspace:    "BACKSPACE",
	KeyInsert:       "INSERT",
	KeyDelete:       "DEL",
	KeyRight:        "RIGHT",
	KeyLeft:         "LEFT",
	KeyDown:         "DOWN",
	KeyUp:           "UP",
	KeyPageUp:       "PAGE_UP",
	KeyPageDown:     "PAGE_DOWN",
	KeyHome:         "HOME",
	KeyEnd:          "END",
	KeyCapsLock:     "CAPS_LOCK",
	KeyScrollLock:   "SCROLL_LOCK",
	KeyNumLock:      "NUM_LOCK",
	KeyPrintScreen:  "PRINT_SCREEN",
	KeyPause:        "PAUSE",
	KeyF1:           "F1",
	KeyF2:           "F2",
	KeyF3:           "F3",
	KeyF4:           "F4",
	KeyF5:           "F5",
	KeyF6:           "F6",
	KeyF7:           "F7",
	KeyF8:           "F8",
	KeyF9:           "F9",
	KeyF10:          "F10",
	KeyF11:          "F11",
	KeyF12:          "F12",
	KeyF13:          "F13",
	KeyF14:          "F14",
	KeyF15:          "F15",
	KeyF16:          "F16",
	KeyF17:          "F17",
	KeyF18:          "F18",
	KeyF19:          "F19",
	KeyF20:          "F20",
	KeyF21:          "F21",
	KeyF22:          "F22",
	KeyF23:          "F23",
	KeyF24:          "F24",
	KeyF25:          "F25",
	KeyKP0:          "KP_0",
	KeyKP1:          "KP_1",
	KeyKP2:          "KP_2",
	KeyKP3:          "KP_3",
	KeyKP4:          "KP_4",
	KeyKP5:          "KP_5",
	KeyKP6:          "KP_6",
	KeyKP7:          "KP_7",
	KeyKP8:          "KP_8",
	KeyKP9:          "KP_9",
	KeyKPDecimal:    "KP_DECIMAL",
	KeyKPDivide:     "KP_DIVIDE",
	KeyKPMultiply:   "KP_MULTIPLY",
	KeyKPSubtract:   "KP_SUBTRACT",
	KeyKPAdd:        "KP_ADD",
	KeyKPEnter:      "KP_ENTER",
	KeyKPEqual:      "KP_EQUAL",
	KeyLeftShift:    "LEFT_SHIFT",
	KeyLeftControl:  "LEFT_CONTROL",
	KeyLeftAlt:      "LEFT_ALT",
	KeyLeftSuper:    "LEFT_SUPER",
	KeyRightShift:   "RIGHT_SHIFT",
	KeyRightControl: "RIGHT_CONTROL",
	KeyRightAlt:     "RIGHT_ALT",
	KeyRightSuper:   "RIGHT_SUPER",
	KeyMenu:         "MENU",
}

var keysByName = func() map[string]Key {
	m := make(map[string]Key, len(keyNames))
	for k, n := range keyNames {
		m[n] = k
	}
	return m
}()

func (k Key) String() string {
	if n, ok := keyNames[k]; ok {
		return n
	}
	return "UNKNOWN"
}

// Valid reports whether k is in the code table.
func (k Key) Valid() bool {
	_, ok := keyNames[k]
	return ok
}

// KeyFromCode converts a wire code to a Key, rejecting codes outside the table.
func KeyFromCode(code int32) (Key, error) {
	k := Key(code)
	if !k.Valid() {
		return 0, errors.InvalidEnum(errors.PhaseMarshal, code, "Key")
	}
	return k, nil
}

// ParseKey resolves a key by its table name ("W", "SPACE", "LEFT_SHIFT").
// Matching is case-insensitive; "DELETE" is accepted for "DEL".
func ParseKey(name string) (Key, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	if n == "DELETE" {
		n = "DEL"
	}
	if k, ok := keysByName[n]; ok {
		return k, nil
	}
	return 0, errors.InvalidEnum(errors.PhaseMarshal, name, "Key")
}

// MouseKey is a mouse button code.
type MouseKey int32

const (
	MouseB1 MouseKey = iota
	MouseB2
	MouseB3
	MouseB4
	MouseB5
	MouseB6
	MouseB7
	MouseB8

	// MouseCount is the highest valid button code.
	MouseCount = MouseB8

	MouseLeft   = MouseB1
	MouseRight  = MouseB2
	MouseMiddle = MouseB3
)

var mouseNames = [...]string{"B1", "B2", "B3", "B4", "B5", "B6", "B7", "B8"}

func (m MouseKey) String() string {
	if m.Valid() {
		return mouseNames[m]
	}
	return "UNKNOWN"
}

// Valid reports whether m is a known button.
func (m MouseKey) Valid() bool {
	return m >= MouseB1 && m <= MouseCount
}

// MouseKeyFromCode converts a wire code to a MouseKey.
func MouseKeyFromCode(code int32) (MouseKey, error) {
	m := MouseKey(code)
	if !m.Valid() {
		return 0, errors.InvalidEnum(errors.PhaseMarshal, code, "MouseKey")
	}
	return m, nil
}

// ParseMouseKey resolves a button by name ("B1".."B8", "LEFT", "RIGHT", "MIDDLE").
func ParseMouseKey(name string) (MouseKey, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	switch n {
	case "LEFT":
		return MouseLeft, nil
	case "RIGHT":
		return MouseRight, nil
	case "MIDDLE":
		return MouseMiddle, nil
	}
	for i, mn := range mouseNames {
		if mn == n {
			return MouseKey(i), nil
		}
	}
	return 0, errors.InvalidEnum(errors.PhaseMarshal, name, "MouseKey")
}
