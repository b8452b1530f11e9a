// Package keymap translates captured key events into the bytes a serial
// terminal peer expects
package keymap

import (
	"fmt"
	"strings"
)

// Code identifies the key that was pressed
type Code int

const (
	CodeUnknown Code = iota
	CodeRune
	CodeHome
	CodeEnd
	CodeBackspace
	CodeTab
	CodeEnter
	CodeEsc
	CodeDelete
	CodeInsert
	CodeUp
	CodeDown
	CodeLeft
	CodeRight
	CodePageUp
	CodePageDown
	CodeF1
	CodeF2
	CodeF3
	CodeF4
	CodeF5
	CodeF6
	CodeF7
	CodeF8
	CodeF9
	CodeF10
	CodeF11
	CodeF12
)

var codeNames = map[Code]string{
	CodeUnknown:   "Unknown",
	CodeRune:      "Rune",
	CodeHome:      "Home",
	CodeEnd:       "End",
	CodeBackspace: "Backspace",
	CodeTab:       "Tab",
	CodeEnter:     "Enter",
	CodeEsc:       "Esc",
	CodeDelete:    "Delete",
	CodeInsert:    "Insert",
	CodeUp:        "Up",
	CodeDown:      "Down",
	CodeLeft:      "Left",
	CodeRight:     "Right",
	CodePageUp:    "PgUp",
	CodePageDown:  "PgDn",
}

// String returns the string representation of Code
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	if c >= CodeF1 && c <= CodeF12 {
		return fmt.Sprintf("F%d", int(c-CodeF1)+1)
	}
	return "unknown"
}

// Modifier is the set of modifier keys held during a key press
type Modifier uint8

const (
	// ModNone indicates no modifiers
	ModNone Modifier = 0

	ModShift Modifier = 1 << (iota - 1)
	ModCtrl
	ModAlt
	ModMeta
)

// Has returns true if m contains every modifier in mod
func (m Modifier) Has(mod Modifier) bool {
	return m&mod == mod
}

// String returns a human-readable representation like "Ctrl+Shift"
func (m Modifier) String() string {
	if m == ModNone {
		return "None"
	}

	var parts []string
	if m.Has(ModCtrl) {
		parts = append(parts, "Ctrl")
	}
	if m.Has(ModAlt) {
		parts = append(parts, "Alt")
	}
	if m.Has(ModMeta) {
		parts = append(parts, "Meta")
	}
	if m.Has(ModShift) {
		parts = append(parts, "Shift")
	}
	return strings.Join(parts, "+")
}

// KeyEvent represents a single keyboard event
type KeyEvent struct {
	Code Code
	Rune rune
	Mod  Modifier
}

// RuneEvent creates a key event for a character
func RuneEvent(r rune, mod Modifier) KeyEvent {
	return KeyEvent{Code: CodeRune, Rune: r, Mod: mod}
}

// SpecialEvent creates a key event for a non-character key
func SpecialEvent(code Code, mod Modifier) KeyEvent {
	return KeyEvent{Code: code, Mod: mod}
}

// String returns a name such as "Ctrl+a", "Up" or "'x'"
func (e KeyEvent) String() string {
	name := e.Code.String()
	if e.Code == CodeRune {
		name = fmt.Sprintf("%q", e.Rune)
	}
	if e.Mod == ModNone {
		return name
	}
	return e.Mod.String() + "+" + name
}
