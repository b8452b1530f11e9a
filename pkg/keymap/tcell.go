package keymap

import "github.com/gdamore/tcell/v2"

var tcellCodes = map[tcell.Key]Code{
	tcell.KeyBackspace:  CodeBackspace,
	tcell.KeyBackspace2: CodeBackspace,
	tcell.KeyTab:        CodeTab,
	tcell.KeyEnter:      CodeEnter,
	tcell.KeyEscape:     CodeEsc,
	tcell.KeyHome:       CodeHome,
	tcell.KeyEnd:        CodeEnd,
	tcell.KeyInsert:     CodeInsert,
	tcell.KeyDelete:     CodeDelete,
	tcell.KeyUp:         CodeUp,
	tcell.KeyDown:       CodeDown,
	tcell.KeyLeft:       CodeLeft,
	tcell.KeyRight:      CodeRight,
	tcell.KeyPgUp:       CodePageUp,
	tcell.KeyPgDn:       CodePageDown,
}

// FromTcell converts a tcell key event into a KeyEvent
func FromTcell(ev *tcell.EventKey) KeyEvent {
	if ev == nil {
		return KeyEvent{}
	}

	mod := fromTcellMods(ev.Modifiers())
	key := ev.Key()

	if key == tcell.KeyRune {
		return RuneEvent(ev.Rune(), mod)
	}

	if code, ok := tcellCodes[key]; ok {
		return SpecialEvent(code, mod)
	}

	if key >= tcell.KeyF1 && key <= tcell.KeyF12 {
		return SpecialEvent(CodeF1+Code(key-tcell.KeyF1), mod)
	}

	// Ctrl+letter arrives as a C0 control key; Backspace, Tab and Enter
	// share codes with Ctrl+H, Ctrl+I and Ctrl+M and were handled above.
	if key >= tcell.KeyCtrlA && key <= tcell.KeyCtrlZ {
		return RuneEvent(rune('a'+(key-tcell.KeyCtrlA)), mod|ModCtrl)
	}

	return SpecialEvent(CodeUnknown, mod)
}

func fromTcellMods(mods tcell.ModMask) Modifier {
	var m Modifier
	if mods&tcell.ModShift != 0 {
		m |= ModShift
	}
	if mods&tcell.ModCtrl != 0 {
		m |= ModCtrl
	}
	if mods&tcell.ModAlt != 0 {
		m |= ModAlt
	}
	if mods&tcell.ModMeta != 0 {
		m |= ModMeta
	}
	return m
}
