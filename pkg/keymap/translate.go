package keymap

// Control bytes and escape prefixes sent to the serial peer
const (
	esc = 0x1B
	csi = '['
)

type chord struct {
	mod  Modifier
	code Code
	r    rune
}

// specialKeys maps unmodified non-character keys to their wire sequence.
var specialKeys = map[chord][]byte{
	{ModNone, CodeHome, 0}:      {0x01},
	{ModNone, CodeEnd, 0}:       {0x05},
	{ModNone, CodeBackspace, 0}: {0x08},
	{ModNone, CodeTab, 0}:       {0x09},
	{ModNone, CodeEnter, 0}:     {0x0D},
	{ModNone, CodeEsc, 0}:       {esc},
	{ModNone, CodeDelete, 0}:    {esc, csi, '3', '~'},
	{ModNone, CodeUp, 0}:        {esc, csi, 'A'},
	{ModNone, CodeDown, 0}:      {esc, csi, 'B'},
	{ModNone, CodeRight, 0}:     {esc, csi, 'C'},
	{ModNone, CodeLeft, 0}:      {esc, csi, 'D'},
}

// controlChars maps Ctrl+letter chords to control bytes.
var controlChars = map[chord][]byte{
	{ModCtrl, CodeRune, 'c'}: {0x03},
	{ModCtrl, CodeRune, 'k'}: {0x0B},
	{ModCtrl, CodeRune, 'u'}: {0x15},
}

// EndSession is the chord that ends the interactive session.
var EndSession = RuneEvent('a', ModCtrl)

// IsEndSession reports whether ev ends the session
func IsEndSession(ev KeyEvent) bool {
	return ev == EndSession
}

// Translate converts a key event into the byte sequence for the serial
// peer. end is true when the event ends the session; seq is then empty.
// Unmapped events yield an empty sequence. Modifiers are matched exactly,
// so combinations and Alt/Meta are never mapped.
func Translate(ev KeyEvent) (seq []byte, end bool) {
	if IsEndSession(ev) {
		return nil, true
	}

	if ev.Code == CodeRune {
		switch ev.Mod {
		case ModNone, ModShift:
			return []byte{byte(ev.Rune)}, false
		case ModCtrl:
			return clone(controlChars[chord{ModCtrl, CodeRune, ev.Rune}]), false
		}
		return nil, false
	}

	return clone(specialKeys[chord{ev.Mod, ev.Code, 0}]), false
}

func clone(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
