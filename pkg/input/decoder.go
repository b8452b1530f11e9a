// Package input reads keystrokes from the local terminal and feeds their
// translations to the outbound queue
package input

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"

	"rawserial/pkg/keymap"
)

const (
	keyEsc = 0x1B
	keyDel = 0x7F

	// maxSequenceLen bounds a CSI sequence so garbage cannot swallow input
	maxSequenceLen = 16
)

// csiFinals maps the final byte of "ESC [ ... X" and "ESC O X" sequences
var csiFinals = map[byte]tcell.Key{
	'A': tcell.KeyUp,
	'B': tcell.KeyDown,
	'C': tcell.KeyRight,
	'D': tcell.KeyLeft,
	'H': tcell.KeyHome,
	'F': tcell.KeyEnd,
	'P': tcell.KeyF1,
	'Q': tcell.KeyF2,
	'R': tcell.KeyF3,
	'S': tcell.KeyF4,
	'Z': tcell.KeyBacktab,
}

// tildeKeys maps the numeric parameter of "ESC [ n ~" sequences
var tildeKeys = map[int]tcell.Key{
	1:  tcell.KeyHome,
	2:  tcell.KeyInsert,
	3:  tcell.KeyDelete,
	4:  tcell.KeyEnd,
	5:  tcell.KeyPgUp,
	6:  tcell.KeyPgDn,
	7:  tcell.KeyHome,
	8:  tcell.KeyEnd,
	11: tcell.KeyF1,
	12: tcell.KeyF2,
	13: tcell.KeyF3,
	14: tcell.KeyF4,
	15: tcell.KeyF5,
	17: tcell.KeyF6,
	18: tcell.KeyF7,
	19: tcell.KeyF8,
	20: tcell.KeyF9,
	21: tcell.KeyF10,
	23: tcell.KeyF11,
	24: tcell.KeyF12,
}

// Decoder turns the byte stream of a raw-mode terminal into key events
type Decoder struct {
	r *bufio.Reader
}

// NewDecoder creates a decoder reading from r
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// ReadKey blocks for the next keystroke
func (d *Decoder) ReadKey() (keymap.KeyEvent, error) {
	ev, err := d.ReadEvent()
	if err != nil {
		return keymap.KeyEvent{}, err
	}
	return keymap.FromTcell(ev), nil
}

// ReadEvent blocks for the next keystroke. Unrecognised escape sequences are
// consumed and reported as a nil event with a nil error.
func (d *Decoder) ReadEvent() (*tcell.EventKey, error) {
	b, err := d.r.ReadByte()
	if err != nil {
		return nil, err
	}

	switch {
	case b == keyEsc:
		return d.readEscape()
	case b == keyDel:
		return tcell.NewEventKey(tcell.KeyBackspace2, 0, tcell.ModNone), nil
	case b < ' ':
		return controlKey(b), nil
	case b < utf8.RuneSelf:
		return tcell.NewEventKey(tcell.KeyRune, rune(b), tcell.ModNone), nil
	}

	if err := d.r.UnreadByte(); err != nil {
		return nil, err
	}
	r, size, err := d.r.ReadRune()
	if err != nil {
		return nil, err
	}
	if r == utf8.RuneError && size == 1 {
		// Not UTF-8: pass the byte through unchanged
		r = rune(b)
	}
	return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone), nil
}

// controlKey maps a C0 byte. Backspace, Tab and Enter are typeable without
// Ctrl; every other control byte is reported as Ctrl+letter.
func controlKey(b byte) *tcell.EventKey {
	k := tcell.Key(b)
	switch k {
	case tcell.KeyBackspace, tcell.KeyTab, tcell.KeyEnter:
		return tcell.NewEventKey(k, 0, tcell.ModNone)
	}
	return tcell.NewEventKey(k, rune(b), tcell.ModCtrl)
}

func (d *Decoder) readEscape() (*tcell.EventKey, error) {
	// A lone ESC arrives on its own; sequences arrive in one read
	if d.r.Buffered() == 0 {
		return tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone), nil
	}

	b, err := d.r.ReadByte()
	if err != nil {
		return nil, err
	}

	switch {
	case (b == '[' || b == 'O') && d.r.Buffered() > 0:
		if b == 'O' {
			return d.readSS3()
		}
		return d.readCSI()
	case b == keyEsc:
		return tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModAlt), nil
	case b < ' ' || b == keyDel:
		if err := d.r.UnreadByte(); err != nil {
			return nil, err
		}
		ev, err := d.ReadEvent()
		if err != nil || ev == nil {
			return ev, err
		}
		return tcell.NewEventKey(ev.Key(), ev.Rune(), ev.Modifiers()|tcell.ModAlt), nil
	}

	if err := d.r.UnreadByte(); err != nil {
		return nil, err
	}
	ev, err := d.ReadEvent()
	if err != nil || ev == nil {
		return ev, err
	}
	return tcell.NewEventKey(tcell.KeyRune, ev.Rune(), tcell.ModAlt), nil
}

func (d *Decoder) readSS3() (*tcell.EventKey, error) {
	b, err := d.r.ReadByte()
	if err != nil {
		return nil, err
	}
	if k, ok := csiFinals[b]; ok {
		return tcell.NewEventKey(k, 0, tcell.ModNone), nil
	}
	return nil, nil
}

func (d *Decoder) readCSI() (*tcell.EventKey, error) {
	var params strings.Builder
	for i := 0; ; i++ {
		b, err := d.r.ReadByte()
		if err != nil {
			return nil, err
		}

		// Parameter and intermediate bytes
		if b >= 0x20 && b <= 0x3F {
			if i >= maxSequenceLen {
				return nil, nil
			}
			params.WriteByte(b)
			continue
		}
		if b < 0x40 || b > 0x7E {
			return nil, nil
		}
		return csiKey(params.String(), b), nil
	}
}

// csiKey decodes the parameters and final byte of a CSI sequence
func csiKey(params string, final byte) *tcell.EventKey {
	fields := strings.Split(params, ";")
	mod := tcell.ModNone
	if len(fields) >= 2 {
		var ok bool
		if mod, ok = xtermModifier(fields[1]); !ok {
			return nil
		}
	}

	if final == '~' {
		n, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil
		}
		k, ok := tildeKeys[n]
		if !ok {
			return nil
		}
		return tcell.NewEventKey(k, 0, mod)
	}

	k, ok := csiFinals[final]
	if !ok {
		return nil
	}
	if k == tcell.KeyBacktab {
		return tcell.NewEventKey(k, 0, mod)
	}
	// "ESC [ A" carries no parameters; "ESC [ 1 ; 5 A" carries a modifier
	if fields[0] != "" && fields[0] != "1" {
		return nil
	}
	return tcell.NewEventKey(k, 0, mod)
}

// xtermModifier decodes the xterm modifier parameter, which is one plus a
// bitmask of Shift=1, Alt=2, Ctrl=4, Meta=8
func xtermModifier(s string) (tcell.ModMask, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return tcell.ModNone, false
	}
	n--

	mod := tcell.ModNone
	if n&1 != 0 {
		mod |= tcell.ModShift
	}
	if n&2 != 0 {
		mod |= tcell.ModAlt
	}
	if n&4 != 0 {
		mod |= tcell.ModCtrl
	}
	if n&8 != 0 {
		mod |= tcell.ModMeta
	}
	return mod, true
}
