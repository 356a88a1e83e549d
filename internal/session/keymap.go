package session

import "sort"

// Linux keycodes for a US QWERTY layout, from linux/input-event-codes.h.
const (
	key1 = 2 // 1..0 run through keycode 11

	keyMinus      = 12
	keyEqual      = 13
	keyTab        = 15
	keyQ          = 16
	keyLeftBrace  = 26
	keyRightBrace = 27
	keyEnter      = 28
	keyA          = 30
	keySemicolon  = 39
	keyApostrophe = 40
	keyGrave      = 41
	keyLeftShift  = 42
	keyBackslash  = 43
	keyZ          = 44
	keyComma      = 51
	keyDot        = 52
	keySlash      = 53
	keySpace      = 57
)

type keystroke struct {
	code  uint16
	shift bool
}

var keymap = buildKeymap()

func lookupKey(r rune) (keystroke, bool) {
	ks, ok := keymap[r]
	return ks, ok
}

// keymapCodes returns the distinct keycodes the virtual device must
// register, in ascending order.
func keymapCodes() []uint16 {
	seen := map[uint16]bool{keyLeftShift: true}
	for _, ks := range keymap {
		seen[ks.code] = true
	}
	codes := make([]uint16, 0, len(seen))
	for code := range seen {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

func buildKeymap() map[rune]keystroke {
	m := make(map[rune]keystroke, 96)

	// Keyboard rows with consecutive keycodes. The shifted string holds the
	// character produced with shift held on the same key.
	rows := []struct {
		base    uint16
		plain   string
		shifted string
	}{
		{key1, "1234567890", "!@#$%^&*()"},
		{keyQ, "qwertyuiop", "QWERTYUIOP"},
		{keyA, "asdfghjkl", "ASDFGHJKL"},
		{keyZ, "zxcvbnm", "ZXCVBNM"},
	}
	for _, row := range rows {
		for i, r := range row.plain {
			m[r] = keystroke{code: row.base + uint16(i)}
		}
		for i, r := range row.shifted {
			m[r] = keystroke{code: row.base + uint16(i), shift: true}
		}
	}

	// Punctuation keys outside the main rows.
	pairs := []struct {
		code    uint16
		plain   rune
		shifted rune
	}{
		{keyMinus, '-', '_'},
		{keyEqual, '=', '+'},
		{keyLeftBrace, '[', '{'},
		{keyRightBrace, ']', '}'},
		{keySemicolon, ';', ':'},
		{keyApostrophe, '\'', '"'},
		{keyGrave, '`', '~'},
		{keyBackslash, '\\', '|'},
		{keyComma, ',', '<'},
		{keyDot, '.', '>'},
		{keySlash, '/', '?'},
	}
	for _, p := range pairs {
		m[p.plain] = keystroke{code: p.code}
		m[p.shifted] = keystroke{code: p.code, shift: true}
	}

	m[' '] = keystroke{code: keySpace}
	m['\n'] = keystroke{code: keyEnter}
	m['\t'] = keystroke{code: keyTab}

	return m
}
