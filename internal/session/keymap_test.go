package session

import "testing"

func TestKeymap_CoversPrintableASCII(t *testing.T) {
	for r := rune(0x20); r <= 0x7e; r++ {
		if _, ok := lookupKey(r); !ok {
			t.Errorf("no mapping for printable character %q", r)
		}
	}
	for _, r := range "\n\t" {
		if _, ok := lookupKey(r); !ok {
			t.Errorf("no mapping for control character %q", r)
		}
	}
}

func TestKeymap_ShiftPairsShareKeycodes(t *testing.T) {
	pairs := []struct {
		plain, shifted rune
	}{
		{'a', 'A'},
		{'z', 'Z'},
		{'1', '!'},
		{'-', '_'},
		{';', ':'},
		{'/', '?'},
	}
	for _, p := range pairs {
		plain, _ := lookupKey(p.plain)
		shifted, _ := lookupKey(p.shifted)
		if plain.code != shifted.code {
			t.Errorf("%q and %q on different keycodes (%d vs %d)", p.plain, p.shifted, plain.code, shifted.code)
		}
		if plain.shift {
			t.Errorf("%q marked as shifted", p.plain)
		}
		if !shifted.shift {
			t.Errorf("%q not marked as shifted", p.shifted)
		}
	}
}

func TestKeymapCodes(t *testing.T) {
	codes := keymapCodes()

	seen := map[uint16]bool{}
	last := uint16(0)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("duplicate keycode %d", code)
		}
		seen[code] = true
		if code < last {
			t.Errorf("keycodes not sorted: %d after %d", code, last)
		}
		last = code
	}

	// The shift modifier must be registered even though no rune maps to it
	// directly.
	if !seen[keyLeftShift] {
		t.Errorf("keymapCodes() missing left shift (%d)", keyLeftShift)
	}
}

func TestKeymap_RejectsUnmappedRunes(t *testing.T) {
	for _, r := range "é漢\x00" {
		if _, ok := lookupKey(r); ok {
			t.Errorf("unexpected mapping for %q", r)
		}
	}
}
