package terminal

// QuitChord is Ctrl+] (ASCII GS). Read from the keyboard it ends the session
// and is never sent to the device.
const QuitChord byte = 0x1d

// EscapeTable maps a two-byte raw key sequence, a platform prefix followed by
// a scan code, to the canonical terminal escape sequence. The zero value has
// no prefixes and translates nothing.
type EscapeTable struct {
	prefixes [256]bool
	seqs     map[[2]byte]string
}

// NewEscapeTable builds a table in which every prefix combined with a key of
// codes maps to the corresponding sequence.
func NewEscapeTable(prefixes []byte, codes map[byte]string) EscapeTable {
	t := EscapeTable{seqs: make(map[[2]byte]string, len(prefixes)*len(codes))}
	for _, p := range prefixes {
		t.prefixes[p] = true
		for code, seq := range codes {
			t.seqs[[2]byte{p, code}] = seq
		}
	}
	return t
}

// DefaultEscapeTable covers the 0x00/0xE0 scan-code prefixes of PC keyboard
// drivers: arrows, Home and End.
func DefaultEscapeTable() EscapeTable {
	return NewEscapeTable([]byte{0x00, 0xe0}, map[byte]string{
		'H': "\x1b[A", // up
		'P': "\x1b[B", // down
		'M': "\x1b[C", // right
		'K': "\x1b[D", // left
		'G': "\x1b[H", // home
		'O': "\x1b[F", // end
	})
}

// IsPrefix reports whether b starts a two-byte sequence.
func (t EscapeTable) IsPrefix(b byte) bool { return t.prefixes[b] }

// Translate returns the canonical sequence for prefix+code, or the raw pair
// when the table has no entry.
func (t EscapeTable) Translate(prefix, code byte) []byte {
	if seq, ok := t.seqs[[2]byte{prefix, code}]; ok {
		return []byte(seq)
	}
	return []byte{prefix, code}
}
