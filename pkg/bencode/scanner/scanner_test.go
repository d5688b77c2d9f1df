package scanner_test

import (
	"testing"

	"github.com/ravel-io/mtor/pkg/bencode/scanner"
)

var validTests = []struct {
	input string
	valid bool
}{
	// no value
	{"", false},

	// non-closed value
	{"d", false},
	{"l", false},
	{"i", false},
	{"1", false},

	// closed multiple times
	{"dee", false},
	{"lee", false},
	{"iee", false},

	// data missing
	{"ie", false},
	{"1:", false},

	// proper values
	{"de", true},
	{"le", true},
	{"i1e", true},
	{"i-1e", true},
	{"i0e", true},
	{"0:", true},
	{"1:a", true},

	// invalid values
	{"i01e", false},
	{"i-0e", false},

	// multiple top-level values
	{"dede", false},
}

func TestValid(t *testing.T) {
	for _, test := range validTests {
		t.Run(test.input, func(t *testing.T) {
			valid := scanner.Valid([]byte(test.input))
			if valid != test.valid {
				t.Errorf("Valid(%#v): returned %v", test.input, valid)
			}
		})
	}
}

// TestValidMisorderedMetainfoKeys guards the dictionary key ordering
// check against the specific case of a hand-edited .torrent file:
// someone who reorders "name" before "length" in an info dict (e.g.
// while inspecting it in a text editor) produces bencode a compliant
// decoder must reject, since the reordering changes the info dict's
// canonical bytes and therefore its SHA-1 info hash.
func TestValidMisorderedMetainfoKeys(t *testing.T) {
	const misordered = "d4:name8:test.iso6:lengthi1024ee"
	if scanner.Valid([]byte(misordered)) {
		t.Errorf("Valid(%#v) = true, want false for out-of-order keys", misordered)
	}

	const ordered = "d6:lengthi1024e4:name8:test.isoe"
	if !scanner.Valid([]byte(ordered)) {
		t.Errorf("Valid(%#v) = false, want true", ordered)
	}
}

// TestValidTrackerCompactPeers guards the scanner against the shape a
// tracker's compact "peers" string actually takes: raw binary bytes,
// some of which may not be valid UTF-8 or printable ASCII. The scanner
// must treat the declared length as authoritative and not choke on
// the byte content itself.
func TestValidTrackerCompactPeers(t *testing.T) {
	// 6 raw bytes: 127.0.0.1:6881, including a non-ASCII high byte.
	peers := string([]byte{127, 0, 0, 1, 0x1A, 0xE1})
	in := "d5:peers6:" + peers + "e"
	if !scanner.Valid([]byte(in)) {
		t.Errorf("Valid(%#v) = false, want true", in)
	}
}
