package bencode_test

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/ravel-io/mtor/pkg/bencode"
)

type T struct {
	A string `bencode:"B"`
	B string `bencode:"-,"`

	C string

	X string
	Y string
	Z string `bencode:"-"`
}

var tests = []struct {
	in  string
	ptr any
	out any
	err error
}{
	// basic values
	{in: "i123e", ptr: new(int), out: 123},
	{in: "i-123e", ptr: new(int), out: -123},
	{in: "i0e", ptr: new(int), out: 0},
	{in: "0:", ptr: new(string), out: ""},
	{in: "3:cat", ptr: new(string), out: "cat"},
	{in: "le", ptr: new(any), out: *new([]any)},
	{in: "li123e3:cate", ptr: new(any), out: []any{int64(123), "cat"}},
	{in: "lli123e3:catee", ptr: new(any), out: []any{[]any{int64(123), "cat"}}},
	{in: "de", ptr: new(any), out: map[string]any{}},
	{in: "d3:cati123e3:dogi-123ee", ptr: new(any), out: map[string]any{"cat": int64(123), "dog": int64(-123)}},
	{in: "d1:ad1:ai123e1:b3:catee", ptr: new(any), out: map[string]any{"a": map[string]any{"a": int64(123), "b": "cat"}}},
	{in: "d1:-3:rat1:B3:bat1:X3:cat1:Y3:dog1:Z3:nile", ptr: new(T), out: T{A: "bat", B: "rat", X: "cat", Y: "dog"}},
}

func TestDecode(t *testing.T) {
	for _, test := range tests {
		t.Run(test.in, func(t *testing.T) {
			err := bencode.Unmarshal([]byte(test.in), test.ptr)

			if err != test.err {
				t.Errorf("Unmarshal(%#v): returned error %v did not match %v", test.in, err, test.err)
				return
			}

			v := reflect.ValueOf(test.ptr)
			c := v.Elem().Interface()
			if !reflect.DeepEqual(c, test.out) {
				t.Errorf("Unmarshal(%#v): data %#v did not match %#v", test.in, c, test.out)
			}
		})
	}
}

// info mirrors torrentfile.Info's bencode shape without importing the
// torrentfile package, to keep this test package free of a dependency
// on a package that itself depends on bencode.
type info struct {
	PieceLen int    `bencode:"piece length"`
	Pieces   string `bencode:"pieces"`
	Name     string `bencode:"name"`
	Length   int    `bencode:"length,omitempty"`
}

// TestDecodeMetainfoDict exercises the decoder against an info
// dictionary shaped the way a real .torrent file's "info" key is, to
// confirm the struct tags torrentfile.Info relies on actually resolve
// against bencode's alphabetical key ordering and 20-byte piece hash
// blobs.
func TestDecodeMetainfoDict(t *testing.T) {
	pieces := strings.Repeat("a", 40) // two 20 byte piece hashes
	in := fmt.Sprintf("d6:lengthi1024e4:name8:test.iso12:piece lengthi512e6:pieces%d:%se",
		len(pieces), pieces)

	var got info
	if err := bencode.Unmarshal([]byte(in), &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	want := info{PieceLen: 512, Pieces: pieces, Name: "test.iso", Length: 1024}
	if got != want {
		t.Errorf("Unmarshal() = %+v, want %+v", got, want)
	}
}

// TestDecodeTrackerPeerList exercises the decoder against a tracker
// announce response carrying the non-compact peer list form (a list
// of {ip, peer id, port} dicts), which tracker.decodePeers expects to
// receive back as a []any of map[string]any.
func TestDecodeTrackerPeerList(t *testing.T) {
	const in = "d8:intervali1800e5:peersld2:ip9:127.0.0.17:peer id20:aaaaaaaaaaaaaaaaaaaa4:porti6881eeee"

	var got map[string]any
	if err := bencode.Unmarshal([]byte(in), &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if got["interval"] != int64(1800) {
		t.Errorf("interval = %v, want 1800", got["interval"])
	}

	peers, ok := got["peers"].([]any)
	if !ok || len(peers) != 1 {
		t.Fatalf("peers = %#v, want a one element list", got["peers"])
	}

	entry, ok := peers[0].(map[string]any)
	if !ok || entry["ip"] != "127.0.0.1" || entry["port"] != int64(6881) {
		t.Errorf("peers[0] = %#v, want ip 127.0.0.1 port 6881", entry)
	}
}
