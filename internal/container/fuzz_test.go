package container

import (
	"bytes"
	"testing"

	"zpaqng/internal/codec"
)

// FuzzReadBlockResync drives the framer over arbitrary bytes: every input
// must terminate with either parsed blocks or a clean error, never a
// panic, and resync must keep making forward progress.
func FuzzReadBlockResync(f *testing.F) {
	var valid bytes.Buffer
	m := codec.BuildMethod(1)
	if err := NewWriter(&valid).WriteBlock(&Block{
		HComp:    m.HComp,
		Segments: []Segment{{Filename: "d", Payload: []byte("abc"), RawLen: 3, Last: true}},
	}); err != nil {
		f.Fatal(err)
	}
	f.Add(valid.Bytes())
	f.Add(append([]byte{0xDE, 0xAD}, valid.Bytes()...))
	f.Add(Magic[:])
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, data []byte) {
		r := NewReader(bytes.NewReader(data))
		for i := 0; i < 64; i++ {
			if _, err := r.ReadBlockResync(); err != nil {
				return
			}
		}
	})
}

// FuzzRoundTrip checks that any block this package writes reads back
// identically, whatever segment shapes the fuzzer invents.
func FuzzRoundTrip(f *testing.F) {
	f.Add("name.txt", "comment", []byte("payload"), true)
	f.Add("", "", []byte{}, false)

	f.Fuzz(func(t *testing.T, name, comment string, payload []byte, withSum bool) {
		if !utf8Valid(name) || !utf8Valid(comment) {
			return
		}
		var sum []byte
		if withSum {
			sum = bytes.Repeat([]byte{0x5A}, 20)
		}
		m := codec.BuildMethod(0)
		in := &Block{
			HComp:    m.HComp,
			Segments: []Segment{{Filename: name, Comment: comment, Payload: payload, RawLen: len(payload), Checksum: sum, Last: true}},
		}
		var buf bytes.Buffer
		if err := NewWriter(&buf).WriteBlock(in); err != nil {
			t.Fatal(err)
		}
		out, err := NewReader(&buf).ReadBlock()
		if err != nil {
			t.Fatalf("written block failed to read back: %v", err)
		}
		if out.Segments[0].Filename != name || out.Segments[0].Comment != comment {
			t.Fatal("segment header changed across round-trip")
		}
		if !bytes.Equal(out.Segments[0].Payload, payload) {
			t.Fatal("payload changed across round-trip")
		}
	})
}

// utf8Valid filters out fuzz inputs the wire format cannot carry: the
// null-terminated filename and comment fields cannot contain NUL.
func utf8Valid(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == 0 {
			return false
		}
	}
	return true
}
