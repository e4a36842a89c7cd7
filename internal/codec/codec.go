package codec

import (
	"bytes"

	"zpaqng/internal/zpaql"
)

// EncodeBlock compresses data in full using the given method, returning
// the coded payload (without any framing — C7 owns that). A method with
// no predictor components at all is the store preset: data
// is written back literally, with no arithmetic coding bytes whatsoever.
func EncodeBlock(data []byte, m *Method) ([]byte, error) {
	if len(m.Components) == 0 {
		return append([]byte(nil), data...), nil
	}

	var buf bytes.Buffer
	enc := NewStreamEncoder(&buf, m)
	for _, b := range data {
		if err := enc.EncodeByte(m.HComp.Code, b); err != nil {
			return nil, err
		}
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeBlock reverses EncodeBlock, producing exactly n decoded bytes (or,
// if the block carries a pcomp program, n bytes run through it). A method
// with no predictor components is the store preset: coded is already the
// literal payload, copied straight through with no coder involved.
func DecodeBlock(coded []byte, n int, m *Method) ([]byte, error) {
	if len(m.Components) == 0 {
		out := append([]byte(nil), coded...)
		return zpaql.RunPComp(m.PComp, out)
	}

	r := bytes.NewReader(coded)
	dec, err := NewStreamDecoder(r, m)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		b, err := dec.DecodeByte(m.HComp.Code)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return zpaql.RunPComp(m.PComp, out)
}
