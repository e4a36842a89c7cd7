package codec

import (
	"io"

	"zpaqng/internal/arith"
	"zpaqng/internal/predictor"
	"zpaqng/internal/zpaql"
)

// StreamEncoder binds one hcomp VM, its predictor chain, and an
// arithmetic coder into a byte-oriented compressor: for each byte it
// predicts and codes 8 bits MSB-first, then lets the VM and MATCH
// components observe the coded byte before moving to the next.
type StreamEncoder struct {
	vm    *zpaql.VM
	chain *predictor.Chain
	enc   *arith.Encoder
	ctx   uint32
}

// NewStreamEncoder prepares a compressor for the given method, writing
// coded bytes to w.
func NewStreamEncoder(w io.Writer, m *Method) *StreamEncoder {
	return &StreamEncoder{
		vm:    zpaql.NewVM(m.HComp.Header.HH, m.HComp.Header.HM),
		chain: predictor.NewChain(m.Components),
		enc:   arith.NewEncoder(w),
	}
}

// EncodeByte codes one byte and advances the VM/chain/match state for the
// next.
func (s *StreamEncoder) EncodeByte(hcompCode []byte, b byte) error {
	s.chain.BeginByte(s.ctx)
	for i := 7; i >= 0; i-- {
		bit := int((b >> uint(i)) & 1)
		p := s.chain.Predict()
		if err := s.enc.EncodeBit(p, bit); err != nil {
			return err
		}
		s.chain.Update(bit)
	}
	s.chain.AdvanceByte(b)
	if err := s.vm.Run(hcompCode, b); err != nil {
		return err
	}
	s.ctx = s.vm.A
	return nil
}

// Flush terminates the arithmetic-coded stream.
func (s *StreamEncoder) Flush() error { return s.enc.Flush() }

// StreamDecoder is the EncodeByte-compatible inverse.
type StreamDecoder struct {
	vm    *zpaql.VM
	chain *predictor.Chain
	dec   *arith.Decoder
	ctx   uint32
}

// NewStreamDecoder prepares a decompressor for the given method, reading
// coded bytes from r.
func NewStreamDecoder(r io.Reader, m *Method) (*StreamDecoder, error) {
	dec, err := arith.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	return &StreamDecoder{
		vm:    zpaql.NewVM(m.HComp.Header.HH, m.HComp.Header.HM),
		chain: predictor.NewChain(m.Components),
		dec:   dec,
	}, nil
}

// DecodeByte reverses EncodeByte, reproducing the original byte bit by
// bit using the same predictions the encoder used.
func (s *StreamDecoder) DecodeByte(hcompCode []byte) (byte, error) {
	s.chain.BeginByte(s.ctx)
	var b byte
	for i := 7; i >= 0; i-- {
		p := s.chain.Predict()
		bit, err := s.dec.DecodeBit(p)
		if err != nil {
			return 0, err
		}
		s.chain.Update(bit)
		b = b<<1 | byte(bit)
	}
	s.chain.AdvanceByte(b)
	if err := s.vm.Run(hcompCode, b); err != nil {
		return 0, err
	}
	s.ctx = s.vm.A
	return b, nil
}
