package predictor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"zpaqng/internal/zpaql"
)

func TestStretchSquashRoundTrip(t *testing.T) {
	for _, p := range []uint16{0, 1, 2048, 4094, 4095} {
		s := stretch(p)
		back := squash(s)
		// Integer round-trip is approximate by construction; require it to
		// stay within a small tolerance of the original probability.
		diff := int(back) - int(p)
		if diff < 0 {
			diff = -diff
		}
		require.LessOrEqual(t, diff, 64, "p=%d s=%d back=%d", p, s, back)
	}
}

func TestSquashClampsExtremes(t *testing.T) {
	require.Equal(t, uint16(0), squash(-5000))
	require.Equal(t, uint16(PredMax), squash(5000))
}

func TestConstComponentIgnoresUpdate(t *testing.T) {
	c := NewConst(3000)
	chain := &Chain{Outputs: []uint16{0}}
	require.Equal(t, uint16(3000), c.Predict(chain))
	c.Update(chain, 1)
	require.Equal(t, uint16(3000), c.Predict(chain))
}

func TestCMComponentLearnsBit(t *testing.T) {
	c := NewCM(8, 255)
	chain := &Chain{Ctx: 42, C0: 1}
	for i := 0; i < 50; i++ {
		p := c.Predict(chain)
		if i == 0 {
			require.Equal(t, uint16(PredMid), p)
		}
		c.Update(chain, 1)
	}
	require.Greater(t, int(c.Predict(chain)), PredMid)
}

func TestICMComponentLearnsBit(t *testing.T) {
	c := NewICM(8)
	chain := &Chain{Ctx: 7, C0: 1}
	for i := 0; i < 50; i++ {
		c.Predict(chain)
		c.Update(chain, 0)
	}
	require.Less(t, int(c.Predict(chain)), PredMid)
}

func TestAvgComponentBlends(t *testing.T) {
	chain := &Chain{Outputs: []uint16{4095, 0}}
	avg := &AvgComponent{I: 0, J: 1, W: 128}
	require.InDelta(t, 2047, int(avg.Predict(chain)), 2)
}

func TestMatchComponentPredictsRepeat(t *testing.T) {
	m := NewMatch(12, 8)
	pattern := []byte("abcdefabcdef")
	for _, b := range pattern {
		m.AdvanceByte(b)
	}
	// After seeing "abcdef" twice, a third occurrence of the same run
	// should find an active match and predict non-trivially (not stuck at
	// PredMid) once context accumulates.
	m.AdvanceByte('a')
	m.AdvanceByte('b')
	chain := &Chain{C0: 1}
	require.NotEqual(t, uint16(PredMid), m.Predict(chain))
}

func TestMixComponentConverges(t *testing.T) {
	mix := NewMix(4, []int{0, 1}, 6)
	chain := &Chain{Ctx: 1, C0: 1, Outputs: make([]uint16, 3)}
	chain.Outputs[0] = PredMax
	chain.Outputs[1] = PredMax
	for i := 0; i < 100; i++ {
		chain.curIdx = 2
		p := mix.Predict(chain)
		chain.Outputs[2] = p
		mix.Update(chain, 1)
	}
	require.Greater(t, int(chain.Outputs[2]), PredMid)
}

func TestISSEComponentRuns(t *testing.T) {
	isse := NewISSE(8, 0)
	chain := &Chain{Ctx: 3, C0: 1, Outputs: make([]uint16, 2)}
	chain.Outputs[0] = 2048
	for i := 0; i < 20; i++ {
		chain.curIdx = 1
		p := isse.Predict(chain)
		chain.Outputs[1] = p
		isse.Update(chain, 1)
	}
	require.NotEqual(t, uint16(0), chain.Outputs[1])
}

func TestSSEComponentRefines(t *testing.T) {
	sse := NewSSE(6, 0)
	chain := &Chain{Ctx: 9, C0: 1, Outputs: make([]uint16, 2)}
	chain.Outputs[0] = 2048
	for i := 0; i < 30; i++ {
		chain.curIdx = 1
		p := sse.Predict(chain)
		chain.Outputs[1] = p
		sse.Update(chain, 1)
	}
	require.Greater(t, int(chain.Outputs[1]), PredMid)
}

func TestChainEndToEnd(t *testing.T) {
	descs := []zpaql.ComponentDesc{
		{Kind: zpaql.KindCM, Args: []int{8, 255}},
		{Kind: zpaql.KindSSE, Args: []int{6, 0}},
	}
	chain := NewChain(descs)
	require.Equal(t, 2, chain.Len())

	for i := 0; i < 8; i++ {
		chain.BeginByte(123)
		bit := 1
		p := chain.Predict()
		require.True(t, p <= PredMax)
		chain.Update(bit)
	}
	chain.AdvanceByte('x')
}
