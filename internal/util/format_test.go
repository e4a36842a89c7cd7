package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSizeifyPicksLargestUnit(t *testing.T) {
	require.Equal(t, "512 B", Sizeify(512))
	require.Equal(t, "1.00 KiB", Sizeify(KiB))
	require.Equal(t, "2.50 MiB", Sizeify(5*MiB/2))
	require.Equal(t, "1.00 GiB", Sizeify(GiB))
	require.Equal(t, "1.00 TiB", Sizeify(TiB))
}

func TestTimeifyFormats(t *testing.T) {
	require.Equal(t, "00:00:00", Timeify(0))
	require.Equal(t, "00:01:05", Timeify(65))
	require.Equal(t, "01:00:59", Timeify(3659))
	require.Equal(t, "00:00:00", Timeify(-5))
}

func TestStatifyBounds(t *testing.T) {
	frac, speed, eta := Statify(0, 0, time.Now())
	require.Zero(t, frac)
	require.Zero(t, speed)
	require.Equal(t, "00:00:00", eta)

	frac, _, _ = Statify(200, 100, time.Now().Add(-time.Second))
	require.Equal(t, float32(1), frac, "fraction clamps at 1 even past total")

	frac, speed, _ = Statify(50*MiB, 100*MiB, time.Now().Add(-time.Second))
	require.InDelta(t, 0.5, float64(frac), 0.01)
	require.InDelta(t, 50, speed, 5)
}

func TestGenPasswordLengthAndCharset(t *testing.T) {
	pw, err := GenPassword(24)
	require.NoError(t, err)
	require.Len(t, pw, 24)
	for _, c := range pw {
		require.Contains(t, passwordAlphabet, string(c))
	}

	_, err = GenPassword(0)
	require.Error(t, err)
}

func TestRandomBytesLength(t *testing.T) {
	b, err := RandomBytes(32)
	require.NoError(t, err)
	require.Len(t, b, 32)

	b2, err := RandomBytes(32)
	require.NoError(t, err)
	require.NotEqual(t, b, b2, "two draws must not repeat")

	_, err = RandomBytes(0)
	require.Error(t, err)
}
