package compression

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var algorithms = []Algorithm{None, Gzip, Deflate, Snappy, S2, LZ4, Zstd}

func testPayload() []byte {
	return []byte(strings.Repeat("stratum partition codec test payload ", 200))
}

func TestCompressorRoundTrip(t *testing.T) {
	payload := testPayload()

	for _, alg := range algorithms {
		comp, err := NewCompressor(&Config{Algorithm: alg, Level: Default})
		require.NoError(t, err, "algorithm %s", alg)
		require.Equal(t, alg, comp.Algorithm())

		compressed, err := comp.Compress(payload)
		require.NoError(t, err, "algorithm %s", alg)

		restored, err := comp.Decompress(compressed)
		require.NoError(t, err, "algorithm %s", alg)
		require.Equal(t, payload, restored, "algorithm %s", alg)
	}
}

func TestCompressionActuallyShrinks(t *testing.T) {
	payload := testPayload()
	for _, alg := range []Algorithm{Gzip, Deflate, Zstd} {
		comp, err := NewCompressor(&Config{Algorithm: alg, Level: Best})
		require.NoError(t, err)

		compressed, err := comp.Compress(payload)
		require.NoError(t, err)
		require.Less(t, len(compressed), len(payload), "algorithm %s", alg)
	}
}

func TestStreamingRoundTrip(t *testing.T) {
	payload := testPayload()

	for _, alg := range algorithms {
		var buf bytes.Buffer
		w, err := NewWriter(alg, &buf, Default)
		require.NoError(t, err, "algorithm %s", alg)

		_, err = w.Write(payload)
		require.NoError(t, err)
		require.NoError(t, w.Close())

		r, err := NewReader(alg, &buf)
		require.NoError(t, err, "algorithm %s", alg)

		restored, err := io.ReadAll(r)
		require.NoError(t, err, "algorithm %s", alg)
		require.NoError(t, r.Close())
		require.Equal(t, payload, restored, "algorithm %s", alg)
	}
}

func TestDefaultConfig(t *testing.T) {
	comp, err := NewCompressor(nil)
	require.NoError(t, err)
	require.Equal(t, Snappy, comp.Algorithm())
}

func TestUnsupportedAlgorithm(t *testing.T) {
	_, err := NewCompressor(&Config{Algorithm: Algorithm("brotli")})
	require.Error(t, err)
}

func TestEmptyInput(t *testing.T) {
	for _, alg := range algorithms {
		comp, err := NewCompressor(&Config{Algorithm: alg})
		require.NoError(t, err)

		compressed, err := comp.Compress(nil)
		require.NoError(t, err, "algorithm %s", alg)

		restored, err := comp.Decompress(compressed)
		require.NoError(t, err, "algorithm %s", alg)
		require.Empty(t, restored, "algorithm %s", alg)
	}
}
