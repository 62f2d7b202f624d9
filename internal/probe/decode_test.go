// ABOUTME: Tests for console output decoding, including the code page 866 fallback.

package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/text/encoding/charmap"
)

func TestDecodeConsole(t *testing.T) {
	t.Run("utf8 passes through", func(t *testing.T) {
		assert.Equal(t, "Минимальное = 10мсек", DecodeConsole([]byte("Минимальное = 10мсек")))
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Equal(t, "", DecodeConsole(nil))
	})

	t.Run("oem 866 fallback", func(t *testing.T) {
		// The Windows console emits code page 866 on the Russian installs
		// the agent targets; such bytes are not valid UTF-8.
		raw, err := charmap.CodePage866.NewEncoder().Bytes([]byte("(0% потерь)"))
		require.NoError(t, err)
		require.NotEqual(t, "(0% потерь)", string(raw))

		assert.Equal(t, "(0% потерь)", DecodeConsole(raw))
	})

	t.Run("decoded output is parseable", func(t *testing.T) {
		raw, err := charmap.CodePage866.NewEncoder().Bytes([]byte(pingOutputRU))
		require.NoError(t, err)

		stats, err := ParsePingOutput(DecodeConsole(raw))
		require.NoError(t, err)
		assert.Equal(t, 15, stats.AvgRTT)
	})
}
